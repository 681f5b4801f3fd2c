// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the genlog.Store interface.
//
// # Concurrency Model
//
// Missions are independent, so the store keeps one log per mission in a
// sync.Map and only locks the log being appended to. Readers of one mission
// never contend with writers of another.
package inmemorystore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/specialistvlad/globalplanner/internal/genlog"
)

type missionLog struct {
	mu      sync.RWMutex
	records []genlog.Record
}

// Store is an in-memory implementation of genlog.Store.
type Store struct {
	missions sync.Map // Key: mission ID, Value: *missionLog
}

// New creates a new, empty in-memory generation log.
func New() genlog.Store {
	return &Store{}
}

func (s *Store) log(missionID string) *missionLog {
	v, _ := s.missions.LoadOrStore(missionID, &missionLog{})
	return v.(*missionLog)
}

// Append adds a record, keeping each mission's log sorted by generation.
func (s *Store) Append(ctx context.Context, r genlog.Record) error {
	l := s.log(r.MissionID)
	l.mu.Lock()
	defer l.mu.Unlock()

	i, found := slices.BinarySearchFunc(l.records, r.GenerationID, func(e genlog.Record, g uint64) int {
		switch {
		case e.GenerationID < g:
			return -1
		case e.GenerationID > g:
			return 1
		}
		return 0
	})
	if found {
		return fmt.Errorf("%w: mission %s generation %d", genlog.ErrDuplicate, r.MissionID, r.GenerationID)
	}
	l.records = slices.Insert(l.records, i, r)
	return nil
}

// Get retrieves a single record.
func (s *Store) Get(ctx context.Context, missionID string, generation uint64) (genlog.Record, error) {
	v, ok := s.missions.Load(missionID)
	if ok {
		l := v.(*missionLog)
		l.mu.RLock()
		defer l.mu.RUnlock()
		for _, r := range l.records {
			if r.GenerationID == generation {
				return r, nil
			}
		}
	}
	return genlog.Record{}, fmt.Errorf("%w: mission %s generation %d", genlog.ErrNotFound, missionID, generation)
}

// List returns a copy of a mission's records.
func (s *Store) List(ctx context.Context, missionID string) ([]genlog.Record, error) {
	v, ok := s.missions.Load(missionID)
	if !ok {
		return nil, nil
	}
	l := v.(*missionLog)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.records), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
