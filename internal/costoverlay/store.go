// Package costoverlay holds time-bounded cost adjustments reported by
// perception. Entries older than the configured horizon no longer influence
// planning and are removed by Prune.
package costoverlay

import (
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// DefaultHorizon is how long a cost entry stays in effect.
const DefaultHorizon = 15 * time.Second

// LocationRef names where a cost applies: a lane (LaneID != 0) or, when no
// lane is given, every edge passing within Radius of Position.
type LocationRef struct {
	LaneID   int       `msgpack:"lane_id,omitempty" json:"lane_id,omitempty"`
	Position r3.Vector `msgpack:"position" json:"position"`
	Radius   float64   `msgpack:"radius,omitempty" json:"radius,omitempty"`
}

// Entry is a single cost adjustment.
type Entry struct {
	ID        uint64      `json:"id"`
	Location  LocationRef `json:"location"`
	Delta     float64     `json:"delta"`
	Timestamp time.Time   `json:"timestamp"`
}

// Store is the cost overlay. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	horizon time.Duration
	entries []Entry
	nextID  uint64
	version uint64
}

// New creates a store with the given horizon. A non-positive horizon falls
// back to DefaultHorizon.
func New(horizon time.Duration) *Store {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Store{horizon: horizon}
}

// Horizon returns the configured horizon.
func (s *Store) Horizon() time.Duration { return s.horizon }

// Insert records a cost adjustment. Non-finite deltas are ignored.
func (s *Store) Insert(loc LocationRef, delta float64, ts time.Time) (Entry, bool) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return Entry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e := Entry{ID: s.nextID, Location: loc, Delta: delta, Timestamp: ts}
	s.entries = append(s.entries, e)
	s.version++
	return e, true
}

// Prune removes entries older than the horizon relative to now and returns
// how many were removed.
func (s *Store) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if s.live(e, now) {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	clear(s.entries[len(kept):])
	s.entries = kept
	if removed > 0 {
		s.version++
	}
	return removed
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) > 0 {
		s.entries = nil
		s.version++
	}
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Version increments on every insert and on every prune that removed
// something.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot returns the entries in effect at now, in insertion order.
func (s *Store) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if s.live(e, now) {
			out = append(out, e)
		}
	}
	return Snapshot{Taken: now, Entries: out}
}

func (s *Store) live(e Entry, now time.Time) bool {
	return now.Sub(e.Timestamp) <= s.horizon
}

// Snapshot is an immutable view of the overlay at a point in time.
type Snapshot struct {
	Taken   time.Time
	Entries []Entry
}

// Resolve maps the snapshot onto a graph and returns the summed delta per
// edge ID. Entries are applied in insertion order so the sums are
// reproducible.
func (s Snapshot) Resolve(g *roadnet.Graph) map[int32]float64 {
	if len(s.Entries) == 0 || g == nil {
		return nil
	}
	out := map[int32]float64{}
	for _, e := range s.Entries {
		if e.Location.LaneID != 0 {
			for _, eid := range g.LaneEdges(e.Location.LaneID) {
				out[eid] += e.Delta
			}
			continue
		}
		if e.Location.Radius <= 0 {
			continue
		}
		for _, edge := range g.Edges {
			if within(g, edge, e.Location) {
				out[edge.ID] += e.Delta
			}
		}
	}
	return out
}

func within(g *roadnet.Graph, edge roadnet.Edge, loc LocationRef) bool {
	from, to := g.Vertex(edge.From).Position, g.Vertex(edge.To).Position
	return geom.DistanceToSegment(loc.Position, from, to) <= loc.Radius
}
