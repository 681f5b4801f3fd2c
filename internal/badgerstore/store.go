// Package badgerstore provides a persistent genlog.Store backed by BadgerDB.
//
// Keys are "gen/<mission>/<generation>" with the generation zero-padded to
// twenty digits, so a prefix scan over a mission yields its records in
// ascending generation order. Values are msgpack-encoded genlog.Records.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/genlog"
)

// Config configures the database.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. If nil, it is discarded.
	Logger *slog.Logger

	// GCInterval is how often RunGC collects the value log. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns production settings for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for a throwaway database.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a BadgerDB-backed genlog.Store.
type Store struct {
	db  *badger.DB
	cfg Config
}

// Open opens (or creates) the database.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

func missionPrefix(missionID string) []byte {
	return []byte("gen/" + missionID + "/")
}

func recordKey(missionID string, generation uint64) []byte {
	return fmt.Appendf(missionPrefix(missionID), "%020d", generation)
}

// Append stores a record.
func (s *Store) Append(ctx context.Context, r genlog.Record) error {
	value, err := msgpack.Marshal(&r)
	if err != nil {
		return fmt.Errorf("encode generation record: %w", err)
	}
	key := recordKey(r.MissionID, r.GenerationID)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("%w: mission %s generation %d", genlog.ErrDuplicate, r.MissionID, r.GenerationID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, value)
	})
}

// Get retrieves a single record.
func (s *Store) Get(ctx context.Context, missionID string, generation uint64) (genlog.Record, error) {
	var r genlog.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(missionID, generation))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &r)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return genlog.Record{}, fmt.Errorf("%w: mission %s generation %d", genlog.ErrNotFound, missionID, generation)
	}
	if err != nil {
		return genlog.Record{}, fmt.Errorf("read generation record: %w", err)
	}
	return r, nil
}

// List returns every record of a mission in ascending generation order.
func (s *Store) List(ctx context.Context, missionID string) ([]genlog.Record, error) {
	var out []genlog.Record
	prefix := missionPrefix(missionID)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r genlog.Record
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list generation records: %w", err)
	}
	return out, nil
}

// RunGC periodically collects the value log until ctx is cancelled. It
// returns immediately for in-memory databases or a zero GCInterval.
func (s *Store) RunGC(ctx context.Context) {
	if s.cfg.InMemory || s.cfg.GCInterval <= 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				// RunValueLogGC returns an error once nothing is left to collect.
				if err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						logger.Debug("Value log GC stopped.", "error", err)
					}
					break
				}
			}
		}
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ genlog.Store = (*Store)(nil)
