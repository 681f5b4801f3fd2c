// Package genlog defines the append-only log of installed planning
// generations.
//
// # Why Generation Log Exists
//
// Each installed generation is the answer to "why did the vehicle take this
// route at that moment". The log keeps one record per installed generation,
// keyed by mission and generation ID, so a run can be audited or replayed
// after the fact without retaining full waypoint arrays.
//
// Records are immutable once appended. Appending an existing key is an error.
package genlog

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/planner"
)

var (
	// ErrNotFound is returned by Get for an unknown record.
	ErrNotFound = errors.New("generation record not found")

	// ErrDuplicate is returned when appending a key that already exists.
	ErrDuplicate = errors.New("generation record already exists")
)

// PathSummary describes one candidate path without its waypoints.
type PathSummary struct {
	PathID     string  `msgpack:"path_id"`
	LaneOption int     `msgpack:"lane_option"`
	Length     float64 `msgpack:"length"`
	Cost       float64 `msgpack:"cost"`
	WayPoints  int     `msgpack:"waypoints"`
}

// Record is one installed generation.
type Record struct {
	MissionID    string        `msgpack:"mission_id"`
	GenerationID uint64        `msgpack:"generation_id"`
	InstalledAt  time.Time     `msgpack:"installed_at"`
	Trigger      string        `msgpack:"trigger"`
	GoalIndex    int           `msgpack:"goal_index"`
	Start        geom.Pose     `msgpack:"start"`
	Goal         geom.Pose     `msgpack:"goal"`
	MapVersion   uint64        `msgpack:"map_version"`
	CostVersion  uint64        `msgpack:"cost_version"`
	Paths        []PathSummary `msgpack:"paths"`
}

// Summarize reduces candidate paths to their summaries.
func Summarize(paths []planner.CandidatePath) []PathSummary {
	out := make([]PathSummary, 0, len(paths))
	for _, p := range paths {
		out = append(out, PathSummary{
			PathID:     p.PathID,
			LaneOption: p.LaneOption,
			Length:     p.Length,
			Cost:       p.Cost,
			WayPoints:  len(p.WayPoints),
		})
	}
	return out
}

// Store is the interface for persisting generation records.
//
// Implementations MUST be safe for concurrent use.
type Store interface {
	// Append adds a record. It returns ErrDuplicate if the mission already
	// holds the generation.
	Append(ctx context.Context, r Record) error

	// Get returns a single record or ErrNotFound.
	Get(ctx context.Context, missionID string, generation uint64) (Record, error)

	// List returns every record of a mission in ascending generation order.
	List(ctx context.Context, missionID string) ([]Record, error)

	// Close releases the store's resources.
	Close() error
}
