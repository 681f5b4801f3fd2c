// Package output implements feed.OutputSink variants and builds the
// visualization overlay.
package output

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// Log writes publications to the context logger.
type Log struct{}

func (Log) PublishPaths(ctx context.Context, ps feed.PathSet) error {
	attrs := []any{"generation", ps.GenerationID, "goal", ps.GoalIndex, "paths", len(ps.Paths)}
	if len(ps.Paths) > 0 {
		attrs = append(attrs, "length", ps.Paths[0].Length, "waypoints", len(ps.Paths[0].WayPoints))
	}
	ctxlog.FromContext(ctx).Info("🛣️ Published global paths.", attrs...)
	return nil
}

func (Log) PublishStatus(ctx context.Context, st feed.MissionStatus) error {
	ctxlog.FromContext(ctx).Info("Mission status.", "state", st.State, "goal", st.GoalIndex,
		"generation", st.Generation, "failure", st.LastFailure, "paused", st.Paused, "poseStale", st.PoseStale)
	return nil
}

func (Log) PublishOverlay(ctx context.Context, ov feed.Overlay) error {
	ctxlog.FromContext(ctx).Debug("Published overlay.", "markers", len(ov.Markers), "paths", len(ov.Paths))
	return nil
}

// Fanout publishes to every sink and joins their errors.
type Fanout []feed.OutputSink

func (f Fanout) PublishPaths(ctx context.Context, ps feed.PathSet) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.PublishPaths(ctx, ps))
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishStatus(ctx context.Context, st feed.MissionStatus) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.PublishStatus(ctx, st))
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishOverlay(ctx context.Context, ov feed.Overlay) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.PublishOverlay(ctx, ov))
	}
	return errors.Join(errs...)
}

// Recorder keeps every publication in memory.
type Recorder struct {
	mu       sync.Mutex
	paths    []feed.PathSet
	statuses []feed.MissionStatus
	overlays []feed.Overlay
}

func (r *Recorder) PublishPaths(_ context.Context, ps feed.PathSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, ps)
	return nil
}

func (r *Recorder) PublishStatus(_ context.Context, st feed.MissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
	return nil
}

func (r *Recorder) PublishOverlay(_ context.Context, ov feed.Overlay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlays = append(r.overlays, ov)
	return nil
}

// Paths returns the published path sets.
func (r *Recorder) Paths() []feed.PathSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feed.PathSet(nil), r.paths...)
}

// Statuses returns the published statuses.
func (r *Recorder) Statuses() []feed.MissionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feed.MissionStatus(nil), r.statuses...)
}

// Overlays returns the published overlays.
func (r *Recorder) Overlays() []feed.Overlay {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]feed.Overlay(nil), r.overlays...)
}

// States returns the sequence of distinct published states.
func (r *Recorder) States() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, st := range r.statuses {
		if len(out) == 0 || out[len(out)-1] != st.State {
			out = append(out, st.State)
		}
	}
	return out
}

// overlayStride keeps overlay paths light: every n-th waypoint plus the last.
const overlayStride = 4

// BuildOverlay assembles the visualization payload from the current mission
// view.
func BuildOverlay(missionID string, ext roadnet.Extent, dests []goals.Destination, current int, paths []planner.CandidatePath, stamp time.Time) feed.Overlay {
	ov := feed.Overlay{MissionID: missionID, Extent: ext, Stamp: stamp}
	for _, d := range dests {
		ov.Markers = append(ov.Markers, feed.OverlayMarker{
			Index:    d.Index,
			Pose:     d.Pose,
			Label:    d.Label,
			Selected: d.Index == current,
		})
	}
	for _, p := range paths {
		op := feed.OverlayPath{PathID: p.PathID, LaneOption: p.LaneOption}
		for i, wp := range p.WayPoints {
			if i%overlayStride == 0 || i == len(p.WayPoints)-1 {
				op.Points = append(op.Points, geom.Pose{Position: wp.Position, Heading: wp.Heading})
			}
		}
		ov.Paths = append(ov.Paths, op)
	}
	return ov
}
