package supervisor

import (
	"context"
	"math"
	"time"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/metrics"
)

// Apply applies one input event. It is the only entry point that mutates
// the road network, the cost overlay and the goal queue.
func (s *Supervisor) Apply(ctx context.Context, ev any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	logger := ctxlog.FromContext(ctx)

	switch e := ev.(type) {
	case feed.PoseEvent:
		s.applyPose(e, now)
	case feed.StatusEvent:
		s.applyStatus(e, now)
	case feed.FragmentEvent:
		if _, err := s.deps.Assembler.MergeFragment(ctx, e.Category, e.Payload); err != nil {
			logger.Warn("Rejected map fragment.", "category", e.Category.String(), "error", err)
		}
	case feed.BlobEvent:
		if err := s.deps.Assembler.InstallBlob(ctx, e.Data); err != nil {
			logger.Warn("Rejected map blob.", "error", err)
		}
	case feed.BundleEvent:
		if err := s.deps.Assembler.InstallBundle(ctx, e.Bundle); err != nil {
			logger.Warn("Rejected map file.", "source", e.Source, "error", err)
		}
	case feed.DestinationsEvent:
		s.applyDestinations(ctx, e)
	case feed.GoalPoseEvent:
		idx := s.deps.Goals.Append(goals.Destination{Pose: e.Pose, Dwell: e.Dwell})
		if err := s.deps.Goals.SetIndex(idx); err != nil {
			logger.Warn("Could not select goal pose.", "error", err)
			return
		}
		logger.Info("🎯 Goal pose received.", "index", idx)
		s.retarget(ctx, now)
	case feed.CostEvent:
		s.applyCost(ctx, e, now)
	case feed.OverrideEvent:
		s.applyOverride(ctx, e, now)
	default:
		logger.Warn("Ignoring unknown event.", "type", ev)
	}
}

func (s *Supervisor) applyPose(e feed.PoseEvent, now time.Time) {
	if s.havePose && !s.statusFresh(now) {
		s.traveled += geom.Distance(s.pose.Position, e.Pose.Position)
	}
	s.pose = e.Pose
	s.havePose = true
	s.lastPoseAt = now
	if s.poseStale {
		s.poseStale = false
		if s.lastFailure == ReasonStalePose {
			s.lastFailure = ""
		}
	}
}

func (s *Supervisor) statusFresh(now time.Time) bool {
	return s.haveStatus && now.Sub(s.lastStatusAt) <= statusFreshness
}

func (s *Supervisor) applyStatus(e feed.StatusEvent, now time.Time) {
	stamp := e.Stamp
	if stamp.IsZero() {
		stamp = now
	}
	if s.haveStatus && stamp.After(s.lastStatusStamp) {
		if dt := stamp.Sub(s.lastStatusStamp); dt <= maxStatusGap {
			s.traveled += math.Abs(e.Speed) * dt.Seconds()
		}
	}
	s.haveStatus = true
	s.lastStatusAt = now
	if stamp.After(s.lastStatusStamp) {
		s.lastStatusStamp = stamp
	}
}

func (s *Supervisor) applyDestinations(ctx context.Context, e feed.DestinationsEvent) {
	logger := ctxlog.FromContext(ctx)
	now := s.now()

	err := e.Err
	if err == nil {
		err = s.deps.Goals.LoadDestinations(e.Destinations, e.StartIndex)
	}
	if err != nil {
		logger.Error("Destinations rejected, mission halted.", "source", e.Source, "error", err)
		s.cancelOutstanding()
		s.lastFailure = ReasonInvalidDestinationFile
		s.setState(ctx, StateAwaitingDestinations)
		return
	}

	logger.Info("📍 Destinations loaded.", "source", e.Source, "count", len(e.Destinations), "start", s.deps.Goals.Index())
	if s.lastFailure == ReasonInvalidDestinationFile {
		s.lastFailure = ""
	}
	s.retarget(ctx, now)
}

// retarget abandons the current plan after the goal changed.
func (s *Supervisor) retarget(ctx context.Context, now time.Time) {
	s.cancelOutstanding()
	s.paths = nil
	if s.deps.Assembler.Usable() {
		s.setState(ctx, StateWaitingForGoal)
	} else {
		s.setState(ctx, StateWaitingForMap)
	}
	s.publishOverlay(ctx, now)
}

func (s *Supervisor) applyCost(ctx context.Context, e feed.CostEvent, now time.Time) {
	if e.Clear {
		s.deps.Costs.Clear()
		ctxlog.FromContext(ctx).Info("Cost overlay cleared.")
	} else {
		stamp := e.Stamp
		if stamp.IsZero() {
			stamp = now
		}
		if _, ok := s.deps.Costs.Insert(e.Location, e.Delta, stamp); !ok {
			ctxlog.FromContext(ctx).Warn("Ignoring non-finite cost update.", "lane", e.Location.LaneID)
		}
	}
	metrics.CostEntries.Set(float64(s.deps.Costs.Len()))
}

func (s *Supervisor) applyOverride(ctx context.Context, e feed.OverrideEvent, now time.Time) {
	logger := ctxlog.FromContext(ctx)
	if !s.opts.HMI {
		logger.Warn("Ignoring operator override, HMI is disabled.", "command", e.Command)
		return
	}
	logger.Info("🕹️ Operator override.", "command", e.Command, "index", e.Index)

	switch e.Command {
	case feed.OverrideGoto:
		if err := s.deps.Goals.SetIndex(e.Index); err != nil {
			logger.Warn("Rejected goto override.", "error", err)
			return
		}
		s.retarget(ctx, now)
	case feed.OverridePause:
		s.paused = true
	case feed.OverrideResume:
		s.paused = false
	case feed.OverrideReloadDestinations, feed.OverrideReloadMap:
		if s.deps.Reloader == nil {
			logger.Warn("No reloader configured.", "command", e.Command)
			return
		}
		reload := s.deps.Reloader.ReloadDestinations
		if e.Command == feed.OverrideReloadMap {
			reload = s.deps.Reloader.ReloadMap
		}
		if err := reload(ctx); err != nil {
			logger.Warn("Reload request failed.", "command", e.Command, "error", err)
		}
	default:
		logger.Warn("Unknown override command.", "command", e.Command)
	}
}

// Prune drops expired cost entries.
func (s *Supervisor) Prune(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.deps.Costs.Prune(s.now()); n > 0 {
		ctxlog.FromContext(ctx).Debug("Pruned expired cost entries.", "removed", n)
	}
	metrics.CostEntries.Set(float64(s.deps.Costs.Len()))
}
