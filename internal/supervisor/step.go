package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/genlog"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/metrics"
	"github.com/specialistvlad/globalplanner/internal/output"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// maxTransitionsPerStep bounds chained transitions evaluated in one Step.
const maxTransitionsPerStep = 8

// Step consumes a finished plan, if any, and evaluates the state machine.
func (s *Supervisor) Step(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.collect(ctx, now)
	s.checkStalePose(ctx, now)
	for i := 0; i < maxTransitionsPerStep; i++ {
		before := s.state
		s.evaluate(ctx, now)
		if s.state == before {
			break
		}
	}
	metrics.MapVersion.Set(float64(s.deps.Assembler.Version()))
	metrics.GoalIndex.Set(float64(s.deps.Goals.Index()))
	s.publishStatus(ctx, now)
}

func (s *Supervisor) evaluate(ctx context.Context, now time.Time) {
	switch s.state {
	case StateWaitingForMap:
		if s.deps.Assembler.Usable() {
			s.setState(ctx, StateWaitingForGoal)
		}

	case StateWaitingForGoal:
		if _, ok := s.deps.Goals.CurrentGoal(); ok && s.havePose {
			s.setState(ctx, StatePlanning)
			trigger := TriggerGoal
			if s.generation == 0 {
				trigger = TriggerInitial
			}
			s.dispatch(ctx, now, trigger)
		}

	case StatePlanning:
		if s.arrived() {
			s.startDwell(ctx, now)
			return
		}
		if s.outstanding == nil {
			// Dispatch was suspended (stale pose, pause, missing pose).
			s.dispatch(ctx, now, TriggerRetry)
			return
		}
		if trigger := s.dataTrigger(now, s.outstanding.basis); trigger != "" {
			s.dispatch(ctx, now, trigger)
		}

	case StateFollowing:
		if s.arrived() {
			s.startDwell(ctx, now)
			return
		}
		if trigger := s.replanTrigger(now); trigger != "" {
			s.setState(ctx, StatePlanning)
			s.dispatch(ctx, now, trigger)
		}

	case StatePlanningFailed:
		retry := now.Sub(s.failedAt) >= s.opts.FailureBackoff
		if !retry && s.dataTrigger(now, s.failedBasis) != "" {
			retry = true
		}
		if retry && !s.paused && !s.poseStale {
			s.setState(ctx, StatePlanning)
			s.dispatch(ctx, now, TriggerRetry)
		}

	case StateDwell:
		if now.Before(s.dwellUntil) {
			return
		}
		next, ok := s.deps.Goals.AdvanceGoal()
		s.paths = nil
		if !ok {
			ctxlog.FromContext(ctx).Info("🏁 Final destination reached.", "index", s.deps.Goals.Index())
			s.setState(ctx, StateAwaitingDestinations)
			return
		}
		ctxlog.FromContext(ctx).Info("➡️ Advancing to next destination.", "index", next.Index)
		s.setState(ctx, StatePlanning)
		s.dispatch(ctx, now, TriggerGoal)
		s.publishOverlay(ctx, now)

	case StateAwaitingDestinations:
	}
}

// replanTrigger names the reason to replan while following, or "".
// Distance and elapsed time count from the last dispatch.
func (s *Supervisor) replanTrigger(now time.Time) string {
	if s.paused || s.poseStale {
		return ""
	}
	if s.traveled >= s.opts.ReplanDistance {
		return TriggerDistance
	}
	if now.Sub(s.lastPlanAt) >= s.opts.ReplanTime {
		return TriggerTime
	}
	return s.dataTrigger(now, s.planned)
}

// dataTrigger reports a material map or cost change since basis, subject to
// the replan rate limit.
func (s *Supervisor) dataTrigger(now time.Time, basis planBasis) string {
	if s.paused || s.poseStale {
		return ""
	}
	trigger := ""
	switch {
	case s.deps.Assembler.Version() != basis.mapVersion:
		trigger = TriggerMap
	case s.deps.Costs.Version() != basis.costVersion:
		trigger = TriggerCost
	}
	if trigger == "" || !s.limiter.AllowN(now, 1) {
		return ""
	}
	return trigger
}

func (s *Supervisor) arrived() bool {
	if !s.havePose || len(s.paths) == 0 {
		return false
	}
	goal, ok := s.deps.Goals.CurrentGoal()
	if !ok || s.paths[0].GoalIndex != goal.Index {
		return false
	}
	return geom.Distance(s.pose.Position, goal.Pose.Position) <= s.opts.ArrivalTolerance
}

func (s *Supervisor) startDwell(ctx context.Context, now time.Time) {
	goal, _ := s.deps.Goals.CurrentGoal()
	s.cancelOutstanding()
	dwell := s.deps.Goals.DwellFor(goal)
	s.dwellUntil = now.Add(dwell)
	ctxlog.FromContext(ctx).Info("✅ Destination reached.", "index", goal.Index, "dwell", dwell)
	s.setState(ctx, StateDwell)
}

// dispatch issues a planning request, superseding any outstanding one. It is
// a no-op while paused, without a pose or with a stale pose; PLANNING retries
// on a later step.
func (s *Supervisor) dispatch(ctx context.Context, now time.Time, trigger string) {
	logger := ctxlog.FromContext(ctx)
	if s.paused || s.poseStale || !s.havePose {
		return
	}
	goal, ok := s.deps.Goals.CurrentGoal()
	if !ok {
		s.setState(ctx, StateWaitingForGoal)
		return
	}
	g, err := s.deps.Assembler.Snapshot()
	if err != nil {
		s.setState(ctx, StateWaitingForMap)
		return
	}

	s.deps.Costs.Prune(now)
	costs := s.deps.Costs.Snapshot(now)

	s.requestSeq++
	req := &request{
		id:       s.requestSeq,
		trigger:  trigger,
		basis:    planBasis{mapVersion: g.Version, costVersion: s.deps.Costs.Version(), goalIndex: goal.Index},
		start:    s.pose,
		goal:     goal.Pose,
		issuedAt: now,
	}
	if s.outstanding != nil {
		logger.Debug("Superseding outstanding planning request.", "previous", s.outstanding.id, "next", req.id)
	}
	s.outstanding = req
	s.traveled = 0
	s.lastPlanAt = now

	s.worker.Submit(req.id, planner.Request{
		GenerationID: req.id,
		Start:        req.start,
		Goal:         req.goal,
		GoalIndex:    goal.Index,
		Graph:        g,
		Costs:        costs,
		Params:       s.opts.Params,
		IssuedAt:     now,
	})
	metrics.PlanRequests.WithLabelValues(trigger).Inc()
	logger.Debug("Planning request dispatched.", "request", req.id, "trigger", trigger, "goal", goal.Index)
}

func (s *Supervisor) cancelOutstanding() {
	if s.outstanding != nil {
		s.worker.Cancel()
		s.outstanding = nil
	}
}

// collect takes a finished result and installs it if it answers the newest
// outstanding request.
func (s *Supervisor) collect(ctx context.Context, now time.Time) {
	res, ok := s.mailbox.Take()
	if !ok {
		return
	}
	logger := ctxlog.FromContext(ctx)
	if s.outstanding == nil || res.RequestID != s.outstanding.id || s.state != StatePlanning {
		metrics.PlanResults.WithLabelValues("discarded").Inc()
		logger.Debug("Discarding stale planning result.", "request", res.RequestID)
		return
	}
	req := s.outstanding
	s.outstanding = nil
	metrics.PlanDuration.Observe(res.Finished.Sub(res.Started).Seconds())

	err := res.Err
	if err == nil && len(res.Value) == 0 {
		err = planner.ErrGoalUnreachable
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			metrics.PlanResults.WithLabelValues("discarded").Inc()
			return
		}
		if errors.Is(err, roadnet.ErrMapIncomplete) {
			s.setState(ctx, StateWaitingForMap)
			return
		}
		reason := FailureReason(err)
		metrics.PlanResults.WithLabelValues("failed").Inc()
		metrics.PlanFailures.WithLabelValues(reason).Inc()
		logger.Warn("Planning failed.", "request", req.id, "reason", reason, "error", err)
		s.lastFailure = reason
		s.failedAt = now
		s.failedBasis = req.basis
		s.setState(ctx, StatePlanningFailed)
		return
	}

	s.install(ctx, now, req, res.Value)
}

func (s *Supervisor) install(ctx context.Context, now time.Time, req *request, paths []planner.CandidatePath) {
	s.generation = req.id
	s.paths = paths
	s.planned = req.basis
	if s.lastFailure != ReasonStalePose {
		s.lastFailure = ""
	}
	metrics.PlanResults.WithLabelValues("installed").Inc()
	ctxlog.FromContext(ctx).Info("🛣️ Installed new generation.", "generation", req.id, "trigger", req.trigger,
		"goal", req.basis.goalIndex, "paths", len(paths), "length", paths[0].Length)
	s.setState(ctx, StateFollowing)

	if err := s.deps.Sink.PublishPaths(ctx, feed.PathSet{
		MissionID:    s.opts.MissionID,
		GenerationID: req.id,
		GoalIndex:    req.basis.goalIndex,
		Paths:        paths,
		Stamp:        now,
	}); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish paths.", "error", err)
	}
	s.publishOverlay(ctx, now)

	if s.deps.GenLog != nil {
		rec := genlog.Record{
			MissionID:    s.opts.MissionID,
			GenerationID: req.id,
			InstalledAt:  now,
			Trigger:      req.trigger,
			GoalIndex:    req.basis.goalIndex,
			Start:        req.start,
			Goal:         req.goal,
			MapVersion:   req.basis.mapVersion,
			CostVersion:  req.basis.costVersion,
			Paths:        genlog.Summarize(paths),
		}
		if err := s.deps.GenLog.Append(ctx, rec); err != nil {
			ctxlog.FromContext(ctx).Warn("Failed to record generation.", "generation", req.id, "error", err)
		}
	}
}

func (s *Supervisor) checkStalePose(ctx context.Context, now time.Time) {
	if !s.havePose || s.poseStale || now.Sub(s.lastPoseAt) <= s.opts.StalePoseTimeout {
		return
	}
	s.poseStale = true
	s.lastFailure = ReasonStalePose
	ctxlog.FromContext(ctx).Warn("Pose is stale, planning suspended.", "lastPose", s.lastPoseAt, "error", ErrStalePose)
}

func (s *Supervisor) setState(ctx context.Context, next State) {
	if s.state == next {
		return
	}
	ctxlog.FromContext(ctx).Info("Mission state changed.", "from", s.state.String(), "to", next.String())
	if s.state == StatePlanning && next != StateFollowing {
		s.cancelOutstanding()
	}
	s.state = next
	metrics.SetState(next.String(), stateNames)
}

func (s *Supervisor) publishStatus(ctx context.Context, now time.Time) {
	st := s.statusLocked(now)
	if s.lastStatus != nil {
		prev := *s.lastStatus
		prev.Stamp = st.Stamp
		if prev == st {
			return
		}
	}
	s.lastStatus = &st
	if err := s.deps.Sink.PublishStatus(ctx, st); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish status.", "error", err)
	}
}

func (s *Supervisor) publishOverlay(ctx context.Context, now time.Time) {
	var ext roadnet.Extent
	if g, err := s.deps.Assembler.Snapshot(); err == nil {
		ext = g.Extent()
	}
	ov := output.BuildOverlay(s.opts.MissionID, ext, s.deps.Goals.Destinations(), s.deps.Goals.Index(), s.paths, now)
	if err := s.deps.Sink.PublishOverlay(ctx, ov); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish overlay.", "error", err)
	}
}
