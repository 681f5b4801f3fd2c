package supervisor

import (
	"context"
	"errors"

	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// State is the mission state.
type State int

const (
	StateWaitingForMap State = iota
	StateWaitingForGoal
	StatePlanning
	StateFollowing
	StatePlanningFailed
	StateDwell
	StateAwaitingDestinations
)

var stateNames = []string{
	StateWaitingForMap:        "WAITING_FOR_MAP",
	StateWaitingForGoal:       "WAITING_FOR_GOAL",
	StatePlanning:             "PLANNING",
	StateFollowing:            "FOLLOWING",
	StatePlanningFailed:       "PLANNING_FAILED",
	StateDwell:                "DWELL",
	StateAwaitingDestinations: "AWAITING_DESTINATIONS",
}

func (s State) String() string {
	if int(s) < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// StateNames returns the names of every state.
func StateNames() []string {
	return append([]string(nil), stateNames...)
}

// ErrStalePose is reported while no pose has arrived within the stale pose
// timeout.
var ErrStalePose = errors.New("pose stale")

// Failure reasons reported in the mission status.
const (
	ReasonGoalUnreachable        = "GoalUnreachable"
	ReasonSearchExhausted        = "SearchExhausted"
	ReasonMapIncomplete          = "MapIncomplete"
	ReasonInvalidDestinationFile = "InvalidDestinationFile"
	ReasonStalePose              = "StalePose"
	ReasonPlannerError           = "PlannerError"
)

// FailureReason maps an error onto its reported reason.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, planner.ErrGoalUnreachable):
		return ReasonGoalUnreachable
	case errors.Is(err, planner.ErrSearchExhausted):
		return ReasonSearchExhausted
	case errors.Is(err, roadnet.ErrMapIncomplete):
		return ReasonMapIncomplete
	case errors.Is(err, goals.ErrInvalidDestinationFile):
		return ReasonInvalidDestinationFile
	case errors.Is(err, ErrStalePose):
		return ReasonStalePose
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonSearchExhausted
	}
	return ReasonPlannerError
}

// Triggers recorded for each planning request.
const (
	TriggerInitial  = "initial"
	TriggerGoal     = "goal"
	TriggerDistance = "distance"
	TriggerTime     = "time"
	TriggerMap      = "map"
	TriggerCost     = "cost"
	TriggerRetry    = "retry"
)
