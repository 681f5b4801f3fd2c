// Package feed defines the capability interfaces the mission supervisor
// consumes and publishes through, and the event types carried over them.
//
// Transports (the socket.io bridge, file watchers, tests) produce events;
// the supervisor never knows which transport an event came from.
package feed

import (
	"context"
	"time"

	"github.com/specialistvlad/globalplanner/internal/costoverlay"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// PoseEvent is a vehicle localization update.
type PoseEvent struct {
	Pose  geom.Pose
	Stamp time.Time
}

// StatusEvent is a vehicle odometry update.
type StatusEvent struct {
	Speed   float64
	YawRate float64
	Stamp   time.Time
}

// MapEvent is any road network update.
type MapEvent interface{ isMapEvent() }

// FragmentEvent carries one category's records for live aggregation.
type FragmentEvent struct {
	Category roadnet.Category
	Payload  any
}

// BlobEvent carries a prebuilt serialized network.
type BlobEvent struct {
	Data []byte
}

// BundleEvent carries a parsed map description file.
type BundleEvent struct {
	Source string
	Bundle *roadnet.Bundle
}

func (FragmentEvent) isMapEvent() {}
func (BlobEvent) isMapEvent()     {}
func (BundleEvent) isMapEvent()   {}

// GoalEvent is any mission target update.
type GoalEvent interface{ isGoalEvent() }

// DestinationsEvent replaces the destination list. A non-nil Err reports a
// destinations file that could not be loaded.
type DestinationsEvent struct {
	Destinations []goals.Destination
	StartIndex   int
	Source       string
	Err          error
}

// GoalPoseEvent appends a single destination and makes it current.
type GoalPoseEvent struct {
	Pose geom.Pose
	// Dwell is optional; nil uses the configured default.
	Dwell *time.Duration
}

func (DestinationsEvent) isGoalEvent() {}
func (GoalPoseEvent) isGoalEvent()     {}

// CostEvent is a perception-reported cost adjustment.
type CostEvent struct {
	Location costoverlay.LocationRef
	Delta    float64
	Stamp    time.Time
	// Clear drops every overlay entry instead of inserting one.
	Clear bool
}

// OverrideCommand is an operator instruction.
type OverrideCommand string

const (
	OverrideGoto               OverrideCommand = "goto"
	OverridePause              OverrideCommand = "pause"
	OverrideResume             OverrideCommand = "resume"
	OverrideReloadDestinations OverrideCommand = "reload_destinations"
	OverrideReloadMap          OverrideCommand = "reload_map"
)

// OverrideEvent is an operator instruction from the HMI.
type OverrideEvent struct {
	Command OverrideCommand
	Index   int
}

// Producer sources.
type (
	PoseSource     interface{ Poses() <-chan PoseEvent }
	StatusSource   interface{ Statuses() <-chan StatusEvent }
	MapSource      interface{ MapEvents() <-chan MapEvent }
	GoalSource     interface{ GoalEvents() <-chan GoalEvent }
	CostSource     interface{ Costs() <-chan CostEvent }
	OverrideSource interface{ Overrides() <-chan OverrideEvent }
)

// Sources bundles the inputs of the supervisor. Nil members are never
// selected on.
type Sources struct {
	Pose      PoseSource
	Status    StatusSource
	Map       MapSource
	Goals     GoalSource
	Costs     CostSource
	Overrides OverrideSource
}

// PathSet is the published result of one planning generation.
type PathSet struct {
	MissionID    string                  `json:"mission_id"`
	GenerationID uint64                  `json:"generation_id"`
	GoalIndex    int                     `json:"goal_index"`
	Paths        []planner.CandidatePath `json:"paths"`
	Stamp        time.Time               `json:"stamp"`
}

// MissionStatus is the externally visible supervisor state.
type MissionStatus struct {
	MissionID    string    `json:"mission_id"`
	State        string    `json:"state"`
	GoalIndex    int       `json:"goal_index"`
	Destinations int       `json:"destinations"`
	Generation   uint64    `json:"generation"`
	LastFailure  string    `json:"last_failure,omitempty"`
	Paused       bool      `json:"paused"`
	PoseStale    bool      `json:"pose_stale"`
	MapUsable    bool      `json:"map_usable"`
	Stamp        time.Time `json:"stamp"`
}

// OverlayMarker is a destination drawn on the visualization overlay.
type OverlayMarker struct {
	Index    int       `json:"index"`
	Pose     geom.Pose `json:"pose"`
	Label    string    `json:"label,omitempty"`
	Selected bool      `json:"selected"`
}

// OverlayPath is a candidate path drawn on the overlay.
type OverlayPath struct {
	PathID     string      `json:"path_id"`
	LaneOption int         `json:"lane_option"`
	Points     []geom.Pose `json:"points"`
}

// Overlay is the visualization payload.
type Overlay struct {
	MissionID string          `json:"mission_id"`
	Extent    roadnet.Extent  `json:"extent"`
	Markers   []OverlayMarker `json:"markers"`
	Paths     []OverlayPath   `json:"paths"`
	Stamp     time.Time       `json:"stamp"`
}

// OutputSink receives everything the supervisor publishes.
type OutputSink interface {
	PublishPaths(ctx context.Context, ps PathSet) error
	PublishStatus(ctx context.Context, st MissionStatus) error
	PublishOverlay(ctx context.Context, ov Overlay) error
}
