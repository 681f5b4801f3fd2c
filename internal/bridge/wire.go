package bridge

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/geo/r3"

	"github.com/specialistvlad/globalplanner/internal/costoverlay"
	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// ErrEmptyEvent is returned for an event that carries no payload.
var ErrEmptyEvent = errors.New("event carries no payload")

// Inbound event names.
const (
	EventCurrentPose     = "current_pose"
	EventVehicleStatus   = "vehicle_status"
	EventMapFragment     = "map_fragment"
	EventMapBlob         = "map_blob"
	EventCostUpdate      = "cost_update"
	EventDestinations    = "destinations"
	EventGoalPose        = "goal_pose"
	EventMissionOverride = "mission_override"
)

// Outbound event names.
const (
	EventGlobalPaths   = "global_paths"
	EventMissionStatus = "mission_status"
	EventOverlay       = "overlay"
)

type wirePose struct {
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Z     float64   `json:"z"`
	Yaw   float64   `json:"yaw"`
	Stamp time.Time `json:"stamp"`
}

func (w wirePose) pose() geom.Pose { return geom.NewPose(w.X, w.Y, w.Z, w.Yaw) }

type wireStatus struct {
	Speed   float64   `json:"speed"`
	YawRate float64   `json:"yaw_rate"`
	Stamp   time.Time `json:"stamp"`
}

type wireFragment struct {
	Category string          `json:"category"`
	Records  json.RawMessage `json:"records"`
}

type wireBlob struct {
	Data string `json:"data"`
}

type wireCost struct {
	LaneID int       `json:"lane_id"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Z      float64   `json:"z"`
	Radius float64   `json:"radius"`
	Delta  float64   `json:"delta"`
	Clear  bool      `json:"clear"`
	Stamp  time.Time `json:"stamp"`
}

type wireDestination struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"yaw"`
	Dwell *float64 `json:"dwell,omitempty"`
	Label string   `json:"label"`
}

type wireDestinations struct {
	StartIndex   int               `json:"start_index"`
	Destinations []wireDestination `json:"destinations"`
}

type wireOverride struct {
	Command string `json:"command"`
	Index   int    `json:"index"`
}

// unpack re-encodes the first event argument into v.
func unpack(data []any, v any) error {
	if len(data) == 0 || data[0] == nil {
		return ErrEmptyEvent
	}
	raw, err := json.Marshal(data[0])
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// dwell converts an optional dwell in seconds; absent stays unset.
func dwell(s *float64) *time.Duration {
	if s == nil {
		return nil
	}
	return goals.DwellOf(seconds(*s))
}

func decodePose(data []any) (feed.PoseEvent, error) {
	var w wirePose
	if err := unpack(data, &w); err != nil {
		return feed.PoseEvent{}, err
	}
	return feed.PoseEvent{Pose: w.pose(), Stamp: w.Stamp}, nil
}

func decodeStatus(data []any) (feed.StatusEvent, error) {
	var w wireStatus
	if err := unpack(data, &w); err != nil {
		return feed.StatusEvent{}, err
	}
	return feed.StatusEvent{Speed: w.Speed, YawRate: w.YawRate, Stamp: w.Stamp}, nil
}

func decodeFragment(data []any) (feed.FragmentEvent, error) {
	var w wireFragment
	if err := unpack(data, &w); err != nil {
		return feed.FragmentEvent{}, err
	}
	c, err := roadnet.ParseCategory(w.Category)
	if err != nil {
		return feed.FragmentEvent{}, err
	}
	payload, err := roadnet.DecodePayload(c, func(target any) error {
		if len(w.Records) == 0 {
			return nil
		}
		return json.Unmarshal(w.Records, target)
	})
	if err != nil {
		return feed.FragmentEvent{}, fmt.Errorf("%s fragment: %w", c, err)
	}
	return feed.FragmentEvent{Category: c, Payload: payload}, nil
}

// decodeBlob accepts a binary attachment or a base64 "data" field.
func decodeBlob(data []any) (feed.BlobEvent, error) {
	if len(data) > 0 {
		if b, ok := data[0].([]byte); ok {
			return feed.BlobEvent{Data: b}, nil
		}
	}
	var w wireBlob
	if err := unpack(data, &w); err != nil {
		return feed.BlobEvent{}, err
	}
	b, err := base64.StdEncoding.DecodeString(w.Data)
	if err != nil {
		return feed.BlobEvent{}, fmt.Errorf("%w: %v", roadnet.ErrInvalidBlob, err)
	}
	return feed.BlobEvent{Data: b}, nil
}

func decodeCost(data []any) (feed.CostEvent, error) {
	var w wireCost
	if err := unpack(data, &w); err != nil {
		return feed.CostEvent{}, err
	}
	return feed.CostEvent{
		Location: costoverlay.LocationRef{LaneID: w.LaneID, Position: r3.Vector{X: w.X, Y: w.Y, Z: w.Z}, Radius: w.Radius},
		Delta:    w.Delta,
		Stamp:    w.Stamp,
		Clear:    w.Clear,
	}, nil
}

// decodeDestinations never fails: a malformed list is reported through the
// event so the mission halts visibly instead of silently keeping old goals.
func decodeDestinations(data []any) feed.DestinationsEvent {
	var w wireDestinations
	if err := unpack(data, &w); err != nil {
		return feed.DestinationsEvent{Source: EventDestinations, Err: fmt.Errorf("%w: %v", goals.ErrInvalidDestinationFile, err)}
	}
	list := make([]goals.Destination, 0, len(w.Destinations))
	for _, d := range w.Destinations {
		list = append(list, goals.Destination{
			Pose:  geom.NewPose(d.X, d.Y, d.Z, d.Yaw),
			Dwell: dwell(d.Dwell),
			Label: d.Label,
		})
	}
	return feed.DestinationsEvent{Destinations: list, StartIndex: w.StartIndex, Source: EventDestinations}
}

func decodeGoalPose(data []any) (feed.GoalPoseEvent, error) {
	var w wireDestination
	if err := unpack(data, &w); err != nil {
		return feed.GoalPoseEvent{}, err
	}
	return feed.GoalPoseEvent{Pose: geom.NewPose(w.X, w.Y, w.Z, w.Yaw), Dwell: dwell(w.Dwell)}, nil
}

func decodeOverride(data []any) (feed.OverrideEvent, error) {
	var w wireOverride
	if err := unpack(data, &w); err != nil {
		return feed.OverrideEvent{}, err
	}
	cmd := feed.OverrideCommand(w.Command)
	switch cmd {
	case feed.OverrideGoto, feed.OverridePause, feed.OverrideResume,
		feed.OverrideReloadDestinations, feed.OverrideReloadMap:
	default:
		return feed.OverrideEvent{}, fmt.Errorf("unknown override command %q", w.Command)
	}
	return feed.OverrideEvent{Command: cmd, Index: w.Index}, nil
}

// outbound converts a published value into the generic shape the socket.io
// encoder expects.
func outbound(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
