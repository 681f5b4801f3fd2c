// Package planner computes lane-level routes over a road network snapshot.
//
// # Why Planner Exists
//
// Route generation is the expensive, side-effect free half of the system.
// Keeping it a pure function of (start, goal, network snapshot, cost
// snapshot, parameters) lets the supervisor run it on a worker goroutine,
// cancel it at will and discard its result without any cleanup.
//
// Generate is deterministic: identical inputs produce identical paths,
// including tie-breaking between equal-cost routes.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/globalplanner/internal/costoverlay"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

var (
	// ErrGoalUnreachable is returned when no route connects start and goal.
	ErrGoalUnreachable = errors.New("goal unreachable")

	// ErrSearchExhausted is returned when the search hits its expansion cap.
	ErrSearchExhausted = errors.New("search exhausted")
)

// Lane options of a candidate path.
const (
	OptionPrimary = 0
	OptionLeft    = 1
	OptionRight   = 2
)

// DefaultPathDensity is the default maximum waypoint spacing in metres.
const DefaultPathDensity = 0.5

// DefaultMaxExpansions caps a single search.
const DefaultMaxExpansions = 200000

// OverlapPolicy controls whether alternate lane paths may share vertices with
// the primary path.
type OverlapPolicy int

const (
	OverlapAllow OverlapPolicy = iota
	OverlapDisjoint
)

func (p OverlapPolicy) String() string {
	if p == OverlapDisjoint {
		return "disjoint"
	}
	return "allow"
}

// ParseOverlapPolicy resolves "allow" or "disjoint".
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return OverlapAllow, nil
	case "disjoint":
		return OverlapDisjoint, nil
	}
	return 0, fmt.Errorf("unknown lane change overlap policy %q", s)
}

// Params are the planning parameters.
type Params struct {
	Smoothing     bool
	PathDensity   float64
	LaneChange    bool
	Overlap       OverlapPolicy
	MaxExpansions int
}

// DefaultParams returns the default planning parameters.
func DefaultParams() Params {
	return Params{
		Smoothing:     true,
		PathDensity:   DefaultPathDensity,
		MaxExpansions: DefaultMaxExpansions,
	}
}

// Request is one planning job.
type Request struct {
	GenerationID uint64
	Start        geom.Pose
	Goal         geom.Pose
	GoalIndex    int
	Graph        *roadnet.Graph
	Costs        costoverlay.Snapshot
	Params       Params
	IssuedAt     time.Time
}

// CandidatePath is one route option. Option 0 is the primary route; options 1
// and 2 start on the left and right adjacent lanes.
type CandidatePath struct {
	PathID       string          `msgpack:"path_id" json:"path_id"`
	GenerationID uint64          `msgpack:"generation_id" json:"generation_id"`
	LaneOption   int             `msgpack:"lane_option" json:"lane_option"`
	GoalIndex    int             `msgpack:"goal_index" json:"goal_index"`
	WayPoints    []geom.WayPoint `msgpack:"waypoints" json:"waypoints"`
	Length       float64         `msgpack:"length" json:"length"`
	Cost         float64         `msgpack:"cost" json:"cost"`
}

// PathID formats the identifier of a candidate path.
func PathID(generation uint64, option int) string {
	return fmt.Sprintf("g%d-l%d", generation, option)
}

// Planner is the A* route generator.
type Planner struct {
	observe func(expansions int)
}

// New creates a planner. observe, if non-nil, receives the number of
// expansions of every completed search.
func New(observe func(expansions int)) *Planner {
	return &Planner{observe: observe}
}

// Generate computes the primary route from the vehicle to the goal and, when
// lane changes are enabled, up to two alternates starting on the adjacent
// lanes. It never returns an empty path: failure is reported through
// ErrGoalUnreachable, ErrSearchExhausted, roadnet.ErrMapIncomplete or the
// context's error.
func (p *Planner) Generate(ctx context.Context, req Request) ([]CandidatePath, error) {
	g := req.Graph
	if g == nil {
		return nil, roadnet.ErrMapIncomplete
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := req.Params
	if params.MaxExpansions <= 0 {
		params.MaxExpansions = DefaultMaxExpansions
	}
	if params.PathDensity <= 0 {
		params.PathDensity = DefaultPathDensity
	}

	startV, okStart := g.Nearest(req.Start.Position)
	goalV, okGoal := g.Nearest(req.Goal.Position)
	if !okStart || !okGoal {
		return nil, fmt.Errorf("%w: network has no routable vertex", ErrGoalUnreachable)
	}

	s := &searcher{
		g:             g,
		deltas:        req.Costs.Resolve(g),
		laneChange:    params.LaneChange,
		maxExpansions: params.MaxExpansions,
	}

	primary, err := s.run(ctx, startV, goalV, nil)
	p.record(primary.expansions)
	if err != nil {
		return nil, err
	}

	out := []CandidatePath{p.candidate(req, params, primary, OptionPrimary)}
	if !params.LaneChange {
		return out, nil
	}

	var blocked []bool
	if params.Overlap == OverlapDisjoint {
		blocked = make([]bool, g.Len())
		for _, v := range primary.vertices {
			blocked[v] = true
		}
		blocked[goalV] = false
	}

	lane, ok := g.Lane(primary.startLane(g))
	if !ok {
		return out, nil
	}
	for _, alt := range []struct {
		option int
		laneID int
	}{{OptionLeft, lane.LeftLane}, {OptionRight, lane.RightLane}} {
		begin, _, ok := g.LaneEnds(alt.laneID)
		if !ok || alt.laneID == 0 || begin == startV || (blocked != nil && blocked[begin]) {
			continue
		}
		res, err := s.run(ctx, begin, goalV, blocked)
		p.record(res.expansions)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		out = append(out, p.candidate(req, params, res, alt.option))
	}
	return out, nil
}

func (p *Planner) record(expansions int) {
	if p.observe != nil && expansions > 0 {
		p.observe(expansions)
	}
}

func (p *Planner) candidate(req Request, params Params, res route, option int) CandidatePath {
	wps := res.waypoints(req.Graph, req.IssuedAt)
	if params.Smoothing {
		wps = geom.Resample(wps, params.PathDensity)
	}
	return CandidatePath{
		PathID:       PathID(req.GenerationID, option),
		GenerationID: req.GenerationID,
		LaneOption:   option,
		GoalIndex:    req.GoalIndex,
		WayPoints:    wps,
		Length:       geom.PolylineLength(wps),
		Cost:         res.cost,
	}
}
