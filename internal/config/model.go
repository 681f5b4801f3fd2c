package config

import (
	"time"

	"github.com/specialistvlad/globalplanner/internal/costoverlay"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// Config is the complete planner configuration.
type Config struct {
	Map      MapConfig
	Planning PlanningConfig
	Mission  MissionConfig
	Cost     CostConfig
}

// MapConfig selects the road network source.
type MapConfig struct {
	Source   string   `validate:"required"`
	Path     string   `validate:"required_unless=Source live"`
	Required []string `validate:"dive,required"`
	Watch    bool
}

// PlanningConfig tunes the route search.
type PlanningConfig struct {
	Smoothing         bool
	PathDensity       float64 `validate:"gt=0"`
	LaneChange        bool
	LaneChangeOverlap string  `validate:"oneof=allow disjoint"`
	MaxExpansions     int     `validate:"min=1"`
	LaneChangeCost    float64 `validate:"min=0"`
	TurnCost          float64 `validate:"min=0"`
	StopLineCost      float64 `validate:"min=0"`
	SignalCost        float64 `validate:"min=0"`
	CrosswalkCost     float64 `validate:"min=0"`
}

// MissionConfig tunes goal sequencing and replanning.
type MissionConfig struct {
	DestinationsFile  string
	StartIndex        int `validate:"min=0"`
	CyclicRepeat      bool
	Dwell             time.Duration         `validate:"min=0"`
	DwellOverrides    map[int]time.Duration `validate:"dive,min=0"`
	HMI               bool
	ReplanDistance    float64       `validate:"gt=0"`
	ReplanTime        time.Duration `validate:"gt=0"`
	ArrivalTolerance  float64       `validate:"gt=0"`
	StalePoseTimeout  time.Duration `validate:"gt=0"`
	FailureBackoff    time.Duration `validate:"gt=0"`
	MinReplanInterval time.Duration `validate:"min=0"`
	Tick              time.Duration `validate:"gt=0"`
}

// CostConfig tunes the cost overlay.
type CostConfig struct {
	Horizon       time.Duration `validate:"gt=0"`
	PruneInterval time.Duration `validate:"gt=0"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	build := roadnet.DefaultBuildOptions()
	return &Config{
		Map: MapConfig{
			Source: roadnet.ModeLive.String(),
		},
		Planning: PlanningConfig{
			Smoothing:         true,
			PathDensity:       planner.DefaultPathDensity,
			LaneChangeOverlap: planner.OverlapAllow.String(),
			MaxExpansions:     planner.DefaultMaxExpansions,
			LaneChangeCost:    build.LaneChangeCost,
			TurnCost:          build.TurnCost,
			StopLineCost:      build.StopLineCost,
			SignalCost:        build.SignalCost,
			CrosswalkCost:     build.CrosswalkCost,
		},
		Mission: MissionConfig{
			Dwell:             goals.DefaultDwell,
			ReplanDistance:    30,
			ReplanTime:        5 * time.Second,
			ArrivalTolerance:  2,
			StalePoseTimeout:  2 * time.Second,
			FailureBackoff:    2 * time.Second,
			MinReplanInterval: time.Second,
			Tick:              100 * time.Millisecond,
		},
		Cost: CostConfig{
			Horizon:       costoverlay.DefaultHorizon,
			PruneInterval: time.Second,
		},
	}
}

// MapMode returns the parsed map source.
func (c *Config) MapMode() (roadnet.Mode, error) {
	return roadnet.ParseMode(c.Map.Source)
}

// RequiredCategories returns the live-mode completeness set, or nil for the
// default set.
func (c *Config) RequiredCategories() ([]roadnet.Category, error) {
	if len(c.Map.Required) == 0 {
		return nil, nil
	}
	return roadnet.ParseCategories(c.Map.Required)
}

// BuildOptions returns the graph construction costs.
func (c *Config) BuildOptions() roadnet.BuildOptions {
	return roadnet.BuildOptions{
		LaneChangeCost: c.Planning.LaneChangeCost,
		TurnCost:       c.Planning.TurnCost,
		StopLineCost:   c.Planning.StopLineCost,
		SignalCost:     c.Planning.SignalCost,
		CrosswalkCost:  c.Planning.CrosswalkCost,
	}
}

// PlannerParams returns the search parameters.
func (c *Config) PlannerParams() (planner.Params, error) {
	overlap, err := planner.ParseOverlapPolicy(c.Planning.LaneChangeOverlap)
	if err != nil {
		return planner.Params{}, err
	}
	return planner.Params{
		Smoothing:     c.Planning.Smoothing,
		PathDensity:   c.Planning.PathDensity,
		LaneChange:    c.Planning.LaneChange,
		Overlap:       overlap,
		MaxExpansions: c.Planning.MaxExpansions,
	}, nil
}

// GoalOptions returns the goal queue options.
func (c *Config) GoalOptions() goals.Options {
	return goals.Options{
		CyclicRepeat:   c.Mission.CyclicRepeat,
		DefaultDwell:   c.Mission.Dwell,
		DwellOverrides: c.Mission.DwellOverrides,
	}
}
