package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/specialistvlad/globalplanner/internal/config"
	"github.com/specialistvlad/globalplanner/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// configFile is the top level of a planner configuration file. Every block
// and attribute is optional; omitted values keep their defaults.
type configFile struct {
	Map      *mapBlock      `hcl:"map,block"`
	Planning *planningBlock `hcl:"planning,block"`
	Mission  *missionBlock  `hcl:"mission,block"`
	Cost     *costBlock     `hcl:"cost,block"`
}

type mapBlock struct {
	Source   *string   `hcl:"source,optional"`
	Path     *string   `hcl:"path,optional"`
	Required *[]string `hcl:"required,optional"`
	Watch    *bool     `hcl:"watch,optional"`
}

type planningBlock struct {
	Smoothing         *bool    `hcl:"smoothing,optional"`
	PathDensity       *float64 `hcl:"path_density,optional"`
	LaneChange        *bool    `hcl:"lane_change,optional"`
	LaneChangeOverlap *string  `hcl:"lane_change_overlap,optional"`
	MaxExpansions     *int     `hcl:"max_expansions,optional"`
	LaneChangeCost    *float64 `hcl:"lane_change_cost,optional"`
	TurnCost          *float64 `hcl:"turn_cost,optional"`
	StopLineCost      *float64 `hcl:"stop_line_cost,optional"`
	SignalCost        *float64 `hcl:"signal_cost,optional"`
	CrosswalkCost     *float64 `hcl:"crosswalk_cost,optional"`
}

type missionBlock struct {
	DestinationsFile  *string        `hcl:"destinations_file,optional"`
	StartIndex        *int           `hcl:"start_index,optional"`
	CyclicRepeat      *bool          `hcl:"cyclic_repeat,optional"`
	Dwell             *string        `hcl:"dwell,optional"`
	DwellOverrides    hcl.Expression `hcl:"dwell_overrides,optional"`
	HMI               *bool          `hcl:"hmi,optional"`
	ReplanDistance    *float64       `hcl:"replan_distance,optional"`
	ReplanTime        *string        `hcl:"replan_time,optional"`
	ArrivalTolerance  *float64       `hcl:"arrival_tolerance,optional"`
	StalePoseTimeout  *string        `hcl:"stale_pose_timeout,optional"`
	FailureBackoff    *string        `hcl:"failure_backoff,optional"`
	MinReplanInterval *string        `hcl:"min_replan_interval,optional"`
	Tick              *string        `hcl:"tick,optional"`
}

type costBlock struct {
	Horizon       *string `hcl:"horizon,optional"`
	PruneInterval *string `hcl:"prune_interval,optional"`
}

// Load reads the configuration file at path on top of config.Default and
// validates it.
func (l *Loader) Load(ctx context.Context, path string) (*config.Config, error) {
	return l.load(ctx, path, nil)
}

// LoadSource is Load for an in-memory document.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Config, error) {
	return l.load(ctx, filename, src)
}

func (l *Loader) load(ctx context.Context, filename string, src []byte) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL config loader started.", "path", filename)

	file, err := parseFile(filename, src)
	if err != nil {
		return nil, err
	}
	var root configFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cfg := config.Default()
	if err := l.apply(ctx, &root, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL config loading complete.", "mapSource", cfg.Map.Source, "destinations", cfg.Mission.DestinationsFile)
	return cfg, nil
}

func (l *Loader) apply(ctx context.Context, root *configFile, cfg *config.Config) error {
	if m := root.Map; m != nil {
		set(&cfg.Map.Source, m.Source)
		set(&cfg.Map.Path, m.Path)
		set(&cfg.Map.Required, m.Required)
		set(&cfg.Map.Watch, m.Watch)
	}
	if p := root.Planning; p != nil {
		set(&cfg.Planning.Smoothing, p.Smoothing)
		set(&cfg.Planning.PathDensity, p.PathDensity)
		set(&cfg.Planning.LaneChange, p.LaneChange)
		set(&cfg.Planning.LaneChangeOverlap, p.LaneChangeOverlap)
		set(&cfg.Planning.MaxExpansions, p.MaxExpansions)
		set(&cfg.Planning.LaneChangeCost, p.LaneChangeCost)
		set(&cfg.Planning.TurnCost, p.TurnCost)
		set(&cfg.Planning.StopLineCost, p.StopLineCost)
		set(&cfg.Planning.SignalCost, p.SignalCost)
		set(&cfg.Planning.CrosswalkCost, p.CrosswalkCost)
	}
	if m := root.Mission; m != nil {
		set(&cfg.Mission.DestinationsFile, m.DestinationsFile)
		set(&cfg.Mission.StartIndex, m.StartIndex)
		set(&cfg.Mission.CyclicRepeat, m.CyclicRepeat)
		set(&cfg.Mission.HMI, m.HMI)
		set(&cfg.Mission.ReplanDistance, m.ReplanDistance)
		set(&cfg.Mission.ArrivalTolerance, m.ArrivalTolerance)

		overrides, err := decodeDurationMap(ctx, m.DwellOverrides, "dwell_overrides")
		if err != nil {
			return err
		}
		if overrides != nil {
			cfg.Mission.DwellOverrides = overrides
		}
		for _, d := range []struct {
			attr   string
			raw    *string
			target *time.Duration
		}{
			{"dwell", m.Dwell, &cfg.Mission.Dwell},
			{"replan_time", m.ReplanTime, &cfg.Mission.ReplanTime},
			{"stale_pose_timeout", m.StalePoseTimeout, &cfg.Mission.StalePoseTimeout},
			{"failure_backoff", m.FailureBackoff, &cfg.Mission.FailureBackoff},
			{"min_replan_interval", m.MinReplanInterval, &cfg.Mission.MinReplanInterval},
			{"tick", m.Tick, &cfg.Mission.Tick},
		} {
			v, err := durationOr(d.raw, *d.target, d.attr)
			if err != nil {
				return err
			}
			*d.target = v
		}
	}
	if c := root.Cost; c != nil {
		var err error
		if cfg.Cost.Horizon, err = durationOr(c.Horizon, cfg.Cost.Horizon, "horizon"); err != nil {
			return err
		}
		if cfg.Cost.PruneInterval, err = durationOr(c.PruneInterval, cfg.Cost.PruneInterval, "prune_interval"); err != nil {
			return err
		}
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
