package hcl_adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/globalplanner/internal/config"
	"github.com/specialistvlad/globalplanner/internal/testutil"
)

func TestLoader_FullFile(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	src := `
map {
  source   = "file"
  path     = "maps/town.osm"
  required = ["points", "nodes", "lanes", "stop_lines"]
  watch    = true
}

planning {
  smoothing           = false
  path_density        = 0.25
  lane_change         = true
  lane_change_overlap = "disjoint"
  max_expansions      = 5000
  turn_cost           = 4
}

mission {
  destinations_file   = "destinations.hcl"
  start_index         = 1
  cyclic_repeat       = true
  dwell               = "3s"
  dwell_overrides     = { "2" = "10s", "0" = "1s" }
  hmi                 = true
  replan_distance     = 40
  replan_time         = "8s"
  min_replan_interval = "500ms"
}

cost {
  horizon = "20s"
}
`

	// --- Act ---
	cfg, err := NewLoader().LoadSource(ctx, "planner.hcl", []byte(src))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Map.Source)
	assert.Equal(t, "maps/town.osm", cfg.Map.Path)
	assert.Equal(t, []string{"points", "nodes", "lanes", "stop_lines"}, cfg.Map.Required)
	assert.True(t, cfg.Map.Watch)
	assert.False(t, cfg.Planning.Smoothing)
	assert.Equal(t, 0.25, cfg.Planning.PathDensity)
	assert.Equal(t, "disjoint", cfg.Planning.LaneChangeOverlap)
	assert.Equal(t, 5000, cfg.Planning.MaxExpansions)
	assert.Equal(t, 4.0, cfg.Planning.TurnCost)
	assert.Equal(t, 5.0, cfg.Planning.LaneChangeCost, "omitted attributes keep defaults")
	assert.Equal(t, 1, cfg.Mission.StartIndex)
	assert.True(t, cfg.Mission.CyclicRepeat)
	assert.Equal(t, 3*time.Second, cfg.Mission.Dwell)
	assert.Equal(t, map[int]time.Duration{2: 10 * time.Second, 0: time.Second}, cfg.Mission.DwellOverrides)
	assert.True(t, cfg.Mission.HMI)
	assert.Equal(t, 40.0, cfg.Mission.ReplanDistance)
	assert.Equal(t, 8*time.Second, cfg.Mission.ReplanTime)
	assert.Equal(t, 500*time.Millisecond, cfg.Mission.MinReplanInterval)
	assert.Equal(t, 2*time.Second, cfg.Mission.StalePoseTimeout)
	assert.Equal(t, 20*time.Second, cfg.Cost.Horizon)
	assert.Equal(t, time.Second, cfg.Cost.PruneInterval)
}

func TestLoader_EmptyFileYieldsDefaults(t *testing.T) {
	ctx, _ := testutil.Context(t)

	cfg, err := NewLoader().LoadSource(ctx, "planner.hcl", []byte(""))

	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantErr error
		errText string
	}{
		{
			name:    "invalid map source",
			src:     "map {\n  source = \"carrier_pigeon\"\n}\n",
			wantErr: config.ErrInvalidMapSource,
		},
		{
			name:    "file source without path",
			src:     "map {\n  source = \"file\"\n}\n",
			wantErr: config.ErrInvalidMapSource,
		},
		{
			name:    "bad duration",
			src:     "mission {\n  replan_time = \"soon\"\n}\n",
			errText: "replan_time",
		},
		{
			name:    "bad dwell override key",
			src:     "mission {\n  dwell_overrides = { first = \"1s\" }\n}\n",
			errText: "dwell_overrides",
		},
		{
			name:    "unknown block",
			src:     "vehicle {\n}\n",
			errText: "failed to decode",
		},
		{
			name:    "syntax error",
			src:     "map {",
			errText: "failed to parse",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)

			_, err := NewLoader().LoadSource(ctx, "planner.hcl", []byte(tc.src))

			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.errText != "" {
				assert.Contains(t, err.Error(), tc.errText)
			}
		})
	}
}

func TestLoader_LoadFromDisk(t *testing.T) {
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, map[string]string{"planner.hcl": "mission {\n  hmi = true\n}\n"})

	cfg, err := NewLoader().Load(ctx, dir+"/planner.hcl")

	require.NoError(t, err)
	assert.True(t, cfg.Mission.HMI)
}
