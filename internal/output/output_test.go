package output

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/globalplanner/internal/feed"
	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/planner"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

type failingSink struct{ Recorder }

func (f *failingSink) PublishPaths(context.Context, feed.PathSet) error { return errors.New("down") }

func TestFanout_PublishesToAllAndJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	bad := &failingSink{}
	f := Fanout{bad, rec, Log{}}

	err := f.PublishPaths(context.Background(), feed.PathSet{GenerationID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Len(t, rec.Paths(), 1)

	require.NoError(t, f.PublishStatus(context.Background(), feed.MissionStatus{State: "FOLLOWING"}))
	require.NoError(t, f.PublishOverlay(context.Background(), feed.Overlay{}))
	assert.Len(t, bad.Statuses(), 1)
}

func TestRecorder_States(t *testing.T) {
	rec := &Recorder{}
	for _, s := range []string{"A", "A", "B", "A"} {
		require.NoError(t, rec.PublishStatus(context.Background(), feed.MissionStatus{State: s}))
	}
	assert.Equal(t, []string{"A", "B", "A"}, rec.States())
}

func TestBuildOverlay(t *testing.T) {
	// --- Arrange ---
	dests := []goals.Destination{
		{Index: 0, Pose: geom.NewPose(0, 0, 0, 0), Label: "start"},
		{Index: 1, Pose: geom.NewPose(50, 0, 0, 0)},
	}
	var wps []geom.WayPoint
	for i := 0; i < 10; i++ {
		wps = append(wps, geom.WayPoint{Position: r3.Vector{X: float64(i)}})
	}
	paths := []planner.CandidatePath{{PathID: "g1-l0", WayPoints: wps}}
	stamp := time.Unix(100, 0)

	// --- Act ---
	ov := BuildOverlay("m1", roadnet.Extent{Max: r3.Vector{X: 50}}, dests, 1, paths, stamp)

	// --- Assert ---
	assert.Equal(t, "m1", ov.MissionID)
	require.Len(t, ov.Markers, 2)
	assert.False(t, ov.Markers[0].Selected)
	assert.True(t, ov.Markers[1].Selected)
	require.Len(t, ov.Paths, 1)
	xs := []float64{}
	for _, p := range ov.Paths[0].Points {
		xs = append(xs, p.Position.X)
	}
	assert.Equal(t, []float64{0, 4, 8, 9}, xs)
	assert.Equal(t, stamp, ov.Stamp)
}
