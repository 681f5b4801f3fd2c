package goals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/globalplanner/internal/geom"
)

func dests(n int) []Destination {
	out := make([]Destination, n)
	for i := range out {
		out[i] = Destination{Pose: geom.NewPose(float64(i*10), 0, 0, 0)}
	}
	return out
}

func TestManager_SequencingWithoutRepeat(t *testing.T) {
	// --- Arrange ---
	m := NewManager(Options{})
	require.NoError(t, m.LoadDestinations(dests(3), 0))

	// --- Act & Assert ---
	var visited []int
	for {
		d, ok := m.CurrentGoal()
		if !ok {
			break
		}
		visited = append(visited, d.Index)
		if _, ok := m.AdvanceGoal(); !ok {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2}, visited)
	assert.True(t, m.Completed())
	assert.Equal(t, 2, m.Index(), "index is held at the final destination")
	_, ok := m.CurrentGoal()
	assert.False(t, ok)
	_, ok = m.AdvanceGoal()
	assert.False(t, ok)
}

func TestManager_CyclicRepeatWraps(t *testing.T) {
	m := NewManager(Options{CyclicRepeat: true})
	require.NoError(t, m.LoadDestinations(dests(2), 1))

	d, ok := m.AdvanceGoal()
	require.True(t, ok)
	assert.Equal(t, 0, d.Index)
	assert.False(t, m.Completed())
}

func TestManager_LoadDestinations(t *testing.T) {
	m := NewManager(Options{})

	assert.ErrorIs(t, m.LoadDestinations(nil, 0), ErrInvalidDestinationFile)
	assert.False(t, m.Loaded())

	require.NoError(t, m.LoadDestinations(dests(3), 7))
	assert.Equal(t, 2, m.Index(), "start index is clamped")

	require.NoError(t, m.LoadDestinations(dests(3), -4))
	assert.Equal(t, 0, m.Index())

	assert.ErrorIs(t, m.LoadDestinations([]Destination{}, 0), ErrInvalidDestinationFile)
	assert.Len(t, m.Destinations(), 3, "a rejected load keeps the previous list")
}

func TestManager_SetIndexAndAppend(t *testing.T) {
	m := NewManager(Options{})
	require.NoError(t, m.LoadDestinations(dests(2), 0))
	m.AdvanceGoal()
	m.AdvanceGoal()
	require.True(t, m.Completed())

	require.NoError(t, m.SetIndex(0))
	assert.False(t, m.Completed())
	assert.ErrorIs(t, m.SetIndex(5), ErrIndexOutOfRange)

	idx := m.Append(Destination{Pose: geom.NewPose(99, 0, 0, 0)})
	assert.Equal(t, 2, idx)
	require.NoError(t, m.SetIndex(idx))
	d, ok := m.CurrentGoal()
	require.True(t, ok)
	assert.InDelta(t, 99, d.Pose.Position.X, 1e-9)
}

func TestManager_DwellResolution(t *testing.T) {
	m := NewManager(Options{
		DefaultDwell:   3 * time.Second,
		DwellOverrides: map[int]time.Duration{1: 10 * time.Second},
	})
	list := dests(3)
	list[1].Dwell = DwellOf(time.Second)
	list[2].Dwell = DwellOf(7 * time.Second)
	require.NoError(t, m.LoadDestinations(list, 0))
	loaded := m.Destinations()

	assert.Equal(t, 3*time.Second, m.DwellFor(loaded[0]))
	assert.Equal(t, 10*time.Second, m.DwellFor(loaded[1]))
	assert.Equal(t, 7*time.Second, m.DwellFor(loaded[2]))
	assert.Equal(t, DefaultDwell, NewManager(Options{}).DwellFor(Destination{}))
}

func TestManager_ExplicitZeroDwell(t *testing.T) {
	// --- Arrange ---
	m := NewManager(Options{DefaultDwell: 3 * time.Second})
	list := dests(2)
	list[0].Dwell = DwellOf(0)
	require.NoError(t, m.LoadDestinations(list, 0))
	loaded := m.Destinations()

	// --- Act & Assert ---
	assert.Zero(t, m.DwellFor(loaded[0]))
	assert.Equal(t, 3*time.Second, m.DwellFor(loaded[1]))
}

func TestDecodeYAML(t *testing.T) {
	doc := []byte(`
start_index: 1
destinations:
  - {x: 10, y: 2, yaw: 1.5, label: depot}
  - {x: 20, y: 0, dwell: 5s}
  - {x: 30, y: 0, dwell: 0s}
`)
	f, err := DecodeYAML(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, f.StartIndex)
	require.Len(t, f.Destinations, 3)
	assert.Equal(t, "depot", f.Destinations[0].Label)
	assert.InDelta(t, 1.5, f.Destinations[0].Pose.Heading, 1e-9)
	assert.Nil(t, f.Destinations[0].Dwell)
	assert.Equal(t, DwellOf(5*time.Second), f.Destinations[1].Dwell)
	assert.Equal(t, DwellOf(0), f.Destinations[2].Dwell)
	assert.Equal(t, 1, f.Destinations[1].Index)

	for name, bad := range map[string]string{
		"empty":     "destinations: []",
		"malformed": "destinations: [oops",
		"dwell":     "destinations: [{x: 1, dwell: soon}]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(bad))
			assert.ErrorIs(t, err, ErrInvalidDestinationFile)
		})
	}
}
