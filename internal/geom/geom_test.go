package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

func wp(x, y float64, lane int) WayPoint {
	return WayPoint{Position: r3.Vector{X: x, Y: y}, LaneID: lane}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"pi stays", math.Pi, math.Pi},
		{"minus pi wraps", -math.Pi, math.Pi},
		{"three pi", 3 * math.Pi, math.Pi},
		{"quarter turn negative", -math.Pi / 2, -math.Pi / 2},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeAngle(tt.in), tolerance)
		})
	}
}

func TestHeadingBetween(t *testing.T) {
	assert.InDelta(t, 0, HeadingBetween(r3.Vector{}, r3.Vector{X: 1}), tolerance)
	assert.InDelta(t, math.Pi/2, HeadingBetween(r3.Vector{}, r3.Vector{Y: 1}), tolerance)
	assert.Zero(t, HeadingBetween(r3.Vector{X: 2}, r3.Vector{X: 2}))
}

func TestDistanceToSegment(t *testing.T) {
	a, b := r3.Vector{}, r3.Vector{X: 100}
	assert.InDelta(t, 0, DistanceToSegment(r3.Vector{X: 50}, a, b), tolerance)
	assert.InDelta(t, 3, DistanceToSegment(r3.Vector{X: 50, Y: 3}, a, b), tolerance)
	assert.InDelta(t, 5, DistanceToSegment(r3.Vector{X: -3, Y: 4}, a, b), tolerance, "clamped to the start")
	assert.InDelta(t, 2, DistanceToSegment(r3.Vector{X: 102}, a, b), tolerance, "clamped to the end")
	assert.InDelta(t, 5, DistanceToSegment(r3.Vector{X: 3, Y: 4}, a, a), tolerance, "degenerate segment")
}

func TestResample_DensityBoundAndLength(t *testing.T) {
	path := []WayPoint{wp(0, 0, 1), wp(10, 0, 1), wp(10, 7.3, 2), wp(3, 9, 3)}

	for _, density := range []float64{0.5, 1, 2.5, 4} {
		out := Resample(path, density)

		assert.LessOrEqual(t, MaxSpacing(out), density+tolerance, "density %v", density)
		assert.InDelta(t, PolylineLength(path), PolylineLength(out), tolerance, "density %v", density)
		assert.Equal(t, path[0], out[0])
		assert.Equal(t, path[len(path)-1], out[len(out)-1])
	}
}

func TestResample_KeepsOriginalVerticesAndInterpolates(t *testing.T) {
	a := wp(0, 0, 7)
	b := wp(2, 0, 8)
	a.Cost, b.Cost = 0, 4

	out := Resample([]WayPoint{a, b}, 0.5)
	require.Len(t, out, 5)
	assert.Equal(t, a, out[0])
	assert.Equal(t, b, out[4])
	assert.InDelta(t, 1.0, out[2].Position.X, tolerance)
	assert.InDelta(t, 2.0, out[2].Cost, tolerance)
	assert.Equal(t, 7, out[2].LaneID)
}

func TestResample_ExactMultipleAddsNoExtraPoint(t *testing.T) {
	out := Resample([]WayPoint{wp(0, 0, 1), wp(1, 0, 1)}, 0.5)
	assert.Len(t, out, 3)
}

func TestResample_DegenerateInputs(t *testing.T) {
	single := []WayPoint{wp(1, 1, 1)}
	assert.Equal(t, single, Resample(single, 0.5))

	path := []WayPoint{wp(0, 0, 1), wp(5, 0, 1)}
	out := Resample(path, 0)
	assert.Equal(t, path, out)
	out[0].LaneID = 99
	assert.Equal(t, 1, path[0].LaneID, "input must not be aliased")
}
