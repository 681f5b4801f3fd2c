package geom

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
)

// Pose is a position plus heading in the map frame.
type Pose struct {
	Position r3.Vector `msgpack:"position" json:"position"`
	Heading  float64   `msgpack:"heading" json:"heading"`
}

// NewPose builds a Pose from raw coordinates.
func NewPose(x, y, z, heading float64) Pose {
	return Pose{Position: r3.Vector{X: x, Y: y, Z: z}, Heading: NormalizeAngle(heading)}
}

// WayPoint is a single point of a generated path.
//
// A WayPoint is mutable while its path is under construction and must be
// treated as immutable once the path is finalized and published.
type WayPoint struct {
	Position  r3.Vector `msgpack:"position" json:"position"`
	Heading   float64   `msgpack:"heading" json:"heading"`
	LaneID    int       `msgpack:"lane_id" json:"lane_id"`
	Cost      float64   `msgpack:"cost" json:"cost"`
	Timestamp time.Time `msgpack:"timestamp,omitempty" json:"timestamp,omitempty"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b r3.Vector) float64 {
	return a.Sub(b).Norm()
}

// DistanceToSegment returns the distance from p to the closest point of the
// segment a-b.
func DistanceToSegment(p, a, b r3.Vector) float64 {
	ab := b.Sub(a)
	n := ab.Norm2()
	if n == 0 {
		return Distance(p, a)
	}
	t := p.Sub(a).Dot(ab) / n
	t = math.Max(0, math.Min(1, t))
	return Distance(p, a.Add(ab.Mul(t)))
}

// HeadingBetween returns the planar yaw of the direction a -> b. It returns 0
// for coincident points.
func HeadingBetween(a, b r3.Vector) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx)
}

// NormalizeAngle wraps an angle into (-π, π].
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// PolylineLength returns the summed segment length of a waypoint sequence.
func PolylineLength(pts []WayPoint) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += Distance(pts[i-1].Position, pts[i].Position)
	}
	return total
}

// MaxSpacing returns the largest distance between two consecutive waypoints.
func MaxSpacing(pts []WayPoint) float64 {
	maxGap := 0.0
	for i := 1; i < len(pts); i++ {
		if d := Distance(pts[i-1].Position, pts[i].Position); d > maxGap {
			maxGap = d
		}
	}
	return maxGap
}
