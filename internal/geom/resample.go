package geom

import "math"

// spacingEpsilon absorbs floating point noise when a segment length is an
// exact multiple of the requested density.
const spacingEpsilon = 1e-9

// Resample densifies a polyline so that consecutive waypoints are at most
// density apart.
//
// Every original waypoint is kept and new points are inserted at even
// intervals along each original segment, so the resampled polyline follows
// the original geometry exactly and its total length is unchanged. Inserted
// points take the lane of the segment's first waypoint, the segment's heading
// and a linearly interpolated accumulated cost.
//
// The input is never modified. A non-positive density returns a copy.
func Resample(pts []WayPoint, density float64) []WayPoint {
	if len(pts) < 2 || density <= 0 {
		out := make([]WayPoint, len(pts))
		copy(out, pts)
		return out
	}

	out := make([]WayPoint, 0, estimateResampledLen(pts, density))
	out = append(out, pts[0])
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		seg := b.Position.Sub(a.Position)
		length := seg.Norm()
		pieces := int(math.Ceil(length/density - spacingEpsilon))
		heading := HeadingBetween(a.Position, b.Position)

		for k := 1; k < pieces; k++ {
			t := float64(k) / float64(pieces)
			wp := a
			wp.Position = a.Position.Add(seg.Mul(t))
			wp.Heading = heading
			wp.Cost = a.Cost + (b.Cost-a.Cost)*t
			out = append(out, wp)
		}
		out = append(out, b)
	}
	return out
}

func estimateResampledLen(pts []WayPoint, density float64) int {
	n := int(PolylineLength(pts)/density) + len(pts)
	if n < len(pts) {
		return len(pts)
	}
	return n
}
