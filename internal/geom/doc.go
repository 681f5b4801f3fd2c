// Package geom holds the geometric primitives shared by the planner: poses,
// waypoints and polyline operations over github.com/golang/geo/r3 vectors.
//
// All distances are Euclidean in the map frame (metres). Headings are yaw
// angles in radians, measured counter-clockwise from the +X axis and
// normalised to (-π, π].
package geom
