package loader

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// earthRadius is used by the equirectangular projection of nodes without
// local coordinates.
const earthRadius = 6378137.0

// laneStride separates the lane ids derived from consecutive ways: segment i
// of way w becomes lane w*laneStride+i+1.
const laneStride = 1000

// OSMFile reads a lanelet-style OSM XML map.
func OSMFile(ctx context.Context, path string) (*roadnet.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OSM map %s: %w", path, err)
	}
	defer f.Close()
	b, err := DecodeOSM(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// DecodeOSM converts OSM XML into map records.
//
// Nodes carry positions in local_x/local_y/ele tags; nodes without them are
// projected around the first node. Ways tagged type=lane become one lane per
// consecutive node pair, with left/right naming the adjacent lane ways,
// lane_change=yes allowing changes and intersection=yes marking turn lanes.
// Ways tagged type=stop_line or type=crosswalk attach to the lane way named
// by their lane tag. Nodes tagged type=signal with a lane tag become signals.
func DecodeOSM(ctx context.Context, r io.Reader) (*roadnet.Bundle, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	var (
		nodes []*osm.Node
		ways  []*osm.Way
	)
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodes = append(nodes, o)
		case *osm.Way:
			ways = append(ways, o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan OSM XML: %w", err)
	}

	c := &osmConverter{b: &roadnet.Bundle{}, segments: make(map[osm.WayID]int)}
	c.points(nodes)
	for _, w := range ways {
		if w.Tags.Find("type") == "lane" {
			c.segments[w.ID] = len(w.Nodes) - 1
		}
	}
	for _, w := range ways {
		if err := c.way(w); err != nil {
			return nil, err
		}
	}
	c.signals(nodes)
	if err := c.err; err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Decoded OSM map.", "nodes", len(nodes), "ways", len(ways),
		"lanes", len(c.b.Lanes), "stopLines", len(c.b.StopLines))
	return c.b, nil
}

type osmConverter struct {
	b        *roadnet.Bundle
	segments map[osm.WayID]int
	routable map[int]bool
	err      error
}

func (c *osmConverter) points(nodes []*osm.Node) {
	if len(nodes) == 0 {
		return
	}
	lat0, lon0 := nodes[0].Lat, nodes[0].Lon
	cosLat := math.Cos(lat0 * math.Pi / 180)
	for _, n := range nodes {
		x, okX := c.float(n.Tags, "local_x")
		y, okY := c.float(n.Tags, "local_y")
		if !okX || !okY {
			x = earthRadius * (n.Lon - lon0) * math.Pi / 180 * cosLat
			y = earthRadius * (n.Lat - lat0) * math.Pi / 180
		}
		z, _ := c.float(n.Tags, "ele")
		c.b.Points = append(c.b.Points, roadnet.Point{ID: int(n.ID), X: x, Y: y, Z: z})
	}
}

func (c *osmConverter) float(tags osm.Tags, key string) (float64, bool) {
	v := tags.Find(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.fail(fmt.Errorf("tag %s=%q is not a number", key, v))
		return 0, false
	}
	return f, true
}

func (c *osmConverter) wayRef(tags osm.Tags, key string) osm.WayID {
	v := tags.Find(key)
	if v == "" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		c.fail(fmt.Errorf("tag %s=%q is not a way id", key, v))
		return 0
	}
	return osm.WayID(id)
}

func (c *osmConverter) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// laneID returns the lane for segment i of way w, or 0 when w has no such
// segment.
func (c *osmConverter) laneID(w osm.WayID, i int) int {
	n, ok := c.segments[w]
	if !ok || i < 0 || i >= n {
		return 0
	}
	return int(w)*laneStride + i + 1
}

// lastLane returns the final lane of way w.
func (c *osmConverter) lastLane(w osm.WayID) int {
	return c.laneID(w, c.segments[w]-1)
}

func (c *osmConverter) way(w *osm.Way) error {
	switch w.Tags.Find("type") {
	case "lane":
		return c.lane(w)
	case "stop_line":
		lane := c.lastLane(c.wayRef(w.Tags, "lane"))
		if lane == 0 {
			return fmt.Errorf("stop line way %d references no lane", w.ID)
		}
		line := c.line(w)
		c.b.StopLines = append(c.b.StopLines, roadnet.StopLine{ID: int(w.ID), LineID: line, LaneID: lane})
	case "crosswalk":
		lane := c.lastLane(c.wayRef(w.Tags, "lane"))
		if lane == 0 {
			return fmt.Errorf("crosswalk way %d references no lane", w.ID)
		}
		area := c.area(w)
		c.b.Crosswalks = append(c.b.Crosswalks, roadnet.Crosswalk{ID: int(w.ID), AreaID: area, Lanes: []int{lane}})
	case "curb":
		c.b.Curbs = append(c.b.Curbs, roadnet.Curb{ID: int(w.ID), LineID: c.line(w)})
	case "road_edge":
		c.b.RoadEdges = append(c.b.RoadEdges, roadnet.RoadEdge{ID: int(w.ID), LineID: c.line(w)})
	}
	return nil
}

func (c *osmConverter) lane(w *osm.Way) error {
	if len(w.Nodes) < 2 {
		return fmt.Errorf("lane way %d has fewer than two nodes", w.ID)
	}
	if len(w.Nodes)-1 >= laneStride {
		return fmt.Errorf("lane way %d has more than %d segments", w.ID, laneStride-1)
	}
	if c.routable == nil {
		c.routable = make(map[int]bool)
	}
	left := c.wayRef(w.Tags, "left")
	right := c.wayRef(w.Tags, "right")
	change := w.Tags.Find("lane_change") == "yes" || w.Tags.Find("lane_change") == "true"
	speed, _ := c.float(w.Tags, "speed_limit")
	laneNo, _ := c.float(w.Tags, "lane_no")

	var ids []int
	for i := 0; i+1 < len(w.Nodes); i++ {
		from, to := int(w.Nodes[i].ID), int(w.Nodes[i+1].ID)
		for _, n := range []int{from, to} {
			if !c.routable[n] {
				c.routable[n] = true
				c.b.Nodes = append(c.b.Nodes, roadnet.Node{ID: n, PointID: n})
			}
		}
		id := c.laneID(w.ID, i)
		ids = append(ids, id)
		c.b.Lanes = append(c.b.Lanes, roadnet.Lane{
			ID:         id,
			BeginNode:  from,
			EndNode:    to,
			LeftLane:   c.laneID(left, i),
			RightLane:  c.laneID(right, i),
			LaneNo:     int(laneNo),
			LaneChange: change,
			SpeedLimit: speed,
		})
	}
	if w.Tags.Find("intersection") == "yes" {
		c.b.Intersections = append(c.b.Intersections, roadnet.Intersection{ID: int(w.ID), Lanes: ids})
	}
	return nil
}

// line records the first and last node of w as a line and returns its id.
func (c *osmConverter) line(w *osm.Way) int {
	if len(w.Nodes) < 2 {
		return 0
	}
	c.b.Lines = append(c.b.Lines, roadnet.Line{
		ID:         int(w.ID),
		BeginPoint: int(w.Nodes[0].ID),
		EndPoint:   int(w.Nodes[len(w.Nodes)-1].ID),
	})
	return int(w.ID)
}

func (c *osmConverter) area(w *osm.Way) int {
	if len(w.Nodes) < 3 {
		return 0
	}
	pts := make([]int, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		pts = append(pts, int(n.ID))
	}
	c.b.Areas = append(c.b.Areas, roadnet.Area{ID: int(w.ID), Points: pts})
	return int(w.ID)
}

func (c *osmConverter) signals(nodes []*osm.Node) {
	var sigs []roadnet.Signal
	for _, n := range nodes {
		if n.Tags.Find("type") != "signal" {
			continue
		}
		lane := c.lastLane(c.wayRef(n.Tags, "lane"))
		if lane == 0 {
			c.fail(fmt.Errorf("signal node %d references no lane", n.ID))
			continue
		}
		sigs = append(sigs, roadnet.Signal{ID: int(n.ID), LaneID: lane})
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].ID < sigs[j].ID })
	c.b.Signals = append(c.b.Signals, sigs...)
}
