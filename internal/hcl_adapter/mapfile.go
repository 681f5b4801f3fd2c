package hcl_adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// mapFile is an HCL road network description. Block labels are record ids:
//
//	point "1" {
//	  x = 0
//	  y = 0
//	}
//	node "1" { point = 1 }
//	lane "101" {
//	  begin       = 1
//	  end         = 2
//	  left        = 201
//	  lane_change = true
//	}
type mapFile struct {
	Points        []*pointBlock        `hcl:"point,block"`
	Nodes         []*nodeBlock         `hcl:"node,block"`
	Lanes         []*laneBlock         `hcl:"lane,block"`
	CenterLines   []*centerLineBlock   `hcl:"center_line,block"`
	Intersections []*intersectionBlock `hcl:"intersection,block"`
	Areas         []*areaBlock         `hcl:"area,block"`
	Lines         []*lineBlock         `hcl:"line,block"`
	StopLines     []*stopLineBlock     `hcl:"stop_line,block"`
	Signals       []*signalBlock       `hcl:"signal,block"`
	Vectors       []*vectorBlock       `hcl:"vector,block"`
	Curbs         []*lineRefBlock      `hcl:"curb,block"`
	RoadEdges     []*lineRefBlock      `hcl:"road_edge,block"`
	WayAreas      []*wayAreaBlock      `hcl:"way_area,block"`
	Crosswalks    []*crosswalkBlock    `hcl:"crosswalk,block"`
}

type pointBlock struct {
	ID string  `hcl:"id,label"`
	X  float64 `hcl:"x"`
	Y  float64 `hcl:"y"`
	Z  float64 `hcl:"z,optional"`
}

type nodeBlock struct {
	ID    string `hcl:"id,label"`
	Point int    `hcl:"point"`
}

type laneBlock struct {
	ID         string  `hcl:"id,label"`
	Begin      int     `hcl:"begin"`
	End        int     `hcl:"end"`
	CenterLine int     `hcl:"center_line,optional"`
	Left       int     `hcl:"left,optional"`
	Right      int     `hcl:"right,optional"`
	LaneNo     int     `hcl:"lane_no,optional"`
	LaneChange bool    `hcl:"lane_change,optional"`
	SpeedLimit float64 `hcl:"speed_limit,optional"`
}

type centerLineBlock struct {
	ID      string  `hcl:"id,label"`
	Point   int     `hcl:"point"`
	Heading float64 `hcl:"heading,optional"`
	Width   float64 `hcl:"width,optional"`
}

type intersectionBlock struct {
	ID    string `hcl:"id,label"`
	Area  int    `hcl:"area,optional"`
	Lanes []int  `hcl:"lanes"`
}

type areaBlock struct {
	ID     string `hcl:"id,label"`
	Points []int  `hcl:"points"`
}

type lineBlock struct {
	ID    string `hcl:"id,label"`
	Begin int    `hcl:"begin"`
	End   int    `hcl:"end"`
}

type stopLineBlock struct {
	ID   string `hcl:"id,label"`
	Line int    `hcl:"line,optional"`
	Lane int    `hcl:"lane"`
}

type signalBlock struct {
	ID     string `hcl:"id,label"`
	Vector int    `hcl:"vector,optional"`
	Lane   int    `hcl:"lane"`
	Type   int    `hcl:"type,optional"`
}

type vectorBlock struct {
	ID      string  `hcl:"id,label"`
	Point   int     `hcl:"point"`
	Heading float64 `hcl:"heading,optional"`
}

type lineRefBlock struct {
	ID   string `hcl:"id,label"`
	Line int    `hcl:"line"`
}

type wayAreaBlock struct {
	ID   string `hcl:"id,label"`
	Area int    `hcl:"area"`
}

type crosswalkBlock struct {
	ID    string `hcl:"id,label"`
	Area  int    `hcl:"area,optional"`
	Lanes []int  `hcl:"lanes"`
}

// DecodeMapFile parses an HCL map description into a record bundle.
func DecodeMapFile(ctx context.Context, path string) (*roadnet.Bundle, error) {
	return decodeMap(ctx, path, nil)
}

// DecodeMapSource is DecodeMapFile for an in-memory document.
func DecodeMapSource(ctx context.Context, filename string, src []byte) (*roadnet.Bundle, error) {
	return decodeMap(ctx, filename, src)
}

func decodeMap(ctx context.Context, filename string, src []byte) (*roadnet.Bundle, error) {
	file, err := parseFile(filename, src)
	if err != nil {
		return nil, err
	}
	var root mapFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL map %s: %w", filename, diags)
	}
	b, err := root.bundle()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	ctxlog.FromContext(ctx).Debug("Decoded HCL map.", "path", filename,
		"points", len(b.Points), "nodes", len(b.Nodes), "lanes", len(b.Lanes))
	return b, nil
}

func (m *mapFile) bundle() (*roadnet.Bundle, error) {
	b := &roadnet.Bundle{}
	var errs []error
	id := func(kind, label string) int {
		v, err := labelID(kind, label)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	for _, p := range m.Points {
		b.Points = append(b.Points, roadnet.Point{ID: id("point", p.ID), X: p.X, Y: p.Y, Z: p.Z})
	}
	for _, n := range m.Nodes {
		b.Nodes = append(b.Nodes, roadnet.Node{ID: id("node", n.ID), PointID: n.Point})
	}
	for _, l := range m.Lanes {
		b.Lanes = append(b.Lanes, roadnet.Lane{
			ID:         id("lane", l.ID),
			BeginNode:  l.Begin,
			EndNode:    l.End,
			CenterLine: l.CenterLine,
			LeftLane:   l.Left,
			RightLane:  l.Right,
			LaneNo:     l.LaneNo,
			LaneChange: l.LaneChange,
			SpeedLimit: l.SpeedLimit,
		})
	}
	for _, c := range m.CenterLines {
		b.CenterLines = append(b.CenterLines, roadnet.CenterLine{ID: id("center_line", c.ID), PointID: c.Point, Heading: c.Heading, Width: c.Width})
	}
	for _, i := range m.Intersections {
		b.Intersections = append(b.Intersections, roadnet.Intersection{ID: id("intersection", i.ID), AreaID: i.Area, Lanes: i.Lanes})
	}
	for _, a := range m.Areas {
		b.Areas = append(b.Areas, roadnet.Area{ID: id("area", a.ID), Points: a.Points})
	}
	for _, l := range m.Lines {
		b.Lines = append(b.Lines, roadnet.Line{ID: id("line", l.ID), BeginPoint: l.Begin, EndPoint: l.End})
	}
	for _, s := range m.StopLines {
		b.StopLines = append(b.StopLines, roadnet.StopLine{ID: id("stop_line", s.ID), LineID: s.Line, LaneID: s.Lane})
	}
	for _, s := range m.Signals {
		b.Signals = append(b.Signals, roadnet.Signal{ID: id("signal", s.ID), VectorID: s.Vector, LaneID: s.Lane, Type: s.Type})
	}
	for _, v := range m.Vectors {
		b.Vectors = append(b.Vectors, roadnet.Vector{ID: id("vector", v.ID), PointID: v.Point, Heading: v.Heading})
	}
	for _, c := range m.Curbs {
		b.Curbs = append(b.Curbs, roadnet.Curb{ID: id("curb", c.ID), LineID: c.Line})
	}
	for _, r := range m.RoadEdges {
		b.RoadEdges = append(b.RoadEdges, roadnet.RoadEdge{ID: id("road_edge", r.ID), LineID: r.Line})
	}
	for _, w := range m.WayAreas {
		b.WayAreas = append(b.WayAreas, roadnet.WayArea{ID: id("way_area", w.ID), AreaID: w.Area})
	}
	for _, c := range m.Crosswalks {
		b.Crosswalks = append(b.Crosswalks, roadnet.Crosswalk{ID: id("crosswalk", c.ID), AreaID: c.Area, Lanes: c.Lanes})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b, nil
}
