package roadnet

import "slices"

// Point is a surveyed position in the map frame.
type Point struct {
	ID int     `msgpack:"id" json:"id"`
	X  float64 `msgpack:"x" json:"x"`
	Y  float64 `msgpack:"y" json:"y"`
	Z  float64 `msgpack:"z" json:"z"`
}

// Node is a routable location. Lanes connect nodes.
type Node struct {
	ID      int `msgpack:"id" json:"id"`
	PointID int `msgpack:"point_id" json:"point_id"`
}

// Lane is a directed drivable segment from BeginNode to EndNode. LeftLane and
// RightLane name laterally adjacent lanes (0 when absent).
type Lane struct {
	ID         int     `msgpack:"id" json:"id"`
	BeginNode  int     `msgpack:"begin_node" json:"begin_node"`
	EndNode    int     `msgpack:"end_node" json:"end_node"`
	CenterLine int     `msgpack:"center_line,omitempty" json:"center_line,omitempty"`
	LeftLane   int     `msgpack:"left_lane,omitempty" json:"left_lane,omitempty"`
	RightLane  int     `msgpack:"right_lane,omitempty" json:"right_lane,omitempty"`
	LaneNo     int     `msgpack:"lane_no,omitempty" json:"lane_no,omitempty"`
	LaneChange bool    `msgpack:"lane_change,omitempty" json:"lane_change,omitempty"`
	SpeedLimit float64 `msgpack:"speed_limit,omitempty" json:"speed_limit,omitempty"`
}

// CenterLine carries per-lane reference geometry.
type CenterLine struct {
	ID      int     `msgpack:"id" json:"id"`
	PointID int     `msgpack:"point_id" json:"point_id"`
	Heading float64 `msgpack:"heading" json:"heading"`
	Width   float64 `msgpack:"width,omitempty" json:"width,omitempty"`
}

// Intersection groups the lanes that cross a junction area.
type Intersection struct {
	ID     int   `msgpack:"id" json:"id"`
	AreaID int   `msgpack:"area_id,omitempty" json:"area_id,omitempty"`
	Lanes  []int `msgpack:"lanes" json:"lanes"`
}

// Area is a closed polygon over points.
type Area struct {
	ID     int   `msgpack:"id" json:"id"`
	Points []int `msgpack:"points" json:"points"`
}

// Line is a straight segment between two points.
type Line struct {
	ID         int `msgpack:"id" json:"id"`
	BeginPoint int `msgpack:"begin_point" json:"begin_point"`
	EndPoint   int `msgpack:"end_point" json:"end_point"`
}

// StopLine marks where vehicles on a lane must stop.
type StopLine struct {
	ID     int `msgpack:"id" json:"id"`
	LineID int `msgpack:"line_id,omitempty" json:"line_id,omitempty"`
	LaneID int `msgpack:"lane_id" json:"lane_id"`
}

// Signal is a traffic light governing a lane.
type Signal struct {
	ID       int `msgpack:"id" json:"id"`
	VectorID int `msgpack:"vector_id,omitempty" json:"vector_id,omitempty"`
	LaneID   int `msgpack:"lane_id" json:"lane_id"`
	Type     int `msgpack:"type,omitempty" json:"type,omitempty"`
}

// Vector is an oriented point, used to place signals.
type Vector struct {
	ID      int     `msgpack:"id" json:"id"`
	PointID int     `msgpack:"point_id" json:"point_id"`
	Heading float64 `msgpack:"heading" json:"heading"`
}

// Curb is a kerb line.
type Curb struct {
	ID     int `msgpack:"id" json:"id"`
	LineID int `msgpack:"line_id" json:"line_id"`
}

// RoadEdge is a road boundary line.
type RoadEdge struct {
	ID     int `msgpack:"id" json:"id"`
	LineID int `msgpack:"line_id" json:"line_id"`
}

// WayArea is a drivable area polygon.
type WayArea struct {
	ID     int `msgpack:"id" json:"id"`
	AreaID int `msgpack:"area_id" json:"area_id"`
}

// Crosswalk is a pedestrian crossing over the listed lanes.
type Crosswalk struct {
	ID     int   `msgpack:"id" json:"id"`
	AreaID int   `msgpack:"area_id,omitempty" json:"area_id,omitempty"`
	Lanes  []int `msgpack:"lanes" json:"lanes"`
}

// Bundle is a complete set of map records, one slice per category. It is the
// unit of blob and file ingestion.
type Bundle struct {
	Points        []Point        `msgpack:"points"`
	Nodes         []Node         `msgpack:"nodes"`
	Lanes         []Lane         `msgpack:"lanes"`
	CenterLines   []CenterLine   `msgpack:"center_lines"`
	Intersections []Intersection `msgpack:"intersections"`
	Areas         []Area         `msgpack:"areas"`
	Lines         []Line         `msgpack:"lines"`
	StopLines     []StopLine     `msgpack:"stop_lines"`
	Signals       []Signal       `msgpack:"signals"`
	Vectors       []Vector       `msgpack:"vectors"`
	Curbs         []Curb         `msgpack:"curbs"`
	RoadEdges     []RoadEdge     `msgpack:"road_edges"`
	WayAreas      []WayArea      `msgpack:"way_areas"`
	Crosswalks    []Crosswalk    `msgpack:"crosswalks"`
}

// Payload returns the bundle's records for a single category, typed as the
// slice MergeFragment expects for that category.
func (b *Bundle) Payload(c Category) any {
	switch c {
	case CategoryPoints:
		return b.Points
	case CategoryNodes:
		return b.Nodes
	case CategoryLanes:
		return b.Lanes
	case CategoryCenterLines:
		return b.CenterLines
	case CategoryIntersections:
		return b.Intersections
	case CategoryAreas:
		return b.Areas
	case CategoryLines:
		return b.Lines
	case CategoryStopLines:
		return b.StopLines
	case CategorySignals:
		return b.Signals
	case CategoryVectors:
		return b.Vectors
	case CategoryCurbs:
		return b.Curbs
	case CategoryRoadEdges:
		return b.RoadEdges
	case CategoryWayAreas:
		return b.WayAreas
	case CategoryCrosswalks:
		return b.Crosswalks
	}
	return nil
}

// Merge appends other's records to b.
func (b *Bundle) Merge(other *Bundle) {
	b.Points = append(b.Points, other.Points...)
	b.Nodes = append(b.Nodes, other.Nodes...)
	b.Lanes = append(b.Lanes, other.Lanes...)
	b.CenterLines = append(b.CenterLines, other.CenterLines...)
	b.Intersections = append(b.Intersections, other.Intersections...)
	b.Areas = append(b.Areas, other.Areas...)
	b.Lines = append(b.Lines, other.Lines...)
	b.StopLines = append(b.StopLines, other.StopLines...)
	b.Signals = append(b.Signals, other.Signals...)
	b.Vectors = append(b.Vectors, other.Vectors...)
	b.Curbs = append(b.Curbs, other.Curbs...)
	b.RoadEdges = append(b.RoadEdges, other.RoadEdges...)
	b.WayAreas = append(b.WayAreas, other.WayAreas...)
	b.Crosswalks = append(b.Crosswalks, other.Crosswalks...)
}

// DecodePayload allocates the typed slice for category c, lets decode fill it
// (decode receives a pointer to the slice), and returns the slice value.
// Transports use it to turn wire bytes into a MergeFragment payload.
func DecodePayload(c Category, decode func(target any) error) (any, error) {
	var target any
	switch c {
	case CategoryPoints:
		target = &[]Point{}
	case CategoryNodes:
		target = &[]Node{}
	case CategoryLanes:
		target = &[]Lane{}
	case CategoryCenterLines:
		target = &[]CenterLine{}
	case CategoryIntersections:
		target = &[]Intersection{}
	case CategoryAreas:
		target = &[]Area{}
	case CategoryLines:
		target = &[]Line{}
	case CategoryStopLines:
		target = &[]StopLine{}
	case CategorySignals:
		target = &[]Signal{}
	case CategoryVectors:
		target = &[]Vector{}
	case CategoryCurbs:
		target = &[]Curb{}
	case CategoryRoadEdges:
		target = &[]RoadEdge{}
	case CategoryWayAreas:
		target = &[]WayArea{}
	case CategoryCrosswalks:
		target = &[]Crosswalk{}
	default:
		return nil, ErrUnknownCategory
	}
	if err := decode(target); err != nil {
		return nil, err
	}
	return derefPayload(target), nil
}

func derefPayload(p any) any {
	switch v := p.(type) {
	case *[]Point:
		return *v
	case *[]Node:
		return *v
	case *[]Lane:
		return *v
	case *[]CenterLine:
		return *v
	case *[]Intersection:
		return *v
	case *[]Area:
		return *v
	case *[]Line:
		return *v
	case *[]StopLine:
		return *v
	case *[]Signal:
		return *v
	case *[]Vector:
		return *v
	case *[]Curb:
		return *v
	case *[]RoadEdge:
		return *v
	case *[]WayArea:
		return *v
	case *[]Crosswalk:
		return *v
	}
	return p
}

func equalIntersection(a, b Intersection) bool {
	return a.ID == b.ID && a.AreaID == b.AreaID && slices.Equal(a.Lanes, b.Lanes)
}

func equalArea(a, b Area) bool {
	return a.ID == b.ID && slices.Equal(a.Points, b.Points)
}

func equalCrosswalk(a, b Crosswalk) bool {
	return a.ID == b.ID && a.AreaID == b.AreaID && slices.Equal(a.Lanes, b.Lanes)
}
