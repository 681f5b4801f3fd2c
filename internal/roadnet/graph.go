package roadnet

import (
	"math"
	"slices"

	"github.com/golang/geo/r3"

	"github.com/specialistvlad/globalplanner/internal/geom"
)

// VertexID is a stable index into Graph.Vertices. IDs are assigned in
// ascending source node ID order, so the same records always produce the same
// IDs regardless of the order they arrived in.
type VertexID int32

// NoVertex marks an absent vertex.
const NoVertex VertexID = -1

// EdgeKind classifies how an edge may be traversed.
type EdgeKind uint8

const (
	// EdgeFollow continues along a lane.
	EdgeFollow EdgeKind = iota
	// EdgeTurn is a lane inside an intersection.
	EdgeTurn
	// EdgeLaneChange moves onto a laterally adjacent lane.
	EdgeLaneChange
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFollow:
		return "follow"
	case EdgeTurn:
		return "turn"
	case EdgeLaneChange:
		return "lane_change"
	}
	return "unknown"
}

// Vertex is a routable node of the graph.
type Vertex struct {
	ID       VertexID
	NodeID   int
	Position r3.Vector
	Heading  float64
	LaneID   int
	// Isolated vertices have no incident edges and are never chosen as a
	// start or goal projection.
	Isolated bool
}

// Edge is a directed connection between two vertices. Length is the straight
// line distance between its endpoints; RuleCost is the non-negative traffic
// rule penalty from the map (stop lines, signals, crosswalks, turns, lane
// changes).
type Edge struct {
	ID       int32
	From, To VertexID
	Kind     EdgeKind
	LaneID   int
	Length   float64
	RuleCost float64
}

// Weight returns the static traversal weight of the edge.
func (e Edge) Weight() float64 {
	return e.Length + e.RuleCost
}

// Extent is the axis-aligned bounding box of all map points.
type Extent struct {
	Min r3.Vector `msgpack:"min" json:"min"`
	Max r3.Vector `msgpack:"max" json:"max"`
}

// Graph is an immutable directed road graph stored as an arena: vertices and
// edges live in flat slices and refer to each other by index. A *Graph is safe
// for concurrent readers and is handed to planning requests as a snapshot.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge

	out       [][]int32
	inDegree  []int32
	byNode    map[int]VertexID
	laneEdges map[int][]int32
	laneEnds  map[int][2]VertexID
	lanes     map[int]Lane
	entries   []VertexID
	extent    Extent

	// Version is the assembler content version this graph was built from.
	Version uint64
	// Epoch counts wholesale replacements of the network (blob or file reloads).
	Epoch uint64
}

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.Vertices) }

// Vertex returns the vertex with the given ID.
func (g *Graph) Vertex(id VertexID) Vertex { return g.Vertices[id] }

// Edge returns the edge with the given ID.
func (g *Graph) Edge(id int32) Edge { return g.Edges[id] }

// Out returns the IDs of the edges leaving v, ordered by (target vertex, edge
// ID). The returned slice must not be modified.
func (g *Graph) Out(v VertexID) []int32 { return g.out[v] }

// VertexByNode resolves a source node ID.
func (g *Graph) VertexByNode(nodeID int) (VertexID, bool) {
	v, ok := g.byNode[nodeID]
	return v, ok
}

// Lane returns the source lane record.
func (g *Graph) Lane(id int) (Lane, bool) {
	l, ok := g.lanes[id]
	return l, ok
}

// LaneEnds returns the begin and end vertices of a lane.
func (g *Graph) LaneEnds(laneID int) (begin, end VertexID, ok bool) {
	e, ok := g.laneEnds[laneID]
	if !ok {
		return NoVertex, NoVertex, false
	}
	return e[0], e[1], true
}

// LaneEdges returns the IDs of every edge that travels on the lane, including
// lane-change edges that merge into it.
func (g *Graph) LaneEdges(laneID int) []int32 { return g.laneEdges[laneID] }

// EntryPoints returns the vertices with no incoming edges, plus the lowest
// vertex of every closed loop that has none, in ascending order.
func (g *Graph) EntryPoints() []VertexID { return g.entries }

// Extent returns the bounding box of all map points.
func (g *Graph) Extent() Extent { return g.extent }

// Nearest returns the non-isolated vertex closest to p. Ties are broken by
// the lowest vertex ID. It reports false when the graph has no routable
// vertex.
func (g *Graph) Nearest(p r3.Vector) (VertexID, bool) {
	best := NoVertex
	bestDist := math.Inf(1)
	for i := range g.Vertices {
		v := &g.Vertices[i]
		if v.Isolated {
			continue
		}
		if d := geom.Distance(v.Position, p); d < bestDist {
			best, bestDist = v.ID, d
		}
	}
	return best, best != NoVertex
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := *g
	c.Vertices = slices.Clone(g.Vertices)
	c.Edges = slices.Clone(g.Edges)
	c.out = make([][]int32, len(g.out))
	for i, o := range g.out {
		c.out[i] = slices.Clone(o)
	}
	c.inDegree = slices.Clone(g.inDegree)
	c.entries = slices.Clone(g.entries)
	c.byNode = make(map[int]VertexID, len(g.byNode))
	for k, v := range g.byNode {
		c.byNode[k] = v
	}
	c.laneEdges = make(map[int][]int32, len(g.laneEdges))
	for k, v := range g.laneEdges {
		c.laneEdges[k] = slices.Clone(v)
	}
	c.laneEnds = make(map[int][2]VertexID, len(g.laneEnds))
	for k, v := range g.laneEnds {
		c.laneEnds[k] = v
	}
	c.lanes = make(map[int]Lane, len(g.lanes))
	for k, v := range g.lanes {
		c.lanes[k] = v
	}
	return &c
}
