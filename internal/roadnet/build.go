package roadnet

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"github.com/golang/geo/r3"

	"github.com/specialistvlad/globalplanner/internal/geom"
)

// BuildOptions sets the rule penalties folded into edge weights.
type BuildOptions struct {
	LaneChangeCost float64
	TurnCost       float64
	StopLineCost   float64
	SignalCost     float64
	CrosswalkCost  float64
}

// DefaultBuildOptions returns the default rule penalties.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		LaneChangeCost: 5,
		TurnCost:       2,
		StopLineCost:   3,
		SignalCost:     2,
		CrosswalkCost:  1,
	}
}

func (o BuildOptions) sanitized() BuildOptions {
	clamp := func(v float64) float64 {
		if v < 0 || math.IsNaN(v) {
			return 0
		}
		return v
	}
	return BuildOptions{
		LaneChangeCost: clamp(o.LaneChangeCost),
		TurnCost:       clamp(o.TurnCost),
		StopLineCost:   clamp(o.StopLineCost),
		SignalCost:     clamp(o.SignalCost),
		CrosswalkCost:  clamp(o.CrosswalkCost),
	}
}

// Build derives a graph from a complete bundle of records.
func Build(b *Bundle, opts BuildOptions) *Graph {
	return build(newRecordStoreFromBundle(b), opts)
}

// build derives the graph from raw records. Records referencing missing nodes
// or points are skipped; they are expected to become valid once the rest of
// the map arrives.
func build(s *recordStore, opts BuildOptions) *Graph {
	opts = opts.sanitized()
	g := &Graph{
		byNode:    map[int]VertexID{},
		laneEdges: map[int][]int32{},
		laneEnds:  map[int][2]VertexID{},
		lanes:     map[int]Lane{},
	}

	for _, nid := range slices.Sorted(maps.Keys(s.nodes)) {
		p, ok := s.points[s.nodes[nid].PointID]
		if !ok {
			continue
		}
		id := VertexID(len(g.Vertices))
		g.Vertices = append(g.Vertices, Vertex{
			ID:       id,
			NodeID:   nid,
			Position: r3.Vector{X: p.X, Y: p.Y, Z: p.Z},
		})
		g.byNode[nid] = id
	}

	ruleCost := laneRuleCosts(s, opts)
	turnLanes := map[int]bool{}
	for _, in := range s.intersections {
		for _, l := range in.Lanes {
			turnLanes[l] = true
		}
	}

	lanes := sortedValues(s.lanes)
	for _, lane := range lanes {
		from, okFrom := g.byNode[lane.BeginNode]
		to, okTo := g.byNode[lane.EndNode]
		if !okFrom || !okTo || from == to {
			continue
		}
		g.lanes[lane.ID] = lane
		g.laneEnds[lane.ID] = [2]VertexID{from, to}

		kind, rc := EdgeFollow, ruleCost[lane.ID]
		if turnLanes[lane.ID] {
			kind, rc = EdgeTurn, rc+opts.TurnCost
		}
		g.addEdge(from, to, kind, lane.ID, rc)
	}

	for _, lane := range lanes {
		ends, ok := g.laneEnds[lane.ID]
		if !ok || !lane.LaneChange {
			continue
		}
		for _, adj := range []int{lane.LeftLane, lane.RightLane} {
			if adj == 0 || adj == lane.ID {
				continue
			}
			adjEnds, ok := g.laneEnds[adj]
			if !ok || adjEnds[1] == ends[0] {
				continue
			}
			g.addEdge(ends[0], adjEnds[1], EdgeLaneChange, adj, opts.LaneChangeCost+ruleCost[adj])
		}
	}

	g.index()
	g.annotate(s, lanes)
	g.entries = g.computeEntries()
	g.extent = extentOf(s.points)
	return g
}

func laneRuleCosts(s *recordStore, opts BuildOptions) map[int]float64 {
	cost := map[int]float64{}
	for _, sl := range s.stopLines {
		cost[sl.LaneID] += opts.StopLineCost
	}
	for _, sig := range s.signals {
		cost[sig.LaneID] += opts.SignalCost
	}
	for _, cw := range s.crosswalks {
		for _, l := range cw.Lanes {
			cost[l] += opts.CrosswalkCost
		}
	}
	return cost
}

func (g *Graph) addEdge(from, to VertexID, kind EdgeKind, laneID int, ruleCost float64) {
	id := int32(len(g.Edges))
	g.Edges = append(g.Edges, Edge{
		ID:       id,
		From:     from,
		To:       to,
		Kind:     kind,
		LaneID:   laneID,
		Length:   geom.Distance(g.Vertices[from].Position, g.Vertices[to].Position),
		RuleCost: ruleCost,
	})
	g.laneEdges[laneID] = append(g.laneEdges[laneID], id)
}

func (g *Graph) index() {
	g.out = make([][]int32, len(g.Vertices))
	g.inDegree = make([]int32, len(g.Vertices))
	for _, e := range g.Edges {
		g.out[e.From] = append(g.out[e.From], e.ID)
		g.inDegree[e.To]++
	}
	for _, o := range g.out {
		slices.SortFunc(o, func(a, b int32) int {
			if c := cmp.Compare(g.Edges[a].To, g.Edges[b].To); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
	}
}

// annotate assigns each vertex its lane and heading: the lowest-ID lane that
// starts there, or failing that the lowest-ID lane that ends there.
func (g *Graph) annotate(s *recordStore, lanes []Lane) {
	assigned := make([]bool, len(g.Vertices))
	laneHeading := func(l Lane, from, to VertexID) float64 {
		if cl, ok := s.centerLines[l.CenterLine]; ok && l.CenterLine != 0 {
			return geom.NormalizeAngle(cl.Heading)
		}
		return geom.HeadingBetween(g.Vertices[from].Position, g.Vertices[to].Position)
	}
	for _, pass := range []int{0, 1} {
		for _, l := range lanes {
			ends, ok := g.laneEnds[l.ID]
			if !ok {
				continue
			}
			v := ends[pass]
			if assigned[v] {
				continue
			}
			assigned[v] = true
			g.Vertices[v].LaneID = l.ID
			g.Vertices[v].Heading = laneHeading(l, ends[0], ends[1])
		}
	}
	for i := range g.Vertices {
		g.Vertices[i].Isolated = len(g.out[i]) == 0 && g.inDegree[i] == 0
	}
}

func (g *Graph) computeEntries() []VertexID {
	visited := make([]bool, len(g.Vertices))
	var entries []VertexID
	var stack []VertexID
	walk := func(root VertexID) {
		stack = append(stack[:0], root)
		visited[root] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, eid := range g.out[v] {
				if to := g.Edges[eid].To; !visited[to] {
					visited[to] = true
					stack = append(stack, to)
				}
			}
		}
	}
	for i, v := range g.Vertices {
		if !v.Isolated && g.inDegree[i] == 0 {
			entries = append(entries, v.ID)
			walk(v.ID)
		}
	}
	for i, v := range g.Vertices {
		if !v.Isolated && !visited[i] {
			entries = append(entries, v.ID)
			walk(v.ID)
		}
	}
	slices.Sort(entries)
	return entries
}

func extentOf(points map[int]Point) Extent {
	if len(points) == 0 {
		return Extent{}
	}
	inf := math.Inf(1)
	ext := Extent{Min: r3.Vector{X: inf, Y: inf, Z: inf}, Max: r3.Vector{X: -inf, Y: -inf, Z: -inf}}
	for _, p := range points {
		ext.Min = r3.Vector{X: math.Min(ext.Min.X, p.X), Y: math.Min(ext.Min.Y, p.Y), Z: math.Min(ext.Min.Z, p.Z)}
		ext.Max = r3.Vector{X: math.Max(ext.Max.X, p.X), Y: math.Max(ext.Max.Y, p.Y), Z: math.Max(ext.Max.Z, p.Z)}
	}
	return ext
}
