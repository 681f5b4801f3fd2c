package roadnet_test

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/globalplanner/internal/roadnet"
	"github.com/specialistvlad/globalplanner/internal/testutil"
)

func TestBuild_VertexIDsFollowNodeOrder(t *testing.T) {
	b := testutil.StraightRoad(3, 10)
	// Reverse the input order; IDs must not depend on it.
	for i, j := 0, len(b.Nodes)-1; i < j; i, j = i+1, j-1 {
		b.Nodes[i], b.Nodes[j] = b.Nodes[j], b.Nodes[i]
	}

	g := roadnet.Build(b, roadnet.DefaultBuildOptions())

	require.Len(t, g.Vertices, 4)
	for i, v := range g.Vertices {
		assert.Equal(t, roadnet.VertexID(i), v.ID)
		assert.Equal(t, i+1, v.NodeID)
	}
	v, ok := g.VertexByNode(3)
	require.True(t, ok)
	assert.Equal(t, roadnet.VertexID(2), v)
}

func TestBuild_LaneChangeEdgesOnlyWhenAllowed(t *testing.T) {
	withChange := roadnet.Build(testutil.TwoLaneRoad(2, 10, 3.5), roadnet.DefaultBuildOptions())

	noChange := testutil.TwoLaneRoad(2, 10, 3.5)
	for i := range noChange.Lanes {
		noChange.Lanes[i].LaneChange = false
	}
	without := roadnet.Build(noChange, roadnet.DefaultBuildOptions())

	count := func(g *roadnet.Graph) int {
		n := 0
		for _, e := range g.Edges {
			if e.Kind == roadnet.EdgeLaneChange {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 4, count(withChange))
	assert.Zero(t, count(without))

	for _, e := range withChange.Edges {
		if e.Kind != roadnet.EdgeLaneChange {
			continue
		}
		assert.GreaterOrEqual(t, e.RuleCost, roadnet.DefaultBuildOptions().LaneChangeCost)
		assert.InDelta(t, e.Length, withChange.Vertex(e.From).Position.Sub(withChange.Vertex(e.To).Position).Norm(), 1e-9)
	}
}

func TestBuild_RuleCosts(t *testing.T) {
	b := testutil.StraightRoad(3, 10)
	b.StopLines = []roadnet.StopLine{{ID: 1, LaneID: 101}}
	b.Signals = []roadnet.Signal{{ID: 1, LaneID: 101}}
	b.Crosswalks = []roadnet.Crosswalk{{ID: 1, Lanes: []int{102}}}
	b.Intersections = []roadnet.Intersection{{ID: 1, Lanes: []int{103}}}
	opts := roadnet.DefaultBuildOptions()

	g := roadnet.Build(b, opts)

	byLane := map[int]roadnet.Edge{}
	for _, e := range g.Edges {
		byLane[e.LaneID] = e
	}
	assert.InDelta(t, opts.StopLineCost+opts.SignalCost, byLane[101].RuleCost, 1e-9)
	assert.InDelta(t, opts.CrosswalkCost, byLane[102].RuleCost, 1e-9)
	assert.InDelta(t, opts.TurnCost, byLane[103].RuleCost, 1e-9)
	assert.Equal(t, roadnet.EdgeTurn, byLane[103].Kind)
	assert.InDelta(t, 10.0, byLane[101].Length, 1e-9)
}

func TestBuild_NegativeRuleCostsAreClamped(t *testing.T) {
	b := testutil.StraightRoad(1, 10)
	b.StopLines = []roadnet.StopLine{{ID: 1, LaneID: 101}}

	g := roadnet.Build(b, roadnet.BuildOptions{StopLineCost: -50})

	require.Len(t, g.Edges, 1)
	assert.Zero(t, g.Edges[0].RuleCost)
	assert.GreaterOrEqual(t, g.Edges[0].Weight(), g.Edges[0].Length)
}

func TestBuild_OutAdjacencyIsOrdered(t *testing.T) {
	g := roadnet.Build(testutil.Grid(3, 3, 10), roadnet.DefaultBuildOptions())

	for v := range g.Vertices {
		out := g.Out(roadnet.VertexID(v))
		for i := 1; i < len(out); i++ {
			prev, cur := g.Edge(out[i-1]), g.Edge(out[i])
			assert.True(t, prev.To < cur.To || (prev.To == cur.To && prev.ID < cur.ID))
		}
	}
}

func TestBuild_IsolatedVerticesAndNearest(t *testing.T) {
	b := testutil.StraightRoad(2, 10)
	b.Points = append(b.Points, roadnet.Point{ID: 50, X: 5, Y: 0.1})
	b.Nodes = append(b.Nodes, roadnet.Node{ID: 50, PointID: 50})

	g := roadnet.Build(b, roadnet.DefaultBuildOptions())

	iso, ok := g.VertexByNode(50)
	require.True(t, ok)
	assert.True(t, g.Vertex(iso).Isolated)

	nearest, ok := g.Nearest(r3.Vector{X: 5, Y: 0.1})
	require.True(t, ok)
	assert.NotEqual(t, iso, nearest, "isolated vertices are never projected onto")
	assert.Equal(t, roadnet.VertexID(0), nearest, "equidistant vertices resolve to the lowest id")
}

func TestBuild_DanglingLanesAreSkipped(t *testing.T) {
	b := testutil.StraightRoad(2, 10)
	b.Lanes = append(b.Lanes, roadnet.Lane{ID: 999, BeginNode: 1, EndNode: 404})

	g := roadnet.Build(b, roadnet.DefaultBuildOptions())

	assert.Len(t, g.Edges, 2)
	_, _, ok := g.LaneEnds(999)
	assert.False(t, ok)
}

func TestBuild_EntryPointsAndLoops(t *testing.T) {
	b := testutil.StraightRoad(2, 10)
	// A closed triangle with no way in.
	b.Points = append(b.Points,
		roadnet.Point{ID: 20, X: 0, Y: 50}, roadnet.Point{ID: 21, X: 10, Y: 50}, roadnet.Point{ID: 22, X: 5, Y: 60})
	b.Nodes = append(b.Nodes,
		roadnet.Node{ID: 20, PointID: 20}, roadnet.Node{ID: 21, PointID: 21}, roadnet.Node{ID: 22, PointID: 22})
	b.Lanes = append(b.Lanes,
		roadnet.Lane{ID: 300, BeginNode: 20, EndNode: 21},
		roadnet.Lane{ID: 301, BeginNode: 21, EndNode: 22},
		roadnet.Lane{ID: 302, BeginNode: 22, EndNode: 20})

	g := roadnet.Build(b, roadnet.DefaultBuildOptions())

	first, _ := g.VertexByNode(1)
	loop, _ := g.VertexByNode(20)
	assert.Equal(t, []roadnet.VertexID{first, loop}, g.EntryPoints())
}

func TestBuild_ExtentAndHeading(t *testing.T) {
	b := testutil.TwoLaneRoad(2, 10, 3.5)
	g := roadnet.Build(b, roadnet.DefaultBuildOptions())

	ext := g.Extent()
	assert.Equal(t, r3.Vector{X: 0, Y: 0}, ext.Min)
	assert.Equal(t, r3.Vector{X: 20, Y: 3.5}, ext.Max)

	v, _ := g.VertexByNode(1)
	assert.Equal(t, 101, g.Vertex(v).LaneID)
	assert.InDelta(t, 0, g.Vertex(v).Heading, 1e-9)
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := roadnet.Build(testutil.StraightRoad(2, 10), roadnet.DefaultBuildOptions())
	c := g.Clone()
	c.Vertices[0].LaneID = 12345
	c.Out(0)[0] = 99

	assert.NotEqual(t, 12345, g.Vertices[0].LaneID)
	assert.NotEqual(t, int32(99), g.Out(0)[0])
}
