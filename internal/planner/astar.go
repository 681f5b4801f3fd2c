package planner

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// cancelCheckInterval is how many expansions run between context checks.
const cancelCheckInterval = 1024

type searcher struct {
	g             *roadnet.Graph
	deltas        map[int32]float64
	laneChange    bool
	maxExpansions int
}

// route is a vertex sequence with the edges joining it.
type route struct {
	vertices   []roadnet.VertexID
	edges      []int32
	weights    []float64
	cost       float64
	expansions int
}

// weight is the effective traversal cost of an edge: static weight plus
// overlay delta, never below the edge's geometric length. The floor keeps
// the straight-line heuristic admissible.
func (s *searcher) weight(e roadnet.Edge) float64 {
	w := e.Weight() + s.deltas[e.ID]
	if w < e.Length || math.IsNaN(w) {
		return e.Length
	}
	return w
}

func (s *searcher) heuristic(v, goal roadnet.VertexID) float64 {
	return geom.Distance(s.g.Vertex(v).Position, s.g.Vertex(goal).Position)
}

// run is A* from start to goal. The open set is ordered by (f, vertex id)
// and neighbours are relaxed in adjacency order, so ties always resolve the
// same way. Only strict improvements replace a known cost.
func (s *searcher) run(ctx context.Context, start, goal roadnet.VertexID, blocked []bool) (route, error) {
	if start == goal {
		return route{vertices: []roadnet.VertexID{start}}, nil
	}

	n := s.g.Len()
	gScore := make([]float64, n)
	parent := make([]int32, n)
	closed := make([]bool, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
		parent[i] = -1
	}

	open := &openSet{}
	gScore[start] = 0
	heap.Push(open, openItem{v: start, f: s.heuristic(start, goal)})

	expansions := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(openItem)
		if closed[cur.v] {
			continue
		}
		closed[cur.v] = true

		if cur.v == goal {
			r := s.reconstruct(start, goal, parent)
			r.cost = gScore[goal]
			r.expansions = expansions
			return r, nil
		}

		expansions++
		if expansions > s.maxExpansions {
			return route{expansions: expansions}, fmt.Errorf("%w: after %d expansions", ErrSearchExhausted, s.maxExpansions)
		}
		if expansions%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return route{expansions: expansions}, err
			}
		}

		for _, eid := range s.g.Out(cur.v) {
			e := s.g.Edge(eid)
			if closed[e.To] || (blocked != nil && blocked[e.To]) {
				continue
			}
			if e.Kind == roadnet.EdgeLaneChange && !s.laneChange {
				continue
			}
			tentative := gScore[cur.v] + s.weight(e)
			if tentative < gScore[e.To] {
				gScore[e.To] = tentative
				parent[e.To] = eid
				heap.Push(open, openItem{v: e.To, f: tentative + s.heuristic(e.To, goal)})
			}
		}
	}
	return route{expansions: expansions}, ErrGoalUnreachable
}

func (s *searcher) reconstruct(start, goal roadnet.VertexID, parent []int32) route {
	var r route
	for v := goal; v != start; {
		eid := parent[v]
		e := s.g.Edge(eid)
		r.edges = append(r.edges, eid)
		r.weights = append(r.weights, s.weight(e))
		r.vertices = append(r.vertices, v)
		v = e.From
	}
	r.vertices = append(r.vertices, start)
	reverse(r.vertices)
	reverse(r.edges)
	reverse(r.weights)
	return r
}

// startLane is the lane the route departs on.
func (r route) startLane(g *roadnet.Graph) int {
	if len(r.edges) > 0 {
		return g.Edge(r.edges[0]).LaneID
	}
	return g.Vertex(r.vertices[0]).LaneID
}

// waypoints converts the route into waypoints at its vertices. Each waypoint
// carries the lane and heading of the edge leaving it and the cost
// accumulated to reach it.
func (r route) waypoints(g *roadnet.Graph, stamp time.Time) []geom.WayPoint {
	out := make([]geom.WayPoint, len(r.vertices))
	acc := 0.0
	for i, v := range r.vertices {
		vx := g.Vertex(v)
		wp := geom.WayPoint{Position: vx.Position, Cost: acc, Timestamp: stamp}
		switch {
		case i < len(r.edges):
			e := g.Edge(r.edges[i])
			wp.LaneID = e.LaneID
			wp.Heading = geom.HeadingBetween(vx.Position, g.Vertex(e.To).Position)
			acc += r.weights[i]
		case i > 0:
			wp.LaneID = out[i-1].LaneID
			wp.Heading = out[i-1].Heading
		default:
			wp.LaneID = vx.LaneID
			wp.Heading = vx.Heading
		}
		out[i] = wp
	}
	return out
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

type openItem struct {
	v roadnet.VertexID
	f float64
}

// openSet is a min-heap of openItems ordered by (f, vertex id).
type openSet []openItem

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].v < o[j].v
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(openItem)) }
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	*o = old[:n-1]
	return item
}
