package testutil

import (
	"github.com/specialistvlad/globalplanner/internal/roadnet"
)

// StraightRoad returns a single lane chain along +X: nodes 1..segments+1
// spaced by spacing metres, joined by lanes 101..100+segments.
func StraightRoad(segments int, spacing float64) *roadnet.Bundle {
	b := &roadnet.Bundle{}
	addChain(b, 1, 101, segments, spacing, 0, false)
	return b
}

// TwoLaneRoad returns two parallel chains along +X. The right chain (y=0)
// uses nodes 1.. and lanes 101..; the left chain (y=gap) uses nodes 1001..
// and lanes 201... Every segment allows changing to its neighbour.
func TwoLaneRoad(segments int, spacing, gap float64) *roadnet.Bundle {
	b := &roadnet.Bundle{}
	addChain(b, 1, 101, segments, spacing, 0, true)
	addChain(b, 1001, 201, segments, spacing, gap, true)
	for i := range b.Lanes {
		l := &b.Lanes[i]
		if l.ID < 200 {
			l.LeftLane = l.ID + 100
		} else {
			l.RightLane = l.ID - 100
		}
	}
	return b
}

// Islands returns two disconnected lane chains: nodes 1..3 near the origin
// and nodes 501..503 starting at x=1000.
func Islands() *roadnet.Bundle {
	b := &roadnet.Bundle{}
	addChain(b, 1, 101, 2, 10, 0, false)
	first := len(b.Points)
	addChain(b, 501, 601, 2, 10, 0, false)
	for i := first; i < len(b.Points); i++ {
		b.Points[i].X += 1000
	}
	return b
}

// Grid returns a w x h grid of nodes spaced by spacing metres with lanes in
// both directions between horizontal and vertical neighbours. Node IDs are
// y*w+x+1; lane IDs are assigned sequentially from 1.
func Grid(w, h int, spacing float64) *roadnet.Bundle {
	b := &roadnet.Bundle{}
	node := func(x, y int) int { return y*w + x + 1 }
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := node(x, y)
			b.Points = append(b.Points, roadnet.Point{ID: id, X: float64(x) * spacing, Y: float64(y) * spacing})
			b.Nodes = append(b.Nodes, roadnet.Node{ID: id, PointID: id})
		}
	}
	laneID := 1
	link := func(a, c int) {
		b.Lanes = append(b.Lanes,
			roadnet.Lane{ID: laneID, BeginNode: a, EndNode: c},
			roadnet.Lane{ID: laneID + 1, BeginNode: c, EndNode: a},
		)
		laneID += 2
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x+1 < w {
				link(node(x, y), node(x+1, y))
			}
			if y+1 < h {
				link(node(x, y), node(x, y+1))
			}
		}
	}
	return b
}

func addChain(b *roadnet.Bundle, firstNode, firstLane, segments int, spacing, y float64, laneChange bool) {
	for i := 0; i <= segments; i++ {
		id := firstNode + i
		b.Points = append(b.Points, roadnet.Point{ID: id, X: float64(i) * spacing, Y: y})
		b.Nodes = append(b.Nodes, roadnet.Node{ID: id, PointID: id})
		if i > 0 {
			b.Lanes = append(b.Lanes, roadnet.Lane{
				ID:         firstLane + i - 1,
				BeginNode:  id - 1,
				EndNode:    id,
				LaneChange: laneChange,
			})
		}
	}
}
