package roadnet

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// recordStore holds raw records keyed by source ID, one map per category.
// Upserts by ID make merging idempotent and order-independent: the same
// fragment applied twice, or fragments applied in any order, converge on the
// same content. When two fragments disagree about one ID, the record with the
// greater canonical msgpack encoding is kept, whichever arrived first.
type recordStore struct {
	points        map[int]Point
	nodes         map[int]Node
	lanes         map[int]Lane
	centerLines   map[int]CenterLine
	intersections map[int]Intersection
	areas         map[int]Area
	lines         map[int]Line
	stopLines     map[int]StopLine
	signals       map[int]Signal
	vectors       map[int]Vector
	curbs         map[int]Curb
	roadEdges     map[int]RoadEdge
	wayAreas      map[int]WayArea
	crosswalks    map[int]Crosswalk
}

func newRecordStore() *recordStore {
	return &recordStore{
		points:        map[int]Point{},
		nodes:         map[int]Node{},
		lanes:         map[int]Lane{},
		centerLines:   map[int]CenterLine{},
		intersections: map[int]Intersection{},
		areas:         map[int]Area{},
		lines:         map[int]Line{},
		stopLines:     map[int]StopLine{},
		signals:       map[int]Signal{},
		vectors:       map[int]Vector{},
		curbs:         map[int]Curb{},
		roadEdges:     map[int]RoadEdge{},
		wayAreas:      map[int]WayArea{},
		crosswalks:    map[int]Crosswalk{},
	}
}

func newRecordStoreFromBundle(b *Bundle) *recordStore {
	s := newRecordStore()
	if b == nil {
		return s
	}
	for _, c := range AllCategories() {
		// A bundle's payloads always match their category.
		_, _ = s.merge(c, b.Payload(c))
	}
	return s
}

// merge upserts payload into the category's map and reports how many records
// were added or materially changed.
func (s *recordStore) merge(c Category, payload any) (int, error) {
	switch p := payload.(type) {
	case []Point:
		return upsertAll(c, CategoryPoints, s.points, p, func(r Point) int { return r.ID }, eq[Point])
	case []Node:
		return upsertAll(c, CategoryNodes, s.nodes, p, func(r Node) int { return r.ID }, eq[Node])
	case []Lane:
		return upsertAll(c, CategoryLanes, s.lanes, p, func(r Lane) int { return r.ID }, eq[Lane])
	case []CenterLine:
		return upsertAll(c, CategoryCenterLines, s.centerLines, p, func(r CenterLine) int { return r.ID }, eq[CenterLine])
	case []Intersection:
		return upsertAll(c, CategoryIntersections, s.intersections, p, func(r Intersection) int { return r.ID }, equalIntersection)
	case []Area:
		return upsertAll(c, CategoryAreas, s.areas, p, func(r Area) int { return r.ID }, equalArea)
	case []Line:
		return upsertAll(c, CategoryLines, s.lines, p, func(r Line) int { return r.ID }, eq[Line])
	case []StopLine:
		return upsertAll(c, CategoryStopLines, s.stopLines, p, func(r StopLine) int { return r.ID }, eq[StopLine])
	case []Signal:
		return upsertAll(c, CategorySignals, s.signals, p, func(r Signal) int { return r.ID }, eq[Signal])
	case []Vector:
		return upsertAll(c, CategoryVectors, s.vectors, p, func(r Vector) int { return r.ID }, eq[Vector])
	case []Curb:
		return upsertAll(c, CategoryCurbs, s.curbs, p, func(r Curb) int { return r.ID }, eq[Curb])
	case []RoadEdge:
		return upsertAll(c, CategoryRoadEdges, s.roadEdges, p, func(r RoadEdge) int { return r.ID }, eq[RoadEdge])
	case []WayArea:
		return upsertAll(c, CategoryWayAreas, s.wayAreas, p, func(r WayArea) int { return r.ID }, eq[WayArea])
	case []Crosswalk:
		return upsertAll(c, CategoryCrosswalks, s.crosswalks, p, func(r Crosswalk) int { return r.ID }, equalCrosswalk)
	case nil:
		if !c.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %s got %T", ErrPayloadMismatch, c, payload)
}

func eq[T comparable](a, b T) bool { return a == b }

func upsertAll[T any](got, want Category, m map[int]T, records []T, id func(T) int, equal func(a, b T) bool) (int, error) {
	if got != want {
		return 0, fmt.Errorf("%w: %s got records for %s", ErrPayloadMismatch, got, want)
	}
	changed := 0
	for _, r := range records {
		k := id(r)
		if old, ok := m[k]; ok && (equal(old, r) || !supersedes(r, old)) {
			continue
		}
		m[k] = r
		changed++
	}
	return changed, nil
}

// supersedes reports whether candidate replaces current for the same ID.
func supersedes[T any](candidate, current T) bool {
	a, errA := msgpack.Marshal(candidate)
	b, errB := msgpack.Marshal(current)
	if errA != nil || errB != nil {
		// Records are plain structs; keep what is already stored.
		return false
	}
	return bytes.Compare(a, b) > 0
}

func sortedValues[T any](m map[int]T) []T {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// bundle exports the store's content in canonical ID order.
func (s *recordStore) bundle() *Bundle {
	return &Bundle{
		Points:        sortedValues(s.points),
		Nodes:         sortedValues(s.nodes),
		Lanes:         sortedValues(s.lanes),
		CenterLines:   sortedValues(s.centerLines),
		Intersections: sortedValues(s.intersections),
		Areas:         sortedValues(s.areas),
		Lines:         sortedValues(s.lines),
		StopLines:     sortedValues(s.stopLines),
		Signals:       sortedValues(s.signals),
		Vectors:       sortedValues(s.vectors),
		Curbs:         sortedValues(s.curbs),
		RoadEdges:     sortedValues(s.roadEdges),
		WayAreas:      sortedValues(s.wayAreas),
		Crosswalks:    sortedValues(s.crosswalks),
	}
}
