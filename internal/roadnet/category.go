package roadnet

import (
	"fmt"
	"strings"
)

// Category is one of the closed set of vector-map record kinds a road network
// is assembled from.
type Category int

const (
	CategoryLanes Category = iota
	CategoryPoints
	CategoryCenterLines
	CategoryIntersections
	CategoryAreas
	CategoryLines
	CategoryStopLines
	CategorySignals
	CategoryVectors
	CategoryCurbs
	CategoryRoadEdges
	CategoryWayAreas
	CategoryCrosswalks
	CategoryNodes

	categoryCount
)

var categoryNames = [categoryCount]string{
	CategoryLanes:         "lanes",
	CategoryPoints:        "points",
	CategoryCenterLines:   "center_lines",
	CategoryIntersections: "intersections",
	CategoryAreas:         "areas",
	CategoryLines:         "lines",
	CategoryStopLines:     "stop_lines",
	CategorySignals:       "signals",
	CategoryVectors:       "vectors",
	CategoryCurbs:         "curbs",
	CategoryRoadEdges:     "road_edges",
	CategoryWayAreas:      "way_areas",
	CategoryCrosswalks:    "crosswalks",
	CategoryNodes:         "nodes",
}

func (c Category) String() string {
	if c < 0 || c >= categoryCount {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

// AllCategories returns every category in declaration order.
func AllCategories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		out = append(out, c)
	}
	return out
}

// DefaultRequired is the minimal category set that makes a network usable.
func DefaultRequired() []Category {
	return []Category{CategoryPoints, CategoryNodes, CategoryLanes}
}

// ParseCategory resolves a category by its wire name. Matching is
// case-insensitive and accepts "-" in place of "_".
func ParseCategory(s string) (Category, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for c, name := range categoryNames {
		if name == norm {
			return Category(c), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ParseCategories resolves a list of wire names.
func ParseCategories(names []string) ([]Category, error) {
	out := make([]Category, 0, len(names))
	for _, n := range names {
		c, err := ParseCategory(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
