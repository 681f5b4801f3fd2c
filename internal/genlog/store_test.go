package genlog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specialistvlad/globalplanner/internal/geom"
	"github.com/specialistvlad/globalplanner/internal/planner"
)

func TestSummarize(t *testing.T) {
	paths := []planner.CandidatePath{
		{PathID: "g1-l0", Length: 10, Cost: 12, WayPoints: make([]geom.WayPoint, 21)},
		{PathID: "g1-l1", LaneOption: 1, Length: 11, Cost: 18, WayPoints: make([]geom.WayPoint, 23)},
	}

	got := Summarize(paths)

	assert.Equal(t, []PathSummary{
		{PathID: "g1-l0", Length: 10, Cost: 12, WayPoints: 21},
		{PathID: "g1-l1", LaneOption: 1, Length: 11, Cost: 18, WayPoints: 23},
	}, got)
	assert.Empty(t, Summarize(nil))
}
