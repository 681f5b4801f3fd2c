package loader_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/globalplanner/internal/goals"
	"github.com/specialistvlad/globalplanner/internal/loader"
	"github.com/specialistvlad/globalplanner/internal/roadnet"
	"github.com/specialistvlad/globalplanner/internal/testutil"
)

const twoLaneOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0" lon="0"><tag k="local_x" v="0"/><tag k="local_y" v="0"/></node>
  <node id="2" lat="0" lon="0"><tag k="local_x" v="10"/><tag k="local_y" v="0"/></node>
  <node id="3" lat="0" lon="0"><tag k="local_x" v="20"/><tag k="local_y" v="0"/><tag k="ele" v="1.5"/></node>
  <node id="11" lat="0" lon="0"><tag k="local_x" v="0"/><tag k="local_y" v="3.5"/></node>
  <node id="12" lat="0" lon="0"><tag k="local_x" v="10"/><tag k="local_y" v="3.5"/></node>
  <node id="13" lat="0" lon="0"><tag k="local_x" v="20"/><tag k="local_y" v="3.5"/></node>
  <node id="21" lat="0" lon="0"><tag k="local_x" v="19"/><tag k="local_y" v="-1"/></node>
  <node id="22" lat="0" lon="0"><tag k="local_x" v="19"/><tag k="local_y" v="1"/></node>
  <node id="30" lat="0" lon="0"><tag k="type" v="signal"/><tag k="lane" v="5"/></node>
  <way id="5">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
    <tag k="type" v="lane"/><tag k="left" v="6"/><tag k="lane_change" v="yes"/><tag k="speed_limit" v="8.3"/>
  </way>
  <way id="6">
    <nd ref="11"/><nd ref="12"/><nd ref="13"/>
    <tag k="type" v="lane"/><tag k="right" v="5"/><tag k="lane_change" v="yes"/>
  </way>
  <way id="7">
    <nd ref="21"/><nd ref="22"/>
    <tag k="type" v="stop_line"/><tag k="lane" v="5"/>
  </way>
</osm>`

func TestDecodeOSM(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)

	// --- Act ---
	b, err := loader.DecodeOSM(ctx, strings.NewReader(twoLaneOSM))

	// --- Assert ---
	require.NoError(t, err)
	assert.Len(t, b.Points, 9)
	assert.Equal(t, roadnet.Point{ID: 3, X: 20, Y: 0, Z: 1.5}, b.Points[2])
	assert.Len(t, b.Nodes, 6)
	require.Len(t, b.Lanes, 4)
	assert.Equal(t, roadnet.Lane{
		ID: 5001, BeginNode: 1, EndNode: 2, LeftLane: 6001, LaneChange: true, SpeedLimit: 8.3,
	}, b.Lanes[0])
	assert.Equal(t, 5002, b.Lanes[1].ID)
	assert.Equal(t, 5002, b.Lanes[3].RightLane)
	assert.Equal(t, []roadnet.StopLine{{ID: 7, LineID: 7, LaneID: 5002}}, b.StopLines)
	assert.Equal(t, []roadnet.Signal{{ID: 30, LaneID: 5002}}, b.Signals)

	g := roadnet.Build(b, roadnet.DefaultBuildOptions())
	var follow []roadnet.Edge
	for _, id := range g.LaneEdges(5002) {
		if e := g.Edge(id); e.Kind == roadnet.EdgeFollow {
			follow = append(follow, e)
		}
	}
	require.Len(t, follow, 1)
	assert.Equal(t, 5.0, follow[0].RuleCost, "stop line plus signal")
}

func TestDecodeOSM_ProjectsLatLon(t *testing.T) {
	ctx, _ := testutil.Context(t)
	doc := `<osm>
  <node id="1" lat="48.0" lon="11.0"/>
  <node id="2" lat="48.0" lon="11.001"/>
  <way id="9"><nd ref="1"/><nd ref="2"/><tag k="type" v="lane"/></way>
</osm>`

	b, err := loader.DecodeOSM(ctx, strings.NewReader(doc))

	require.NoError(t, err)
	require.Len(t, b.Points, 2)
	assert.Equal(t, 0.0, b.Points[0].X)
	assert.InDelta(t, 74.4, b.Points[1].X, 0.5)
	assert.InDelta(t, 0, b.Points[1].Y, 1e-9)
}

func TestDecodeOSM_RejectsDanglingReferences(t *testing.T) {
	ctx, _ := testutil.Context(t)
	doc := `<osm>
  <node id="1" lat="0" lon="0"/>
  <node id="2" lat="0" lon="0"/>
  <way id="7"><nd ref="1"/><nd ref="2"/><tag k="type" v="stop_line"/><tag k="lane" v="99"/></way>
</osm>`

	_, err := loader.DecodeOSM(ctx, strings.NewReader(doc))

	assert.Error(t, err)
}

func TestMap_DispatchesOnExtension(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, map[string]string{
		"town.osm":          twoLaneOSM,
		"tiles/a.hcl":       "point \"1\" {\n  x = 0\n  y = 0\n}\nnode \"1\" { point = 1 }\n",
		"tiles/b.hcl":       "point \"2\" {\n  x = 10\n  y = 0\n}\nnode \"2\" { point = 2 }\nlane \"1\" {\n  begin = 1\n  end   = 2\n}\n",
		"town.geojson":      "{}",
		"destinations.yaml": "destinations:\n  - {x: 1, y: 2, dwell: 3s}\n",
	})

	// --- Act ---
	osmBundle, errOSM := loader.Map(ctx, filepath.Join(dir, "town.osm"))
	tiles, errDir := loader.Map(ctx, filepath.Join(dir, "tiles"))
	_, errExt := loader.Map(ctx, filepath.Join(dir, "town.geojson"))
	_, errMissing := loader.Map(ctx, filepath.Join(dir, "missing.hcl"))

	// --- Assert ---
	require.NoError(t, errOSM)
	assert.Len(t, osmBundle.Lanes, 4)
	require.NoError(t, errDir)
	assert.Len(t, tiles.Points, 2)
	assert.Len(t, tiles.Lanes, 1)
	assert.ErrorIs(t, errExt, loader.ErrUnsupportedFormat)
	assert.Error(t, errMissing)
}

func TestDestinations(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, map[string]string{
		"d.yaml": "start_index: 1\ndestinations:\n  - {x: 1, y: 2}\n  - {x: 3, y: 4, dwell: 3s}\n",
		"d.hcl":  "destination \"a\" {\n  x = 1\n  y = 2\n}\n",
		"d.json": "{}",
		"e.yml":  "destinations: []\n",
	})

	// --- Act ---
	fromYAML, errYAML := loader.Destinations(ctx, filepath.Join(dir, "d.yaml"))
	fromHCL, errHCL := loader.Destinations(ctx, filepath.Join(dir, "d.hcl"))
	_, errJSON := loader.Destinations(ctx, filepath.Join(dir, "d.json"))
	_, errEmpty := loader.Destinations(ctx, filepath.Join(dir, "e.yml"))

	// --- Assert ---
	require.NoError(t, errYAML)
	assert.Equal(t, 1, fromYAML.StartIndex)
	assert.Len(t, fromYAML.Destinations, 2)
	require.NoError(t, errHCL)
	assert.Equal(t, "a", fromHCL.Destinations[0].Label)
	assert.ErrorIs(t, errJSON, goals.ErrInvalidDestinationFile)
	assert.ErrorIs(t, errJSON, loader.ErrUnsupportedFormat)
	assert.ErrorIs(t, errEmpty, goals.ErrInvalidDestinationFile)
}

func TestBlob(t *testing.T) {
	ctx, _ := testutil.Context(t)
	blob, err := roadnet.EncodeBlob(testutil.StraightRoad(2, 10))
	require.NoError(t, err)
	dir := testutil.WriteFiles(t, map[string]string{"town.blob": string(blob)})

	got, err := loader.Blob(ctx, filepath.Join(dir, "town.blob"))

	require.NoError(t, err)
	assert.Equal(t, blob, got)
}
