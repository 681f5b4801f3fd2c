package roadnet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/globalplanner/internal/roadnet"
	"github.com/specialistvlad/globalplanner/internal/testutil"
)

func mergeAll(t *testing.T, a *roadnet.Assembler, b *roadnet.Bundle, order []roadnet.Category) {
	t.Helper()
	for _, c := range order {
		_, err := a.MergeFragment(context.Background(), c, b.Payload(c))
		require.NoError(t, err)
	}
}

func TestAssembler_MergeIsIdempotentAndOrderIndependent(t *testing.T) {
	// --- Arrange ---
	bundle := testutil.TwoLaneRoad(4, 10, 3.5)
	forward := []roadnet.Category{roadnet.CategoryPoints, roadnet.CategoryNodes, roadnet.CategoryLanes}
	reverse := []roadnet.Category{roadnet.CategoryLanes, roadnet.CategoryNodes, roadnet.CategoryPoints}

	a1 := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeLive, Build: roadnet.DefaultBuildOptions()})
	a2 := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeLive, Build: roadnet.DefaultBuildOptions()})

	// --- Act ---
	mergeAll(t, a1, bundle, forward)
	mergeAll(t, a2, bundle, reverse)
	mergeAll(t, a2, bundle, forward)

	// --- Assert ---
	g1, err := a1.Snapshot()
	require.NoError(t, err)
	g2, err := a2.Snapshot()
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(g1.Vertices, g2.Vertices))
	assert.Empty(t, cmp.Diff(g1.Edges, g2.Edges))
	for v := range g1.Vertices {
		assert.Equal(t, g1.Out(roadnet.VertexID(v)), g2.Out(roadnet.VertexID(v)))
	}
}

func TestAssembler_ConflictingFragmentsConvergeInAnyOrder(t *testing.T) {
	// --- Arrange ---
	bundle := testutil.StraightRoad(1, 10)
	moved := bundle.Points[1]
	moved.X = 50
	original := bundle.Points
	conflicting := []roadnet.Point{moved}

	build := func(first, second []roadnet.Point) *roadnet.Graph {
		a := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeLive, Build: roadnet.DefaultBuildOptions()})
		mergeAll(t, a, bundle, []roadnet.Category{roadnet.CategoryNodes, roadnet.CategoryLanes})
		_, err := a.MergeFragment(context.Background(), roadnet.CategoryPoints, first)
		require.NoError(t, err)
		_, err = a.MergeFragment(context.Background(), roadnet.CategoryPoints, second)
		require.NoError(t, err)
		g, err := a.Snapshot()
		require.NoError(t, err)
		return g
	}

	// --- Act ---
	g1 := build(original, conflicting)
	g2 := build(conflicting, original)

	// --- Assert ---
	require.Equal(t, 2, g1.Len())
	assert.Empty(t, cmp.Diff(g1.Vertices, g2.Vertices))
	assert.Empty(t, cmp.Diff(g1.Edges, g2.Edges))
}

func TestAssembler_RedeliveryIsNotAMaterialChange(t *testing.T) {
	bundle := testutil.StraightRoad(3, 10)
	a := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeLive})
	mergeAll(t, a, bundle, roadnet.DefaultRequired())
	before := a.Version()

	changed, err := a.MergeFragment(context.Background(), roadnet.CategoryLanes, bundle.Lanes)
	require.NoError(t, err)

	assert.False(t, changed)
	assert.Equal(t, before, a.Version())
}

func TestAssembler_LanesBeforeNodesIsNotUsable(t *testing.T) {
	// --- Arrange ---
	bundle := testutil.StraightRoad(3, 10)
	a := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeLive})

	// --- Act & Assert ---
	_, err := a.MergeFragment(context.Background(), roadnet.CategoryLanes, bundle.Lanes)
	require.NoError(t, err)
	assert.False(t, a.Usable())
	_, err = a.Snapshot()
	assert.ErrorIs(t, err, roadnet.ErrMapIncomplete)
	assert.ElementsMatch(t, []roadnet.Category{roadnet.CategoryPoints, roadnet.CategoryNodes}, a.Missing())

	_, err = a.MergeFragment(context.Background(), roadnet.CategoryNodes, bundle.Nodes)
	require.NoError(t, err)
	assert.False(t, a.Usable())

	_, err = a.MergeFragment(context.Background(), roadnet.CategoryPoints, bundle.Points)
	require.NoError(t, err)
	require.True(t, a.Usable())

	g, err := a.Snapshot()
	require.NoError(t, err)
	assert.Len(t, g.Vertices, 4)
	assert.Len(t, g.Edges, 3)
	assert.True(t, a.Completeness()[roadnet.CategoryLanes])
	assert.False(t, a.Completeness()[roadnet.CategorySignals])
}

func TestAssembler_CustomRequiredCategories(t *testing.T) {
	bundle := testutil.StraightRoad(2, 10)
	a := roadnet.NewAssembler(roadnet.Options{
		Mode:     roadnet.ModeLive,
		Required: []roadnet.Category{roadnet.CategoryPoints, roadnet.CategoryNodes, roadnet.CategoryLanes, roadnet.CategoryStopLines},
	})
	mergeAll(t, a, bundle, roadnet.DefaultRequired())
	assert.False(t, a.Usable())

	_, err := a.MergeFragment(context.Background(), roadnet.CategoryStopLines, []roadnet.StopLine{})
	require.NoError(t, err)
	assert.True(t, a.Usable(), "an empty fragment still marks its category observed")
}

func TestAssembler_RejectsMismatchedPayload(t *testing.T) {
	a := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeLive})

	_, err := a.MergeFragment(context.Background(), roadnet.CategoryLanes, []roadnet.Point{{ID: 1}})
	assert.ErrorIs(t, err, roadnet.ErrPayloadMismatch)

	_, err = a.MergeFragment(context.Background(), roadnet.CategoryLanes, "junk")
	assert.ErrorIs(t, err, roadnet.ErrPayloadMismatch)

	_, err = a.MergeFragment(context.Background(), roadnet.Category(99), nil)
	assert.ErrorIs(t, err, roadnet.ErrUnknownCategory)
	assert.False(t, a.Completeness()[roadnet.CategoryLanes])
}

func TestAssembler_ModesRejectForeignIngestion(t *testing.T) {
	ctx := context.Background()
	live := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeLive})
	blob := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeBlob})
	file := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeFile})

	assert.ErrorIs(t, live.InstallBlob(ctx, nil), roadnet.ErrWrongMode)
	assert.ErrorIs(t, live.InstallBundle(ctx, &roadnet.Bundle{}), roadnet.ErrWrongMode)
	_, err := blob.MergeFragment(ctx, roadnet.CategoryLanes, nil)
	assert.ErrorIs(t, err, roadnet.ErrWrongMode)
	assert.ErrorIs(t, file.InstallBlob(ctx, nil), roadnet.ErrWrongMode)
}

func TestAssembler_BlobInstallAndReload(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	data, err := roadnet.EncodeBlob(testutil.StraightRoad(3, 10))
	require.NoError(t, err)
	a := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeBlob})
	require.False(t, a.Usable())

	// --- Act ---
	require.NoError(t, a.InstallBlob(ctx, data))
	g1, err := a.Snapshot()
	require.NoError(t, err)

	reload, err := roadnet.EncodeBlob(testutil.StraightRoad(5, 10))
	require.NoError(t, err)
	require.NoError(t, a.InstallBlob(ctx, reload))
	g2, err := a.Snapshot()
	require.NoError(t, err)

	// --- Assert ---
	assert.Len(t, g1.Vertices, 4)
	assert.Len(t, g2.Vertices, 6)
	assert.Equal(t, uint64(2), a.Epoch())
	assert.Equal(t, uint64(2), g2.Epoch)
	assert.Len(t, g1.Vertices, 4, "previous snapshots are immutable")
}

func TestAssembler_InvalidBlob(t *testing.T) {
	a := roadnet.NewAssembler(roadnet.Options{Mode: roadnet.ModeBlob})
	err := a.InstallBlob(context.Background(), []byte{0x01, 0x02})
	assert.ErrorIs(t, err, roadnet.ErrInvalidBlob)
	assert.False(t, a.Usable())
}

func TestAssembler_LoadFileUsesParser(t *testing.T) {
	parseErr := errors.New("boom")
	calls := 0
	a := roadnet.NewAssembler(roadnet.Options{
		Mode: roadnet.ModeFile,
		Parser: func(_ context.Context, path string) (*roadnet.Bundle, error) {
			calls++
			if path == "bad.hcl" {
				return nil, parseErr
			}
			return testutil.StraightRoad(2, 5), nil
		},
	})

	require.ErrorIs(t, a.LoadFile(context.Background(), "bad.hcl"), parseErr)
	assert.False(t, a.Usable())

	require.NoError(t, a.LoadFile(context.Background(), "map.hcl"))
	assert.True(t, a.Usable())
	assert.Equal(t, 2, calls)
}

func TestParseCategoryAndMode(t *testing.T) {
	c, err := roadnet.ParseCategory("Stop-Lines")
	require.NoError(t, err)
	assert.Equal(t, roadnet.CategoryStopLines, c)
	assert.Equal(t, "stop_lines", c.String())

	_, err = roadnet.ParseCategory("bridges")
	assert.ErrorIs(t, err, roadnet.ErrUnknownCategory)

	m, err := roadnet.ParseMode("BLOB")
	require.NoError(t, err)
	assert.Equal(t, roadnet.ModeBlob, m)
	_, err = roadnet.ParseMode("satellite")
	assert.Error(t, err)

	assert.Len(t, roadnet.AllCategories(), 14)
}
