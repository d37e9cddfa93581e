package pipelineinit

import (
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
	"github.com/stretchr/testify/require"
)

func TestComputeTileGridBasic(t *testing.T) {
	info := omeinfo.Info{Width: 1000, Height: 500}
	g := ComputeTileGrid(info, 256, 256)
	require.Equal(t, int32(4), g.NTilesX)
	require.Equal(t, int32(2), g.NTilesY)
	require.False(t, g.Whole)
	require.Equal(t, int32(8), g.NTiles())
}

func TestComputeTileGridWholeWhenOptimalTileExceedsConfigured(t *testing.T) {
	info := omeinfo.Info{Width: 1000, Height: 500, OptimalTileWidth: 1000, OptimalTileHeight: 500}
	g := ComputeTileGrid(info, 100, 100)
	require.True(t, g.Whole)
	require.Equal(t, int32(1), g.NTiles())
}

func TestClampZRangeWithinBounds(t *testing.T) {
	info := omeinfo.Info{NrZStacks: 5}
	r := ClampZRange(info, 2, 10)
	require.Equal(t, ZTRange{Start: 2, End: 4}, r)
	require.Equal(t, int32(3), r.Len())
}

func TestClampZRangeNegativeStart(t *testing.T) {
	info := omeinfo.Info{NrZStacks: 5}
	r := ClampZRange(info, -1, 2)
	require.Equal(t, ZTRange{Start: 0, End: 2}, r)
}
