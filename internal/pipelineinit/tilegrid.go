// Package pipelineinit implements PipelineInitializer (spec §4.2, C4):
// for a given image and pipeline, compute the tile grid, Z/T ranges,
// channel binding, and preview budget.
package pipelineinit

import "github.com/joda-analytics/imagec-engine/internal/omeinfo"

// TileGrid describes how an image is partitioned for processing.
type TileGrid struct {
	NTilesX, NTilesY int32
	TileWidth, TileHeight int32
	// Whole reports whether tiling is skipped entirely (the reader's
	// optimal tile exceeds the configured tile size), in which case the
	// whole image is read as one tile (spec §4.2: "nTiles=1").
	Whole bool
}

// NTiles returns the total tile count.
func (g TileGrid) NTiles() int32 {
	if g.Whole {
		return 1
	}
	return g.NTilesX * g.NTilesY
}

// ceilDiv returns ceil(a/b) for positive a, b.
func ceilDiv(a, b int32) int32 {
	if b <= 0 {
		return 1
	}
	return (a + b - 1) / b
}

// ComputeTileGrid implements spec §4.2's tile-grid computation:
// nTilesX=ceil(W/tw), nTilesY=ceil(H/th); if the reader's optimal tile
// exceeds tw*th, tiling is skipped and the whole image becomes one tile.
func ComputeTileGrid(info omeinfo.Info, tileWidth, tileHeight int32) TileGrid {
	if tileWidth <= 0 {
		tileWidth = info.Width
	}
	if tileHeight <= 0 {
		tileHeight = info.Height
	}

	optimalArea := int64(info.OptimalTileWidth) * int64(info.OptimalTileHeight)
	configuredArea := int64(tileWidth) * int64(tileHeight)
	if optimalArea > 0 && optimalArea > configuredArea {
		return TileGrid{NTilesX: 1, NTilesY: 1, TileWidth: info.Width, TileHeight: info.Height, Whole: true}
	}

	return TileGrid{
		NTilesX:   ceilDiv(info.Width, tileWidth),
		NTilesY:   ceilDiv(info.Height, tileHeight),
		TileWidth: tileWidth,
		TileHeight: tileHeight,
	}
}

// ZTRange is an inclusive [Start, End] range of Z or T stack indices,
// already clamped to the image's OME info (spec §4.2: "Z and T ranges
// to process come from settings clamped to OME info").
type ZTRange struct {
	Start, End int32
}

// Len returns the number of indices the range covers.
func (r ZTRange) Len() int32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

func clampRange(requestedStart, requestedEnd, max int32) ZTRange {
	if max <= 0 {
		return ZTRange{Start: 0, End: 0}
	}
	start := requestedStart
	if start < 0 {
		start = 0
	}
	end := requestedEnd
	if end < 0 || end >= max {
		end = max - 1
	}
	if start > end {
		start = end
	}
	return ZTRange{Start: start, End: end}
}

// ClampZRange clamps a requested Z range to the image's NrZStacks.
func ClampZRange(info omeinfo.Info, requestedStart, requestedEnd int32) ZTRange {
	return clampRange(requestedStart, requestedEnd, info.NrZStacks)
}

// ClampTRange clamps a requested T range to the image's NrTStacks.
func ClampTRange(info omeinfo.Info, requestedStart, requestedEnd int32) ZTRange {
	return clampRange(requestedStart, requestedEnd, info.NrTStacks)
}
