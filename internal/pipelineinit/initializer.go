package pipelineinit

import (
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
	"github.com/joda-analytics/imagec-engine/internal/settings"
)

// Plan is everything JobRunner needs to iterate one image through one
// pipeline: the tile grid, the Z/T ranges to visit, the bound channel,
// and a preview budget (spec §4.2).
type Plan struct {
	Grid        TileGrid
	ZRange      ZTRange
	TRange      ZTRange
	BoundChannel int32
	// PreviewBudget is the number of tiles allowed to emit image-saver
	// previews. It is carried on the plan only: neither JobRunner nor
	// ImageSaver reads it, so no cap is enforced.
	PreviewBudget int32
}

// DefaultPreviewBudget is the PreviewBudget PlanFor sets on every plan.
const DefaultPreviewBudget = 16

// Initializer builds a Plan for an image/pipeline pair (spec §4.2, C4).
type Initializer struct {
	TileWidth, TileHeight int32
}

// NewInitializer constructs an Initializer bound to the job's configured
// tile size.
func NewInitializer(tileWidth, tileHeight int32) *Initializer {
	return &Initializer{TileWidth: tileWidth, TileHeight: tileHeight}
}

// PlanFor computes the Plan for one image against one pipeline.
func (init *Initializer) PlanFor(info omeinfo.Info, pipeline settings.PipelineSpec, requestedZStart, requestedZEnd, requestedTStart, requestedTEnd int32) Plan {
	return Plan{
		Grid:          ComputeTileGrid(info, init.TileWidth, init.TileHeight),
		ZRange:        ClampZRange(info, requestedZStart, requestedZEnd),
		TRange:        ClampTRange(info, requestedTStart, requestedTEnd),
		BoundChannel:  pipeline.BoundChannel,
		PreviewBudget: DefaultPreviewBudget,
	}
}
