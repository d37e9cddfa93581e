// Package heatmapviz renders a statsplan.Heatmap as a PNG, grounded on
// the teacher's GridPlotter: same gonum/plot New/Title/Save call shape,
// the same build-a-palette-then-hand-it-to-a-plotter structure, adapted
// from line series over time to a 2-D density grid.
package heatmapviz

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/joda-analytics/imagec-engine/internal/statsplan"
)

// gridXYZ adapts a statsplan.Heatmap to gonum/plot's GridXYZ interface.
type gridXYZ struct {
	h *statsplan.Heatmap
}

func (g gridXYZ) Dims() (c, r int) { return g.h.Cols, g.h.Rows }
func (g gridXYZ) Z(c, r int) float64 {
	v := g.h.At(r, c).Value
	if math.IsNaN(v) {
		return 0
	}
	return v
}
func (g gridXYZ) X(c int) float64 { return float64(c) }
func (g gridXYZ) Y(r int) float64 { return float64(r) }

// Render draws h to a PNG file at path, sized widthIn x heightIn inches
// (spec §4.8: "renders an W/b x H/b matrix of per-bucket statistics").
// Cells with no objects (NaN) render as the palette's minimum color,
// matching the teacher's convention of leaving uninitialized grid cells
// at their zero-value baseline (gridplotter.go's "skip initial zeros"
// comment) rather than drawing a hole in the canvas.
func Render(h *statsplan.Heatmap, title, path string, widthIn, heightIn vg.Length) error {
	p := plot.New()
	p.Title.Text = title

	pal := moreland.SmoothBlueRed()
	setRange(pal, h)
	p.Add(plotter.NewHeatMap(gridXYZ{h: h}, pal.Palette(256)))
	p.HideAxes()

	if err := p.Save(widthIn, heightIn, path); err != nil {
		return fmt.Errorf("heatmapviz: save %s: %w", path, err)
	}
	return nil
}

// setRange fits pal's domain to h's finite values so NaN buckets render
// at the palette floor instead of collapsing the scale around zero.
func setRange(pal palette.ColorMap, h *statsplan.Heatmap) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, c := range h.Cells {
		if math.IsNaN(c.Value) {
			continue
		}
		if c.Value < min {
			min = c.Value
		}
		if c.Value > max {
			max = c.Value
		}
	}
	if math.IsInf(min, 1) {
		min, max = 0, 1
	}
	pal.SetMin(min)
	pal.SetMax(max)
}

// RenderWithTileLabels renders h the same as Render but scales the
// canvas to the grid's dimensions instead of a fixed size, for grids
// too large or small for a default 6x4 inch canvas to read well.
func RenderWithTileLabels(h *statsplan.Heatmap, title, path string) error {
	width := vg.Length(h.Cols)*0.4*vg.Inch + 1*vg.Inch
	height := vg.Length(h.Rows)*0.4*vg.Inch + 1*vg.Inch
	if width < 4*vg.Inch {
		width = 4 * vg.Inch
	}
	if height < 3*vg.Inch {
		height = 3 * vg.Inch
	}
	return Render(h, title, path, width, height)
}
