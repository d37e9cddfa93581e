package command

import (
	"math"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/ids"
	"github.com/joda-analytics/imagec-engine/internal/imageproc"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// Watershed segments a binary (thresholded) plane into discrete ROIs
// using 4-connected labeling. Separating touching objects by true
// watershed is one of the pluggable external primitives spec §1 places
// out of scope; this command performs the connected-component split
// every such primitive ultimately feeds ROIs from, so the pipeline has
// a working reference segmenter without depending on an external
// library for it.
type Watershed struct {
	// MinThreshold is the pixel value at or above which a pixel is
	// foreground.
	MinThreshold uint16
}

func (Watershed) Kind() string { return "watershed" }

func (c Watershed) Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error) {
	visited := make([]bool, len(input.Pix))
	var seq uint32
	for y := int32(0); y < input.Height; y++ {
		for x := int32(0); x < input.Width; x++ {
			idx := y*input.Stride + x
			if visited[idx] || input.Pix[idx] < c.MinThreshold {
				continue
			}
			roi := floodFill(ctx, input, visited, x, y, c.MinThreshold, classID, seq)
			seq++
			ctx.Objects.Append(roi)
		}
	}
	return input, nil
}

func floodFill(ctx *imageproc.Context, m omeinfo.Matrix, visited []bool, startX, startY int32, minVal uint16, classID enums.ClassID, seq uint32) *imageproc.ROI {
	type pt struct{ x, y int32 }
	stack := []pt{{startX, startY}}
	minX, minY, maxX, maxY := startX, startY, startX, startY
	var sumX, sumY, area float64
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		idx := p.y*m.Stride + p.x
		if p.x < 0 || p.y < 0 || p.x >= m.Width || p.y >= m.Height || visited[idx] || m.Pix[idx] < minVal {
			continue
		}
		visited[idx] = true
		area++
		sumX += float64(p.x)
		sumY += float64(p.y)
		if p.x < minX {
			minX = p.x
		}
		if p.x > maxX {
			maxX = p.x
		}
		if p.y < minY {
			minY = p.y
		}
		if p.y > maxY {
			maxY = p.y
		}
		stack = append(stack, pt{p.x + 1, p.y}, pt{p.x - 1, p.y}, pt{p.x, p.y + 1}, pt{p.x, p.y - 1})
	}
	box := imageproc.BoundingBox{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
	centroid := imageproc.Point{X: int32(sumX / area), Y: int32(sumY / area)}
	abs := imageproc.BoundingBox{
		X: box.X + ctx.ActiveTile.X, Y: box.Y + ctx.ActiveTile.Y,
		Width: box.Width, Height: box.Height,
	}
	objID := ids.NewObjectID(ctx.ImageID, uint16(classID), ctx.ActivePlane.C, ctx.ActivePlane.Z, ctx.ActivePlane.T, ctx.ActiveTile.X, ctx.ActiveTile.Y, seq)
	return &imageproc.ROI{
		ObjectID:          objID,
		ClassID:           classID,
		Plane:             ctx.ActivePlane,
		BoxTileLocal:      box,
		BoxAbsolute:       abs,
		CentroidTileLocal: centroid,
		CentroidAbsolute:  imageproc.Point{X: centroid.X + ctx.ActiveTile.X, Y: centroid.Y + ctx.ActiveTile.Y},
		AreaSizePixels:     area,
		PerimeterPixels:    2 * (float64(box.Width) + float64(box.Height)),
		Circularity:        circularity(area, 2*(float64(box.Width)+float64(box.Height))),
		Confidence:         1,
	}
}

func circularity(area, perimeter float64) float64 {
	if perimeter == 0 {
		return 0
	}
	c := 4 * math.Pi * area / (perimeter * perimeter)
	if c > 1 {
		return 1
	}
	return c
}

// Filter removes ROIs of classID whose area or circularity falls
// outside the configured bounds (spec §4.5: "filtering (area/
// circularity)").
type Filter struct {
	MinAreaSize, MaxAreaSize         float64
	MinCircularity, MaxCircularity   float64
}

func (Filter) Kind() string { return "filtering" }

func (f Filter) Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error) {
	kept := make([]*imageproc.ROI, 0)
	for _, roi := range ctx.Objects.ForClass(classID) {
		if f.MaxAreaSize > 0 && (roi.AreaSizePixels < f.MinAreaSize || roi.AreaSizePixels > f.MaxAreaSize) {
			continue
		}
		if f.MaxCircularity > 0 && (roi.Circularity < f.MinCircularity || roi.Circularity > f.MaxCircularity) {
			continue
		}
		kept = append(kept, roi)
	}
	ctx.Objects.Replace(classID, kept)
	return input, nil
}

// Intersection tags every ROI of classID whose bounding box overlaps an
// ROI of TargetClassID as that object's child, setting ParentObjectID/
// ParentClassID (spec §4.5's "intersection" command; spec §4.7 reads
// this relationship back out through meas_parent_object_id/
// meas_parent_class_id).
type Intersection struct {
	TargetClassID enums.ClassID
}

func (Intersection) Kind() string { return "intersection" }

func (c Intersection) Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error) {
	targets := ctx.Objects.ForClass(c.TargetClassID)
	for _, roi := range ctx.Objects.ForClass(classID) {
		for _, t := range targets {
			if boxesOverlap(roi.BoxAbsolute, t.BoxAbsolute) {
				roi.ParentObjectID = t.ObjectID
				roi.ParentClassID = t.ClassID
				break
			}
		}
	}
	return input, nil
}

func boxesOverlap(a, b imageproc.BoundingBox) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	return a.X < b.X+b.Width && b.X < a.X+a.Width && a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

// Distance computes the five centroid/surface distance metrics (spec
// §4.5/§6) between every ROI of classID and every ROI of TargetClassID,
// recording them via ROI.SetDistance.
type Distance struct {
	TargetClassID enums.ClassID
}

func (Distance) Kind() string { return "distance" }

func (c Distance) Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error) {
	targets := ctx.Objects.ForClass(c.TargetClassID)
	for _, roi := range ctx.Objects.ForClass(classID) {
		for _, t := range targets {
			d := centroidDistance(roi.CentroidAbsolute, t.CentroidAbsolute)
			surfMin, surfMax := surfaceDistanceBounds(roi.BoxAbsolute, t.BoxAbsolute, d)
			roi.SetDistance(t.ObjectID, imageproc.Distance{
				TargetClassID:        c.TargetClassID,
				CentroidToCentroid:   d,
				CentroidToSurfaceMin: surfMin,
				CentroidToSurfaceMax: surfMax,
				SurfaceToSurfaceMin:  surfMin,
				SurfaceToSurfaceMax:  surfMax,
			})
		}
	}
	return input, nil
}

func centroidDistance(a, b imageproc.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Hypot(dx, dy)
}

// surfaceDistanceBounds approximates surface distance using each box's
// half-diagonal as a radius estimate, since the core doesn't carry a
// precise contour-to-contour distance transform (spec §1 places pixel-
// level geometry primitives out of scope).
func surfaceDistanceBounds(a, b imageproc.BoundingBox, centroidDist float64) (min, max float64) {
	ra := math.Hypot(float64(a.Width), float64(a.Height)) / 2
	rb := math.Hypot(float64(b.Width), float64(b.Height)) / 2
	min = centroidDist - ra - rb
	if min < 0 {
		min = 0
	}
	max = centroidDist + ra + rb
	return min, max
}

// AIInferenceFunc is the injected model-inference callback (spec §4.5:
// "AI inference" is a pluggable command backed by an external model
// runtime, out of scope per spec §1).
type AIInferenceFunc func(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) ([]*imageproc.ROI, error)

// AIInference delegates ROI detection to an injected model callback and
// appends whatever it returns.
type AIInference struct {
	Infer AIInferenceFunc
}

func (AIInference) Kind() string { return "ai_inference" }

func (c AIInference) Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error) {
	rois, err := c.Infer(ctx, input, classID)
	if err != nil {
		return input, err
	}
	for _, r := range rois {
		ctx.Objects.Append(r)
	}
	return input, nil
}
