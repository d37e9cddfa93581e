// Package imageproc implements the ProcessContext and object model
// (spec §4.4, C5): per-tile execution state, the ObjectList keyed by
// class id, and the ROI type detected objects are represented by.
package imageproc

import (
	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/ids"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// Point is a pixel coordinate.
type Point struct{ X, Y int32 }

// BoundingBox is an axis-aligned box in pixel coordinates.
type BoundingBox struct {
	X, Y, Width, Height int32
}

// Empty reports whether the box has zero area (spec §4.4 invariant: "An
// ROI's bounding box must be non-empty for contour/mask operations").
func (b BoundingBox) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

// Intensity is a per-plane intensity measurement cached on an ROI
// (spec §4.4: "per-plane intensity cache").
type Intensity struct {
	Sum, Avg, Min, Max float64
}

// Distance is a per-target distance measurement cached on an ROI
// (spec §4.4: "per-target distance cache", spec §6 numeric semantics).
// TargetClassID is the measured-against object's class, persisted as
// meas_class_id so the query layer's distance join can match it.
type Distance struct {
	TargetClassID             enums.ClassID
	CentroidToCentroid        float64
	CentroidToSurfaceMin      float64
	CentroidToSurfaceMax      float64
	SurfaceToSurfaceMin       float64
	SurfaceToSurfaceMax       float64
}

// ROI is one detected region of interest (spec §4.4).
type ROI struct {
	ObjectID ids.ObjectID
	ClassID  enums.ClassID
	Plane    omeinfo.Plane

	Mask    []bool
	Contour []Point

	// BoxTileLocal/BoxAbsolute are the bounding box in tile-local and
	// image-absolute pixel coordinates (spec §4.4).
	BoxTileLocal BoundingBox
	BoxAbsolute  BoundingBox

	CentroidTileLocal Point
	CentroidAbsolute  Point

	AreaSizePixels  float64
	PerimeterPixels float64
	Circularity     float64
	Confidence      float64

	OriginObjectID ids.ObjectID
	ParentObjectID ids.ObjectID
	ParentClassID  enums.ClassID
	TrackingID     uint64

	// IntensityByChannel keys per-plane intensity caches by the
	// measured channel index.
	IntensityByChannel map[int32]Intensity
	// DistanceByTarget keys per-target distance caches by the target
	// object id.
	DistanceByTarget map[ids.ObjectID]Distance
}

// PhysicalAreaSize converts AreaSizePixels to physical units using the
// OME physical pixel size (spec §4.4 invariant: "area/perimeter are
// stored in pixels and converted to physical units on read").
func (r ROI) PhysicalAreaSize(info omeinfo.Info) float64 {
	return r.AreaSizePixels * info.PhysicalSizeX * info.PhysicalSizeY
}

// PhysicalPerimeter converts PerimeterPixels to physical units without
// requiring square pixels: the edge length is the arithmetic mean of the
// two axis pixel sizes.
func (r ROI) PhysicalPerimeter(info omeinfo.Info) float64 {
	edge := (info.PhysicalSizeX + info.PhysicalSizeY) / 2
	return r.PerimeterPixels * edge
}

// SetIntensity records an intensity measurement for channel c, creating
// the map on first use.
func (r *ROI) SetIntensity(c int32, v Intensity) {
	if r.IntensityByChannel == nil {
		r.IntensityByChannel = make(map[int32]Intensity)
	}
	r.IntensityByChannel[c] = v
}

// SetDistance records a distance measurement to target, creating the
// map on first use.
func (r *ROI) SetDistance(target ids.ObjectID, v Distance) {
	if r.DistanceByTarget == nil {
		r.DistanceByTarget = make(map[ids.ObjectID]Distance)
	}
	r.DistanceByTarget[target] = v
}
