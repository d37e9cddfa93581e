// Package enums holds the closed vocabularies shared across the store,
// query, and dashboard layers: measurement channels, aggregation
// statistics, class ids, and grouping modes.
package enums

// Measurement identifies a column's measurement channel. The full set is
// recovered from the original implementation's enum_measurements.hpp,
// which the distilled spec refers to by name without enumerating.
type Measurement int32

const (
	MeasurementNone Measurement = iota - 1

	MeasurementCount
	MeasurementConfidence
	MeasurementAreaSize
	MeasurementPerimeter
	MeasurementCircularity
	MeasurementIntensitySum
	MeasurementIntensityAvg
	MeasurementIntensityMin
	MeasurementIntensityMax
	MeasurementCenterOfMassX
	MeasurementCenterOfMassY
	MeasurementObjectID
	MeasurementOriginObjectID
	MeasurementParentObjectID
	MeasurementTrackingID
	MeasurementBoundingBoxWidth
	MeasurementBoundingBoxHeight
	MeasurementIntersecting
	MeasurementDistanceCentroidToCentroid
	MeasurementDistanceCentroidToSurfaceMin
	MeasurementDistanceCentroidToSurfaceMax
	MeasurementDistanceSurfaceToSurfaceMin
	MeasurementDistanceSurfaceToSurfaceMax
	MeasurementDistanceCentroidToCentroidObjectID
	MeasurementDistanceCentroidToSurfaceMinObjectID
	MeasurementDistanceCentroidToSurfaceMaxObjectID
	MeasurementDistanceSurfaceToSurfaceMinObjectID
	MeasurementDistanceSurfaceToSurfaceMaxObjectID
)

// MeasureType classifies a Measurement into the emission-rule family that
// ResultingTable/PreparedStatement uses to decide joins and aggregation
// (spec §4.7).
type MeasureType int

const (
	MeasureTypeGeneric MeasureType = iota
	MeasureTypeID
	MeasureTypeIntensity
	MeasureTypeIntersection
	MeasureTypeDistance
	MeasureTypeDistanceID
)

// TypeOf returns the emission-rule family for a Measurement.
func TypeOf(m Measurement) MeasureType {
	switch m {
	case MeasurementObjectID, MeasurementOriginObjectID, MeasurementParentObjectID, MeasurementTrackingID:
		return MeasureTypeID
	case MeasurementIntensitySum, MeasurementIntensityAvg, MeasurementIntensityMin, MeasurementIntensityMax:
		return MeasureTypeIntensity
	case MeasurementIntersecting:
		return MeasureTypeIntersection
	case MeasurementDistanceCentroidToCentroid,
		MeasurementDistanceCentroidToSurfaceMin, MeasurementDistanceCentroidToSurfaceMax,
		MeasurementDistanceSurfaceToSurfaceMin, MeasurementDistanceSurfaceToSurfaceMax:
		return MeasureTypeDistance
	case MeasurementDistanceCentroidToCentroidObjectID,
		MeasurementDistanceCentroidToSurfaceMinObjectID, MeasurementDistanceCentroidToSurfaceMaxObjectID,
		MeasurementDistanceSurfaceToSurfaceMinObjectID, MeasurementDistanceSurfaceToSurfaceMaxObjectID:
		return MeasureTypeDistanceID
	default:
		return MeasureTypeGeneric
	}
}

// IsDistance reports whether m belongs to either distance family —
// columns with distance != NONE never share a statement with non-distance
// columns (spec §4.7 invariant).
func IsDistance(m Measurement) bool {
	t := TypeOf(m)
	return t == MeasureTypeDistance || t == MeasureTypeDistanceID
}

// MeasurementSQLName returns the column/alias base name for m, matching
// the original's getMeasurement(measure, textual). textual is accepted
// for signature parity and does not change the returned name.
func MeasurementSQLName(m Measurement, textual bool) string {
	switch m {
	case MeasurementCount:
		return "counted"
	case MeasurementConfidence:
		return "confidence"
	case MeasurementAreaSize:
		return "area_size"
	case MeasurementPerimeter:
		return "perimeter"
	case MeasurementCircularity:
		return "circularity"
	case MeasurementIntensitySum:
		return "meas_sum"
	case MeasurementIntensityAvg:
		return "meas_avg"
	case MeasurementIntensityMin:
		return "meas_min"
	case MeasurementIntensityMax:
		return "meas_max"
	case MeasurementCenterOfMassX:
		return "meas_center_x"
	case MeasurementCenterOfMassY:
		return "meas_center_y"
	case MeasurementObjectID:
		return "object_id"
	case MeasurementOriginObjectID:
		return "meas_origin_object_id"
	case MeasurementParentObjectID:
		return "meas_parent_object_id"
	case MeasurementTrackingID:
		return "meas_tracking_id"
	case MeasurementBoundingBoxWidth:
		return "meas_bounding_box_width"
	case MeasurementBoundingBoxHeight:
		return "meas_bounding_box_height"
	case MeasurementIntersecting:
		return "intersecting"
	case MeasurementDistanceCentroidToCentroid:
		return "meas_dist_centroid_centroid"
	case MeasurementDistanceCentroidToSurfaceMin:
		return "meas_dist_centroid_surface_min"
	case MeasurementDistanceCentroidToSurfaceMax:
		return "meas_dist_centroid_surface_max"
	case MeasurementDistanceSurfaceToSurfaceMin:
		return "meas_dist_surface_surface_min"
	case MeasurementDistanceSurfaceToSurfaceMax:
		return "meas_dist_surface_surface_max"
	case MeasurementDistanceCentroidToCentroidObjectID,
		MeasurementDistanceCentroidToSurfaceMinObjectID, MeasurementDistanceCentroidToSurfaceMaxObjectID,
		MeasurementDistanceSurfaceToSurfaceMinObjectID, MeasurementDistanceSurfaceToSurfaceMaxObjectID:
		return "meas_object_id"
	default:
		return ""
	}
}
