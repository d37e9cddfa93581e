package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// RollupScope selects the outer aggregation a PreparedStatement wraps
// its per-image rows in (spec §4.8): RollupImage keeps the per-(image[,t])
// rows without further rollup, RollupGroup groups by image group, and
// RollupPlate groups by plate position (pos_on_plate_x, pos_on_plate_y).
type RollupScope int

const (
	RollupImage RollupScope = iota
	RollupGroup
	RollupPlate
)

// Column is one output column bound to a PreparedStatement: its
// ColumnKey, the output alias it projects under, and the original
// ColumnIdx slots (after dedup, possibly more than one) it serves.
type Column struct {
	Key     ColumnKey
	Alias   string
	Indices []int
}

// PreparedStatement carries every column that shares one QueryKey, plus
// the generated SQL to run it (spec §4.7: "a set of PreparedStatement
// instances, one per QueryKey, each carrying the columns it must
// project").
type PreparedStatement struct {
	Key     QueryKey
	Columns []Column
	TMode   enums.TStackMode
	Scope   RollupScope
}

// channelsUsed returns the distinct intensity channels this statement's
// columns reference, sorted ascending, for deterministic join ordering.
func (ps *PreparedStatement) channelsUsed() []int32 {
	seen := map[int32]bool{}
	var out []int32
	for _, c := range ps.Columns {
		if enums.TypeOf(c.Key.Measure) == enums.MeasureTypeIntensity {
			if !seen[c.Key.CrossChannelC] {
				seen[c.Key.CrossChannelC] = true
				out = append(out, c.Key.CrossChannelC)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (ps *PreparedStatement) hasIntersecting() bool {
	for _, c := range ps.Columns {
		if enums.TypeOf(c.Key.Measure) == enums.MeasureTypeIntersection {
			return true
		}
	}
	return false
}

func (ps *PreparedStatement) hasDistance() bool {
	return ps.Key.HasDistanceClass
}

// innerStatFor returns the SQL aggregate function a column uses inside
// the inner per-(image[,t]) aggregation. Per-image rollups default to
// AVG (not OFF) for non-ID measures when the column's own stat is OFF
// (spec §4.7: "Stat selection... per-image rollups default to AVG (not
// OFF) for non-ID measures").
func innerStatFor(k ColumnKey) enums.Stats {
	if enums.TypeOf(k.Measure) == enums.MeasureTypeID {
		return enums.StatsOff
	}
	if k.Measure == enums.MeasurementCount {
		return enums.StatsSum
	}
	if k.Stat == enums.StatsOff {
		return enums.StatsAvg
	}
	return k.Stat
}

// SQL generates the statement text for ps, following the shape from
// spec §4.7: an optional TblIntersecting CTE, an imageGrouped inner
// aggregation over objects joined to the per-column side tables, and
// (when Scope != RollupImage, or TMode == TStackSlice) an outer
// aggregation.
func (ps *PreparedStatement) SQL() string {
	var b strings.Builder
	ctes := []string{}

	if ps.hasIntersecting() {
		ctes = append(ctes, ps.intersectingCTE())
	}
	ctes = append(ctes, ps.imageGroupedCTE())

	b.WriteString("WITH ")
	b.WriteString(strings.Join(ctes, ",\n"))
	b.WriteString("\n")
	b.WriteString(ps.outerSelect())
	return b.String()
}

// intersectingCTE builds the TblIntersecting CTE counting, per parent
// image, how many children of each requested intersecting class point
// at a parent whose class is this statement's class (spec §4.7's
// literal SQL shape, exercised by §8 property S4).
func (ps *PreparedStatement) intersectingCTE() string {
	var cases []string
	seen := map[enums.ClassID]bool{}
	for _, c := range ps.Columns {
		if enums.TypeOf(c.Key.Measure) != enums.MeasureTypeIntersection {
			continue
		}
		cx := c.Key.IntersectingClass
		if seen[cx] {
			continue
		}
		seen[cx] = true
		cases = append(cases, fmt.Sprintf(
			"SUM(CASE WHEN ad.class_id = %d THEN 1 ELSE 0 END) AS recursive_child_count_%d", cx, cx))
	}
	return fmt.Sprintf(`TblIntersecting AS (
  SELECT ad.image_id,
         %s
  FROM objects ad
  WHERE ad.meas_parent_class_id = %d
  GROUP BY ad.image_id, ad.class_id, ad.meas_parent_object_id, ad.meas_parent_class_id
)`, strings.Join(cases, ",\n         "), ps.Key.ClassID)
}

// imageGroupedCTE builds the per-image inner aggregation: joins, per
// column inner aggregate expressions, and bookkeeping columns every
// statement always carries (group/plate position, file name, validity).
func (ps *PreparedStatement) imageGroupedCTE() string {
	var joins []string
	for _, ch := range ps.channelsUsed() {
		alias := fmt.Sprintf("tj%d", ch)
		joins = append(joins, fmt.Sprintf(
			"LEFT JOIN object_measurements %s ON t1.object_id=%s.object_id AND t1.image_id=%s.image_id AND %s.meas_stack_c=%d AND %s.meas_stack_z=%d AND %s.meas_stack_t=%d",
			alias, alias, alias, alias, ch, alias, ps.Key.ZStack, alias, ps.Key.TStack))
	}
	if ps.hasIntersecting() {
		joins = append(joins, "LEFT JOIN TblIntersecting ON TblIntersecting.image_id=t1.image_id")
	}
	if ps.hasDistance() {
		joins = append(joins, fmt.Sprintf(
			"LEFT JOIN distance_measurements td ON td.object_id=t1.object_id AND td.image_id=t1.image_id AND td.meas_class_id=%d AND td.meas_stack_z=%d AND td.meas_stack_t=%d",
			ps.Key.DistanceToClass, ps.Key.ZStack, ps.Key.TStack))
	}

	var selects []string
	for _, c := range ps.Columns {
		selects = append(selects, fmt.Sprintf("%s AS %s", ps.innerExpr(c), c.Alias))
	}
	selects = append(selects,
		"ANY_VALUE(images_groups.group_id) AS group_id",
		"ANY_VALUE(images_groups.image_group_idx) AS image_group_idx",
		"ANY_VALUE(groups.pos_on_plate_x) AS pos_on_plate_x",
		"ANY_VALUE(groups.pos_on_plate_y) AS pos_on_plate_y",
		"ANY_VALUE(images.file_name) AS file_name",
		"ANY_VALUE(images.image_id) AS image_id",
		"MAX(images.validity) AS validity",
		"ANY_VALUE(t1.stack_t) AS stack_t_real",
	)

	groupBy := "t1.image_id"
	if ps.TMode == enums.TStackIndividual {
		groupBy += ", t1.stack_t"
	}

	where := fmt.Sprintf("t1.class_id=%d AND t1.stack_z=%d", ps.Key.ClassID, ps.Key.ZStack)
	if ps.TMode == enums.TStackIndividual {
		where += fmt.Sprintf(" AND t1.stack_t=%d", ps.Key.TStack)
	}

	return fmt.Sprintf(`imageGrouped AS (
  SELECT %s
  FROM objects t1
  %s
  JOIN images_groups ON t1.image_id=images_groups.image_id
  JOIN groups        ON images_groups.group_id=groups.group_id
  JOIN images        ON t1.image_id=images.image_id
  WHERE %s
  GROUP BY %s
)`, strings.Join(selects, ",\n         "), strings.Join(joins, "\n  "), where, groupBy)
}

// innerExpr returns the per-column inner aggregate expression for the
// imageGrouped CTE, per the emission rule matching the column's measure
// family (spec §4.7).
func (ps *PreparedStatement) innerExpr(c Column) string {
	stat := innerStatFor(c.Key)
	fn := stat.SQLName("ANY_VALUE")

	if c.Key.Measure == enums.MeasurementCount {
		return "SUM(1)"
	}

	switch enums.TypeOf(c.Key.Measure) {
	case enums.MeasureTypeID:
		return fmt.Sprintf("ANY_VALUE(t1.%s)", idColumn(c.Key.Measure))
	case enums.MeasureTypeIntensity:
		return fmt.Sprintf("%s(tj%d.%s)", fn, c.Key.CrossChannelC, intensityColumn(c.Key.Measure))
	case enums.MeasureTypeIntersection:
		return fmt.Sprintf("%s(TblIntersecting.recursive_child_count_%d)", fn, c.Key.IntersectingClass)
	case enums.MeasureTypeDistance:
		return fmt.Sprintf("%s(td.%s)", fn, distanceColumn(c.Key.Measure))
	case enums.MeasureTypeDistanceID:
		return "ANY_VALUE(td.object_id)"
	default:
		return fmt.Sprintf("%s(t1.%s)", fn, genericColumn(c.Key.Measure))
	}
}

// outerStatFor returns the stat applied in the outer rollup for column c:
// forced OFF for ID measures and for per-image scope, otherwise the
// column's own requested stat (spec §4.7).
func (ps *PreparedStatement) outerStatFor(c Column) enums.Stats {
	if enums.TypeOf(c.Key.Measure) == enums.MeasureTypeID || ps.Scope == RollupImage {
		return enums.StatsOff
	}
	return c.Key.Stat
}

// InProcessReductionStats returns, for every output alias whose outer
// rollup stat has no native SQLite aggregate (MEDIAN, STDDEV), the stat to
// apply over that alias's raw per-image values once the caller has parsed
// them back out of the GROUP_CONCAT outerSelect projects them as (see
// query.Reduce).
func (ps *PreparedStatement) InProcessReductionStats() map[string]enums.Stats {
	out := map[string]enums.Stats{}
	for _, c := range ps.Columns {
		if stat := ps.outerStatFor(c); stat.RequiresInProcessReduction() {
			out[c.Alias] = stat
		}
	}
	return out
}

// outerSelect wraps imageGrouped in the caller's requested rollup,
// applying the override stat from ColumnKey when present. MEDIAN/STDDEV
// have no native SQLite aggregate (enums.Stats.RequiresInProcessReduction),
// so those columns are projected with GROUP_CONCAT instead and reduced in
// process by the caller via InProcessReductionStats/query.Reduce.
func (ps *PreparedStatement) outerSelect() string {
	if ps.Scope == RollupImage && ps.TMode != enums.TStackSlice {
		plain := make([]string, 0, len(ps.Columns)+7)
		for _, c := range ps.Columns {
			plain = append(plain, c.Alias)
		}
		plain = append(plain, "group_id", "image_group_idx", "pos_on_plate_x", "pos_on_plate_y", "file_name", "image_id", "validity")
		return fmt.Sprintf("SELECT %s FROM imageGrouped", strings.Join(plain, ", "))
	}

	var selects []string
	for _, c := range ps.Columns {
		outer := ps.outerStatFor(c)
		if outer.RequiresInProcessReduction() {
			selects = append(selects, fmt.Sprintf("GROUP_CONCAT(%s) AS %s", c.Alias, c.Alias))
			continue
		}
		fn := outer.SQLName("ANY_VALUE")
		selects = append(selects, fmt.Sprintf("%s(%s) AS %s", fn, c.Alias, c.Alias))
	}
	selects = append(selects, "group_id", "image_group_idx", "pos_on_plate_x", "pos_on_plate_y", "file_name", "image_id", "validity")

	groupBy := []string{}
	switch ps.Scope {
	case RollupGroup:
		groupBy = append(groupBy, "group_id")
	case RollupPlate:
		groupBy = append(groupBy, "pos_on_plate_x", "pos_on_plate_y")
	}
	if ps.TMode == enums.TStackSlice {
		groupBy = append(groupBy, "stack_t_real")
		selects = append(selects, "stack_t_real")
	}

	q := fmt.Sprintf("SELECT %s FROM imageGrouped", strings.Join(selects, ", "))
	if len(groupBy) > 0 {
		q += " GROUP BY " + strings.Join(groupBy, ", ")
	}
	return q
}

func idColumn(m enums.Measurement) string {
	switch m {
	case enums.MeasurementObjectID:
		return "object_id"
	case enums.MeasurementOriginObjectID:
		return "meas_origin_object_id"
	case enums.MeasurementParentObjectID:
		return "meas_parent_object_id"
	case enums.MeasurementTrackingID:
		return "meas_tracking_id"
	default:
		return "object_id"
	}
}

func intensityColumn(m enums.Measurement) string {
	switch m {
	case enums.MeasurementIntensitySum:
		return "intensity_sum"
	case enums.MeasurementIntensityAvg:
		return "intensity_avg"
	case enums.MeasurementIntensityMin:
		return "intensity_min"
	case enums.MeasurementIntensityMax:
		return "intensity_max"
	default:
		return "intensity_avg"
	}
}

func distanceColumn(m enums.Measurement) string {
	switch m {
	case enums.MeasurementDistanceCentroidToCentroid:
		return "dist_centroid_to_centroid"
	case enums.MeasurementDistanceCentroidToSurfaceMin:
		return "dist_centroid_to_surface_min"
	case enums.MeasurementDistanceCentroidToSurfaceMax:
		return "dist_centroid_to_surface_max"
	case enums.MeasurementDistanceSurfaceToSurfaceMin:
		return "dist_surface_to_surface_min"
	case enums.MeasurementDistanceSurfaceToSurfaceMax:
		return "dist_surface_to_surface_max"
	default:
		return "dist_centroid_to_centroid"
	}
}

func genericColumn(m enums.Measurement) string {
	switch m {
	case enums.MeasurementConfidence:
		return "confidence"
	case enums.MeasurementAreaSize:
		return "meas_area_size"
	case enums.MeasurementPerimeter:
		return "meas_perimeter"
	case enums.MeasurementCircularity:
		return "meas_circularity"
	case enums.MeasurementCenterOfMassX:
		return "meas_center_x"
	case enums.MeasurementCenterOfMassY:
		return "meas_center_y"
	case enums.MeasurementBoundingBoxWidth:
		return "meas_box_width"
	case enums.MeasurementBoundingBoxHeight:
		return "meas_box_height"
	case enums.MeasurementCount:
		return "object_id"
	default:
		return "object_id"
	}
}
