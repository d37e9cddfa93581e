// Package statsplan implements the high-level query plans (spec §4.8,
// C12): StatsPerImage and StatsPerGroup, each able to render either a
// flat per-object table or a spatial heatmap grid.
package statsplan

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/query"
)

// Row is one output row of a StatsPerImage/StatsPerGroup table.
type Row struct {
	ImageID   uint64
	GroupID   int64
	PosX, PosY int32
	Values    map[string]float64
}

// Table is a flat list result (spec §4.8: "Produces a list: one row per
// object scoped by image id(s)").
type Table struct {
	Headers []string
	Rows    []Row
}

// HeatmapCell is one bucket of a density-map grid. Empty buckets carry
// Value = NaN (spec §4.8: "Empty cells are NaN").
type HeatmapCell struct {
	Row, Col       int
	Value          float64
	ControlImage   string
}

// Heatmap is a W/b x H/b matrix of per-bucket statistics, where b is the
// bucket size (spec §4.8: "densityMapAreaSize").
type Heatmap struct {
	Rows, Cols int
	Cells      []HeatmapCell
}

// At returns the cell for (row, col), or a NaN cell if out of bounds.
func (h *Heatmap) At(row, col int) HeatmapCell {
	for _, c := range h.Cells {
		if c.Row == row && c.Col == col {
			return c
		}
	}
	return HeatmapCell{Row: row, Col: col, Value: math.NaN()}
}

// StatsPerImage runs the per-object table/heatmap query plan for a
// single image (spec §4.8's "StatsPerImage.toTable"/"toHeatmap").
type StatsPerImage struct {
	DB      *sql.DB
	ImageID uint64
}

// ToTable lists one row per object for this image, with column stats
// forced to OFF since each object is its own sample (spec §4.8: "Stats
// are forced to OFF at column level since each object is its own
// sample").
func (s *StatsPerImage) ToTable(table *query.ResultingTable) (*Table, error) {
	out := &Table{Headers: table.Headers}
	for _, ps := range table.Statements {
		rows, err := s.queryStatement(ps)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, rows...)
	}
	return out, nil
}

func (s *StatsPerImage) queryStatement(ps *query.PreparedStatement) ([]Row, error) {
	sqlText := ps.SQL()
	rows, err := s.DB.Query(sqlText)
	if err != nil {
		return nil, fmt.Errorf("statsplan: query image %d statement: %w", s.ImageID, err)
	}
	defer rows.Close()
	return scanRows(rows, ps)
}

// scanRows reads a PreparedStatement's result set into generic Rows,
// keyed by column alias so the caller can re-project by ColumnIdx via
// the owning ResultingTable.ColumnForIdx. Columns flagged by
// ps.InProcessReductionStats (MEDIAN/STDDEV) arrive as a GROUP_CONCAT
// string of raw values and are reduced via query.Reduce instead of
// parsed as a single number.
func scanRows(rows *sql.Rows, ps *query.PreparedStatement) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	reductions := ps.InProcessReductionStats()
	var out []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := Row{Values: map[string]float64{}}
		for i, name := range cols {
			switch name {
			case "image_id":
				r.ImageID = toUint64(raw[i])
			case "group_id":
				r.GroupID = toInt64(raw[i])
			case "pos_on_plate_x":
				r.PosX = int32(toInt64(raw[i]))
			case "pos_on_plate_y":
				r.PosY = int32(toInt64(raw[i]))
			default:
				if stat, ok := reductions[name]; ok {
					r.Values[name] = query.Reduce(stat, parseConcatFloats(raw[i]))
				} else {
					r.Values[name] = toFloat64(raw[i])
				}
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// parseConcatFloats splits a GROUP_CONCAT-projected column back into its
// individual values for in-process reduction.
func parseConcatFloats(v any) []float64 {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

func toUint64(v any) uint64 {
	switch x := v.(type) {
	case int64:
		return uint64(x)
	case float64:
		return uint64(x)
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

// BucketKey identifies one heatmap cell by its tile-size-bucketed
// (x, y) origin (spec §4.8: "floor(x/b)*b, floor(y/b)*b as grouping
// keys").
type BucketKey struct{ X, Y int32 }

// ToHeatmap computes a density grid by bucketizing object centroids
// with tile size bucketSize (spec §4.8's "StatsPerImage.toHeatmap").
// centroids is the (x, y, statValue) triple per object already
// projected by the caller from a ResultingTable result (centroid and
// the single requested stat value), keeping this function free of any
// SQL concern and grounded purely on the bucketing/rendering rule.
func (s *StatsPerImage) ToHeatmap(width, height, bucketSize int32, centroids []CentroidSample, stat enums.Stats, controlImagePathTemplate string) *Heatmap {
	cols := int((width + bucketSize - 1) / bucketSize)
	rows := int((height + bucketSize - 1) / bucketSize)

	buckets := map[BucketKey][]float64{}
	for _, c := range centroids {
		if c.X < 0 || c.X >= width || c.Y < 0 || c.Y >= height {
			continue // out of bounds: skipped (spec §4.8)
		}
		key := BucketKey{X: (c.X / bucketSize) * bucketSize, Y: (c.Y / bucketSize) * bucketSize}
		buckets[key] = append(buckets[key], c.Value)
	}

	h := &Heatmap{Rows: rows, Cols: cols}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			key := BucketKey{X: int32(col) * bucketSize, Y: int32(row) * bucketSize}
			values, ok := buckets[key]
			cell := HeatmapCell{Row: row, Col: col, Value: math.NaN()}
			if ok {
				cell.Value = query.Reduce(stat, values)
				cell.ControlImage = substituteTileID(controlImagePathTemplate, row, col)
			}
			h.Cells = append(h.Cells, cell)
		}
	}
	return h
}

// CentroidSample is one object's centroid and the stat value it
// contributes to its bucket.
type CentroidSample struct {
	X, Y  int32
	Value float64
}

func substituteTileID(template string, row, col int) string {
	if template == "" {
		return ""
	}
	return replaceAll(template, "${tile_id}", fmt.Sprintf("%dx%d", col, row))
}

func replaceAll(s, old, new string) string {
	out := ""
	for {
		i := indexOf(s, old)
		if i < 0 {
			return out + s
		}
		out += s[:i] + new
		s = s[i+len(old):]
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
