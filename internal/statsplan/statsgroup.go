package statsplan

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/joda-analytics/imagec-engine/internal/query"
)

// GroupScope selects which axis StatsPerGroup rolls images up by (spec
// §4.8: "StatsPerGroup... BY_WELL or BY_PLATE").
type GroupScope int

const (
	GroupByWell GroupScope = iota
	GroupByPlate
)

// StatsPerGroup rolls many images up into one row per well or per plate
// (spec §4.8's "StatsPerGroup.toTable"/"toHeatmap").
type StatsPerGroup struct {
	DB    *sql.DB
	Scope GroupScope
}

func (g *StatsPerGroup) rollupScope() query.RollupScope {
	if g.Scope == GroupByPlate {
		return query.RollupPlate
	}
	return query.RollupGroup
}

// ToTable runs table's statements with the group's rollup scope applied
// and returns one row per group (well or plate position).
func (g *StatsPerGroup) ToTable(table *query.ResultingTable) (*Table, error) {
	out := &Table{Headers: table.Headers}
	for _, ps := range table.Statements {
		rows, err := g.DB.Query(ps.SQL())
		if err != nil {
			return nil, fmt.Errorf("statsplan: query group statement: %w", err)
		}
		scanned, err := scanRows(rows, ps)
		rows.Close()
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, scanned...)
	}
	return out, nil
}

// GroupBucket is one well or plate-position heatmap cell's aggregated
// value plus the row/col it was rolled up under (spec §4.8's "BY_WELL
// uses the well grid coordinates directly as (row, col)").
type GroupBucket struct {
	Row, Col int
	Value    float64
}

// ToHeatmap lays buckets directly on their well/plate grid coordinates
// (spec §4.8: unlike StatsPerImage, no further bucketing by tile size is
// applied — each group occupies exactly one cell).
func (g *StatsPerGroup) ToHeatmap(gridRows, gridCols int, buckets []GroupBucket) *Heatmap {
	h := &Heatmap{Rows: gridRows, Cols: gridCols}
	byCell := map[[2]int]float64{}
	for _, b := range buckets {
		byCell[[2]int{b.Row, b.Col}] = b.Value
	}
	for row := 0; row < gridRows; row++ {
		for col := 0; col < gridCols; col++ {
			v, ok := byCell[[2]int{row, col}]
			cell := HeatmapCell{Row: row, Col: col}
			if ok {
				cell.Value = v
			} else {
				cell.Value = math.NaN()
			}
			h.Cells = append(h.Cells, cell)
		}
	}
	return h
}
