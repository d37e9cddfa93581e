package statsplan

import (
	"math"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// TestToHeatmapBucketsThreeObjectsIntoDistinctCells exercises the
// worked example from the heatmap bucketing scenario: a 1024x512 image
// with densityMapAreaSize=256 produces a 4x2 grid, and three objects at
// (10,10), (300,260), (800,400) land in buckets (0,0), (1,1), (3,1)
// respectively, each alone in its cell.
func TestToHeatmapBucketsThreeObjectsIntoDistinctCells(t *testing.T) {
	s := &StatsPerImage{}
	centroids := []CentroidSample{
		{X: 10, Y: 10, Value: 1},
		{X: 300, Y: 260, Value: 2},
		{X: 800, Y: 400, Value: 3},
	}
	h := s.ToHeatmap(1024, 512, 256, centroids, enums.StatsAvg, "")

	if h.Cols != 4 || h.Rows != 2 {
		t.Fatalf("expected a 4x2 grid, got %dx%d", h.Cols, h.Rows)
	}

	cases := []struct {
		col, row int
		want     float64
	}{
		{0, 0, 1},
		{1, 1, 2},
		{3, 1, 3},
	}
	for _, c := range cases {
		cell := h.At(c.row, c.col)
		if math.IsNaN(cell.Value) || cell.Value != c.want {
			t.Fatalf("cell (row=%d,col=%d): got %v, want %v", c.row, c.col, cell.Value, c.want)
		}
	}

	// every other cell is empty
	empty := 0
	for row := 0; row < h.Rows; row++ {
		for col := 0; col < h.Cols; col++ {
			if math.IsNaN(h.At(row, col).Value) {
				empty++
			}
		}
	}
	if empty != h.Rows*h.Cols-3 {
		t.Fatalf("expected %d empty cells, got %d", h.Rows*h.Cols-3, empty)
	}
}

func TestToHeatmapSkipsOutOfBoundsCentroids(t *testing.T) {
	s := &StatsPerImage{}
	h := s.ToHeatmap(100, 100, 50, []CentroidSample{{X: -1, Y: 0, Value: 5}, {X: 200, Y: 0, Value: 5}}, enums.StatsAvg, "")
	for _, c := range h.Cells {
		if !math.IsNaN(c.Value) {
			t.Fatalf("expected no populated cells for out-of-bounds centroids, got %+v", c)
		}
	}
}

func TestToHeatmapControlImagePathSubstitutesTileID(t *testing.T) {
	s := &StatsPerImage{}
	h := s.ToHeatmap(100, 100, 50, []CentroidSample{{X: 10, Y: 10, Value: 1}}, enums.StatsAvg, "tiles/${tile_id}.png")
	cell := h.At(0, 0)
	if cell.ControlImage != "tiles/0x0.png" {
		t.Fatalf("expected control image path to substitute tile id, got %q", cell.ControlImage)
	}
}

func TestFindMaxRowIdxPadsToWidestClass(t *testing.T) {
	a := &Table{Rows: []Row{{}, {}, {}}}
	b := &Table{Rows: []Row{{}}}
	max := FindMaxRowIdx(a, b)
	if max != 3 {
		t.Fatalf("expected max row count 3, got %d", max)
	}
	PadRows(b, max)
	if len(b.Rows) != 3 {
		t.Fatalf("expected padded table to have 3 rows, got %d", len(b.Rows))
	}
}

func TestStripObjectColumnsRemovesNamedKeys(t *testing.T) {
	tbl := &Table{Rows: []Row{{Values: map[string]float64{"object_id": 1, "area": 2}}}}
	StripObjectColumns(tbl, "object_id")
	if _, ok := tbl.Rows[0].Values["object_id"]; ok {
		t.Fatalf("expected object_id to be stripped")
	}
	if _, ok := tbl.Rows[0].Values["area"]; !ok {
		t.Fatalf("expected area column to survive")
	}
}
