package heatmapviz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/statsplan"
)

func TestRenderWritesPNG(t *testing.T) {
	h := &statsplan.Heatmap{Rows: 2, Cols: 2, Cells: []statsplan.HeatmapCell{
		{Row: 0, Col: 0, Value: 1},
		{Row: 1, Col: 1, Value: 5},
	}}
	dir := t.TempDir()
	path := filepath.Join(dir, "heatmap.png")

	if err := RenderWithTileLabels(h, "test heatmap", path); err != nil {
		t.Fatalf("Render: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected non-empty PNG output")
	}
}
