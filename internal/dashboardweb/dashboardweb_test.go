package dashboardweb

import (
	"net/http"
	"strings"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/dashboard"
	"github.com/joda-analytics/imagec-engine/internal/ids"
	"github.com/joda-analytics/imagec-engine/internal/statsplan"
	"github.com/joda-analytics/imagec-engine/internal/testutil"
)

func TestRenderTableIncludesHeadersAndAlternatingTone(t *testing.T) {
	tbl := &dashboard.Table{
		Kind:    dashboard.Normal,
		ClassID: 1,
		Headers: []string{"area_size"},
		Rows: [][]dashboard.Cell{
			{{Value: 10, HasValue: true, RowTone: 0}},
			{{Value: 20, HasValue: true, RowTone: 1}},
		},
		ObjectIDColumn: []dashboard.Cell{
			{ObjectID: ids.ObjectID(1), HasObject: true, RowTone: 0},
			{ObjectID: ids.ObjectID(2), HasObject: true, RowTone: 1},
		},
	}
	html := RenderTable(tbl, true)
	if !strings.Contains(html, "area_size") {
		t.Fatalf("expected header in output, got:\n%s", html)
	}
	if !strings.Contains(html, "row-base") || !strings.Contains(html, "row-alt") {
		t.Fatalf("expected both row tones represented, got:\n%s", html)
	}
	if !strings.Contains(html, "Object ID") {
		t.Fatalf("expected object id column header, got:\n%s", html)
	}
}

func TestRenderHeatmapProducesEChartsDocument(t *testing.T) {
	h := &statsplan.Heatmap{Rows: 2, Cols: 2, Cells: []statsplan.HeatmapCell{
		{Row: 0, Col: 0, Value: 3},
	}}
	doc, err := RenderHeatmap(h, "density")
	if err != nil {
		t.Fatalf("RenderHeatmap: %v", err)
	}
	if !strings.Contains(doc, "echarts") {
		t.Fatalf("expected rendered document to reference echarts, got a %d-byte doc", len(doc))
	}
}

func TestServeTablesWritesHTMLResponse(t *testing.T) {
	tbl := &dashboard.Table{Kind: dashboard.Normal, ClassID: 1, Headers: []string{"area_size"}}
	rec := testutil.NewTestRecorder()

	ServeTables(rec, []*dashboard.Table{tbl}, false)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "area_size") {
		t.Fatalf("expected rendered body to include table headers, got:\n%s", rec.Body.String())
	}
}

func TestServeHeatmapWritesHTMLResponse(t *testing.T) {
	h := &statsplan.Heatmap{Rows: 1, Cols: 1, Cells: []statsplan.HeatmapCell{{Row: 0, Col: 0, Value: 5}}}
	rec := testutil.NewTestRecorder()

	ServeHeatmap(rec, h, "density")

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "echarts") {
		t.Fatalf("expected rendered body to reference echarts, got a %d-byte body", rec.Body.Len())
	}
}
