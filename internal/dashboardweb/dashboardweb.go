// Package dashboardweb renders dashboard.Table and statsplan.Heatmap
// results as HTML, grounded on the teacher's echarts_handlers.go: build
// a go-echarts chart/page, Render into a bytes.Buffer, serve it with
// Content-Type text/html over net/http.
package dashboardweb

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/joda-analytics/imagec-engine/internal/dashboard"
	"github.com/joda-analytics/imagec-engine/internal/statsplan"
)

const assetsPrefix = "/assets/"

// toneClass renders a Cell's alternating row tone as a CSS class name
// (spec §4.8: "alternating row color toggles per new parent group").
func toneClass(tone int) string {
	if tone == 1 {
		return "row-alt"
	}
	return "row-base"
}

// RenderTable renders a single dashboard.Table as a styled HTML
// fragment, with the object-id column (base32) leftmost when
// withObjectID is set (spec §4.8's "Object-ID column").
func RenderTable(t *dashboard.Table, withObjectID bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<table class=\"dashboard-table dashboard-%s\">\n<caption>%s class %d", strings.ToLower(t.Kind.String()), html.EscapeString(t.Kind.String()), t.ClassID)
	if t.Kind == dashboard.Intersection || t.Kind == dashboard.Distance {
		fmt.Fprintf(&b, " &rarr; %d", t.IntersectingClass)
	}
	b.WriteString("</caption>\n<thead><tr>")
	if withObjectID {
		b.WriteString("<th>Object ID</th>")
	}
	if t.Kind == dashboard.Intersection {
		b.WriteString("<th>Parent ID</th>")
	}
	for _, h := range t.Headers {
		fmt.Fprintf(&b, "<th>%s</th>", html.EscapeString(h))
	}
	b.WriteString("</tr></thead>\n<tbody>\n")

	for row := range t.Rows {
		tone := 0
		if row < len(t.Rows) && len(t.Rows[row]) > 0 {
			tone = t.Rows[row][0].RowTone
		}
		fmt.Fprintf(&b, "<tr class=\"%s\">", toneClass(tone))
		if withObjectID && row < len(t.ObjectIDColumn) {
			c := t.ObjectIDColumn[row]
			if c.HasObject {
				fmt.Fprintf(&b, "<td class=\"object-id %s\">%s</td>", objectIDTone(row), html.EscapeString(c.ObjectID.Base32()))
			} else {
				b.WriteString("<td></td>")
			}
		}
		if t.Kind == dashboard.Intersection {
			if row < len(t.ParentObjectColumn) && t.ParentObjectColumn[row].HasObject {
				fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(t.ParentObjectColumn[row].ObjectID.Base32()))
			} else {
				b.WriteString("<td></td>")
			}
		}
		for _, cell := range t.Rows[row] {
			if cell.HasValue {
				fmt.Fprintf(&b, "<td>%s</td>", strconv.FormatFloat(cell.Value, 'g', -1, 64))
			} else {
				b.WriteString("<td></td>")
			}
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody></table>\n")
	return b.String()
}

// objectIDTone alternates a light/dark accent within the row's own
// base/alternate tone, independent of the row-group tone (spec §4.8:
// "Its background alternates between a light and dark accent within
// the row's base/alternate tone").
func objectIDTone(row int) string {
	if row%2 == 0 {
		return "object-id-light"
	}
	return "object-id-dark"
}

// RenderTables concatenates RenderTable over a set of dashboard tables,
// wrapped in the page shell the teacher's handlers serve directly over
// HTTP (spec §4.8's dashboard view is the union of all classified
// tables).
func RenderTables(tables []*dashboard.Table, withObjectID bool) string {
	var b strings.Builder
	b.WriteString(pageHead)
	for _, t := range tables {
		b.WriteString(RenderTable(t, withObjectID))
	}
	b.WriteString("</body></html>")
	return b.String()
}

const pageHead = `<!DOCTYPE html>
<html><head><meta charset="utf-8">
<style>
.dashboard-table { border-collapse: collapse; margin-bottom: 1.5em; }
.dashboard-table th, .dashboard-table td { border: 1px solid #ccc; padding: 4px 8px; }
.row-base { background: #ffffff; }
.row-alt  { background: #f0f3f7; }
.object-id-light { background: #e8eef7; }
.object-id-dark  { background: #c9d6ea; }
</style></head><body>
`

// ServeTables writes RenderTables's output as an HTTP response, the
// same Content-Type/Write pattern as handleBackgroundGridPolar.
func ServeTables(w http.ResponseWriter, tables []*dashboard.Table, withObjectID bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(RenderTables(tables, withObjectID)))
}

// RenderHeatmap renders a statsplan.Heatmap as a go-echarts HeatMap
// chart, the same NewX/SetGlobalOptions/AddSeries/Render shape as the
// teacher's handleBackgroundGridHeatmapChart.
func RenderHeatmap(h *statsplan.Heatmap, title string) (string, error) {
	data := make([]opts.HeatMapData, 0, len(h.Cells))
	maxVal := 0.0
	for _, c := range h.Cells {
		if math.IsNaN(c.Value) {
			continue
		}
		data = append(data, opts.HeatMapData{Value: []interface{}{c.Col, c.Row, c.Value}})
		if c.Value > maxVal {
			maxVal = c.Value
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	cols := make([]string, h.Cols)
	for i := range cols {
		cols[i] = strconv.Itoa(i)
	}
	rows := make([]string, h.Rows)
	for i := range rows {
		rows[i] = strconv.Itoa(i)
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "600px", AssetsHost: assetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: cols}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: rows}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show: opts.Bool(true), Calculable: opts.Bool(true), Min: 0, Max: float32(maxVal),
			InRange: &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	hm.AddSeries("density", data)

	page := components.NewPage()
	page.SetAssetsHost(assetsPrefix)
	page.AddCharts(hm)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return "", fmt.Errorf("dashboardweb: render heatmap: %w", err)
	}
	return buf.String(), nil
}

// ServeHeatmap writes RenderHeatmap's output as an HTTP response.
func ServeHeatmap(w http.ResponseWriter, h *statsplan.Heatmap, title string) {
	doc, err := RenderHeatmap(h, title)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}
