package dashboard

import "github.com/joda-analytics/imagec-engine/internal/enums"

// ColocSource is one class's contribution to a COLOC table: its class id
// and the rows (already projected to output-column values) it offers,
// keyed by the row's own tracking id.
type ColocSource struct {
	ClassID enums.ClassID
	Headers []string
	// Aliases are the Values map keys backing each Headers entry,
	// parallel to Headers (spec §4.7's output columns are addressed by
	// alias; Headers are the display-facing name).
	Aliases []string
	Rows    []ObjectRow
}

// ConvertColoc joins classes that share at least one tracking id into
// one table per class, with rows aligned across all sources by tracking
// id (spec §4.8: "COLOC — tables joining classes that share at least
// one tracking id; rows are aligned by tracking id" and its alignment
// rule: "trackingIdMapping[trackingId] = row; first occurrence
// allocates the next row and color; later occurrences reuse both").
func ConvertColoc(sources []ColocSource) []*Table {
	align := newAligner()
	tables := make([]*Table, len(sources))
	for i, src := range sources {
		tables[i] = &Table{Kind: Coloc, ClassID: src.ClassID, Headers: src.Headers}
	}

	// Allocate rows/tones in tracking-id first-seen order across all
	// sources combined, so a tracking id seen first in source B still
	// gets the same row in source A once source A's row for it appears.
	for _, src := range sources {
		for _, r := range src.Rows {
			if !r.HasTracking {
				continue
			}
			align.rowFor(r.TrackingID)
		}
	}

	for i, src := range sources {
		t := tables[i]
		t.Rows = make([][]Cell, align.rows())
		t.ObjectIDColumn = make([]Cell, align.rows())
		for row := range t.Rows {
			t.Rows[row] = make([]Cell, len(src.Headers))
		}
		for _, r := range src.Rows {
			if !r.HasTracking {
				continue
			}
			row, tone := align.rowFor(r.TrackingID)
			for colIdx, alias := range src.Aliases {
				v, ok := r.Values[alias]
				t.Rows[row][colIdx] = Cell{Value: v, HasValue: ok, RowTone: tone}
			}
			t.ObjectIDColumn[row] = Cell{ObjectID: r.ObjectID, HasObject: true, RowTone: tone}
		}
	}
	return tables
}
