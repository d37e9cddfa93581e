package dashboard

import (
	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/ids"
	"github.com/joda-analytics/imagec-engine/internal/query"
)

// ObjectRow is one object's raw data as read from a StatsPerImage
// table, the unit Convert aligns into dashboard rows.
type ObjectRow struct {
	ObjectID       ids.ObjectID
	ClassID        enums.ClassID
	ParentObjectID ids.ObjectID
	HasParent      bool
	TrackingID     uint64
	HasTracking    bool
	// ParentCount is the parent's own count measurement, used by
	// INTERSECTION's filler-row rule (spec §4.8: "the number of filler
	// rows equals the parent's getVal()").
	ParentCount int
	Values      map[string]float64
}

// columnKeysByAlias walks every PreparedStatement's Columns to recover
// the ColumnKey each output alias came from, since ResultingTable only
// keeps the forward ColumnIdx -> alias map.
func columnKeysByAlias(table *query.ResultingTable) map[string]query.ColumnKey {
	out := map[string]query.ColumnKey{}
	for _, ps := range table.Statements {
		for _, c := range ps.Columns {
			out[c.Alias] = c.Key
		}
	}
	return out
}

type groupKey struct {
	kind         Kind
	classID      enums.ClassID
	intersecting enums.ClassID
}

// Convert categorizes table's columns into NORMAL, INTERSECTION, and
// DISTANCE dashboard tables and aligns rows within each (spec §4.8's
// "Dashboard.convert"). INTERSECTION rows that carry a parent are keyed
// by parent object id, so children of one parent share a row; all other
// rows, NORMAL included, are keyed by their own object id, one row per
// object. COLOC tables are built separately by ConvertColoc
// since they align across classes rather than within one.
func Convert(rows []ObjectRow, table *query.ResultingTable) []*Table {
	byAlias := columnKeysByAlias(table)

	var order []groupKey
	groupAliases := map[groupKey][]string{}
	for _, ps := range table.Statements {
		for _, c := range ps.Columns {
			gk := groupKey{kind: classifyColumn(c.Key), classID: c.Key.ClassID}
			if gk.kind == Intersection || gk.kind == Distance {
				gk.intersecting = c.Key.IntersectingClass
			}
			if _, seen := groupAliases[gk]; !seen {
				order = append(order, gk)
			}
			groupAliases[gk] = append(groupAliases[gk], c.Alias)
		}
	}

	var tables []*Table
	for _, gk := range order {
		aliases := groupAliases[gk]
		t := &Table{Kind: gk.kind, ClassID: gk.classID, IntersectingClass: gk.intersecting}
		for _, al := range aliases {
			t.Headers = append(t.Headers, displayNameFor(byAlias[al]))
		}

		align := newAligner()
		for _, r := range rows {
			if r.ClassID != gk.classID {
				continue
			}
			key := uint64(r.ObjectID)
			if gk.kind == Intersection && r.HasParent {
				key = uint64(r.ParentObjectID)
			}
			row, tone := align.rowFor(key)
			for len(t.Rows) <= row {
				t.Rows = append(t.Rows, make([]Cell, len(aliases)))
				t.ObjectIDColumn = append(t.ObjectIDColumn, Cell{})
				t.ParentObjectColumn = append(t.ParentObjectColumn, Cell{})
			}
			for i, al := range aliases {
				v, ok := r.Values[al]
				t.Rows[row][i] = Cell{Value: v, HasValue: ok, RowTone: tone}
			}
			t.ObjectIDColumn[row] = Cell{ObjectID: r.ObjectID, HasObject: true, RowTone: tone}
			if gk.kind == Intersection && r.HasParent {
				t.ParentObjectColumn[row] = Cell{ObjectID: r.ParentObjectID, HasObject: true, RowTone: tone}
			}
		}
		tables = append(tables, t)
	}
	return tables
}

// displayNameFor mirrors query's internal displayName rule without
// depending on its unexported form: a caller-supplied name if present,
// otherwise the measure's canonical SQL-ish name.
func displayNameFor(k query.ColumnKey) string {
	if k.DisplayName != "" {
		return k.DisplayName
	}
	return enums.MeasurementSQLName(k.Measure, true)
}

// IntersectionFillerRows returns the number of filler rows an
// INTERSECTION table must emit for one parent, equal to the parent's own
// count measurement (spec §4.8's "Intersecting parent column").
func IntersectionFillerRows(parentCount int) int {
	if parentCount < 0 {
		return 0
	}
	return parentCount
}
