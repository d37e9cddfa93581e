package dashboard

import (
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/ids"
	"github.com/joda-analytics/imagec-engine/internal/query"
)

func buildNormalTable(t *testing.T) *query.ResultingTable {
	t.Helper()
	requests := []query.Request{
		{ColumnIdx: 0, Key: query.ColumnKey{ClassID: 1, Measure: enums.MeasurementAreaSize, Stat: enums.StatsOff}},
	}
	return query.Build(requests, enums.TStackIndividual, query.RollupImage)
}

func TestConvertNormalAlignsOneRowPerObject(t *testing.T) {
	table := buildNormalTable(t)
	alias := table.Statements[0].Columns[0].Alias
	rows := []ObjectRow{
		{ObjectID: 1, ClassID: 1, Values: map[string]float64{alias: 10}},
		{ObjectID: 2, ClassID: 1, Values: map[string]float64{alias: 20}},
	}
	tables := Convert(rows, table)
	if len(tables) != 1 {
		t.Fatalf("expected one NORMAL table, got %d", len(tables))
	}
	normal := tables[0]
	if normal.Kind != Normal {
		t.Fatalf("expected NORMAL kind, got %v", normal.Kind)
	}
	if len(normal.Rows) != 2 {
		t.Fatalf("expected two rows, got %d", len(normal.Rows))
	}
	if normal.Rows[0][0].RowTone == normal.Rows[1][0].RowTone {
		t.Fatalf("expected alternating tone between two distinct objects")
	}
}

func TestConvertIntersectionGroupsChildrenUnderParentRow(t *testing.T) {
	requests := []query.Request{
		{ColumnIdx: 0, Key: query.ColumnKey{ClassID: 1, Measure: enums.MeasurementIntersecting, Stat: enums.StatsSum, IntersectingClass: 2}},
	}
	table := query.Build(requests, enums.TStackIndividual, query.RollupGroup)
	alias := table.Statements[0].Columns[0].Alias

	parent := ids.ObjectID(100)
	rows := []ObjectRow{
		{ObjectID: 1, ClassID: 1, ParentObjectID: parent, HasParent: true, Values: map[string]float64{alias: 1}},
		{ObjectID: 2, ClassID: 1, ParentObjectID: parent, HasParent: true, Values: map[string]float64{alias: 1}},
	}
	tables := Convert(rows, table)
	if len(tables) != 1 || tables[0].Kind != Intersection {
		t.Fatalf("expected one INTERSECTION table, got %+v", tables)
	}
	if len(tables[0].Rows) != 1 {
		t.Fatalf("expected both children to collapse onto the parent's single row, got %d rows", len(tables[0].Rows))
	}
	if tables[0].ParentObjectColumn[0].ObjectID != parent {
		t.Fatalf("expected parent object id column to carry the shared parent id")
	}
}

func TestConvertColocAlignsSharedTrackingIDAcrossClasses(t *testing.T) {
	sourceA := ColocSource{
		ClassID: 1, Headers: []string{"area"}, Aliases: []string{"area"},
		Rows: []ObjectRow{
			{ObjectID: 1, TrackingID: 42, HasTracking: true, Values: map[string]float64{"area": 5}},
			{ObjectID: 2, TrackingID: 7, HasTracking: true, Values: map[string]float64{"area": 9}},
		},
	}
	sourceB := ColocSource{
		ClassID: 2, Headers: []string{"area"}, Aliases: []string{"area"},
		Rows: []ObjectRow{
			{ObjectID: 3, TrackingID: 42, HasTracking: true, Values: map[string]float64{"area": 6}},
		},
	}
	tables := ConvertColoc([]ColocSource{sourceA, sourceB})
	if len(tables) != 2 {
		t.Fatalf("expected one table per source class, got %d", len(tables))
	}
	if len(tables[0].Rows) != 2 || len(tables[1].Rows) != 2 {
		t.Fatalf("expected both tables to share a 2-row alignment (tracking ids 42 and 7)")
	}

	// tracking id 42 appears in both classes: same row, same tone.
	rowA42 := -1
	for i, c := range tables[0].ObjectIDColumn {
		if c.ObjectID == 1 {
			rowA42 = i
		}
	}
	rowB42 := -1
	for i, c := range tables[1].ObjectIDColumn {
		if c.ObjectID == 3 {
			rowB42 = i
		}
	}
	if rowA42 == -1 || rowB42 == -1 {
		t.Fatalf("expected to find tracking id 42's row in both tables")
	}
	if rowA42 != rowB42 {
		t.Fatalf("expected tracking id 42 to land on the same row in both classes, got %d vs %d", rowA42, rowB42)
	}
	if tables[0].Rows[rowA42][0].RowTone != tables[1].Rows[rowB42][0].RowTone {
		t.Fatalf("expected shared tracking id rows to carry the same alternating tone")
	}
}

func TestIntersectionFillerRowsMatchesParentCount(t *testing.T) {
	if got := IntersectionFillerRows(3); got != 3 {
		t.Fatalf("expected 3 filler rows, got %d", got)
	}
	if got := IntersectionFillerRows(-1); got != 0 {
		t.Fatalf("expected negative parent count to floor at 0, got %d", got)
	}
}
