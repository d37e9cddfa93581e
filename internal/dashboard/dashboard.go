// Package dashboard implements the row-alignment engine (spec §4.8,
// C13): it categorizes query columns into NORMAL, INTERSECTION,
// DISTANCE, and COLOC tables and aligns their rows by parent object id
// or tracking id so a multi-class export stays visually grouped.
package dashboard

import (
	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/ids"
	"github.com/joda-analytics/imagec-engine/internal/query"
)

// Kind categorizes a dashboard table by the relationship its rows are
// aligned on (spec §4.8's "Dashboard.convert").
type Kind int

const (
	Normal Kind = iota
	Intersection
	Distance
	Coloc
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "NORMAL"
	case Intersection:
		return "INTERSECTION"
	case Distance:
		return "DISTANCE"
	case Coloc:
		return "COLOC"
	default:
		return "NORMAL"
	}
}

// Cell is one dashboard table cell: a value plus the alternating row
// tone it was assigned (spec §4.8: "alternating row color toggles per
// new parent group").
type Cell struct {
	Value     float64
	HasValue  bool
	RowTone   int // 0 or 1, toggling per new row key (object, parent or tracking id)
	ObjectID  ids.ObjectID
	HasObject bool
}

// Table is one dashboard-rendered table: a class (or class pair, for
// DISTANCE/INTERSECTION), its kind, headers, and aligned rows.
type Table struct {
	Kind               Kind
	ClassID            enums.ClassID
	IntersectingClass  enums.ClassID
	Headers            []string
	Rows               [][]Cell
	ObjectIDColumn     []Cell // leftmost object-id column, image view only
	ParentObjectColumn []Cell // INTERSECTION's parent-id column, image view only
}

// classifyColumn maps a ColumnKey's measure to the dashboard Kind its
// owning table should use.
func classifyColumn(k query.ColumnKey) Kind {
	switch enums.TypeOf(k.Measure) {
	case enums.MeasureTypeIntersection:
		return Intersection
	case enums.MeasureTypeDistance, enums.MeasureTypeDistanceID:
		return Distance
	default:
		return Normal
	}
}

// aligner tracks the row each parent/tracking id has been assigned, and
// the alternating tone that goes with it (spec §4.8's "Row alignment
// rules": "the first occurrence fixes the row, later occurrences reuse
// it... alternating row color toggles per new parent group").
type aligner struct {
	rowOf     map[uint64]int
	toneOfRow []int
	lastTone  int
}

func newAligner() *aligner {
	return &aligner{rowOf: map[uint64]int{}, lastTone: 1}
}

// rowFor returns the row index and tone for key, allocating both on
// first sight and reusing them on every later occurrence.
func (a *aligner) rowFor(key uint64) (row, tone int) {
	if r, ok := a.rowOf[key]; ok {
		return r, a.toneOfRow[r]
	}
	row = len(a.toneOfRow)
	a.lastTone ^= 1
	a.toneOfRow = append(a.toneOfRow, a.lastTone)
	a.rowOf[key] = row
	return row, a.lastTone
}

// rows reports how many distinct rows have been allocated so far.
func (a *aligner) rows() int {
	return len(a.toneOfRow)
}
