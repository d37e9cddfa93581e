package settings

import (
	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/ids"
)

// ColumnIdx is a result table's column position, distinct from the
// ColumnKey that identifies what the column measures — two ColumnIdx
// values can map to equal ColumnKeys (spec §8 property 5: dedup).
type ColumnIdx struct {
	ColIdx int32
}

// ColumnName carries the caller-facing display names for a column,
// excluded from ColumnKey equality (spec §3: "Equality ignores display
// names").
type ColumnName struct {
	ClassName string
	MeasureName string
	IntersectingClassName string
}

// ColumnKey identifies what a result column measures (spec §3 derived
// keys). Two ColumnKeys are equal iff every field below is equal;
// ColumnName is carried separately and never participates in equality.
type ColumnKey struct {
	ClassID           enums.ClassID
	Measure           enums.Measurement
	Stat              enums.Stats
	CrossChannelC      int32
	IntersectingClass enums.ClassID
	ZStack            int32
	TStack            int32
	Names             ColumnName
}

// Equal reports whether k and other identify the same measurement,
// ignoring Names per spec §3.
func (k ColumnKey) Equal(other ColumnKey) bool {
	return k.ClassID == other.ClassID &&
		k.Measure == other.Measure &&
		k.Stat == other.Stat &&
		k.CrossChannelC == other.CrossChannelC &&
		k.IntersectingClass == other.IntersectingClass &&
		k.ZStack == other.ZStack &&
		k.TStack == other.TStack
}

// OrderKey returns the 128-bit composite key spec §3 uses to order
// columns stably.
func (k ColumnKey) OrderKey() ids.Key128 {
	return ids.ColumnOrderKey(k.ClassID, k.TStack, k.ZStack, k.Measure, k.Stat, k.CrossChannelC, k.IntersectingClass)
}

// ResultsSettings is an ordered map ColumnIdx -> ColumnKey (spec §4.7):
// the input to ResultingTable.
type ResultsSettings struct {
	Columns  []ColumnEntry
	TStackMode enums.TStackMode
	TStack     int32
	ExcludeInvalid bool
}

// ColumnEntry pairs a ColumnIdx with its ColumnKey, preserving insertion
// order (Go maps don't, and column order is caller-visible).
type ColumnEntry struct {
	Idx ColumnIdx
	Key ColumnKey
}

// AddColumn appends a column request at the next free index.
func (r *ResultsSettings) AddColumn(key ColumnKey) ColumnIdx {
	idx := ColumnIdx{ColIdx: int32(len(r.Columns))}
	r.Columns = append(r.Columns, ColumnEntry{Idx: idx, Key: key})
	return idx
}
