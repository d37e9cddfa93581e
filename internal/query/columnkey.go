// Package query implements the ResultingTable / PreparedStatement query
// layer (spec §4.7, C11): turning an ordered set of column requests into
// deduplicated SQL statements grouped by QueryKey, one per (classId, z,
// t, distanceToClass).
package query

import (
	"math/big"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// ClassNone marks an intersecting/distance-target slot that a column
// doesn't use (spec §3: "ClassNone is zero so that columns with no
// intersecting/distance target sort first").
const ClassNone = enums.ClassNone

// ColumnKey identifies one result-table column's data source: which
// class, which measure/stat, which channel (for intensity), which
// intersecting/target class (for intersection/distance), and which
// z/t stack slice it reads (spec §4.2's ColumnKey listing).
type ColumnKey struct {
	ClassID           enums.ClassID
	Measure           enums.Measurement
	Stat              enums.Stats
	CrossChannelC     int32
	IntersectingClass enums.ClassID
	ZStack            int32
	TStack            int32

	// DisplayName is excluded from equality and ordering (spec §4.2:
	// "Equality ignores display names").
	DisplayName string
}

// Equal reports whether a and b identify the same data source,
// ignoring DisplayName (spec §4.2, exercised by §8 property 5's
// column-dedup rule). Uses go-cmp so the ignore-rule is expressed
// declaratively rather than by hand-listing fields twice.
func Equal(a, b ColumnKey) bool {
	return cmp.Equal(a, b, cmpopts.IgnoreFields(ColumnKey{}, "DisplayName"))
}

// Composite packs the ColumnKey into the 128-bit sort key from spec
// §4.2: (classId<<112)|(tStack<<80)|(zStack<<48)|(measure<<40)|
// (stat<<32)|(crossChannelC<<16)|intersectingClass.
func (k ColumnKey) Composite() *big.Int {
	v := big.NewInt(int64(k.ClassID))
	v.Lsh(v, 32)
	v.Or(v, big.NewInt(int64(uint32(k.TStack))))
	v.Lsh(v, 32)
	v.Or(v, big.NewInt(int64(uint32(k.ZStack))))
	v.Lsh(v, 8)
	v.Or(v, big.NewInt(int64(k.Measure)&0xFF))
	v.Lsh(v, 8)
	v.Or(v, big.NewInt(int64(k.Stat)&0xFF))
	v.Lsh(v, 16)
	v.Or(v, big.NewInt(int64(uint16(k.CrossChannelC))))
	v.Lsh(v, 16)
	v.Or(v, big.NewInt(int64(k.IntersectingClass)))
	return v
}

// Less orders two ColumnKeys by their composite sort key, giving a
// stable column order for ResultingTable headers (spec §4.2).
func Less(a, b ColumnKey) bool {
	return a.Composite().Cmp(b.Composite()) < 0
}

// QueryKey groups column requests that can share one SQL statement:
// same class, z, t, and (for distance columns) the same target class
// (spec §4.2: "Distance measures create one statement per distance
// pair; all others share per-(classId,z,t) statements").
type QueryKey struct {
	ClassID          enums.ClassID
	ZStack           int32
	TStack           int32
	DistanceToClass  enums.ClassID
	HasDistanceClass bool
}

// QueryKeyFor derives the QueryKey a ColumnKey's statement would live
// under.
func QueryKeyFor(k ColumnKey) QueryKey {
	qk := QueryKey{ClassID: k.ClassID, ZStack: k.ZStack, TStack: k.TStack}
	if enums.IsDistance(k.Measure) {
		qk.DistanceToClass = k.IntersectingClass
		qk.HasDistanceClass = true
	}
	return qk
}
