// Package ids provides the stable identifiers used throughout the store
// and query layers: the 128-bit composite column-ordering key, the
// 64-bit per-object hash, and a base32 rendering for display.
package ids

import "github.com/joda-analytics/imagec-engine/internal/enums"

// Key128 is a 128-bit value used to order ColumnKeys and QueryKeys
// stably (spec §3: "A 128-bit-wide composite sort key... orders column
// keys stably"). It is represented as two uint64 words, high:low, since
// Go has no native 128-bit integer type — the same two-word layout the
// original C++ stdi::uint128_t used.
type Key128 struct {
	Hi, Lo uint64
}

// Less reports whether k sorts before other.
func (k Key128) Less(other Key128) bool {
	if k.Hi != other.Hi {
		return k.Hi < other.Hi
	}
	return k.Lo < other.Lo
}

// Equal reports whether k and other represent the same value.
func (k Key128) Equal(other Key128) bool {
	return k.Hi == other.Hi && k.Lo == other.Lo
}

// ColumnOrderKey packs (classId, tStack, zStack, measure, stat,
// crossChannelC, intersectingClass) into the 128-bit composite ordering
// key from spec §3:
//
//	(classId<<112)|(tStack<<80)|(zStack<<48)|(measure<<40)|(stat<<32)|(crossChannelC<<16)|intersectingClass
//
// zStack's 32-bit field straddles the Hi/Lo word boundary (bits 48-79 of
// the conceptual 128-bit value): its low 16 bits land in Lo, its high 16
// bits land in Hi.
func ColumnOrderKey(classID enums.ClassID, tStack, zStack int32, measure enums.Measurement, stat enums.Stats, crossChannelC int32, intersectingClass enums.ClassID) Key128 {
	z := uint64(uint32(zStack))
	hi := uint64(classID)<<48 | uint64(uint32(tStack))<<16 | (z >> 16)
	lo := (z&0xFFFF)<<48 |
		uint64(uint8(measure))<<40 |
		uint64(uint8(stat))<<32 |
		uint64(uint16(crossChannelC))<<16 |
		uint64(intersectingClass)
	return Key128{Hi: hi, Lo: lo}
}
