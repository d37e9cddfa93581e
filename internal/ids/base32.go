package ids

import "encoding/base32"

// objectIDEncoding is a Crockford-style unpadded alphabet, matching the
// flavor of compact, human-typeable id rendering used by the original
// implementation's base32.hpp (ambiguous-looking characters I, L, O, U
// are dropped in favor of visually distinct substitutes).
var objectIDEncoding = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// Base32 renders an ObjectID for the dashboard's leftmost id column
// (spec §4.8).
func (id ObjectID) Base32() string {
	var buf [8]byte
	buf[0] = byte(id >> 56)
	buf[1] = byte(id >> 48)
	buf[2] = byte(id >> 40)
	buf[3] = byte(id >> 32)
	buf[4] = byte(id >> 24)
	buf[5] = byte(id >> 16)
	buf[6] = byte(id >> 8)
	buf[7] = byte(id)
	return objectIDEncoding.EncodeToString(buf[:])
}
