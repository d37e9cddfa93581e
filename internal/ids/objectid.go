package ids

// ObjectID is the stable per-object hash (spec §3: "64-bit FNV-1a-like
// hashes stable across runs for the same object").
type ObjectID uint64

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// NewObjectID derives a stable ObjectID from the identifying coordinates
// of a detected ROI: the owning image, class, plane, and tile-local
// origin. Feeding the same coordinates on a re-run produces the same id,
// satisfying spec §3's stability requirement without needing a
// database round-trip to allocate one.
func NewObjectID(imageID uint64, classID uint16, stackC, stackZ, stackT int32, tileX, tileY int32, seq uint32) ObjectID {
	h := uint64(fnvOffset64)
	mix := func(v uint64) {
		for i := 0; i < 8; i++ {
			h ^= (v >> (8 * uint(i))) & 0xFF
			h *= fnvPrime64
		}
	}
	mix(imageID)
	mix(uint64(classID))
	mix(uint64(uint32(stackC)))
	mix(uint64(uint32(stackZ)))
	mix(uint64(uint32(stackT)))
	mix(uint64(uint32(tileX)))
	mix(uint64(uint32(tileY)))
	mix(uint64(seq))
	return ObjectID(h)
}
