package ids

import (
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/stretchr/testify/require"
)

func TestNewObjectIDStable(t *testing.T) {
	a := NewObjectID(42, 3, 0, 0, 0, 1, 2, 5)
	b := NewObjectID(42, 3, 0, 0, 0, 1, 2, 5)
	require.Equal(t, a, b)

	c := NewObjectID(42, 3, 0, 0, 0, 1, 2, 6)
	require.NotEqual(t, a, c)
}

func TestBase32RoundTripDistinct(t *testing.T) {
	ids := []ObjectID{0, 1, 12345, NewObjectID(1, 1, 0, 0, 0, 0, 0, 0)}
	seen := map[string]bool{}
	for _, id := range ids {
		s := id.Base32()
		require.NotEmpty(t, s)
		require.False(t, seen[s], "duplicate base32 rendering %q", s)
		seen[s] = true
	}
}

func TestColumnOrderKeyOrdering(t *testing.T) {
	low := ColumnOrderKey(1, 0, 0, enums.MeasurementCount, enums.StatsOff, 0, enums.ClassNone)
	high := ColumnOrderKey(2, 0, 0, enums.MeasurementCount, enums.StatsOff, 0, enums.ClassNone)
	require.True(t, low.Less(high))
	require.False(t, high.Less(low))

	same := ColumnOrderKey(1, 0, 0, enums.MeasurementCount, enums.StatsOff, 0, enums.ClassNone)
	require.True(t, low.Equal(same))
}

func TestColumnOrderKeyDistanceFirstOrdering(t *testing.T) {
	// Spec's note in original_source: "we want NONE to be first" for
	// distance-less columns, preserved by the intersectingClass field
	// never overflowing into the classId ordering bits.
	none := ColumnOrderKey(1, 0, 0, enums.MeasurementAreaSize, enums.StatsAvg, 0, enums.ClassNone)
	withDistance := ColumnOrderKey(1, 0, 0, enums.MeasurementAreaSize, enums.StatsAvg, 0, 5)
	require.True(t, none.Less(withDistance))
}
