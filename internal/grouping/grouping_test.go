package grouping

import (
	"fmt"
	"sync"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/stretchr/testify/require"
)

func TestGroupAssignmentIdempotence(t *testing.T) {
	a, err := NewAssigner(enums.GroupByDirectory, "")
	require.NoError(t, err)

	first := a.GetGroupForFilename("/plates/p1/A01_1.tif")
	second := a.GetGroupForFilename("/plates/p1/A01_2.tif")
	require.Equal(t, first.GroupID, second.GroupID)
	require.Equal(t, first.WellPosX, second.WellPosX)
	require.Equal(t, first.WellPosY, second.WellPosY)
}

func TestGroupAssignmentIdempotenceConcurrent(t *testing.T) {
	a, err := NewAssigner(enums.GroupByDirectory, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]GroupInfo, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.GetGroupForFilename("/plates/p1/A01_x.tif")
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		require.Equal(t, results[0].GroupID, r.GroupID)
		require.Equal(t, results[0].WellPosX, r.WellPosX)
		require.Equal(t, results[0].WellPosY, r.WellPosY)
	}
}

func TestWellAllocationDistinctWithinGrid(t *testing.T) {
	a, err := NewAssigner(enums.GroupByDirectory, "")
	require.NoError(t, err)

	seen := map[[2]uint32]bool{}
	for i := 0; i < 384; i++ {
		info := a.GetGroupForFilename(fmt.Sprintf("/plates/group-%d/img.tif", i))
		key := [2]uint32{info.WellPosX, info.WellPosY}
		require.False(t, seen[key], "duplicate well position %v", key)
		seen[key] = true
		require.GreaterOrEqual(t, info.WellPosX, uint32(1))
		require.LessOrEqual(t, info.WellPosX, uint32(24))
		require.GreaterOrEqual(t, info.WellPosY, uint32(1))
		require.LessOrEqual(t, info.WellPosY, uint32(16))
	}
}

func TestFilenameRegexFullCapture(t *testing.T) {
	a, err := NewAssigner(enums.GroupByFilenameRegex, `^([A-Z])(\d+)_(\d+)_(\d+)\.tif$`)
	require.NoError(t, err)

	info := a.GetGroupForFilename("A01_03_7.tif")
	require.Equal(t, "A", info.GroupName)
	require.Equal(t, uint32(1), info.WellPosY)
	require.Equal(t, uint32(3), info.WellPosX)
	require.Equal(t, uint32(7), info.ImageIdx)
}

func TestFilenameRegexNoMatchFallsBack(t *testing.T) {
	a, err := NewAssigner(enums.GroupByFilenameRegex, `^([A-Z])(\d+)_(\d+)_(\d+)\.tif$`)
	require.NoError(t, err)

	info := a.GetGroupForFilename("not-matching.png")
	require.Equal(t, "", info.GroupName)
}

func TestInvalidRegexRejected(t *testing.T) {
	_, err := NewAssigner(enums.GroupByFilenameRegex, `(unterminated`)
	require.Error(t, err)
}
