package jobrunner

import (
	"context"
	"sync"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/command"
	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
	"github.com/joda-analytics/imagec-engine/internal/settings"
	"github.com/stretchr/testify/require"
)

func TestSelectAxisPicksLargestCount(t *testing.T) {
	require.Equal(t, AxisImages, selectAxis(10, 4, 2))
	require.Equal(t, AxisTiles, selectAxis(1, 9, 3))
	require.Equal(t, AxisPipelines, selectAxis(1, 2, 9))
	require.Equal(t, AxisImages, selectAxis(3, 3, 3), "images wins ties per the >= rule")
}

func TestComputeMaxInFlightBoundedByRAM(t *testing.T) {
	// 256x256x1chan x 16bit = 131072 bytes/tile.
	n := computeMaxInFlight(8, 131072*3, 256, 256, 1, 16)
	require.Equal(t, 3, n)
}

func TestComputeMaxInFlightBoundedByCores(t *testing.T) {
	n := computeMaxInFlight(2, 1<<30, 256, 256, 1, 16)
	require.Equal(t, 2, n)
}

type fakeReader struct {
	info omeinfo.Info
}

func (f *fakeReader) ReadInfo(path string, series int32) (omeinfo.Info, error) {
	return f.info, nil
}

func (f *fakeReader) LoadTile(path string, plane omeinfo.Plane, series, resolution int32, tile omeinfo.Tile) (omeinfo.Matrix, error) {
	w, h := f.info.Width, f.info.Height
	return omeinfo.Matrix{Width: w, Height: h, Stride: w, Pix: make([]uint16, w*h)}, nil
}

type recordingSink struct {
	mu      sync.Mutex
	results []TileResult
}

func (s *recordingSink) AppendTile(_ context.Context, r TileResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return nil
}

func TestRunAppendsOneResultPerTile(t *testing.T) {
	reader := &fakeReader{info: omeinfo.Info{Width: 20, Height: 10, NrZStacks: 1, NrTStacks: 1}}
	sink := &recordingSink{}
	runner := NewRunner(reader, sink)

	pipeline := command.NewPipeline("seg", command.Setup{DefaultClassID: enums.ClassID(1)}, []command.Command{
		command.Threshold{Method: command.ThresholdManual, ManualLevel: 1},
	})

	job := JobSpec{
		Images:     []Image{{Path: "/data/a.tif"}},
		Pipelines:  []*command.Pipeline{pipeline},
		Project:    &settings.ProjectSettings{},
		TileWidth:  10,
		TileHeight: 10,
		ZEnd:       1,
		TEnd:       1,
	}

	err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	// 20x10 image, 10x10 tiles -> 2x1 grid -> 2 tiles, 1 z, 1 t.
	require.Len(t, sink.results, 2)
}

func TestStopHaltsBeforeNewImages(t *testing.T) {
	reader := &fakeReader{info: omeinfo.Info{Width: 10, Height: 10, NrZStacks: 1, NrTStacks: 1}}
	sink := &recordingSink{}
	runner := NewRunner(reader, sink)
	runner.Stop()

	job := JobSpec{
		Images:     []Image{{Path: "/data/a.tif"}, {Path: "/data/b.tif"}},
		Pipelines:  nil,
		TileWidth:  10,
		TileHeight: 10,
		ZEnd:       1,
		TEnd:       1,
	}
	err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	require.Empty(t, sink.results)
}
