// Package jobrunner implements the scheduler (spec §4.3, C8): for each
// image it partitions into tiles, for each tile it runs every pipeline,
// and it coordinates which of the three axes (images, tiles, pipelines)
// gets the job's parallelism budget.
package jobrunner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joda-analytics/imagec-engine/internal/command"
	"github.com/joda-analytics/imagec-engine/internal/imageproc"
	"github.com/joda-analytics/imagec-engine/internal/logging"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
	"github.com/joda-analytics/imagec-engine/internal/pipelineinit"
	"github.com/joda-analytics/imagec-engine/internal/settings"
)

// Axis names which dimension the runner parallelizes across for one job
// (spec §4.3: "one axis of parallelism active per job").
type Axis int

const (
	AxisImages Axis = iota
	AxisTiles
	AxisPipelines
)

func (a Axis) String() string {
	switch a {
	case AxisImages:
		return "images"
	case AxisTiles:
		return "tiles"
	default:
		return "pipelines"
	}
}

// Image is one input image the runner processes.
type Image struct {
	Path   string
	Series int32
}

// JobSpec is everything one Run call needs (spec §4.3/§4.2).
type JobSpec struct {
	Images    []Image
	Pipelines []*command.Pipeline
	Project   *settings.ProjectSettings

	TileWidth, TileHeight int32
	ZStart, ZEnd          int32
	TStart, TEnd          int32

	// AvailableCores/AvailableRAMBytes are the resource budget the axis
	// selection and max-in-flight-tiles computation use (spec §4.3's
	// C/R). Zero means "use runtime.NumCPU()" / "unbounded".
	AvailableCores    int
	AvailableRAMBytes int64
}

// TileResult is what one tile produces, handed to the Sink once every
// pipeline has run against it (spec §4.3: "all writes for a given tile
// complete before the tile is marked done and appended").
type TileResult struct {
	ImagePath string
	Plane     omeinfo.Plane
	Tile      omeinfo.Tile
	Objects   *imageproc.ObjectList
	Err       error
}

// Sink is the bulk-append boundary the runner hands completed tiles to
// (spec §4.6: "bulk-append path for objects/measurements... enclosed by
// appender open/close... happen as one unit; failures throw and abort
// the tile"). internal/store implements this against the database.
type Sink interface {
	AppendTile(ctx context.Context, result TileResult) error
}

// Runner executes JobSpecs against a reader and a sink (spec §4.3, C8).
type Runner struct {
	Reader omeinfo.Reader
	Sink   Sink

	stopped atomic.Bool
}

// NewRunner constructs a Runner bound to an image reader and a result
// sink.
func NewRunner(reader omeinfo.Reader, sink Sink) *Runner {
	return &Runner{Reader: reader, Sink: sink}
}

// Stop sets the cooperative stop flag (spec §4.3/§5: "a cooperative
// stop flag is polled between tiles and between pipelines... workers
// drain their current tile and exit").
func (r *Runner) Stop() { r.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (r *Runner) Stopped() bool { return r.stopped.Load() }

// Run executes job against the runner's reader/sink. It selects the
// parallelism axis once for the whole job (spec §4.3) and returns the
// first tile-level error encountered, if the caller didn't already
// choose to keep going (tile failures are logged and otherwise
// swallowed per spec §4.5 — only Sink/reader errors on the "done" path
// propagate).
func (r *Runner) Run(ctx context.Context, job JobSpec) error {
	init := pipelineinit.NewInitializer(job.TileWidth, job.TileHeight)

	// Representative tile/pipeline counts for axis selection: spec §4.3
	// compares #images, #tiles, #pipelines as job-level counts, so the
	// first image's grid stands in for "the" tile count (images in one
	// job are expected to share a tile configuration).
	nTiles := 1
	var info omeinfo.Info
	if len(job.Images) > 0 {
		var err error
		info, err = r.Reader.ReadInfo(job.Images[0].Path, job.Images[0].Series)
		if err != nil {
			return fmt.Errorf("jobrunner: read info for %s: %w", job.Images[0].Path, err)
		}
		grid := pipelineinit.ComputeTileGrid(info, job.TileWidth, job.TileHeight)
		nTiles = int(grid.NTiles())
	}
	nPipelines := len(job.Pipelines)

	axis := selectAxis(len(job.Images), nTiles, nPipelines)
	maxInFlight := computeMaxInFlight(job.AvailableCores, job.AvailableRAMBytes, job.TileWidth, job.TileHeight, info.NrChannels(), info.BitsPerSample)

	logging.Logf("jobrunner: axis=%s maxInFlight=%d images=%d tiles/image=%d pipelines=%d", axis, maxInFlight, len(job.Images), nTiles, nPipelines)

	imageSem := boundedSemaphore(1)
	tileSem := boundedSemaphore(1)
	pipelineSem := boundedSemaphore(1)
	switch axis {
	case AxisImages:
		imageSem = boundedSemaphore(maxInFlight)
	case AxisTiles:
		tileSem = boundedSemaphore(maxInFlight)
	default:
		pipelineSem = boundedSemaphore(maxInFlight)
	}

	var firstErr error
	var mu sync.Mutex
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}

	var wg sync.WaitGroup
	for _, img := range job.Images {
		if r.Stopped() {
			break
		}
		img := img
		imageSem.acquire()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer imageSem.release()
			if err := r.runImage(ctx, init, img, job, tileSem, pipelineSem); err != nil {
				recordErr(err)
			}
		}()
	}
	wg.Wait()
	return firstErr
}

func (r *Runner) runImage(ctx context.Context, init *pipelineinit.Initializer, img Image, job JobSpec, tileSem, pipelineSem *semaphore) error {
	info, err := r.Reader.ReadInfo(img.Path, img.Series)
	if err != nil {
		return fmt.Errorf("jobrunner: read info for %s: %w", img.Path, err)
	}
	plan := init.PlanFor(info, settings.PipelineSpec{}, job.ZStart, job.ZEnd, job.TStart, job.TEnd)
	runCache := imageproc.NewRunCache()

	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex
	recordErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}

	for tx := int32(0); tx < plan.Grid.NTilesX; tx++ {
		for ty := int32(0); ty < plan.Grid.NTilesY; ty++ {
			if r.Stopped() {
				break
			}
			tile := omeinfo.Tile{X: tx, Y: ty}
			tileSem.acquire()
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer tileSem.release()
				if err := r.runTile(ctx, img, info, plan, tile, job, runCache, pipelineSem); err != nil {
					recordErr(err)
				}
			}()
		}
	}
	wg.Wait()
	return firstErr
}

func (r *Runner) runTile(ctx context.Context, img Image, info omeinfo.Info, plan pipelineinit.Plan, tile omeinfo.Tile, job JobSpec, runCache *imageproc.RunCache, pipelineSem *semaphore) error {
	for z := plan.ZRange.Start; z <= plan.ZRange.End; z++ {
		for t := plan.TRange.Start; t <= plan.TRange.End; t++ {
			// plane.C is a placeholder here: each pipeline loads its own
			// plane below using its own bound channel (spec §4.5's
			// "pipelineSetup carries... a bound C-channel index").
			plane := omeinfo.Plane{C: plan.BoundChannel, Z: z, T: t}
			pctx := imageproc.NewContext(job.Project, img.Path, info.Width, info.Height, plane, tile, runCache)

			if r.Stopped() {
				return nil
			}

			var wg sync.WaitGroup
			for _, pipeline := range job.Pipelines {
				if r.Stopped() {
					break
				}
				pipeline := pipeline
				pipelineSem.acquire()
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer pipelineSem.release()
					pipelinePlane := omeinfo.Plane{C: pipeline.Setup.BoundChannel, Z: z, T: t}
					matrix, err := r.Reader.LoadTile(img.Path, pipelinePlane, img.Series, 0, tile)
					if err != nil {
						logging.Logf("jobrunner: load tile %s plane=%+v tile=%+v: %v", img.Path, pipelinePlane, tile, err)
						return
					}
					if _, err := pipeline.Run(pctx, matrix); err != nil {
						logging.Logf("jobrunner: %v", err)
					}
				}()
			}
			wg.Wait()

			result := TileResult{ImagePath: img.Path, Plane: plane, Tile: tile, Objects: pctx.Objects}
			if err := r.Sink.AppendTile(ctx, result); err != nil {
				return fmt.Errorf("jobrunner: append tile %s plane=%+v tile=%+v: %w", img.Path, plane, tile, err)
			}
		}
	}
	return nil
}

// selectAxis implements spec §4.3's "largest axis wins" rule.
func selectAxis(nImages, nTiles, nPipelines int) Axis {
	if nImages >= maxInt(nTiles, nPipelines) {
		return AxisImages
	}
	if nTiles > nPipelines {
		return AxisTiles
	}
	return AxisPipelines
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// computeMaxInFlight implements spec §4.3's `T = min(C, floor(R/M))`,
// where `M` is the byte cost of one in-flight tile (tile area × channels
// × bits / 8).
func computeMaxInFlight(cores int, ramBytes int64, tileWidth, tileHeight, channels, bitsPerSample int32) int {
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	if ramBytes <= 0 {
		return cores
	}
	bytesPerTile := int64(tileWidth) * int64(tileHeight) * int64(maxInt32(channels, 1)) * int64(maxInt32(bitsPerSample, 8)) / 8
	if bytesPerTile <= 0 {
		return cores
	}
	byRAM := int(ramBytes / bytesPerTile)
	if byRAM <= 0 {
		byRAM = 1
	}
	if byRAM < cores {
		return byRAM
	}
	return cores
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
