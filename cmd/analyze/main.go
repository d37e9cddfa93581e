// Command analyze runs one batch analysis job end to end: it loads a
// project settings file, discovers images under each plate's image
// folder, prepares them in the store, builds each pipeline's concrete
// command.Pipeline, and hands everything to jobrunner.Runner.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/joda-analytics/imagec-engine/internal/command"
	"github.com/joda-analytics/imagec-engine/internal/grouping"
	"github.com/joda-analytics/imagec-engine/internal/imagereader"
	"github.com/joda-analytics/imagec-engine/internal/jobrunner"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
	"github.com/joda-analytics/imagec-engine/internal/pipelinebuild"
	"github.com/joda-analytics/imagec-engine/internal/settings"
	"github.com/joda-analytics/imagec-engine/internal/store"
)

var (
	settingsPath = flag.String("settings", "", "path to a project settings JSON file (settings.ProjectSettings)")
	dbFile       = flag.String("db", "imagec.db", "path to the SQLite database file")
	jobID        = flag.String("job-id", "", "identifier recorded on every inserted image (default: a generated UUID)")
	tileWidth    = flag.Int("tile-width", 2048, "tile width in pixels")
	tileHeight   = flag.Int("tile-height", 2048, "tile height in pixels")
	cores        = flag.Int("cores", 0, "available CPU cores (0 = runtime default)")
	ramBytes     = flag.Int64("ram-bytes", 0, "available RAM budget in bytes (0 = unbounded)")
)

func loadProjectSettings(path string) (*settings.ProjectSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var proj settings.ProjectSettings
	if err := json.Unmarshal(raw, &proj); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	return &proj, nil
}

// imageExtensions are the file types imagereader.Reader can decode.
var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// listImages walks plate's ImageFolder for files the reader can decode,
// matching grouping.Assigner's filename-driven grouping model (spec
// §4.1).
func listImages(plate settings.PlateSetting) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(plate.ImageFolder, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[filepath.Ext(path)] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk image folder %s: %w", plate.ImageFolder, err)
	}
	return paths, nil
}

// buildPipelines resolves every settings.PipelineSpec in proj to a
// concrete *command.Pipeline (settings.PipelineSpec's own doc comment:
// "The concrete command.Pipeline is built from this at job start").
func buildPipelines(proj *settings.ProjectSettings) ([]*command.Pipeline, error) {
	pipelines := make([]*command.Pipeline, 0, len(proj.Pipelines))
	for _, spec := range proj.Pipelines {
		p, err := pipelinebuild.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("build pipeline %q: %w", spec.Name, err)
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

func run() error {
	if *settingsPath == "" {
		return fmt.Errorf("a -settings file is required")
	}

	proj, err := loadProjectSettings(*settingsPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if len(proj.Plates) == 0 {
		return fmt.Errorf("project settings define no plates")
	}

	if *jobID == "" {
		*jobID = uuid.NewString()
	}

	db, err := store.Open(*dbFile)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reader := imagereader.Reader{}
	var nextID atomic.Uint64

	var allPrepared []store.PreparedImage
	for _, plate := range proj.Plates {
		paths, err := listImages(plate)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			log.Printf("plate %q: no images found under %s, skipping", plate.Name, plate.ImageFolder)
			continue
		}

		assigner, err := grouping.NewAssigner(plate.GroupBy, plate.FilenameRegex)
		if err != nil {
			return fmt.Errorf("plate %q: build group assigner: %w", plate.Name, err)
		}

		infos := make([]omeinfo.Info, 0, len(paths))
		readablePaths := make([]string, 0, len(paths))
		for _, p := range paths {
			info, err := reader.ReadInfo(p, 0)
			if err != nil {
				log.Printf("skip %s: read info: %v", p, err)
				continue
			}
			infos = append(infos, info)
			readablePaths = append(readablePaths, p)
		}

		prepared, err := db.PrepareImages(*jobID, int64(plate.PlateID), assigner, infos, readablePaths, func() uint64 {
			return nextID.Add(1)
		})
		if err != nil {
			return fmt.Errorf("plate %q: prepare images: %w", plate.Name, err)
		}
		allPrepared = append(allPrepared, prepared...)
		log.Printf("plate %q: prepared %d image(s)", plate.Name, len(prepared))
	}

	if len(allPrepared) == 0 {
		return fmt.Errorf("no images were prepared across any plate")
	}

	pipelines, err := buildPipelines(proj)
	if err != nil {
		return err
	}
	if len(pipelines) == 0 {
		return fmt.Errorf("project settings define no pipelines")
	}

	idx := store.NewImageIDIndex(allPrepared)
	sink := &store.TileSink{DB: db, ImageIDFor: idx.Lookup}
	runner := jobrunner.NewRunner(reader, sink)

	jobImages := make([]jobrunner.Image, 0, len(allPrepared))
	for _, p := range allPrepared {
		jobImages = append(jobImages, jobrunner.Image{Path: p.Path})
	}

	job := jobrunner.JobSpec{
		Images:            jobImages,
		Pipelines:         pipelines,
		Project:           proj,
		TileWidth:         int32(*tileWidth),
		TileHeight:        int32(*tileHeight),
		ZStart:            0,
		ZEnd:              1,
		TStart:            0,
		TEnd:              1,
		AvailableCores:    *cores,
		AvailableRAMBytes: *ramBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("received interrupt, draining in-flight tiles...")
		runner.Stop()
	}()

	log.Printf("starting job %q: %d image(s), %d pipeline(s)", *jobID, len(jobImages), len(pipelines))
	if err := runner.Run(ctx, job); err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	log.Println("job complete")
	return nil
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
