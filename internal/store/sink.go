package store

import (
	"context"
	"fmt"

	"github.com/joda-analytics/imagec-engine/internal/jobrunner"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// TileSink adapts a DB into jobrunner.Sink: every completed tile opens
// one ObjectAppender, writes every ROI produced for that tile, and
// commits (spec §4.3: "bulk appends... for one tile are enclosed by
// appender open/close and happen as one unit; failures throw and abort
// the tile").
type TileSink struct {
	DB *DB
	// ImageIDFor resolves a jobrunner image path to the store's 64-bit
	// image id, assigned by prepareImages before the job starts (spec
	// §4.3's lifecycle: "images/groups are inserted by prepareImages
	// before any pipeline runs").
	ImageIDFor func(imagePath string) (uint64, error)
}

var _ jobrunner.Sink = (*TileSink)(nil)

// AppendTile implements jobrunner.Sink.
func (s *TileSink) AppendTile(_ context.Context, result jobrunner.TileResult) error {
	imageID, err := s.ImageIDFor(result.ImagePath)
	if err != nil {
		return fmt.Errorf("store: resolve image id for %s: %w", result.ImagePath, err)
	}

	appender, err := s.DB.NewObjectAppender()
	if err != nil {
		return fmt.Errorf("store: open appender: %w", err)
	}

	if result.Objects != nil {
		for _, roi := range result.Objects.All() {
			if err := appender.AppendROI(imageID, roi); err != nil {
				appender.Abort()
				return err
			}
		}
	}

	if err := appender.Close(); err != nil {
		return err
	}
	return s.DB.markPlaneValid(imageID, result.Plane)
}

// markPlaneValid OR-s in the validity bit for the tile's plane (spec
// §4.6 lifecycle: "validity flags are OR-ed in during and after
// processing").
func (db *DB) markPlaneValid(imageID uint64, plane omeinfo.Plane) error {
	_, err := db.Exec(`INSERT INTO image_planes (image_id, stack_c, stack_z, stack_t, validity)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(image_id, stack_c, stack_z, stack_t) DO UPDATE SET validity = validity | 1`,
		int64(imageID), plane.C, plane.Z, plane.T)
	if err != nil {
		return fmt.Errorf("store: mark plane valid for image %d: %w", imageID, err)
	}
	return nil
}
