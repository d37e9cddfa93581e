package store

import (
	"fmt"
	"path/filepath"

	"github.com/joda-analytics/imagec-engine/internal/grouping"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// PreparedImage is one image's resolved identity and group placement,
// ready to be inserted before any pipeline runs (spec §4.3's lifecycle
// rule: "images/groups are inserted by prepareImages before any
// pipeline runs").
type PreparedImage struct {
	ImageID  uint64
	Path     string
	FileName string
	Info     omeinfo.Info
	Group    grouping.GroupInfo
}

// PrepareImages inserts one row per image/group into images,
// images_groups, and image_channels, assigning each a stable 64-bit
// image id. The assigner is shared across the caller's concurrent
// workers (spec §4.1: "protected by a mutex for concurrent
// prepareImages workers") — PrepareImages itself is single-threaded
// over its input slice; callers that want concurrency share one
// *grouping.Assigner across goroutines and call PrepareImages per
// image, synchronized by the database's own transaction semantics.
func (db *DB) PrepareImages(jobID string, plateID int64, assigner *grouping.Assigner, images []omeinfo.Info, paths []string, nextImageID func() uint64) ([]PreparedImage, error) {
	prepared := make([]PreparedImage, 0, len(images))
	for i, info := range images {
		path := paths[i]
		group := assigner.GetGroupForFilename(path)
		imageID := nextImageID()

		if err := db.insertImage(imageID, jobID, path, info); err != nil {
			return nil, err
		}
		if err := db.insertImageGroup(imageID, int64(group.GroupID), int32(group.ImageIdx), plateID, group.GroupName, int32(group.WellPosX), int32(group.WellPosY)); err != nil {
			return nil, err
		}
		for _, ch := range info.Channels {
			if err := db.insertImageChannel(imageID, ch); err != nil {
				return nil, err
			}
		}
		prepared = append(prepared, PreparedImage{ImageID: imageID, Path: path, FileName: filepath.Base(path), Info: info, Group: group})
	}
	return prepared, nil
}

// ImageIDIndex resolves a jobrunner image path back to the store's
// stable image id, built from PrepareImages's return value. It backs
// TileSink.ImageIDFor so callers don't need to maintain their own
// path->id bookkeeping across the run.
type ImageIDIndex struct {
	byPath map[string]uint64
}

// NewImageIDIndex builds the index from PrepareImages's output.
func NewImageIDIndex(prepared []PreparedImage) *ImageIDIndex {
	idx := &ImageIDIndex{byPath: make(map[string]uint64, len(prepared))}
	for _, p := range prepared {
		idx.byPath[p.Path] = p.ImageID
	}
	return idx
}

// Lookup implements the func(string) (uint64, error) shape
// TileSink.ImageIDFor expects.
func (idx *ImageIDIndex) Lookup(path string) (uint64, error) {
	id, ok := idx.byPath[path]
	if !ok {
		return 0, fmt.Errorf("store: no prepared image for path %q", path)
	}
	return id, nil
}

func (db *DB) insertImage(imageID uint64, jobID, path string, info omeinfo.Info) error {
	_, err := db.Exec(`INSERT INTO images (image_id, job_id, file_name, absolute_path, relative_file_path,
		stack_c_count, stack_z_count, stack_t_count, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(image_id) DO NOTHING`,
		int64(imageID), jobID, filepath.Base(path), path, path, info.NrChannels(), info.NrZStacks, info.NrTStacks, info.Width, info.Height)
	if err != nil {
		return fmt.Errorf("store: insert image %d: %w", imageID, err)
	}
	return nil
}

func (db *DB) insertImageGroup(imageID uint64, groupID int64, imageGroupIdx int32, plateID int64, groupName string, posX, posY int32) error {
	if _, err := db.Exec(`INSERT INTO groups (plate_id, group_id, name, pos_on_plate_x, pos_on_plate_y)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(plate_id, group_id) DO NOTHING`,
		plateID, groupID, groupName, posX, posY); err != nil {
		return fmt.Errorf("store: insert group %d: %w", groupID, err)
	}
	if _, err := db.Exec(`INSERT INTO images_groups (image_id, group_id, image_group_idx)
		VALUES (?, ?, ?) ON CONFLICT(image_id, group_id) DO NOTHING`,
		int64(imageID), groupID, imageGroupIdx); err != nil {
		return fmt.Errorf("store: insert images_groups for image %d: %w", imageID, err)
	}
	return nil
}

func (db *DB) insertImageChannel(imageID uint64, ch omeinfo.Channel) error {
	_, err := db.Exec(`INSERT INTO image_channels (image_id, stack_c, channel_id, name)
		VALUES (?, ?, ?, ?) ON CONFLICT(image_id, stack_c) DO NOTHING`,
		int64(imageID), ch.ID, ch.ID, ch.Name)
	if err != nil {
		return fmt.Errorf("store: insert image_channel for image %d: %w", imageID, err)
	}
	return nil
}
