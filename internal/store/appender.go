package store

import (
	"database/sql"
	"fmt"

	"github.com/joda-analytics/imagec-engine/internal/imageproc"
	"github.com/joda-analytics/imagec-engine/internal/rle"
)

// ObjectAppender batches inserts into objects/object_measurements/
// distance_measurements inside one transaction, kept open for one tile
// or one image then closed (spec §4.6: "bulk loads use a per-table
// appender kept open for the duration of one tile or one image, then
// closed"). It is not safe for concurrent use by multiple goroutines
// (spec §4.6: "appenders are not shared across threads").
type ObjectAppender struct {
	tx               *sql.Tx
	insertObject     *sql.Stmt
	insertMeasure    *sql.Stmt
	insertDistance   *sql.Stmt
}

// NewObjectAppender opens a transaction and prepares its insert
// statements.
func (db *DB) NewObjectAppender() (*ObjectAppender, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin appender tx: %w", err)
	}
	a := &ObjectAppender{tx: tx}

	stmts := []struct {
		dst  **sql.Stmt
		text string
	}{
		{&a.insertObject, `INSERT INTO objects (
			image_id, object_id, class_id, stack_c, stack_z, stack_t,
			confidence, meas_area_size, meas_perimeter, meas_circularity,
			meas_center_x, meas_center_y, meas_box_x, meas_box_y, meas_box_width, meas_box_height,
			mask_b64, meas_origin_object_id, meas_parent_object_id, meas_parent_class_id, meas_tracking_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(image_id, object_id) DO NOTHING`},
		{&a.insertMeasure, `INSERT INTO object_measurements (
			image_id, object_id, meas_stack_c, meas_stack_z, meas_stack_t,
			intensity_sum, intensity_avg, intensity_min, intensity_max
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(image_id, object_id, meas_stack_c, meas_stack_z, meas_stack_t) DO UPDATE SET
			intensity_sum = excluded.intensity_sum,
			intensity_avg = excluded.intensity_avg,
			intensity_min = excluded.intensity_min,
			intensity_max = excluded.intensity_max`},
		{&a.insertDistance, `INSERT INTO distance_measurements (
			image_id, object_id, class_id, meas_object_id, meas_class_id,
			meas_stack_c, meas_stack_z, meas_stack_t,
			dist_centroid_to_centroid, dist_centroid_to_surface_min, dist_centroid_to_surface_max,
			dist_surface_to_surface_min, dist_surface_to_surface_max
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(image_id, object_id, meas_class_id, meas_stack_c, meas_stack_z, meas_stack_t) DO UPDATE SET
			dist_centroid_to_centroid = excluded.dist_centroid_to_centroid,
			dist_centroid_to_surface_min = excluded.dist_centroid_to_surface_min,
			dist_centroid_to_surface_max = excluded.dist_centroid_to_surface_max,
			dist_surface_to_surface_min = excluded.dist_surface_to_surface_min,
			dist_surface_to_surface_max = excluded.dist_surface_to_surface_max`},
	}
	for _, s := range stmts {
		stmt, err := tx.Prepare(s.text)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("store: prepare appender statement: %w", err)
		}
		*s.dst = stmt
	}
	return a, nil
}

// AppendROI inserts one ROI and every measurement/distance cached on it
// (spec §4.3: "bulk appends to objects, object_measurements,
// distance_measurements for one tile are enclosed by appender open/
// close and happen as one unit; failures throw and abort the tile").
func (a *ObjectAppender) AppendROI(imageID uint64, roi *imageproc.ROI) error {
	maskB64 := ""
	if len(roi.Mask) > 0 {
		maskB64 = rle.EncodeBase64(roi.Mask)
	}
	_, err := a.insertObject.Exec(
		int64(imageID), int64(roi.ObjectID), int32(roi.ClassID),
		roi.Plane.C, roi.Plane.Z, roi.Plane.T,
		roi.Confidence, roi.AreaSizePixels, roi.PerimeterPixels, roi.Circularity,
		roi.CentroidAbsolute.X, roi.CentroidAbsolute.Y,
		roi.BoxAbsolute.X, roi.BoxAbsolute.Y, roi.BoxAbsolute.Width, roi.BoxAbsolute.Height,
		maskB64,
		int64(roi.OriginObjectID), int64(roi.ParentObjectID), int32(roi.ParentClassID), roi.TrackingID,
	)
	if err != nil {
		return fmt.Errorf("store: append object %d: %w", roi.ObjectID, err)
	}

	for channel, in := range roi.IntensityByChannel {
		if _, err := a.insertMeasure.Exec(int64(imageID), int64(roi.ObjectID), channel, roi.Plane.Z, roi.Plane.T,
			in.Sum, in.Avg, in.Min, in.Max); err != nil {
			return fmt.Errorf("store: append measurement for object %d channel %d: %w", roi.ObjectID, channel, err)
		}
	}

	for targetID, d := range roi.DistanceByTarget {
		if _, err := a.insertDistance.Exec(
			int64(imageID), int64(roi.ObjectID), int32(roi.ClassID), int64(targetID), int32(d.TargetClassID),
			roi.Plane.C, roi.Plane.Z, roi.Plane.T,
			d.CentroidToCentroid, d.CentroidToSurfaceMin, d.CentroidToSurfaceMax,
			d.SurfaceToSurfaceMin, d.SurfaceToSurfaceMax,
		); err != nil {
			return fmt.Errorf("store: append distance from object %d to %d: %w", roi.ObjectID, targetID, err)
		}
	}
	return nil
}

// Close finalizes the transaction, committing every buffered insert.
func (a *ObjectAppender) Close() error {
	a.insertObject.Close()
	a.insertMeasure.Close()
	a.insertDistance.Close()
	if err := a.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit appender: %w", err)
	}
	return nil
}

// Abort rolls back the transaction without committing any buffered
// insert (spec §4.3: "failures throw and abort the tile").
func (a *ObjectAppender) Abort() error {
	a.insertObject.Close()
	a.insertMeasure.Close()
	a.insertDistance.Close()
	return a.tx.Rollback()
}
