package analyzecache

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE images (image_id INTEGER PRIMARY KEY, job_id TEXT NOT NULL)`,
		`CREATE TABLE objects (
			image_id INTEGER NOT NULL, object_id INTEGER NOT NULL, class_id INTEGER NOT NULL,
			meas_parent_object_id INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (image_id, object_id))`,
		`CREATE TABLE object_measurements (
			image_id INTEGER NOT NULL, object_id INTEGER NOT NULL, meas_stack_c INTEGER NOT NULL,
			PRIMARY KEY (image_id, object_id, meas_stack_c))`,
		`CREATE TABLE distance_measurements (
			image_id INTEGER NOT NULL, object_id INTEGER NOT NULL, class_id INTEGER NOT NULL,
			meas_class_id INTEGER NOT NULL,
			PRIMARY KEY (image_id, object_id, meas_class_id))`,
		`CREATE TABLE analyze_settings_cache (
			job_id TEXT PRIMARY KEY, output_classes_b64 TEXT NOT NULL, measured_channels_b64 TEXT NOT NULL,
			intersecting_map_b64 TEXT NOT NULL, distance_map_b64 TEXT NOT NULL)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	exec := func(q string, args ...any) {
		if _, err := db.Exec(q, args...); err != nil {
			t.Fatalf("seed exec %q: %v", q, err)
		}
	}
	exec(`INSERT INTO images (image_id, job_id) VALUES (1, 'job-1')`)
	// parent object of class 1, child of class 2 pointing at it.
	exec(`INSERT INTO objects (image_id, object_id, class_id, meas_parent_object_id) VALUES (1, 10, 1, 0)`)
	exec(`INSERT INTO objects (image_id, object_id, class_id, meas_parent_object_id) VALUES (1, 11, 2, 10)`)
	exec(`INSERT INTO object_measurements (image_id, object_id, meas_stack_c) VALUES (1, 10, 0)`)
	exec(`INSERT INTO object_measurements (image_id, object_id, meas_stack_c) VALUES (1, 10, 1)`)
	exec(`INSERT INTO distance_measurements (image_id, object_id, class_id, meas_class_id) VALUES (1, 10, 1, 2)`)
}

func TestRebuildFourPasses(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	c, err := Rebuild(db, "job-1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if !c.IsOutputClass(1) || !c.IsOutputClass(2) {
		t.Fatalf("expected output classes {1,2}, got %v", c.OutputClasses)
	}
	channels := c.MeasuredChannelsFor(1)
	if len(channels) != 2 {
		t.Fatalf("expected 2 measured channels for class 1, got %v", channels)
	}
	children := c.IntersectingWith(1)
	if len(children) != 1 || children[0] != enums.ClassID(2) {
		t.Fatalf("expected class 1 intersecting with [2], got %v", children)
	}
	targets := c.DistanceTargetsFor(1)
	if len(targets) != 1 || targets[0] != enums.ClassID(2) {
		t.Fatalf("expected distance target [2] for class 1, got %v", targets)
	}
}

func TestRebuildPersistsAndLoads(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	if _, err := Rebuild(db, "job-1"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	loaded, err := Load(db, "job-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.IsOutputClass(2) {
		t.Fatalf("expected loaded cache to know about class 2, got %v", loaded.OutputClasses)
	}
}

func TestLoadMissingJobReturnsErrNoRows(t *testing.T) {
	db := openTestDB(t)
	if _, err := Load(db, "no-such-job"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
