package store

import (
	"path/filepath"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/grouping"
	"github.com/joda-analytics/imagec-engine/internal/ids"
	"github.com/joda-analytics/imagec-engine/internal/imageproc"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

func mustAssigner(t *testing.T) *grouping.Assigner {
	t.Helper()
	a, err := grouping.NewAssigner(enums.GroupByOff, "")
	if err != nil {
		t.Fatalf("new assigner: %v", err)
	}
	return a
}

func sequentialIDs() func() uint64 {
	var next uint64
	return func() uint64 {
		next++
		return next
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("migrate version: %v", err)
	}
	if dirty {
		t.Fatalf("expected clean migration state")
	}
	if version == 0 {
		t.Fatalf("expected a non-zero migration version after Open")
	}
}

func TestInsertExperimentRejectsSecondDistinctID(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertExperiment("exp-1", "first", ""); err != nil {
		t.Fatalf("insert first experiment: %v", err)
	}
	if err := db.InsertExperiment("exp-2", "second", ""); err == nil {
		t.Fatalf("expected error inserting a second distinct experiment id")
	}
	if err := db.InsertExperiment("exp-1", "first again", ""); err != nil {
		t.Fatalf("re-inserting same experiment id should be a no-op: %v", err)
	}
}

func TestStartJobMaterializesAnalyzeCache(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertExperiment("exp-1", "exp", ""); err != nil {
		t.Fatalf("insert experiment: %v", err)
	}
	if err := db.StartJob("job-1", "exp-1", "job", "v1", "", 0, 512, 512, 0); err != nil {
		t.Fatalf("start job: %v", err)
	}

	cache, err := db.LoadAnalyzeCache("job-1")
	if err != nil {
		t.Fatalf("load analyze cache: %v", err)
	}
	if len(cache.OutputClasses) != 0 {
		t.Fatalf("expected empty output classes before any objects, got %v", cache.OutputClasses)
	}
}

func TestFinishJobRejectsUnknownJob(t *testing.T) {
	db := openTestDB(t)
	if err := db.FinishJob("no-such-job", 0); err == nil {
		t.Fatalf("expected error finishing an unknown job")
	}
}

func TestObjectAppenderRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertExperiment("exp-1", "exp", ""); err != nil {
		t.Fatalf("insert experiment: %v", err)
	}
	if err := db.StartJob("job-1", "exp-1", "job", "v1", "", 0, 512, 512, 0); err != nil {
		t.Fatalf("start job: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO plates (plate_id, job_id, name, rows, cols, image_folder, well_image_order_b64, group_by)
		VALUES (1, 'job-1', 'plate', 1, 1, '', '', 0)`); err != nil {
		t.Fatalf("insert plate: %v", err)
	}

	info := omeinfo.Info{Width: 1024, Height: 1024, Channels: []omeinfo.Channel{{ID: 0, Name: "DAPI"}}, NrZStacks: 1, NrTStacks: 1}
	prepared, err := db.PrepareImages("job-1", 1, mustAssigner(t), []omeinfo.Info{info}, []string{"/data/plate/well_A1.tif"}, sequentialIDs())
	if err != nil {
		t.Fatalf("prepare images: %v", err)
	}
	if len(prepared) != 1 {
		t.Fatalf("expected one prepared image, got %d", len(prepared))
	}
	imageID := prepared[0].ImageID

	appender, err := db.NewObjectAppender()
	if err != nil {
		t.Fatalf("new appender: %v", err)
	}
	roi := &imageproc.ROI{
		ObjectID:        ids.ObjectID(1),
		ClassID:         enums.ClassID(1),
		Plane:           omeinfo.Plane{C: 0, Z: 0, T: 0},
		BoxAbsolute:     imageproc.BoundingBox{X: 10, Y: 10, Width: 20, Height: 20},
		CentroidAbsolute: imageproc.Point{X: 20, Y: 20},
		AreaSizePixels:  400,
		PerimeterPixels: 80,
		Circularity:     0.9,
		Confidence:      1,
	}
	roi.SetIntensity(0, imageproc.Intensity{Sum: 100, Avg: 10, Min: 0, Max: 20})
	if err := appender.AppendROI(imageID, roi); err != nil {
		t.Fatalf("append roi: %v", err)
	}
	if err := appender.Close(); err != nil {
		t.Fatalf("close appender: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM objects WHERE image_id = ?`, int64(imageID)).Scan(&count); err != nil {
		t.Fatalf("count objects: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 object row, got %d", count)
	}

	if _, err := db.RebuildAnalyzeCache("job-1"); err != nil {
		t.Fatalf("rebuild analyze cache: %v", err)
	}
	cache, err := db.LoadAnalyzeCache("job-1")
	if err != nil {
		t.Fatalf("load analyze cache: %v", err)
	}
	if !cache.IsOutputClass(enums.ClassID(1)) {
		t.Fatalf("expected class 1 to be an output class after appending, got %v", cache.OutputClasses)
	}
}

func TestObjectAppenderAbortRollsBack(t *testing.T) {
	db := openTestDB(t)
	if err := db.InsertExperiment("exp-1", "exp", ""); err != nil {
		t.Fatalf("insert experiment: %v", err)
	}
	if err := db.StartJob("job-1", "exp-1", "job", "v1", "", 0, 512, 512, 0); err != nil {
		t.Fatalf("start job: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO images (image_id, job_id, file_name, absolute_path, stack_c_count, stack_z_count, stack_t_count, width, height)
		VALUES (1, 'job-1', 'a.tif', '/data/a.tif', 1, 1, 1, 16, 16)`); err != nil {
		t.Fatalf("insert image: %v", err)
	}

	appender, err := db.NewObjectAppender()
	if err != nil {
		t.Fatalf("new appender: %v", err)
	}
	roi := &imageproc.ROI{ObjectID: ids.ObjectID(99), ClassID: enums.ClassID(1), Plane: omeinfo.Plane{}}
	if err := appender.AppendROI(1, roi); err != nil {
		t.Fatalf("append roi: %v", err)
	}
	if err := appender.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM objects`).Scan(&count); err != nil {
		t.Fatalf("count objects: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected abort to discard the insert, got %d rows", count)
	}
}
