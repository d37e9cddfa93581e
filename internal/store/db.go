// Package store implements the columnar database (spec §4.6, C9):
// schema, migrations, and the per-table bulk-append path for objects
// and measurements.
package store

import (
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/joda-analytics/imagec-engine/internal/analyzecache"
	"github.com/joda-analytics/imagec-engine/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a *sql.DB opened against the embedded schema (spec §4.6:
// "one global [handle]; connections per-op acquired cheaply").
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the SQLite database at path,
// applies pragmas, and brings the schema forward to the latest
// migration (spec §4.6's additive migration model).
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db := &DB{sqlDB}
	if err := applyPragmas(sqlDB); err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		return nil, err
	}
	if err := db.rebuildMissingAnalyzeCaches(); err != nil {
		return nil, err
	}
	return db, nil
}

// rebuildMissingAnalyzeCaches regenerates analyze_settings_cache for any
// job that doesn't have one yet, matching the additive-migration rule
// (spec §4.6: "the cache is inserted at startJob and regenerated by a
// migration if missing").
func (db *DB) rebuildMissingAnalyzeCaches() error {
	rows, err := db.Query(`SELECT j.job_id FROM jobs j
		LEFT JOIN analyze_settings_cache c ON c.job_id = j.job_id
		WHERE c.job_id IS NULL`)
	if err != nil {
		return fmt.Errorf("store: find jobs missing analyze cache: %w", err)
	}
	var jobIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan job id: %w", err)
		}
		jobIDs = append(jobIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, jobID := range jobIDs {
		if _, err := analyzecache.Rebuild(db.DB, jobID); err != nil {
			return fmt.Errorf("store: rebuild analyze cache for job %s: %w", jobID, err)
		}
	}
	return nil
}

// applyPragmas sets the WAL/synchronous/timeout pragmas every
// connection needs, matching the teacher's internal/db.applyPragmas.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}
	return nil
}

// InsertExperiment inserts the single Experiment row a database file
// owns (spec §3: "one per database file; inserting a second experiment
// with a distinct id must fail").
func (db *DB) InsertExperiment(id, name, notes string) error {
	var existing int
	if err := db.QueryRow(`SELECT COUNT(*) FROM experiments WHERE experiment_id != ?`, id).Scan(&existing); err != nil {
		return fmt.Errorf("store: check existing experiment: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("store: database already owns a different experiment")
	}
	_, err := db.Exec(`INSERT INTO experiments (experiment_id, name, notes) VALUES (?, ?, ?)
		ON CONFLICT(experiment_id) DO NOTHING`, id, name, notes)
	if err != nil {
		return fmt.Errorf("store: insert experiment: %w", err)
	}
	return nil
}

// StartJob inserts a Job row (spec §3: "created at startJob").
func (db *DB) StartJob(jobID, experimentID, name, softwareVersion, settingsB64 string, startedTsUs int64, tileWidth, tileHeight, series int32) error {
	_, err := db.Exec(`INSERT INTO jobs (job_id, experiment_id, name, software_version, started_ts_us, settings_b64, tile_width, tile_height, series)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, experimentID, name, softwareVersion, startedTsUs, settingsB64, tileWidth, tileHeight, series)
	if err != nil {
		return fmt.Errorf("store: start job: %w", err)
	}
	if _, err := analyzecache.Rebuild(db.DB, jobID); err != nil {
		return fmt.Errorf("store: materialize analyze cache for job %s: %w", jobID, err)
	}
	logging.Logf("store: started job %s", jobID)
	return nil
}

// RebuildAnalyzeCache recomputes jobID's AnalyzeSettingsCache from the
// objects/object_measurements/distance_measurements rows currently on
// disk (spec §4.6's four-pass algorithm), returning the refreshed
// in-memory view.
func (db *DB) RebuildAnalyzeCache(jobID string) (*analyzecache.Cache, error) {
	return analyzecache.Rebuild(db.DB, jobID)
}

// LoadAnalyzeCache returns the materialized AnalyzeSettingsCache for
// jobID without recomputing it.
func (db *DB) LoadAnalyzeCache(jobID string) (*analyzecache.Cache, error) {
	return analyzecache.Load(db.DB, jobID)
}

// FinishJob sets finished_ts_us (spec §3: "finalized at finishJob which
// sets finished-ts").
func (db *DB) FinishJob(jobID string, finishedTsUs int64) error {
	res, err := db.Exec(`UPDATE jobs SET finished_ts_us = ? WHERE job_id = ?`, finishedTsUs, jobID)
	if err != nil {
		return fmt.Errorf("store: finish job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: finish job: no such job %s", jobID)
	}
	if _, err := analyzecache.Rebuild(db.DB, jobID); err != nil {
		return fmt.Errorf("store: rebuild analyze cache for finished job %s: %w", jobID, err)
	}
	return nil
}
