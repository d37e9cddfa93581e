// Package analyzecache implements the AnalyzeSettingsCache (spec §4.6,
// C10): a derived, job-scoped set of output class ids, per-class
// measured channels, per-class intersecting classes, and per-class
// distance targets, materialized once so the query layer (C11) never
// has to introspect objects/object_measurements/distance_measurements
// directly.
package analyzecache

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// Cache is the read-side view of one job's analyze-settings cache row
// (spec §4.6: "(jobId) -> (output classes list, measured-channels map,
// intersecting-class map, distance-target map). Materialized once when
// a job starts; used to avoid expensive introspection during later
// queries.").
type Cache struct {
	JobID string

	// OutputClasses is every class id that appears in objects for this
	// job (pass 1).
	OutputClasses []enums.ClassID

	// MeasuredChannels maps a class id to the distinct meas_stack_c
	// values its objects were measured on (pass 2).
	MeasuredChannels map[enums.ClassID][]int32

	// Intersecting maps a parent class id to the set of child class ids
	// whose meas_parent_object_id points at one of the parent's objects
	// (pass 3).
	Intersecting map[enums.ClassID][]enums.ClassID

	// DistanceTargets maps a class id to the set of target class ids it
	// has distance_measurements rows against (pass 4).
	DistanceTargets map[enums.ClassID][]enums.ClassID
}

// IsOutputClass reports whether classID produced any object in this job.
func (c *Cache) IsOutputClass(classID enums.ClassID) bool {
	for _, id := range c.OutputClasses {
		if id == classID {
			return true
		}
	}
	return false
}

// MeasuredChannelsFor returns the channels classID was measured on.
func (c *Cache) MeasuredChannelsFor(classID enums.ClassID) []int32 {
	return c.MeasuredChannels[classID]
}

// IntersectingWith returns the child classes intersecting classID.
func (c *Cache) IntersectingWith(classID enums.ClassID) []enums.ClassID {
	return c.Intersecting[classID]
}

// DistanceTargetsFor returns the classes classID has distance measurements against.
func (c *Cache) DistanceTargetsFor(classID enums.ClassID) []enums.ClassID {
	return c.DistanceTargets[classID]
}

// cacheRow is the JSON-serializable shape persisted in
// analyze_settings_cache's four base64-encoded text columns.
type cacheRow struct {
	OutputClasses    []int32             `json:"output_classes"`
	MeasuredChannels map[int32][]int32   `json:"measured_channels"`
	Intersecting     map[int32][]int32   `json:"intersecting"`
	DistanceTargets  map[int32][]int32   `json:"distance_targets"`
}

// querier is satisfied by *sql.DB and *sql.Tx, letting Rebuild run
// inside a migration's transaction or standalone.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

// Rebuild runs the four passes from spec §4.6 and upserts the result
// into analyze_settings_cache for jobID, grounded on the teacher's
// internal/lidar track-summary rebuild pattern of deriving a cache
// table from raw rows inside the same migration/startup path that owns
// the schema.
func Rebuild(db querier, jobID string) (*Cache, error) {
	c := &Cache{
		JobID:            jobID,
		MeasuredChannels: map[enums.ClassID][]int32{},
		Intersecting:     map[enums.ClassID][]enums.ClassID{},
		DistanceTargets:  map[enums.ClassID][]enums.ClassID{},
	}

	if err := pass1OutputClasses(db, jobID, c); err != nil {
		return nil, err
	}
	if err := pass2MeasuredChannels(db, jobID, c); err != nil {
		return nil, err
	}
	if err := pass3Intersecting(db, jobID, c); err != nil {
		return nil, err
	}
	if err := pass4DistanceTargets(db, jobID, c); err != nil {
		return nil, err
	}
	if err := persist(db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// pass1OutputClasses: distinct class_id -> output classes.
func pass1OutputClasses(db querier, jobID string, c *Cache) error {
	rows, err := db.Query(`SELECT DISTINCT o.class_id FROM objects o
		JOIN images i ON i.image_id = o.image_id WHERE i.job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("analyzecache: pass1: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var classID int32
		if err := rows.Scan(&classID); err != nil {
			return fmt.Errorf("analyzecache: pass1 scan: %w", err)
		}
		c.OutputClasses = append(c.OutputClasses, enums.ClassID(classID))
	}
	return rows.Err()
}

// pass2MeasuredChannels: (class_id, meas_stack_c) distinct via
// object<->object_measurements join -> measured-channels map.
func pass2MeasuredChannels(db querier, jobID string, c *Cache) error {
	rows, err := db.Query(`SELECT DISTINCT o.class_id, m.meas_stack_c
		FROM objects o
		JOIN object_measurements m ON m.image_id = o.image_id AND m.object_id = o.object_id
		JOIN images i ON i.image_id = o.image_id
		WHERE i.job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("analyzecache: pass2: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var classID, channel int32
		if err := rows.Scan(&classID, &channel); err != nil {
			return fmt.Errorf("analyzecache: pass2 scan: %w", err)
		}
		key := enums.ClassID(classID)
		c.MeasuredChannels[key] = appendUniqueInt32(c.MeasuredChannels[key], channel)
	}
	return rows.Err()
}

// pass3Intersecting: for each (parent.object_id, child.meas_parent_object_id)
// match, emit (parent.class_id -> child.class_id) -> intersecting map.
func pass3Intersecting(db querier, jobID string, c *Cache) error {
	rows, err := db.Query(`SELECT DISTINCT p.class_id, ch.class_id
		FROM objects p
		JOIN objects ch ON ch.image_id = p.image_id AND ch.meas_parent_object_id = p.object_id
		JOIN images i ON i.image_id = p.image_id
		WHERE i.job_id = ? AND ch.meas_parent_object_id != 0`, jobID)
	if err != nil {
		return fmt.Errorf("analyzecache: pass3: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var parentClass, childClass int32
		if err := rows.Scan(&parentClass, &childClass); err != nil {
			return fmt.Errorf("analyzecache: pass3 scan: %w", err)
		}
		key := enums.ClassID(parentClass)
		c.Intersecting[key] = appendUniqueClassID(c.Intersecting[key], enums.ClassID(childClass))
	}
	return rows.Err()
}

// pass4DistanceTargets: (class_id, meas_class_id) distinct from
// distance_measurements -> distance map.
func pass4DistanceTargets(db querier, jobID string, c *Cache) error {
	rows, err := db.Query(`SELECT DISTINCT d.class_id, d.meas_class_id
		FROM distance_measurements d
		JOIN images i ON i.image_id = d.image_id
		WHERE i.job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("analyzecache: pass4: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var classID, targetClass int32
		if err := rows.Scan(&classID, &targetClass); err != nil {
			return fmt.Errorf("analyzecache: pass4 scan: %w", err)
		}
		key := enums.ClassID(classID)
		c.DistanceTargets[key] = appendUniqueClassID(c.DistanceTargets[key], enums.ClassID(targetClass))
	}
	return rows.Err()
}

func persist(db querier, c *Cache) error {
	row := cacheRow{
		MeasuredChannels: map[int32][]int32{},
		Intersecting:     map[int32][]int32{},
		DistanceTargets:  map[int32][]int32{},
	}
	for _, id := range c.OutputClasses {
		row.OutputClasses = append(row.OutputClasses, int32(id))
	}
	for k, v := range c.MeasuredChannels {
		row.MeasuredChannels[int32(k)] = v
	}
	for k, v := range c.Intersecting {
		row.Intersecting[int32(k)] = classIDsToInt32s(v)
	}
	for k, v := range c.DistanceTargets {
		row.DistanceTargets[int32(k)] = classIDsToInt32s(v)
	}

	outputB64, err := marshalB64(row.OutputClasses)
	if err != nil {
		return err
	}
	measuredB64, err := marshalB64(row.MeasuredChannels)
	if err != nil {
		return err
	}
	intersectingB64, err := marshalB64(row.Intersecting)
	if err != nil {
		return err
	}
	distanceB64, err := marshalB64(row.DistanceTargets)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT INTO analyze_settings_cache
		(job_id, output_classes_b64, measured_channels_b64, intersecting_map_b64, distance_map_b64)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			output_classes_b64 = excluded.output_classes_b64,
			measured_channels_b64 = excluded.measured_channels_b64,
			intersecting_map_b64 = excluded.intersecting_map_b64,
			distance_map_b64 = excluded.distance_map_b64`,
		c.JobID, outputB64, measuredB64, intersectingB64, distanceB64)
	if err != nil {
		return fmt.Errorf("analyzecache: persist: %w", err)
	}
	return nil
}

// Load reads a previously rebuilt cache row back for jobID, returning
// sql.ErrNoRows if no job-scoped cache has been materialized yet.
func Load(db querier, jobID string) (*Cache, error) {
	q, ok := db.(interface {
		QueryRow(query string, args ...any) *sql.Row
	})
	if !ok {
		return nil, fmt.Errorf("analyzecache: load requires a QueryRow-capable handle")
	}
	var outputB64, measuredB64, intersectingB64, distanceB64 string
	err := q.QueryRow(`SELECT output_classes_b64, measured_channels_b64, intersecting_map_b64, distance_map_b64
		FROM analyze_settings_cache WHERE job_id = ?`, jobID).
		Scan(&outputB64, &measuredB64, &intersectingB64, &distanceB64)
	if err != nil {
		return nil, err
	}

	var outputClasses []int32
	if err := unmarshalB64(outputB64, &outputClasses); err != nil {
		return nil, fmt.Errorf("analyzecache: decode output classes: %w", err)
	}
	var measured map[int32][]int32
	if err := unmarshalB64(measuredB64, &measured); err != nil {
		return nil, fmt.Errorf("analyzecache: decode measured channels: %w", err)
	}
	var intersecting map[int32][]int32
	if err := unmarshalB64(intersectingB64, &intersecting); err != nil {
		return nil, fmt.Errorf("analyzecache: decode intersecting map: %w", err)
	}
	var distance map[int32][]int32
	if err := unmarshalB64(distanceB64, &distance); err != nil {
		return nil, fmt.Errorf("analyzecache: decode distance map: %w", err)
	}

	c := &Cache{
		JobID:            jobID,
		MeasuredChannels: map[enums.ClassID][]int32{},
		Intersecting:     map[enums.ClassID][]enums.ClassID{},
		DistanceTargets:  map[enums.ClassID][]enums.ClassID{},
	}
	for _, id := range outputClasses {
		c.OutputClasses = append(c.OutputClasses, enums.ClassID(id))
	}
	for k, v := range measured {
		c.MeasuredChannels[enums.ClassID(k)] = v
	}
	for k, v := range intersecting {
		c.Intersecting[enums.ClassID(k)] = int32sToClassIDs(v)
	}
	for k, v := range distance {
		c.DistanceTargets[enums.ClassID(k)] = int32sToClassIDs(v)
	}
	return c, nil
}

func appendUniqueInt32(s []int32, v int32) []int32 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func appendUniqueClassID(s []enums.ClassID, v enums.ClassID) []enums.ClassID {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func classIDsToInt32s(s []enums.ClassID) []int32 {
	out := make([]int32, len(s))
	for i, v := range s {
		out[i] = int32(v)
	}
	return out
}

func int32sToClassIDs(s []int32) []enums.ClassID {
	out := make([]enums.ClassID, len(s))
	for i, v := range s {
		out[i] = enums.ClassID(v)
	}
	return out
}

func marshalB64(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func unmarshalB64(s string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
