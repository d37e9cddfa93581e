// Package settings defines the project's value objects (project,
// pipeline, classes, plates, results) as plain JSON-serializable
// structs, per spec §9's "treat pipelines and settings as plain value
// objects with JSON-serializable shapes; expose builders". The core
// treats these as opaque base64 blobs in the store except where they
// drive behavior directly (pipeline order, class list, plate grouping).
package settings

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// ClassSetting describes one semantic category (spec §3: Class table).
type ClassSetting struct {
	ID        enums.ClassID `json:"id"`
	ShortName string        `json:"shortName"`
	Name      string        `json:"name"`
	Notes     string        `json:"notes,omitempty"`
	Color     string        `json:"color,omitempty"`
}

// ProjectSettings is the job-scoped value object carrying the class
// list, plate layout, and pipeline order — the three things the core
// reads directly rather than treating as opaque (spec §6).
type ProjectSettings struct {
	Name      string          `json:"name"`
	Classes   []ClassSetting  `json:"classes"`
	Plates    []PlateSetting  `json:"plates"`
	Pipelines []PipelineSpec  `json:"pipelines"`
}

// PlateSetting mirrors the Plate table's attributes (spec §3).
type PlateSetting struct {
	PlateID        uint16        `json:"plateId"`
	Name           string        `json:"name"`
	Rows           int           `json:"rows"`
	Cols           int           `json:"cols"`
	ImageFolder    string        `json:"imageFolder"`
	WellImageOrder [][]int32     `json:"wellImageOrder"`
	GroupBy        enums.GroupBy `json:"groupBy"`
	FilenameRegex  string        `json:"filenameRegex,omitempty"`
}

// PipelineSpec is the ordered, JSON-serializable shape of a Pipeline
// (spec §4.5): a default class id, a bound channel, and an ordered list
// of command specs. The concrete command.Pipeline is built from this at
// job start.
type PipelineSpec struct {
	Name            string        `json:"name"`
	DefaultClassID  enums.ClassID `json:"defaultClassId"`
	BoundChannel    int32         `json:"boundChannel"`
	Commands        []CommandSpec `json:"commands"`
}

// CommandSpec is the JSON shape of one pipeline step: a variant kind
// plus an opaque parameter bag, matching spec §9's "closed variant over
// the set of known command kinds" guidance.
type CommandSpec struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// EncodeBase64 serializes v to JSON then base64, matching spec §6's rule
// that settings documents are "stored in the database as base64 of a
// human-readable text form".
func EncodeBase64(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeBase64 is the inverse of EncodeBase64.
func DecodeBase64(s string, v interface{}) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}
	return nil
}

// ClassByID returns the class setting for id, and whether it was found.
func (p *ProjectSettings) ClassByID(id enums.ClassID) (ClassSetting, bool) {
	for _, c := range p.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return ClassSetting{}, false
}
