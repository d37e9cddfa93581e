package settings

import "github.com/joda-analytics/imagec-engine/internal/enums"

// ResultsTemplate is a named, reusable column set a ResultsSettings can
// be initialized from. Recovered from original_source's
// results_template.hpp/.cpp; spec.md's distillation drops it, but it is
// a thin convenience constructor over ResultsSettings and doesn't
// conflict with any Non-goal.
type ResultsTemplate struct {
	Name    string
	Columns []ColumnKey
}

// Build materializes a ResultsSettings from the template, binding every
// column to classID (templates are written against a placeholder class
// and bound to a concrete one at use time).
func (t ResultsTemplate) Build(classID enums.ClassID) *ResultsSettings {
	rs := &ResultsSettings{}
	for _, col := range t.Columns {
		bound := col
		bound.ClassID = classID
		rs.AddColumn(bound)
	}
	return rs
}

// DefaultCountAndAreaTemplate mirrors the original's "default nucleus
// count/area" convenience template: object count and mean area for one
// class, scoped per image.
func DefaultCountAndAreaTemplate() ResultsTemplate {
	return ResultsTemplate{
		Name: "Default count and area",
		Columns: []ColumnKey{
			{Measure: enums.MeasurementCount, Stat: enums.StatsOff},
			{Measure: enums.MeasurementAreaSize, Stat: enums.StatsAvg},
		},
	}
}
