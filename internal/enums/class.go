package enums

// ClassID is the 16-bit semantic category key (spec §3: Class table).
type ClassID uint16

// Reserved class ids. ClassNone is zero so that columns with no
// intersecting/distance target sort first under ColumnOrderKey (spec §3's
// 128-bit composite key packs intersectingClass into its lowest bits).
const (
	ClassNone      ClassID = 0
	ClassUndefined ClassID = 0xFFFF
)

// TStackMode selects how a prepared statement groups rows across the T
// (time) dimension (spec §4.7).
type TStackMode int

const (
	// TStackIndividual produces one row per (image, t).
	TStackIndividual TStackMode = iota
	// TStackSlice adds an outer GROUP BY stack_t_real, collapsing all T
	// values for an image/group into rows keyed by t.
	TStackSlice
)

// GroupBy selects the GroupIdAssigner's filename-to-group mapping mode
// (spec §4.1).
type GroupBy int

const (
	GroupByOff GroupBy = iota
	GroupByDirectory
	GroupByFilenameRegex
)

// AggregationScope selects the rollup level a ResultsSettings query targets
// (spec §4.8): per image (list), per well (group), or per plate.
type AggregationScope int

const (
	ScopeImage AggregationScope = iota
	ScopeWell
	ScopePlate
)
