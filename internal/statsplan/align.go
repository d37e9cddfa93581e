package statsplan

// FindMaxRowIdx returns the largest row count across a set of per-class
// tables, so a caller can pad shorter classes' columns to a common
// height before presenting them side by side (spec §4.8: row alignment
// across classes — "the widest class determines the row count; shorter
// classes are padded with empty rows").
func FindMaxRowIdx(tables ...*Table) int {
	max := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		if n := len(t.Rows); n > max {
			max = n
		}
	}
	return max
}

// PadRows extends t.Rows to n rows with empty Row values, leaving
// existing rows untouched.
func PadRows(t *Table, n int) {
	for len(t.Rows) < n {
		t.Rows = append(t.Rows, Row{Values: map[string]float64{}})
	}
}

// StripObjectColumns removes per-object identity columns (object id,
// position) from a table's Values before group-level aggregation, since
// those columns have no meaning once rows no longer correspond 1:1 to
// objects (spec §4.8: "per-object columns are stripped before
// aggregation at the group level").
func StripObjectColumns(t *Table, columns ...string) {
	for i := range t.Rows {
		for _, c := range columns {
			delete(t.Rows[i].Values, c)
		}
	}
}
