package query

import (
	"fmt"
	"sort"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// Request is one (ColumnIdx -> ColumnKey) entry of a ResultsSettings
// ordered map (spec §4.7: "Input: a ResultsSettings object which is an
// ordered map ColumnIdx -> ColumnKey").
type Request struct {
	ColumnIdx int
	Key       ColumnKey
}

// ResultingTable is the query layer's output: a header skeleton plus
// the PreparedStatement set needed to fill it (spec §4.7).
type ResultingTable struct {
	Headers []string
	// ColumnForIdx maps an input ColumnIdx to the output column alias it
	// was assigned, after dedup (spec §8 property 5).
	ColumnForIdx map[int]string
	Statements   []*PreparedStatement

	TMode enums.TStackMode
	Scope RollupScope
}

// Build groups requests into deduplicated columns and per-QueryKey
// PreparedStatements (spec §4.7's Output description; §4.7 invariant:
// "the same column request must not appear twice"; "columns with
// distance != NONE never share a statement with non-distance columns").
func Build(requests []Request, tMode enums.TStackMode, scope RollupScope) *ResultingTable {
	t := &ResultingTable{
		ColumnForIdx: map[int]string{},
		TMode:        tMode,
		Scope:        scope,
	}

	type dedupedColumn struct {
		key     ColumnKey
		alias   string
		indices []int
	}
	var deduped []*dedupedColumn

	for _, r := range requests {
		var found *dedupedColumn
		for _, d := range deduped {
			if Equal(d.key, r.Key) {
				found = d
				break
			}
		}
		if found != nil {
			found.indices = append(found.indices, r.ColumnIdx)
			t.ColumnForIdx[r.ColumnIdx] = found.alias
			continue
		}
		alias := fmt.Sprintf("col_%d", len(deduped))
		d := &dedupedColumn{key: r.Key, alias: alias, indices: []int{r.ColumnIdx}}
		deduped = append(deduped, d)
		t.ColumnForIdx[r.ColumnIdx] = alias
		t.Headers = append(t.Headers, displayName(r.Key))
	}

	byKey := map[QueryKey]*PreparedStatement{}
	var order []QueryKey
	for _, d := range deduped {
		qk := QueryKeyFor(d.key)
		ps, ok := byKey[qk]
		if !ok {
			ps = &PreparedStatement{Key: qk, TMode: tMode, Scope: scope}
			byKey[qk] = ps
			order = append(order, qk)
		}
		ps.Columns = append(ps.Columns, Column{Key: d.key, Alias: d.alias, Indices: d.indices})
	}

	sort.Slice(order, func(i, j int) bool {
		return compositeKeyOrder(order[i]) < compositeKeyOrder(order[j])
	})
	for _, qk := range order {
		t.Statements = append(t.Statements, byKey[qk])
	}
	return t
}

func displayName(k ColumnKey) string {
	if k.DisplayName != "" {
		return k.DisplayName
	}
	return enums.MeasurementSQLName(k.Measure, true)
}

// compositeKeyOrder gives QueryKeys a stable, deterministic iteration
// order (by class, then distance target, then t, then z) so repeated
// Build calls over the same requests always emit statements in the same
// order. DistanceToClass must be folded in here: two distance statements
// for the same class that differ only in target class are otherwise
// indistinguishable to sort.Slice, leaving their relative order
// nondeterministic.
func compositeKeyOrder(k QueryKey) uint64 {
	return uint64(k.ClassID)<<48 |
		uint64(k.DistanceToClass)<<32 |
		uint64(uint16(k.TStack))<<16 |
		uint64(uint16(k.ZStack))
}
