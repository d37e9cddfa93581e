package query

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// Reduce applies stat to values in process, used for MEDIAN/STDDEV which
// SQLite has no native aggregate for (spec §4.7's stat selection rule;
// DOMAIN STACK: gonum/stat post-hoc reduction over a projected result
// set, mirroring the teacher's internal/db.go background-statistics use
// of the same package).
func Reduce(s enums.Stats, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch s {
	case enums.StatsMedian:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	case enums.StatsStddev:
		return stat.StdDev(values, nil)
	case enums.StatsAvg:
		return stat.Mean(values, nil)
	case enums.StatsSum:
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total
	case enums.StatsMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case enums.StatsMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case enums.StatsCnt:
		return float64(len(values))
	default:
		return values[0]
	}
}
