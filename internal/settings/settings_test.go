package settings

import (
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeBase64RoundTrip(t *testing.T) {
	p := &ProjectSettings{Name: "demo", Classes: []ClassSetting{{ID: 1, Name: "nucleus"}}}
	enc, err := EncodeBase64(p)
	require.NoError(t, err)
	require.NotEmpty(t, enc)

	var out ProjectSettings
	require.NoError(t, DecodeBase64(enc, &out))
	require.Equal(t, p.Name, out.Name)
	require.Equal(t, p.Classes, out.Classes)
}

func TestColumnKeyEqualityIgnoresNames(t *testing.T) {
	a := ColumnKey{ClassID: 1, Measure: enums.MeasurementAreaSize, Stat: enums.StatsAvg, Names: ColumnName{ClassName: "A"}}
	b := ColumnKey{ClassID: 1, Measure: enums.MeasurementAreaSize, Stat: enums.StatsAvg, Names: ColumnName{ClassName: "B"}}
	require.True(t, a.Equal(b))

	c := ColumnKey{ClassID: 2, Measure: enums.MeasurementAreaSize, Stat: enums.StatsAvg}
	require.False(t, a.Equal(c))
}

func TestResultsTemplateBuild(t *testing.T) {
	tmpl := DefaultCountAndAreaTemplate()
	rs := tmpl.Build(7)
	require.Len(t, rs.Columns, 2)
	for _, c := range rs.Columns {
		require.Equal(t, enums.ClassID(7), c.Key.ClassID)
	}
}
