package imageproc

import (
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
	"github.com/joda-analytics/imagec-engine/internal/settings"
	"github.com/stretchr/testify/require"
)

func testProject() *settings.ProjectSettings {
	return &settings.ProjectSettings{
		Classes: []settings.ClassSetting{
			{ID: enums.ClassID(1), ShortName: "nuclei", Color: "#ff0000"},
			{ID: enums.ClassID(2), ShortName: "cells", Color: "#00ff00"},
		},
	}
}

func TestContextResolveClassID(t *testing.T) {
	c := NewContext(testProject(), "/tmp/a.tif", 100, 100, omeinfo.Plane{}, omeinfo.Tile{}, nil)

	id, ok := c.ResolveClassID("cells")
	require.True(t, ok)
	require.Equal(t, enums.ClassID(2), id)

	_, ok = c.ResolveClassID("missing")
	require.False(t, ok)
}

func TestContextColorForClass(t *testing.T) {
	c := NewContext(testProject(), "/tmp/a.tif", 100, 100, omeinfo.Plane{}, omeinfo.Tile{}, nil)
	require.Equal(t, "#ff0000", c.ColorForClass(enums.ClassID(1)))
	require.Equal(t, "", c.ColorForClass(enums.ClassID(99)))
}

func TestContextCacheScopes(t *testing.T) {
	run := NewRunCache()
	c1 := NewContext(testProject(), "/tmp/a.tif", 100, 100, omeinfo.Plane{}, omeinfo.Tile{}, run)
	c2 := NewContext(testProject(), "/tmp/a.tif", 100, 100, omeinfo.Plane{}, omeinfo.Tile{}, run)

	c1.CachePut(CacheScopeRun, 42, omeinfo.Matrix{Width: 1, Height: 1, Pix: []uint16{7}})
	m, ok := c2.CacheGet(CacheScopeRun, 42)
	require.True(t, ok)
	require.Equal(t, uint16(7), m.Pix[0])

	c1.CachePut(CacheScopeIteration, 1, omeinfo.Matrix{Pix: []uint16{1}})
	_, ok = c2.CacheGet(CacheScopeIteration, 1)
	require.False(t, ok, "iteration cache must not be shared across Context instances")
}

func TestContextOwnsObjectList(t *testing.T) {
	c := NewContext(testProject(), "/tmp/a.tif", 100, 100, omeinfo.Plane{}, omeinfo.Tile{}, nil)
	require.NotNil(t, c.Objects)
	c.Objects.Append(&ROI{ClassID: enums.ClassID(1)})
	require.Equal(t, 1, c.Objects.Count())
}
