package imageproc

import (
	"sync"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
	"github.com/joda-analytics/imagec-engine/internal/settings"
)

// CacheScope selects how long a cached image lives (spec §4.4): within
// one pipeline run (ITERATION) or across every pipeline for one image
// (RUN).
type CacheScope int

const (
	CacheScopeIteration CacheScope = iota
	CacheScopeRun
)

// RunCache is a scoped, synthetic-id-keyed cache of decoded planes. It
// is per-image and accessed single-threaded per tile (spec §5), but the
// mutex guards against the RUN-scoped cache being touched by multiple
// pipelines if the runner's active axis happens to be pipelines for
// this image (spec §4.3: "pipelines" can be the parallel axis). Callers
// outside this package only ever see it as an opaque handle threaded
// through NewContext — reads/writes go through Context.CacheGet/Put.
type RunCache struct {
	mu    sync.Mutex
	byKey map[uint64]omeinfo.Matrix
}

func newImageCache() *RunCache {
	return &RunCache{byKey: make(map[uint64]omeinfo.Matrix)}
}

func (c *RunCache) get(key uint64) (omeinfo.Matrix, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.byKey[key]
	return m, ok
}

func (c *RunCache) put(key uint64, m omeinfo.Matrix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = m
}

// Context is the per-tile execution state (spec §4.4, C5): the active
// image handle, in-flight object lists keyed by class id, plane
// identity, and the image-level memory caches.
type Context struct {
	ImageID       uint64
	ImagePath     string
	ImageWidth    int32
	ImageHeight   int32
	ActivePlane   omeinfo.Plane
	ActiveTile    omeinfo.Tile

	Objects *ObjectList

	project *settings.ProjectSettings

	iterationCache *RunCache
	runCache       *RunCache
}

// NewContext builds a Context for one tile. runCache is shared across
// every pipeline invocation for the same image (CacheScopeRun);
// iterationCache is fresh per pipeline run.
func NewContext(project *settings.ProjectSettings, imagePath string, width, height int32, plane omeinfo.Plane, tile omeinfo.Tile, runCache *RunCache) *Context {
	if runCache == nil {
		runCache = newImageCache()
	}
	return &Context{
		ImagePath:      imagePath,
		ImageWidth:     width,
		ImageHeight:    height,
		ActivePlane:    plane,
		ActiveTile:     tile,
		Objects:        NewObjectList(),
		project:        project,
		iterationCache: newImageCache(),
		runCache:       runCache,
	}
}

// NewRunCache constructs a fresh RUN-scoped cache for one image; the
// caller threads it through every pipeline's Context for that image.
func NewRunCache() *RunCache { return newImageCache() }

// CacheGet looks up a previously cached plane at the given scope.
func (c *Context) CacheGet(scope CacheScope, key uint64) (omeinfo.Matrix, bool) {
	if scope == CacheScopeRun {
		return c.runCache.get(key)
	}
	return c.iterationCache.get(key)
}

// CachePut stores a decoded plane at the given scope.
func (c *Context) CachePut(scope CacheScope, key uint64, m omeinfo.Matrix) {
	if scope == CacheScopeRun {
		c.runCache.put(key, m)
	} else {
		c.iterationCache.put(key, m)
	}
}

// ResolveClassID looks up a class id by its short name, bound from
// project settings (spec §4.4: "class-id resolver").
func (c *Context) ResolveClassID(shortName string) (enums.ClassID, bool) {
	if c.project == nil {
		return 0, false
	}
	for _, cl := range c.project.Classes {
		if cl.ShortName == shortName {
			return cl.ID, true
		}
	}
	return 0, false
}

// ColorForClass returns the configured color for classID, or "" if the
// project doesn't define one (spec §4.4: "color-for-class").
func (c *Context) ColorForClass(classID enums.ClassID) string {
	if c.project == nil {
		return ""
	}
	if cl, ok := c.project.ClassByID(classID); ok {
		return cl.Color
	}
	return ""
}
