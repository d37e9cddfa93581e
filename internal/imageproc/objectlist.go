package imageproc

import (
	"sync"

	"github.com/joda-analytics/imagec-engine/internal/enums"
)

// ObjectList is the mapping classId -> ordered list of ROIs that a
// ProcessContext owns (spec §4.4). ROIs are appended in production
// order within a tile (spec §5 ordering guarantee). The mutex guards
// against concurrent appends when JobRunner's active axis is pipelines
// (spec §4.3), in which case multiple pipelines share one tile's
// Context and may append to the same or different classes at once.
type ObjectList struct {
	mu      sync.Mutex
	byClass map[enums.ClassID][]*ROI
}

// NewObjectList returns an empty ObjectList.
func NewObjectList() *ObjectList {
	return &ObjectList{byClass: make(map[enums.ClassID][]*ROI)}
}

// Append adds roi to its class's ordered list.
func (l *ObjectList) Append(roi *ROI) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byClass[roi.ClassID] = append(l.byClass[roi.ClassID], roi)
}

// Replace overwrites the ordered ROI list for classID, used by the
// filtering command to drop ROIs that fail its area/circularity bounds.
func (l *ObjectList) Replace(classID enums.ClassID, rois []*ROI) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byClass[classID] = rois
}

// ForClass returns the ordered ROI list for classID (nil if none).
func (l *ObjectList) ForClass(classID enums.ClassID) []*ROI {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byClass[classID]
}

// ClassIDs returns every class id with at least one ROI, in no
// particular order.
func (l *ObjectList) ClassIDs() []enums.ClassID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]enums.ClassID, 0, len(l.byClass))
	for id := range l.byClass {
		ids = append(ids, id)
	}
	return ids
}

// All returns every ROI across all classes.
func (l *ObjectList) All() []*ROI {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*ROI, 0)
	for _, rois := range l.byClass {
		out = append(out, rois...)
	}
	return out
}

// Count returns the total number of ROIs across all classes.
func (l *ObjectList) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, rois := range l.byClass {
		n += len(rois)
	}
	return n
}
