// Package grouping implements the GroupIdAssigner (spec §4.1, C3):
// deterministic mapping of a filename to (groupId, wellX, wellY,
// imageIdx), grounded on original_source's file_grouper.cpp and
// well_position_generator.hpp.
package grouping

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/joberr"
	"github.com/joda-analytics/imagec-engine/internal/logging"
)

// Undefined marks a well coordinate or image index that the grouping
// mode did not determine.
const Undefined = ^uint32(0)

// GroupInfo is the result of resolving a filename to a group and well
// coordinate (spec §4.1).
type GroupInfo struct {
	GroupName string
	GroupID   uint32
	WellPosX  uint32
	WellPosY  uint32
	ImageIdx  uint32
}

// Assigner maps image paths to groups and well coordinates. It is safe
// for concurrent use by prepareImages workers (spec §4.1 invariant,
// §5 "Group assigner... protected by a mutex").
type Assigner struct {
	mode  enums.GroupBy
	regex *regexp.Regexp

	wells *wellPosGenerator
}

// NewAssigner builds an Assigner for the given mode. filenameRegex is
// only used when mode is GroupByFilenameRegex; an invalid regex returns
// an error (spec §7: InvalidInput — malformed filename regex).
func NewAssigner(mode enums.GroupBy, filenameRegex string) (*Assigner, error) {
	a := &Assigner{mode: mode, wells: newWellPosGenerator()}
	if mode == enums.GroupByFilenameRegex {
		re, err := regexp.Compile(filenameRegex)
		if err != nil {
			return nil, fmt.Errorf("grouping: filename regex %q: %w: %v", filenameRegex, joberr.ErrInvalidInput, err)
		}
		a.regex = re
	}
	return a, nil
}

// GetGroupForFilename resolves filePath to a GroupInfo. Calling it twice
// with the same groupName always returns the same GroupID and well
// coordinate (spec §8 property 1).
func (a *Assigner) GetGroupForFilename(filePath string) GroupInfo {
	var raw GroupInfo
	switch a.mode {
	case enums.GroupByOff:
		raw = GroupInfo{GroupName: "", WellPosX: uint32(Undefined), WellPosY: uint32(Undefined), ImageIdx: uint32(Undefined)}
	case enums.GroupByDirectory:
		raw = GroupInfo{GroupName: filepath.Dir(filePath), WellPosX: uint32(Undefined), WellPosY: uint32(Undefined), ImageIdx: uint32(Undefined)}
	case enums.GroupByFilenameRegex:
		raw = a.applyRegex(filePath)
	}
	return a.wells.resolve(raw)
}

// applyRegex implements the capture-count fallback ladder from
// file_grouper.cpp: captures (1,2,3,4) = (group, wellY, wellX, imageIdx);
// (1,2) = (group, imageIdx); (1) = group only; anything else falls back
// to a fully undefined group with a logged warning (spec §4.1 failure
// modes: "never a hard failure").
func (a *Assigner) applyRegex(filePath string) GroupInfo {
	base := filepath.Base(filePath)
	match := a.regex.FindStringSubmatch(base)
	undef := GroupInfo{GroupName: "", WellPosX: uint32(Undefined), WellPosY: uint32(Undefined), ImageIdx: uint32(Undefined)}
	if match == nil {
		logging.Logf("grouping: regex %q did not match %q, falling back to undefined group", a.regex.String(), base)
		return undef
	}
	switch {
	case len(match) >= 5:
		y, _ := strconv.ParseUint(match[2], 10, 32)
		x, _ := strconv.ParseUint(match[3], 10, 32)
		idx, _ := strconv.ParseUint(match[4], 10, 32)
		return GroupInfo{GroupName: match[1], WellPosY: uint32(y), WellPosX: uint32(x), ImageIdx: uint32(idx)}
	case len(match) >= 3:
		idx, _ := strconv.ParseUint(match[2], 10, 32)
		return GroupInfo{GroupName: match[1], WellPosX: uint32(Undefined), WellPosY: uint32(Undefined), ImageIdx: uint32(idx)}
	case len(match) >= 2:
		return GroupInfo{GroupName: match[1], WellPosX: uint32(Undefined), WellPosY: uint32(Undefined), ImageIdx: uint32(Undefined)}
	default:
		logging.Logf("grouping: regex %q captured too few groups in %q, falling back to undefined group", a.regex.String(), base)
		return undef
	}
}
