// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package region

import (
	"github.com/AccelByte/extend-arena-matchmaker/pkg/models"
)

// Selector assigns a serving region to a roster by majority vote.
type Selector struct {
	regions models.RegionMap
	index   map[string]int
}

// NewSelector fails with ErrNoRegionAvailable on an empty map; callers treat that as fatal.
func NewSelector(regions models.RegionMap) (*Selector, error) {
	if len(regions) == 0 {
		return nil, models.ErrNoRegionAvailable
	}
	if err := regions.Validate(); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(regions))
	for i, r := range regions {
		index[r.Name] = i
	}
	return &Selector{regions: regions, index: index}, nil
}

// Known reports whether the region name is in the map.
func (s *Selector) Known(name string) bool {
	_, ok := s.index[name]
	return ok
}

// SelectRegion picks the region preferred by most roster members.
// Ties go to the region listed first in the map, unknown preferences are ignored and a roster
// without any valid vote gets the first region.
func (s *Selector) SelectRegion(roster []models.RosterEntry) (models.Region, error) {
	if len(s.regions) == 0 {
		return models.Region{}, models.ErrNoRegionAvailable
	}

	votes := make([]int, len(s.regions))
	for _, entry := range roster {
		if i, ok := s.index[entry.PreferredRegion]; ok {
			votes[i]++
		}
	}

	best := 0
	for i := 1; i < len(votes); i++ {
		if votes[i] > votes[best] {
			best = i
		}
	}
	return s.regions[best], nil
}
