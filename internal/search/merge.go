package search

import (
	"encoding/json"
	"sort"

	"github.com/rcliao/mission-control/internal/model"
)

// FilterSet is a set of entity types. The empty set allows every type.
type FilterSet uint8

func filterBit(t model.EntityType) FilterSet {
	for i, et := range model.EntityTypes {
		if et == t {
			return 1 << i
		}
	}
	return 0
}

// NewFilterSet returns the set holding types.
func NewFilterSet(types ...model.EntityType) FilterSet {
	var f FilterSet
	for _, t := range types {
		f |= filterBit(t)
	}
	return f
}

// ParseFilters parses entity type names into a set.
func ParseFilters(names []string) (FilterSet, error) {
	var f FilterSet
	for _, n := range names {
		t, err := model.ParseEntityType(n)
		if err != nil {
			return 0, err
		}
		f |= filterBit(t)
	}
	return f, nil
}

func (f FilterSet) Has(t model.EntityType) bool {
	b := filterBit(t)
	return b != 0 && f&b != 0
}

// Toggle returns f with t added, or removed when already present.
func (f FilterSet) Toggle(t model.EntityType) FilterSet {
	return f ^ filterBit(t)
}

func (f FilterSet) Empty() bool { return f == 0 }

// Allows reports whether items of type t pass the filter.
func (f FilterSet) Allows(t model.EntityType) bool {
	return f.Empty() || f.Has(t)
}

// Types returns the members in display order.
func (f FilterSet) Types() []model.EntityType {
	var out []model.EntityType
	for _, t := range model.EntityTypes {
		if f.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (f FilterSet) MarshalJSON() ([]byte, error) {
	types := f.Types()
	if types == nil {
		types = []model.EntityType{}
	}
	return json.Marshal(types)
}

func (f *FilterSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseFilters(names)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Merge concatenates the lists allowed by filters in the order memories,
// documents, activities, tasks, then stable-sorts the result by
// RecencyKey, newest first. Items are not de-duplicated.
func Merge(lists PerType, filters FilterSet) []Item {
	var merged []Item
	for _, t := range model.EntityTypes {
		if filters.Allows(t) {
			merged = append(merged, lists.Get(t)...)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RecencyKey() > merged[j].RecencyKey()
	})
	return merged
}
