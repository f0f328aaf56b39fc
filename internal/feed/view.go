// Package feed composes the live dashboard feed from the recent-items lists
// and the active search under the current query and filter state.
package feed

import (
	"unicode/utf8"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/search"
)

// Mode tells which source a view was composed from.
type Mode string

const (
	ModeRecent Mode = "recent"
	ModeSearch Mode = "search"
)

// State is the query and filter state owned by a session.
type State struct {
	// Query is the text as typed.
	Query string `json:"query"`
	// Debounced trails Query by the debounce window.
	Debounced string           `json:"debounced_query"`
	Filters   search.FilterSet `json:"filters"`
}

// Searching reports whether the debounced query is long enough to search.
func (s State) Searching() bool {
	return utf8.RuneCountInString(s.Debounced) >= search.MinQueryLength
}

// View is one composed rendering of the feed.
type View struct {
	State
	Mode  Mode          `json:"mode"`
	Items []search.Item `json:"items"`
	// Counts holds the unfiltered list size per entity type.
	Counts   map[model.EntityType]int `json:"counts"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// Compose builds the view for state. Search results are used when the
// debounced query is at least two runes long and results are present;
// otherwise the recent-items lists are. Either way the lists are narrowed
// by the state's filters and ranked newest first.
func Compose(state State, recent search.PerType, results *search.Results) View {
	v := View{State: state, Mode: ModeRecent}
	lists := recent
	if state.Searching() && results != nil {
		v.Mode = ModeSearch
		lists = results.PerType
	}

	v.Counts = make(map[model.EntityType]int, len(model.EntityTypes))
	for _, t := range model.EntityTypes {
		v.Counts[t] = len(lists.Get(t))
	}
	v.Items = search.Merge(lists, state.Filters)
	if v.Items == nil {
		v.Items = []search.Item{}
	}
	return v
}
