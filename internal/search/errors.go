package search

import (
	"fmt"
	"strings"

	"github.com/rcliao/mission-control/internal/model"
)

// PartialSearchError reports the collections whose lookup failed during a
// search. Results for the other collections are still returned.
type PartialSearchError struct {
	Failed map[model.EntityType]error
}

func (e *PartialSearchError) Error() string {
	var parts []string
	for _, t := range model.EntityTypes {
		if err, ok := e.Failed[t]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", t, err))
		}
	}
	return "partial search failure: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-type causes to errors.Is and errors.As.
func (e *PartialSearchError) Unwrap() []error {
	var errs []error
	for _, t := range model.EntityTypes {
		if err, ok := e.Failed[t]; ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// Types returns the failed entity types in display order.
func (e *PartialSearchError) Types() []model.EntityType {
	var out []model.EntityType
	for _, t := range model.EntityTypes {
		if _, ok := e.Failed[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
