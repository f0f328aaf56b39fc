// Package model defines the dashboard record types and their closed enumerations.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports a field value the model does not accept.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// parseEnum normalizes raw and checks it against the allowed set.
func parseEnum[T ~string](field, raw string, valid map[T]bool) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if !valid[v] {
		return "", enumError(field, T(raw), valid)
	}
	return v, nil
}

func enumError[T ~string](field string, v T, valid map[T]bool) error {
	return &ValidationError{
		Field:  field,
		Value:  string(v),
		Reason: "valid: " + joinValid(valid),
	}
}

func joinValid[T ~string](valid map[T]bool) string {
	names := make([]string, 0, len(valid))
	for v := range valid {
		names = append(names, string(v))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// required returns a ValidationError when s is blank.
func required(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return &ValidationError{Field: field, Reason: "required"}
	}
	return nil
}
