package model

import (
	"strings"
	"time"
)

// MemoryType classifies a long-term memory note.
type MemoryType string

const (
	MemoryNote       MemoryType = "note"
	MemoryDecision   MemoryType = "decision"
	MemoryFact       MemoryType = "fact"
	MemoryPreference MemoryType = "preference"
)

var validMemoryTypes = map[MemoryType]bool{
	MemoryNote:       true,
	MemoryDecision:   true,
	MemoryFact:       true,
	MemoryPreference: true,
}

func (t MemoryType) Valid() bool { return validMemoryTypes[t] }

// ParseMemoryType parses a memory type name.
func ParseMemoryType(s string) (MemoryType, error) {
	return parseEnum("memory type", s, validMemoryTypes)
}

const (
	MinImportance = 1
	MaxImportance = 10
)

// Memory is a long-term note.
type Memory struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Type       MemoryType `json:"type"`
	Category   string     `json:"category,omitempty"`
	Source     string     `json:"source,omitempty"`
	Importance *int       `json:"importance,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MemoryInput holds the caller-supplied fields of a new memory.
type MemoryInput struct {
	Content    string
	Type       MemoryType
	Category   string
	Source     string
	Importance *int
	Tags       []string
}

func (in MemoryInput) Validate() error {
	if err := required("content", in.Content); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return enumError("memory type", in.Type, validMemoryTypes)
	}
	return validImportance(in.Importance)
}

// MemoryPatch lists the memory fields to change.
type MemoryPatch struct {
	Content    *string
	Category   *string
	Importance *int
	Tags       *[]string
}

// Empty reports whether the patch changes nothing.
func (p MemoryPatch) Empty() bool {
	return p.Content == nil && p.Category == nil && p.Importance == nil && p.Tags == nil
}

func (p MemoryPatch) Validate() error {
	if p.Content != nil {
		if err := required("content", *p.Content); err != nil {
			return err
		}
	}
	return validImportance(p.Importance)
}

func validImportance(v *int) error {
	if v == nil {
		return nil
	}
	if *v < MinImportance || *v > MaxImportance {
		return &ValidationError{Field: "importance", Reason: "must be between 1 and 10"}
	}
	return nil
}

// NormalizeTags trims tags and removes blanks and duplicates, keeping first occurrence order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
