/*
Package agent defines the handler record: a persisted profile describing a
specialized task handler plus its usage metadata.

Records are created by the coordinator when no existing handler is similar
enough to a request, and are never deleted. Identity is the ID; names are
synthesized from the category and are not required to be unique.
*/
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the closed set of task specializations a handler can have.
type Category string

const (
	CategoryCoding   Category = "coding"
	CategoryWriting  Category = "writing"
	CategoryResearch Category = "research"
	CategoryMath     Category = "math"
	CategoryCreative Category = "creative"
	CategoryAnalysis Category = "analysis"
	CategoryOther    Category = "other"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryCoding,
	CategoryWriting,
	CategoryResearch,
	CategoryMath,
	CategoryCreative,
	CategoryAnalysis,
	CategoryOther,
}

// ParseCategory maps a free-form string onto the closed category set.
// Unknown or empty input maps to CategoryOther.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return known
		}
	}
	return CategoryOther
}

// Record is a single handler record as persisted in the registry.
type Record struct {
	// ID uniquely identifies the record across the registry's lifetime.
	// Assigned at creation, never reused.
	ID string `json:"id"`

	// Name is a short human-readable label (e.g. "CodingAgent").
	// Uniqueness is not enforced; identity is by ID.
	Name string `json:"name"`

	// Description summarizes the handler's specialization. It is the
	// similarity target for request matching and never mutates.
	Description string `json:"description"`

	// Category is the handler's task category. Immutable after creation.
	Category Category `json:"category"`

	// SystemPrompt frames delegated completion calls. Optional on read;
	// when absent it is derived from Description.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// CreatedAt is set once at creation.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is refreshed every time the handler is selected.
	LastUsedAt time.Time `json:"last_used_at"`

	// UseCount counts selections. Zero only between creation and first use.
	UseCount int `json:"use_count"`
}

// New creates a record with a fresh ID and creation timestamps.
// UseCount starts at zero; the first selection bumps it via the registry.
func New(name, description, systemPrompt string, category Category, now time.Time) Record {
	return Record{
		ID:           uuid.NewString(),
		Name:         name,
		Description:  description,
		Category:     category,
		SystemPrompt: systemPrompt,
		CreatedAt:    now,
		LastUsedAt:   now,
	}
}

// NameForCategory synthesizes the display name for a category,
// e.g. "coding" -> "CodingAgent".
func NameForCategory(c Category) string {
	s := string(c)
	if s == "" {
		s = string(CategoryOther)
	}
	return strings.ToUpper(s[:1]) + s[1:] + "Agent"
}

// Prompt returns the delegation framing for the record, falling back to a
// description-derived prompt when no system prompt was stored.
func (r Record) Prompt() string {
	if r.SystemPrompt != "" {
		return r.SystemPrompt
	}
	return fmt.Sprintf("You are %s, a helpful assistant specializing in: %s", r.Name, r.Description)
}

// Validate reports whether the record satisfies the required-field contract.
// Records failing validation are treated as storage corruption on load.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record missing id")
	}
	if r.Name == "" {
		return fmt.Errorf("record %s: missing name", r.ID)
	}
	if r.Description == "" {
		return fmt.Errorf("record %s: missing description", r.ID)
	}
	if ParseCategory(string(r.Category)) != r.Category {
		return fmt.Errorf("record %s: unknown category %q", r.ID, r.Category)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("record %s: missing created_at", r.ID)
	}
	if r.UseCount < 0 {
		return fmt.Errorf("record %s: negative use_count", r.ID)
	}
	return nil
}
