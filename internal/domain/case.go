package domain

import (
	"fmt"
	"sort"
)

// Category is the medical category of a reference case.
type Category string

const (
	CategoryCardiac      Category = "cardiac"
	CategoryRespiratory  Category = "respiratory"
	CategoryTrauma       Category = "trauma"
	CategoryNeurological Category = "neurological"
	CategoryAllergic     Category = "allergic"
	CategoryOther        Category = "other"
)

// ReferenceCase is one record of the static medical reference table. Records
// are immutable after load; the table is keyed by the canonical form of the
// case name.
type ReferenceCase struct {
	ID            int      `json:"id"`
	Name          string   `json:"case_name"`
	Category      Category `json:"category"`
	Description   string   `json:"description,omitempty"`
	Severity      string   `json:"severity"`
	SeverityLevel int      `json:"severity_level"`
	CTAS          int      `json:"ctas,omitempty"` // Canadian Triage and Acuity Scale, 1-5
	HarmWindow    Interval `json:"harm_window"`
	HarmWindowRaw string   `json:"harm_window_raw,omitempty"`
	Intervention  string   `json:"intervention,omitempty"`
	Equipment     []string `json:"equipment,omitempty"`

	canonical string
}

// CanonicalKey returns the canonical (lowercased, punctuation-stripped) name
// the case is keyed by.
func (c *ReferenceCase) CanonicalKey() string {
	return c.canonical
}

// CaseTable is the immutable, canonically keyed reference case table. Keys
// are kept in sorted order so every traversal is deterministic regardless of
// map iteration order.
type CaseTable struct {
	byKey map[string]*ReferenceCase
	keys  []string
}

// NewCaseTable builds a table from reference records. Duplicate canonical
// keys are rejected: two cases that collapse to the same canonical name would
// make exact matching ambiguous.
func NewCaseTable(cases []ReferenceCase) (*CaseTable, error) {
	t := &CaseTable{byKey: make(map[string]*ReferenceCase, len(cases))}
	for i := range cases {
		c := cases[i]
		c.canonical = CanonicalName(c.Name)
		if c.canonical == "" {
			return nil, fmt.Errorf("reference case %d (%q): empty canonical name", c.ID, c.Name)
		}
		if dup, exists := t.byKey[c.canonical]; exists {
			return nil, fmt.Errorf("reference cases %q and %q collide on canonical key %q", dup.Name, c.Name, c.canonical)
		}
		t.byKey[c.canonical] = &c
		t.keys = append(t.keys, c.canonical)
	}
	sort.Strings(t.keys)
	return t, nil
}

// Len returns the number of reference cases.
func (t *CaseTable) Len() int {
	return len(t.keys)
}

// Lookup returns the case for an exact canonical key, if any.
func (t *CaseTable) Lookup(canonicalKey string) (*ReferenceCase, bool) {
	c, ok := t.byKey[canonicalKey]
	return c, ok
}

// Keys returns the canonical keys in sorted order. Callers must not mutate
// the returned slice.
func (t *CaseTable) Keys() []string {
	return t.keys
}

// Candidate is one scored alternative from case matching.
type Candidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// MatchResult is the outcome of resolving a free-text case name. Case is nil
// when no candidate clears the acceptance threshold; absence of a confident
// match is a representable result, not an error.
type MatchResult struct {
	Query        string         `json:"query"`
	Case         *ReferenceCase `json:"case,omitempty"`
	Score        float64        `json:"score"`
	Exact        bool           `json:"exact"`
	Alternatives []Candidate    `json:"alternatives,omitempty"`
}

// Resolved reports whether a confident match was found.
func (r MatchResult) Resolved() bool {
	return r.Case != nil
}
