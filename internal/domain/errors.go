package domain

import (
	"fmt"
	"strings"
)

// MalformedInputError reports a raw field value that could not be normalized.
// It carries the field kind and the offending raw value so callers can relay
// both to a human operator.
type MalformedInputError struct {
	Field  string // field kind, e.g. "weather_risk", "harm_window"
	Raw    string // raw value as received
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s value %q: %s", e.Field, e.Raw, e.Reason)
}

// UnrecognizedLabelError reports a dispatch label string that does not
// canonicalize to any known response mode.
type UnrecognizedLabelError struct {
	Raw string
}

func (e *UnrecognizedLabelError) Error() string {
	return fmt.Sprintf("unrecognized dispatch label %q", e.Raw)
}

// UnresolvedCaseError reports that no reference case matched the query with
// sufficient confidence and no explicit harm window override was supplied.
// Alternatives carries the closest candidates for caller disambiguation.
type UnresolvedCaseError struct {
	Query        string
	BestScore    float64
	Alternatives []Candidate
}

func (e *UnresolvedCaseError) Error() string {
	if len(e.Alternatives) == 0 {
		return fmt.Sprintf("no reference case matches %q (best score %.2f)", e.Query, e.BestScore)
	}
	names := make([]string, len(e.Alternatives))
	for i, a := range e.Alternatives {
		names[i] = fmt.Sprintf("%s (%.2f)", a.Name, a.Score)
	}
	return fmt.Sprintf("no reference case matches %q (best score %.2f); closest: %s",
		e.Query, e.BestScore, strings.Join(names, ", "))
}

// IncompleteDecisionInputError reports that the rule cascade was invoked
// without one or more of its required numeric inputs.
type IncompleteDecisionInputError struct {
	Missing []string
}

func (e *IncompleteDecisionInputError) Error() string {
	return fmt.Sprintf("decision input incomplete: missing %s", strings.Join(e.Missing, ", "))
}

// NoAvailableZoneError reports that no operational landing zone exists for
// an aerial dispatch.
type NoAvailableZoneError struct {
	Total int // zones considered, including non-operational ones
}

func (e *NoAvailableZoneError) Error() string {
	return fmt.Sprintf("no operational landing zone available (%d zones known)", e.Total)
}

// NoAvailableMedicError reports that the medic roster has no available
// member to assign to an aerial dispatch.
type NoAvailableMedicError struct {
	Total int // roster size, including unavailable medics
}

func (e *NoAvailableMedicError) Error() string {
	return fmt.Sprintf("no available medic on the roster (%d medics known)", e.Total)
}
