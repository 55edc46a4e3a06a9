// Package validator replays an expected-outcome corpus through the same
// decision entry point the live API uses and reports agreement.
package validator

import (
	"context"
	"fmt"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/pipeline"
)

// Record is one corpus entry: the raw inputs of a historical emergency and
// the outcome the dispatcher expects for it.
type Record struct {
	ID       string           `json:"id,omitempty" yaml:"id,omitempty"`
	Request  pipeline.Request `json:"request" yaml:"request"`
	Expected string           `json:"expected" yaml:"expected"`
}

// Mismatch is one corpus record the engine disagreed with, with the full
// decision rationale for review.
type Mismatch struct {
	RecordID string                  `json:"record_id,omitempty"`
	Expected domain.Mode             `json:"expected"`
	Actual   domain.Mode             `json:"actual,omitempty"`
	Decision *domain.DispatchDecision `json:"decision,omitempty"`
	Err      string                  `json:"error,omitempty"`
}

// Report aggregates a corpus replay.
type Report struct {
	Total      int        `json:"total"`
	Matched    int        `json:"matched"`
	Accuracy   float64    `json:"accuracy"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// DecideFunc is the decision entry point under validation.
type DecideFunc func(ctx context.Context, req pipeline.Request) (domain.DispatchDecision, error)

// Run replays every record through decide and scores the outcomes. Expected
// labels pass through the same label normalization as live input, so corpus
// authors may write "🚑 Ambulance" and mean AMBULANCE. A record whose expected
// label does not normalize, or whose replay errors, counts as a mismatch.
func Run(ctx context.Context, decide DecideFunc, records []Record) (Report, error) {
	if decide == nil {
		return Report{}, fmt.Errorf("no decision function provided")
	}

	report := Report{Total: len(records)}
	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("record %d", i+1)
		}

		expected, err := domain.NormalizeDecisionLabel(rec.Expected)
		if err != nil {
			report.Mismatches = append(report.Mismatches, Mismatch{
				RecordID: id,
				Err:      fmt.Sprintf("expected label: %v", err),
			})
			continue
		}

		decision, err := decide(ctx, rec.Request)
		if err != nil {
			report.Mismatches = append(report.Mismatches, Mismatch{
				RecordID: id,
				Expected: expected,
				Err:      err.Error(),
			})
			continue
		}

		if decision.Mode != expected {
			report.Mismatches = append(report.Mismatches, Mismatch{
				RecordID: id,
				Expected: expected,
				Actual:   decision.Mode,
				Decision: &decision,
			})
			continue
		}
		report.Matched++
	}

	if report.Total > 0 {
		report.Accuracy = float64(report.Matched) / float64(report.Total)
	}
	return report, nil
}
