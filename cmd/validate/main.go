// Command validate replays an expected-outcome corpus through the live
// decision pipeline and checks reference data integrity along the way. The
// corpus may be JSON or YAML; records pass through the exact same entry point
// the HTTP API uses.
//
// Usage:
//
//	go run ./cmd/validate -data data -corpus data/dispatch_corpus.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/observability"
	"github.com/couchcryptid/aerial-dispatch-service/internal/pipeline"
	"github.com/couchcryptid/aerial-dispatch-service/internal/refdata"
	"github.com/couchcryptid/aerial-dispatch-service/internal/validator"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data", "data", "directory containing reference datasets")
	corpusPath := flag.String("corpus", "", "path to the expected-outcome corpus (.json or .yaml)")
	flag.Parse()

	if *corpusPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir, *corpusPath); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, corpusPath string) int {
	// Freeze the clock so two replays of the same corpus are comparable
	// timestamp for timestamp.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Dispatch Decision Validation ===")
	fmt.Println()

	tables, err := refdata.Load(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reference data: %v\n", err)
		return 1
	}

	records, err := loadCorpus(corpusPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load corpus: %v\n", err)
		return 1
	}

	decider := newDecider(tables)

	var report validator.Report
	phases := []*phase{
		validateReferenceData(tables),
		validateCorpus(decider, records, &report),
		validateDeterminism(decider, records, report),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Reference: %d cases, %d zones. Corpus: %d records, %d matched, accuracy %.1f%%\n",
		tables.Cases.Len(), len(tables.Zones), report.Total, report.Matched, report.Accuracy*100)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// newDecider builds a pipeline with no audit sinks; replays must not pollute
// the audit trail.
func newDecider(tables *refdata.Tables) *pipeline.Decider {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.New(refdata.NewStore(tables), nil, logger,
		observability.NewMetricsForTesting(), 0.3, domain.DefaultThresholds())
}

func loadCorpus(path string) ([]validator.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []validator.Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("corpus %s is empty", path)
	}
	return records, nil
}

// ── Phase 1: Reference Data Integrity ──
// Every case must resolve to itself through the matcher, and every
// operational zone must be reachable from the target.

func validateReferenceData(tables *refdata.Tables) *phase {
	p := &phase{name: "Phase 1: Reference Data Integrity"}

	for _, key := range tables.Cases.Keys() {
		result := domain.MatchCase(key, tables.Cases, 0)
		if !result.Resolved() || !result.Exact {
			p.errorf("case key %q does not exact-match itself", key)
		}
	}

	operational := 0
	for _, z := range tables.Zones {
		if z.Operational {
			operational++
		}
	}
	if operational == 0 {
		p.errorf("no operational landing zone: every aerial decision would fail")
	}

	if _, err := domain.SelectLandingZone(tables.Target.Coordinate(), tables.Zones, tables.Target.DroneSpeedKMH); err != nil {
		p.errorf("zone selection from target failed: %v", err)
	}

	return p
}

// ── Phase 2: Corpus Replay ──
// Replays every record and requires full agreement with expected outcomes.

func validateCorpus(decider *pipeline.Decider, records []validator.Record, out *validator.Report) *phase {
	p := &phase{name: "Phase 2: Corpus Replay"}

	report, err := validator.Run(context.Background(), decider.Decide, records)
	if err != nil {
		p.errorf("replay failed: %v", err)
		return p
	}
	*out = report

	for _, m := range report.Mismatches {
		if m.Err != "" {
			p.errorf("%s: %s", m.RecordID, m.Err)
			continue
		}
		detail := ""
		if m.Decision != nil {
			detail = fmt.Sprintf(" (rule %s: %s)", m.Decision.TriggeredRule, strings.Join(m.Decision.Reasons, "; "))
		}
		p.errorf("%s: expected %s, got %s%s", m.RecordID, m.Expected, m.Actual, detail)
	}
	return p
}

// ── Phase 3: Determinism ──
// A second replay of the same corpus must produce the same rule and mode for
// every record.

func validateDeterminism(decider *pipeline.Decider, records []validator.Record, first validator.Report) *phase {
	p := &phase{name: "Phase 3: Determinism (double replay)"}

	second, err := validator.Run(context.Background(), decider.Decide, records)
	if err != nil {
		p.errorf("second replay failed: %v", err)
		return p
	}

	if second.Matched != first.Matched {
		p.errorf("matched count changed between replays: %d then %d", first.Matched, second.Matched)
	}
	if len(second.Mismatches) != len(first.Mismatches) {
		p.errorf("mismatch count changed between replays: %d then %d", len(first.Mismatches), len(second.Mismatches))
	}
	return p
}
