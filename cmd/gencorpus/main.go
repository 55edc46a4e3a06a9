// Command gencorpus generates the expected-outcome replay corpus from the
// reference datasets. It runs every scenario through the actual decision
// pipeline so the recorded outcomes match real engine behavior, then writes
// them as validator records.
//
// Usage:
//
//	go run ./cmd/gencorpus -data data -out data/dispatch_corpus.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/observability"
	"github.com/couchcryptid/aerial-dispatch-service/internal/pipeline"
	"github.com/couchcryptid/aerial-dispatch-service/internal/refdata"
	"github.com/couchcryptid/aerial-dispatch-service/internal/validator"
)

// scenario is one input variation applied to a reference case. Raw field
// encodings are deliberately mixed (percent strings, fractions, range text)
// so replays exercise the normalizer, not just the cascade.
type scenario struct {
	suffix  string
	request pipeline.Request
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data", "data", "directory containing reference datasets")
	out := flag.String("out", "data/dispatch_corpus.json", "output path for the corpus")
	flag.Parse()

	// Fixed clock for reproducible decision timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	tables, err := refdata.Load(*dataDir)
	if err != nil {
		return fmt.Errorf("loading reference data: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	decider := pipeline.New(refdata.NewStore(tables), nil, logger,
		observability.NewMetricsForTesting(), 0.3, domain.DefaultThresholds())

	var records []validator.Record
	modeCounts := map[domain.Mode]int{}
	ruleCounts := map[string]int{}

	for _, key := range tables.Cases.Keys() {
		refCase, _ := tables.Cases.Lookup(key)
		for _, sc := range scenariosFor(refCase) {
			decision, err := decider.Decide(context.Background(), sc.request)
			if err != nil {
				return fmt.Errorf("deciding %s/%s: %w", refCase.Name, sc.suffix, err)
			}

			records = append(records, validator.Record{
				ID:       fmt.Sprintf("%s-%s", key, sc.suffix),
				Request:  sc.request,
				Expected: string(decision.Mode),
			})
			modeCounts[decision.Mode]++
			ruleCounts[decision.TriggeredRule]++
		}
	}

	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing corpus: %w", err)
	}
	log.Printf("wrote %d records to %s", len(records), *out)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(records))
	fmt.Printf("By mode: ambulance=%d, drone=%d, combined=%d\n",
		modeCounts[domain.ModeAmbulance], modeCounts[domain.ModeDoctorDrone], modeCounts[domain.ModeCombined])
	for rule, n := range ruleCounts {
		fmt.Printf("  rule %s: %d\n", rule, n)
	}
	return nil
}

// scenariosFor derives deterministic input variations for one reference case.
// ETAs are anchored on the case's harm window so every cascade rule shows up
// in the corpus regardless of which case it is attached to.
func scenariosFor(c *domain.ReferenceCase) []scenario {
	maxHarm := c.HarmWindow.Max

	// Tight harm windows would push derived air ETAs negative.
	clamp := func(v float64) float64 {
		if v < 1 {
			return 1
		}
		return v
	}

	return []scenario{
		{
			// High weather risk short-circuits to ground regardless of ETAs.
			suffix: "storm",
			request: pipeline.Request{
				CaseName:    c.Name,
				WeatherRisk: domain.RawString("88%"),
				GroundETA:   domain.RawNumber(30),
				AirETA:      domain.RawNumber(6),
			},
		},
		{
			// Ground arrives after the harm window closes.
			suffix: "override",
			request: pipeline.Request{
				CaseName:    c.Name,
				WeatherRisk: domain.RawString("5%"),
				GroundETA:   domain.RawNumber(maxHarm + 5),
				AirETA:      domain.RawNumber(clamp(maxHarm / 2)),
			},
		},
		{
			// Ground is in time but the drone saves well over the gap.
			suffix: "efficiency",
			request: pipeline.Request{
				CaseName:    c.Name,
				WeatherRisk: domain.RawNumber(0.10),
				GroundETA:   domain.RawNumber(clamp(maxHarm - 1)),
				AirETA:      domain.RawNumber(clamp(maxHarm - 16)),
			},
		},
		{
			// Ground is in time and the gap is too small to justify air.
			suffix: "routine",
			request: pipeline.Request{
				CaseName:    c.Name,
				WeatherRisk: domain.RawString("12%"),
				GroundETA:   domain.RawNumber(clamp(maxHarm - 1)),
				AirETA:      domain.RawNumber(clamp(maxHarm - 4)),
			},
		},
		{
			// Caller asked for a parallel ground unit on an aerial case.
			suffix: "parallel",
			request: pipeline.Request{
				CaseName:       c.Name,
				WeatherRisk:    domain.RawString("5%"),
				GroundETA:      domain.RawNumber(maxHarm + 5),
				AirETA:         domain.RawNumber(clamp(maxHarm / 2)),
				ParallelGround: true,
			},
		},
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
