// Package pipeline orchestrates one dispatch decision end to end: raw field
// normalization, case resolution, the rule cascade, landing zone selection,
// and best-effort audit fan-out.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/observability"
	"github.com/couchcryptid/aerial-dispatch-service/internal/refdata"
)

// TableProvider hands out the current reference data snapshot.
type TableProvider interface {
	Snapshot() *refdata.Tables
}

// Auditor records a finalized decision. Audit sinks are best-effort: a sink
// failure is logged and counted but never fails the decision.
type Auditor interface {
	Name() string
	Append(ctx context.Context, decision domain.DispatchDecision) error
}

// Request is one reported emergency as received from the caller, fields in
// their raw, unit-ambiguous shapes.
type Request struct {
	CaseName    string          `json:"case_name" yaml:"case_name"`
	Symptoms    []string        `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	VoiceStress float64         `json:"voice_stress,omitempty" yaml:"voice_stress,omitempty"`
	// WeatherRisk is optional. An absent value normalizes to 0%, so the
	// safety filter only grounds a dispatch on explicitly reported weather.
	// Both ETAs are required and reject absent values.
	WeatherRisk domain.RawValue `json:"weather_risk" yaml:"weather_risk"`
	GroundETA   domain.RawValue `json:"ground_eta_min" yaml:"ground_eta_min"`
	AirETA      domain.RawValue `json:"air_eta_min" yaml:"air_eta_min"`

	// HarmWindow, when present, overrides the matched case's harm window and
	// lets a decision proceed without a confident case match.
	HarmWindow domain.RawValue `json:"harm_window,omitempty" yaml:"harm_window,omitempty"`

	// Patient overrides the configured target coordinate for zone selection.
	Patient *domain.Coordinate `json:"patient,omitempty" yaml:"patient,omitempty"`

	// ParallelGround requests a ground unit alongside any aerial dispatch,
	// upgrading a DOCTOR_DRONE decision to COMBINED.
	ParallelGround bool `json:"parallel_ground,omitempty" yaml:"parallel_ground,omitempty"`
}

// Decider runs the decision pipeline against the current reference snapshot.
type Decider struct {
	tables     TableProvider
	auditors   []Auditor
	logger     *slog.Logger
	metrics    *observability.Metrics
	threshold  float64
	thresholds domain.Thresholds
}

// New creates a Decider. matchThreshold ≤ 0 uses the default acceptance
// threshold.
func New(tables TableProvider, auditors []Auditor, logger *slog.Logger, metrics *observability.Metrics, matchThreshold float64, thresholds domain.Thresholds) *Decider {
	return &Decider{
		tables:     tables,
		auditors:   auditors,
		logger:     logger,
		metrics:    metrics,
		threshold:  matchThreshold,
		thresholds: thresholds,
	}
}

// CheckReadiness returns nil once reference data is loaded and decisions can
// be served.
func (d *Decider) CheckReadiness(_ context.Context) error {
	if d.tables.Snapshot() == nil {
		return errors.New("reference data not loaded yet")
	}
	return nil
}

// Decide runs one request through the full pipeline and returns the decision.
// All failures are typed domain errors carrying the stage and offending value.
func (d *Decider) Decide(ctx context.Context, req Request) (domain.DispatchDecision, error) {
	start := time.Now()

	snapshot := d.tables.Snapshot()
	if snapshot == nil {
		return domain.DispatchDecision{}, errors.New("reference data not loaded yet")
	}

	input, match, err := d.normalize(req, snapshot)
	if err != nil {
		return domain.DispatchDecision{}, err
	}

	decision, err := domain.Decide(input, d.thresholds)
	if err != nil {
		d.metrics.DecisionErrors.WithLabelValues("decide").Inc()
		return domain.DispatchDecision{}, err
	}
	decision.ID = uuid.NewString()

	if match.Resolved() {
		c := match.Case
		decision.Case = &domain.CaseSummary{
			Name:          c.Name,
			Category:      c.Category,
			Severity:      c.Severity,
			MatchScore:    match.Score,
			ExactMatch:    match.Exact,
			HarmWindowRaw: c.HarmWindowRaw,
			Equipment:     c.Equipment,
			Intervention:  c.Intervention,
		}
	}

	if len(req.Symptoms) > 0 {
		triage := domain.Triage(req.Symptoms, req.VoiceStress)
		decision.Triage = &triage
	}

	if decision.Mode == domain.ModeDoctorDrone && req.ParallelGround {
		decision.Mode = domain.ModeCombined
		decision.Reasons = append(decision.Reasons, "ground unit dispatched in parallel at caller request")
	}

	if decision.AerialLeg() {
		patient := snapshot.Target.Coordinate()
		if req.Patient != nil && req.Patient.Valid() {
			patient = *req.Patient
		}
		zone, err := domain.SelectLandingZone(patient, snapshot.Zones, snapshot.Target.DroneSpeedKMH)
		if err != nil {
			d.metrics.DecisionErrors.WithLabelValues("zone").Inc()
			return domain.DispatchDecision{}, err
		}
		decision.Zone = &zone

		// Medic assignment is advisory: a roster with no available medic
		// downgrades to an unstaffed aerial dispatch, it never blocks the
		// decision.
		if len(snapshot.Medics) > 0 {
			category := domain.CategoryOther
			if decision.Case != nil {
				category = decision.Case.Category
			} else if decision.Triage != nil {
				category = decision.Triage.Category
			}
			medic, err := domain.SelectMedic(patient, category, snapshot.Medics, snapshot.Target.DroneSpeedKMH)
			if err != nil {
				d.metrics.MedicAssignments.WithLabelValues("none").Inc()
				d.logger.Warn("no medic assigned", "error", err)
			} else {
				d.metrics.MedicAssignments.WithLabelValues("assigned").Inc()
				decision.Medic = &medic
			}
		}
	}

	d.audit(ctx, decision)

	d.metrics.Decisions.WithLabelValues(string(decision.Mode), decision.TriggeredRule).Inc()
	d.metrics.DecisionDuration.Observe(time.Since(start).Seconds())
	d.logger.Info("dispatch decided",
		"decision_id", decision.ID,
		"mode", decision.Mode,
		"rule", decision.TriggeredRule,
		"case", req.CaseName,
		"time_delta_min", decision.TimeDeltaMin,
	)
	return decision, nil
}

// normalize converts the raw request fields to canonical units and resolves
// the harm window, either from an explicit override or the matched case.
func (d *Decider) normalize(req Request, snapshot *refdata.Tables) (domain.NormalizedInput, domain.MatchResult, error) {
	var input domain.NormalizedInput
	var match domain.MatchResult

	weather, err := domain.NormalizeWeatherRisk(req.WeatherRisk)
	if err != nil {
		return input, match, d.normalizeError("weather_risk", err)
	}
	input.WeatherRiskPct = weather

	ground, err := domain.NormalizeETA("ground_eta_min", req.GroundETA)
	if err != nil {
		return input, match, d.normalizeError("ground_eta_min", err)
	}
	input.GroundETAMin = &ground

	air, err := domain.NormalizeETA("air_eta_min", req.AirETA)
	if err != nil {
		return input, match, d.normalizeError("air_eta_min", err)
	}
	input.AirETAMin = &air

	if req.CaseName != "" {
		match = domain.MatchCase(req.CaseName, snapshot.Cases, d.threshold)
		if match.Resolved() {
			d.metrics.MatchConfidence.Observe(match.Score)
			window := match.Case.HarmWindow
			input.HarmWindow = &window
		}
	}

	// An explicit harm window wins over the matched case's window.
	if !req.HarmWindow.IsAbsent() {
		window, err := domain.NormalizeHarmWindow(req.HarmWindow)
		if err != nil {
			return input, match, d.normalizeError("harm_window", err)
		}
		input.HarmWindow = &window
	}

	if input.HarmWindow == nil {
		d.metrics.UnresolvedCases.Inc()
		d.metrics.DecisionErrors.WithLabelValues("match").Inc()
		return input, match, &domain.UnresolvedCaseError{
			Query:        req.CaseName,
			BestScore:    match.Score,
			Alternatives: match.Alternatives,
		}
	}

	return input, match, nil
}

func (d *Decider) normalizeError(field string, err error) error {
	d.metrics.NormalizeErrors.WithLabelValues(field).Inc()
	d.metrics.DecisionErrors.WithLabelValues("normalize").Inc()
	return err
}

// audit fans the decision out to every configured sink. Failures never
// propagate; the decision has already been made.
func (d *Decider) audit(ctx context.Context, decision domain.DispatchDecision) {
	for _, a := range d.auditors {
		if err := a.Append(ctx, decision); err != nil {
			d.metrics.AuditErrors.WithLabelValues(a.Name()).Inc()
			d.logger.Warn("audit append failed",
				"sink", a.Name(), "decision_id", decision.ID, "error", err)
			continue
		}
		d.metrics.AuditPublished.WithLabelValues(a.Name()).Inc()
	}
}
