package domain

import "time"

// Mode is the dispatch response mode. The rule cascade only ever emits
// ModeAmbulance or ModeDoctorDrone; ModeCombined (aerial stabilization plus
// ground transport) is composed above the cascade when a drone decision is
// paired with an independently requested ground unit.
type Mode string

const (
	ModeAmbulance   Mode = "AMBULANCE"
	ModeDoctorDrone Mode = "DOCTOR_DRONE"
	ModeCombined    Mode = "COMBINED"
)

// Rule names in cascade order.
const (
	RuleSafetyFilter      = "safety_filter"
	RuleEmergencyOverride = "emergency_override"
	RuleEfficiency        = "efficiency_optimization"
	RuleDefault           = "default"
)

// RuleOutcome is the recorded result of one cascade rule.
type RuleOutcome string

const (
	OutcomeFired        RuleOutcome = "fired"
	OutcomePassed       RuleOutcome = "passed"
	OutcomeNotEvaluated RuleOutcome = "not_evaluated"
)

// RuleEval is one entry of the decision's ordered rule trace. The trace is a
// first-class output: every rule appears in every decision, short-circuited
// rules included, so an auditor can reconstruct exactly why a mode was chosen.
type RuleEval struct {
	Rule      string      `json:"rule"`
	Condition string      `json:"condition"`
	Outcome   RuleOutcome `json:"outcome"`
}

// NormalizedInput is the canonical form of a decision request after
// normalization. ETAs and the harm window are pointers because the cascade
// must distinguish absent from zero and fail loudly on absence.
type NormalizedInput struct {
	WeatherRiskPct float64   `json:"weather_risk_pct"`
	GroundETAMin   *float64  `json:"ground_eta_min,omitempty"`
	AirETAMin      *float64  `json:"air_eta_min,omitempty"`
	HarmWindow     *Interval `json:"harm_window,omitempty"`
}

// CaseSummary is the matched-case context echoed into a decision.
type CaseSummary struct {
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	Severity      string   `json:"severity"`
	MatchScore    float64  `json:"match_score"`
	ExactMatch    bool     `json:"exact_match"`
	HarmWindowRaw string   `json:"harm_window_raw,omitempty"`
	Equipment     []string `json:"equipment,omitempty"`
	Intervention  string   `json:"intervention,omitempty"`
}

// DispatchDecision is the immutable outcome of one decision request. It
// doubles as the audit log entry format.
type DispatchDecision struct {
	ID            string          `json:"id"`
	Mode          Mode            `json:"mode"`
	TriggeredRule string          `json:"triggered_rule"`
	Trace         []RuleEval      `json:"trace"`
	Reasons       []string        `json:"reasons"`
	Inputs        NormalizedInput `json:"inputs"`
	TimeDeltaMin  float64         `json:"time_delta_min"`
	Case          *CaseSummary    `json:"case,omitempty"`
	Zone          *ZoneSelection  `json:"zone,omitempty"`
	Medic         *MedicSelection `json:"medic,omitempty"`
	Triage        *TriageResult   `json:"triage,omitempty"`
	DecidedAt     time.Time       `json:"decided_at"`
}

// AerialLeg reports whether the decision includes a drone dispatch and
// therefore needs a landing zone.
func (d *DispatchDecision) AerialLeg() bool {
	return d.Mode == ModeDoctorDrone || d.Mode == ModeCombined
}
