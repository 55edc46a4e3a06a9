package domain

import (
	"fmt"
)

// Thresholds are the named operational constants of the rule cascade.
type Thresholds struct {
	// MaxWeatherRiskPct is the weather risk above which drone flight is
	// unsafe and the cascade short-circuits to a ground ambulance.
	MaxWeatherRiskPct float64

	// MinAirAdvantageMin is the number of minutes a drone must save over
	// ground before efficiency alone justifies an aerial dispatch.
	MinAirAdvantageMin float64
}

// DefaultThresholds match the operational specification: 35% weather risk,
// 10-minute efficiency gap.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxWeatherRiskPct: 35.0, MinAirAdvantageMin: 10.0}
}

// Decide runs the dispatch rule cascade over a normalized input. Rules are
// evaluated strictly in order, first match wins, and every comparison is a
// strict greater-than:
//
//  1. safety_filter:          weather risk > MaxWeatherRiskPct → AMBULANCE
//  2. emergency_override:     ground ETA > harm window upper bound → DOCTOR_DRONE
//  3. efficiency_optimization: ground ETA - air ETA > MinAirAdvantageMin → DOCTOR_DRONE
//  4. default:                AMBULANCE
//
// The full four-rule trace is emitted on every decision; rules after the
// firing one are recorded as not evaluated. Absent ETAs or harm window fail
// with IncompleteDecisionInputError; the cascade never guesses.
func Decide(in NormalizedInput, th Thresholds) (DispatchDecision, error) {
	var missing []string
	if in.GroundETAMin == nil {
		missing = append(missing, "ground_eta_min")
	}
	if in.AirETAMin == nil {
		missing = append(missing, "air_eta_min")
	}
	if in.HarmWindow == nil {
		missing = append(missing, "harm_window")
	}
	if len(missing) > 0 {
		return DispatchDecision{}, &IncompleteDecisionInputError{Missing: missing}
	}

	groundETA := *in.GroundETAMin
	airETA := *in.AirETAMin
	harmUpper := in.HarmWindow.Max
	timeDelta := groundETA - airETA

	trace := []RuleEval{
		{
			Rule:      RuleSafetyFilter,
			Condition: fmt.Sprintf("weather_risk_pct (%.1f) > %.1f", in.WeatherRiskPct, th.MaxWeatherRiskPct),
			Outcome:   OutcomeNotEvaluated,
		},
		{
			Rule:      RuleEmergencyOverride,
			Condition: fmt.Sprintf("ground_eta_min (%.1f) > harm_window_max (%.1f)", groundETA, harmUpper),
			Outcome:   OutcomeNotEvaluated,
		},
		{
			Rule:      RuleEfficiency,
			Condition: fmt.Sprintf("ground_eta_min - air_eta_min (%.1f) > %.1f", timeDelta, th.MinAirAdvantageMin),
			Outcome:   OutcomeNotEvaluated,
		},
		{
			Rule:      RuleDefault,
			Condition: "no override condition met",
			Outcome:   OutcomeNotEvaluated,
		},
	}

	decision := DispatchDecision{
		Inputs:       in,
		TimeDeltaMin: timeDelta,
		DecidedAt:    clock.Now().UTC(),
	}

	switch {
	case fire(trace, 0, in.WeatherRiskPct > th.MaxWeatherRiskPct):
		decision.Mode = ModeAmbulance
		decision.TriggeredRule = RuleSafetyFilter
		decision.Reasons = []string{
			"weather unsafe",
			fmt.Sprintf("weather risk %.1f%% exceeds the %.1f%% flight safety threshold", in.WeatherRiskPct, th.MaxWeatherRiskPct),
		}
	case fire(trace, 1, groundETA > harmUpper):
		decision.Mode = ModeDoctorDrone
		decision.TriggeredRule = RuleEmergencyOverride
		decision.Reasons = []string{
			"harm window would close before ground arrival",
			fmt.Sprintf("ground ETA %.1f min exceeds harm window upper bound %.1f min", groundETA, harmUpper),
			fmt.Sprintf("drone arrival in %.1f min saves %.1f min", airETA, timeDelta),
		}
	case fire(trace, 2, timeDelta > th.MinAirAdvantageMin):
		decision.Mode = ModeDoctorDrone
		decision.TriggeredRule = RuleEfficiency
		decision.Reasons = []string{
			fmt.Sprintf("air saves ≥%.0f minutes", th.MinAirAdvantageMin),
			fmt.Sprintf("drone saves %.1f min over ground (%.1f vs %.1f min)", timeDelta, groundETA, airETA),
		}
	default:
		trace[3].Outcome = OutcomeFired
		decision.Mode = ModeAmbulance
		decision.TriggeredRule = RuleDefault
		decision.Reasons = []string{
			"no override condition met",
			fmt.Sprintf("weather risk acceptable at %.1f%%", in.WeatherRiskPct),
			fmt.Sprintf("ground ETA %.1f min within harm window upper bound %.1f min", groundETA, harmUpper),
			fmt.Sprintf("time savings %.1f min below the %.0f min efficiency threshold", timeDelta, th.MinAirAdvantageMin),
		}
	}

	decision.Trace = trace
	return decision, nil
}

// fire records the outcome of rule i and reports whether it fired. Rules only
// reach this function while no earlier rule has fired, so a false condition
// is recorded as passed and evaluation falls through.
func fire(trace []RuleEval, i int, cond bool) bool {
	if cond {
		trace[i].Outcome = OutcomeFired
		return true
	}
	trace[i].Outcome = OutcomePassed
	return false
}
