package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// punctRe strips everything that is not a word character, whitespace, or
	// hyphen. Covers emoji decorations like "🚑" and "🚀" on dispatch labels.
	punctRe = regexp.MustCompile(`[^\w\s-]`)

	// spaceRe collapses runs of whitespace.
	spaceRe = regexp.MustCompile(`\s+`)

	// harmUnitRe strips minute-unit suffixes: "min", "mins", "minutes", "m".
	harmUnitRe = regexp.MustCompile(`(?i)\s*m(in(utes?)?)?\s*$`)

	digitRe = regexp.MustCompile(`\d`)
)

// Interval is a closed numeric interval [Min, Max] in minutes.
type Interval struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the interval.
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Min && v <= iv.Max
}

// CanonicalName normalizes free text for reference table keying and matching:
// lowercase, punctuation stripped, whitespace collapsed, trimmed.
func CanonicalName(s string) string {
	clean := strings.ToLower(strings.TrimSpace(s))
	clean = punctRe.ReplaceAllString(clean, "")
	clean = spaceRe.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// NormalizeWeatherRisk converts a raw weather risk value into a percentage in
// [0, 100]. A numeric value at or below 1 is interpreted as a fraction and
// scaled; a larger numeric value passes through; a string with a "%" suffix
// is parsed as a percentage without fraction scaling. Anything else is
// malformed. Weather risk is the one optional decision input: an absent
// value normalizes to 0, meaning the safety filter never fires on a request
// that omits weather entirely. Callers who want a conservative grounding must
// report a risk.
func NormalizeWeatherRisk(v RawValue) (float64, error) {
	if v.IsAbsent() {
		return 0, nil
	}

	var pct float64
	switch v.kind {
	case rawString:
		s := strings.TrimSpace(v.str)
		hadPercent := strings.HasSuffix(s, "%")
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &MalformedInputError{Field: "weather_risk", Raw: v.String(), Reason: "not a number or percentage"}
		}
		pct = f
		if !hadPercent && f <= 1.0 {
			pct = f * 100.0
		}
	case rawNumber:
		pct = v.num
		if v.num <= 1.0 {
			pct = v.num * 100.0
		}
	default:
		return 0, &MalformedInputError{Field: "weather_risk", Raw: v.String(), Reason: "unsupported shape"}
	}

	return clamp(pct, 0, 100), nil
}

// NormalizeETA converts a raw travel time estimate into minutes. The field
// name is carried into the error so the caller can tell ground from air.
func NormalizeETA(field string, v RawValue) (float64, error) {
	if v.IsAbsent() {
		return 0, &IncompleteDecisionInputError{Missing: []string{field}}
	}
	f, ok := v.number()
	if !ok {
		return 0, &MalformedInputError{Field: field, Raw: v.String(), Reason: "not a number of minutes"}
	}
	if f < 0 {
		return 0, &MalformedInputError{Field: field, Raw: v.String(), Reason: "negative duration"}
	}
	return f, nil
}

// ParseHarmWindow parses a time-to-irreversible-harm string into a closed
// interval in minutes. Accepted shapes: a single number ("30 min" → [30,30]),
// a closed range ("4-6 m" → [4,6]), or an open lower bound (">60 m" →
// [60,60]). The open form discards its unbounded upper end and is carried as
// a lower-bound-only guarantee, matching the reference table's documented
// semantics. Reversed ranges are swapped.
func ParseHarmWindow(raw string) (Interval, error) {
	clean := harmUnitRe.ReplaceAllString(strings.TrimSpace(raw), "")
	clean = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(clean), ">"))

	if !digitRe.MatchString(clean) {
		return Interval{}, &MalformedInputError{Field: "harm_window", Raw: raw, Reason: "no digits"}
	}

	if lo, hi, ok := strings.Cut(clean, "-"); ok {
		min, errLo := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		max, errHi := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if errLo != nil || errHi != nil {
			return Interval{}, &MalformedInputError{Field: "harm_window", Raw: raw, Reason: "unparseable range bounds"}
		}
		if min > max {
			min, max = max, min
		}
		return Interval{Min: min, Max: max}, nil
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return Interval{}, &MalformedInputError{Field: "harm_window", Raw: raw, Reason: "unparseable value"}
	}
	return Interval{Min: v, Max: v}, nil
}

// NormalizeHarmWindow converts a raw harm window value, either a range string
// or a bare number of minutes, into an interval.
func NormalizeHarmWindow(v RawValue) (Interval, error) {
	switch v.kind {
	case rawString:
		return ParseHarmWindow(v.str)
	case rawNumber:
		if v.num < 0 {
			return Interval{}, &MalformedInputError{Field: "harm_window", Raw: v.String(), Reason: "negative duration"}
		}
		return Interval{Min: v.num, Max: v.num}, nil
	default:
		return Interval{}, &IncompleteDecisionInputError{Missing: []string{"harm_window"}}
	}
}

// NormalizeDecisionLabel canonicalizes a free-form dispatch label against the
// two response modes. Decorative prefixes (emoji, punctuation) and case are
// ignored; aerial synonyms ("drone", "doctor", "aerial", "air") map to
// ModeDoctorDrone. Labels that match neither mode fail.
func NormalizeDecisionLabel(raw string) (Mode, error) {
	clean := punctRe.ReplaceAllString(strings.TrimSpace(raw), "")
	clean = strings.ToUpper(strings.TrimSpace(clean))
	clean = spaceRe.ReplaceAllString(clean, "_")
	if clean == "" {
		return "", &UnrecognizedLabelError{Raw: raw}
	}

	switch {
	case clean == string(ModeAmbulance):
		return ModeAmbulance, nil
	case clean == string(ModeDoctorDrone):
		return ModeDoctorDrone, nil
	case clean == string(ModeCombined):
		return ModeCombined, nil
	case strings.Contains(clean, "DRONE"), strings.Contains(clean, "DOCTOR"),
		strings.Contains(clean, "AERIAL"), strings.Contains(clean, "AIR"):
		return ModeDoctorDrone, nil
	case strings.Contains(clean, "AMBULANCE"), strings.Contains(clean, "GROUND"):
		return ModeAmbulance, nil
	}
	return "", &UnrecognizedLabelError{Raw: raw}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
