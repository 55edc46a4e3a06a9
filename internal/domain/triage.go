package domain

import "sort"

// redFlags are symptoms that escalate straight to severity level 3 regardless
// of the point score.
var redFlags = map[string]struct{}{
	"trouble_breathing":      {},
	"choking":                {},
	"turning_blue":           {},
	"chest_pain_crushing":    {},
	"unconscious":            {},
	"not_responding":         {},
	"seizure_now":            {},
	"face_droop":             {},
	"slurred_speech":         {},
	"arm_weakness":           {},
	"severe_bleeding":        {},
	"heavy_bleeding":         {},
	"anaphylaxis_signs":      {},
	"severe_allergy_swelling": {},
}

// symptomPoints assigns each known symptom its triage weight.
var symptomPoints = map[string]int{
	// critical
	"unconscious": 5, "not_responding": 5, "fainting": 5,
	"severe_bleeding": 5, "heavy_bleeding": 5,
	"face_droop": 5, "slurred_speech": 5, "arm_weakness": 5, "stroke_signs": 5,
	"severe_allergy_swelling": 5, "anaphylaxis_signs": 5,
	// urgent
	"trouble_breathing": 4, "shortness_of_breath": 4,
	"chest_pain": 4, "chest_pain_crushing": 4,
	"choking": 4, "turning_blue": 4,
	// concerning
	"moderate_bleeding": 3, "seizure_now": 3, "major_trauma": 3,
	"head_injury": 3, "confusion": 3,
	// moderate
	"high_fever": 2, "fever": 2, "vomiting_severe": 2, "diarrhea_severe": 2,
	"dehydration": 2, "palpitations": 2, "wheezing": 2,
	// mild
	"mild_pain": 1, "headache": 1, "rash": 1, "chills": 1, "nausea": 1,
	"vomiting": 1, "diarrhea": 1, "panic": 1, "severe_distress": 1,
	"swelling_face_lips": 1,
}

// categoryRules maps symptoms to medical categories, checked in priority
// order so multi-system presentations resolve deterministically.
var categoryRules = []struct {
	category Category
	symptoms map[string]struct{}
}{
	{CategoryTrauma, set("severe_bleeding", "heavy_bleeding", "moderate_bleeding", "major_trauma", "head_injury")},
	{CategoryCardiac, set("chest_pain", "chest_pain_crushing", "palpitations")},
	{CategoryRespiratory, set("shortness_of_breath", "wheezing", "choking", "trouble_breathing", "turning_blue")},
	{CategoryNeurological, set("seizure_now", "fainting", "face_droop", "slurred_speech", "arm_weakness", "stroke_signs", "confusion", "unconscious", "not_responding")},
	{CategoryAllergic, set("rash", "swelling_face_lips", "anaphylaxis_signs", "severe_allergy_swelling")},
}

// voiceStressEscalation is the voice stress score at or above which one bonus
// point is added to a non-zero symptom score.
const voiceStressEscalation = 0.80

// TriageResult is the symptom-based severity assessment attached to a
// decision for operator context. It never alters the rule cascade.
type TriageResult struct {
	Category      Category `json:"category"`
	SeverityLevel int      `json:"severity_level"` // 0 insufficient info .. 3 emergency
	Score         int      `json:"score"`
	RedFlags      []string `json:"red_flags,omitempty"`
	Escalate      bool     `json:"escalate"`
}

// Triage scores a symptom list into a severity level. A red-flag symptom
// forces level 3 and escalation; otherwise points accumulate per symptom,
// with a single bonus point when voice stress is at or above 0.80, and map
// to levels: 0 → 0, 1-2 → 1, 3-4 → 2, 5+ → 3.
func Triage(symptoms []string, voiceStress float64) TriageResult {
	result := TriageResult{Category: CategoryOther}
	if len(symptoms) == 0 {
		return result
	}

	seen := make(map[string]struct{}, len(symptoms))
	for _, s := range symptoms {
		seen[s] = struct{}{}
		if _, red := redFlags[s]; red {
			result.RedFlags = append(result.RedFlags, s)
		}
	}
	sort.Strings(result.RedFlags)

	for _, rule := range categoryRules {
		if intersects(seen, rule.symptoms) {
			result.Category = rule.category
			break
		}
	}

	for s := range seen {
		result.Score += symptomPoints[s]
	}
	if len(result.RedFlags) > 0 {
		result.SeverityLevel = 3
		result.Escalate = true
		return result
	}
	if result.Score > 0 && voiceStress >= voiceStressEscalation {
		result.Score++
	}

	switch {
	case result.Score == 0:
		result.SeverityLevel = 0
	case result.Score <= 2:
		result.SeverityLevel = 1
	case result.Score <= 4:
		result.SeverityLevel = 2
	default:
		result.SeverityLevel = 3
		result.Escalate = true
	}
	return result
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
