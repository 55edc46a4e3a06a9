package domain

import "sort"

// Medic certification levels, in ascending order of capability.
const (
	CertParamedic    = "paramedic"
	CertEMTAdvanced  = "emt_advanced"
	CertCriticalCare = "critical_care"
)

// Medic is one record of the static medic roster. The matcher only reads and
// scores medics; confirming a dispatch and flipping availability is the fleet
// manager's job.
type Medic struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Specialty         string     `json:"specialty"` // cardiac, trauma, respiratory, neuro, pediatric, general
	Certification     string     `json:"certification"`
	Coord             Coordinate `json:"coord"`
	Available         bool       `json:"available"`
	CurrentLoadPct    int        `json:"current_load_pct"` // 0-100 workload
	MissionsCompleted int        `json:"missions_completed,omitempty"`
	Rating            float64    `json:"rating"` // 0.0-5.0
	Languages         []string   `json:"languages,omitempty"`
}

// MedicScoreBreakdown exposes the individual factors behind a composite
// match score, for audit.
type MedicScoreBreakdown struct {
	Distance  float64 `json:"distance"`
	Specialty float64 `json:"specialty"`
	Workload  float64 `json:"workload"`
	Rating    float64 `json:"rating"`
	Cert      float64 `json:"cert"`
}

// MedicScore is one scored medic relative to a patient coordinate and case
// category.
type MedicScore struct {
	Medic      Medic               `json:"medic"`
	Composite  float64             `json:"composite"`
	DistanceKM float64             `json:"distance_km"`
	ETAMin     float64             `json:"eta_min"`
	Breakdown  MedicScoreBreakdown `json:"breakdown"`
}

// MedicSelection is the best-scored medic plus up to three runners-up for
// dispatcher override.
type MedicSelection struct {
	Best         MedicScore   `json:"best"`
	Alternatives []MedicScore `json:"alternatives,omitempty"`
}

// specialtyCategories maps a medic specialty to the case categories it covers
// at full score.
var specialtyCategories = map[string][]Category{
	"cardiac":     {CategoryCardiac},
	"trauma":      {CategoryTrauma},
	"respiratory": {CategoryRespiratory},
	"neuro":       {CategoryNeurological},
	"general":     {CategoryAllergic, CategoryOther},
}

// Composite score weights. Distance dominates: for a time-critical dispatch
// proximity matters more than a perfect specialty fit.
const (
	medicWeightDistance  = 0.40
	medicWeightSpecialty = 0.30
	medicWeightWorkload  = 0.15
	medicWeightRating    = 0.10
	medicWeightCert      = 0.05

	// medicMaxRangeKM is the distance at which the distance factor bottoms
	// out at zero.
	medicMaxRangeKM = 20.0
)

// SpecialtyMatchScore scores how well a medic specialty covers a case
// category: 1.0 for a direct match, 0.7 for a generalist, 0.4 otherwise.
func SpecialtyMatchScore(specialty string, category Category) float64 {
	for _, c := range specialtyCategories[specialty] {
		if c == category {
			return 1.0
		}
	}
	if specialty == "general" {
		return 0.7
	}
	return 0.4
}

func certScore(certification string) float64 {
	switch certification {
	case CertCriticalCare:
		return 1.0
	case CertEMTAdvanced:
		return 0.85
	default:
		return 0.7
	}
}

// ScoreMedic computes the composite match score for one medic. speedKMH is
// the cruise speed used for the ETA estimate.
func ScoreMedic(m Medic, patient Coordinate, category Category, speedKMH float64) MedicScore {
	distance := Haversine(m.Coord, patient)

	breakdown := MedicScoreBreakdown{
		Distance:  clamp(1-distance/medicMaxRangeKM, 0, 1),
		Specialty: SpecialtyMatchScore(m.Specialty, category),
		Workload:  clamp(1-float64(m.CurrentLoadPct)/100, 0, 1),
		Rating:    clamp(m.Rating/5.0, 0, 1),
		Cert:      certScore(m.Certification),
	}

	composite := breakdown.Distance*medicWeightDistance +
		breakdown.Specialty*medicWeightSpecialty +
		breakdown.Workload*medicWeightWorkload +
		breakdown.Rating*medicWeightRating +
		breakdown.Cert*medicWeightCert

	return MedicScore{
		Medic:      m,
		Composite:  composite,
		DistanceKM: distance,
		ETAMin:     TravelMinutes(distance, speedKMH),
		Breakdown:  breakdown,
	}
}

// RankMedics scores every available medic with valid coordinates and returns
// them ordered by composite score descending, ties by medic ID for a stable
// order.
func RankMedics(patient Coordinate, category Category, medics []Medic, speedKMH float64) []MedicScore {
	scored := make([]MedicScore, 0, len(medics))
	for _, m := range medics {
		if !m.Available || !m.Coord.Valid() {
			continue
		}
		scored = append(scored, ScoreMedic(m, patient, category, speedKMH))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Composite != scored[j].Composite {
			return scored[i].Composite > scored[j].Composite
		}
		return scored[i].Medic.ID < scored[j].Medic.ID
	})
	return scored
}

// SelectMedic picks the best-scored available medic for the case, with up to
// three alternatives. Fails with NoAvailableMedicError when the roster has no
// available medic.
func SelectMedic(patient Coordinate, category Category, medics []Medic, speedKMH float64) (MedicSelection, error) {
	ranked := RankMedics(patient, category, medics, speedKMH)
	if len(ranked) == 0 {
		return MedicSelection{}, &NoAvailableMedicError{Total: len(medics)}
	}

	sel := MedicSelection{Best: ranked[0]}
	rest := ranked[1:]
	if len(rest) > 3 {
		rest = rest[:3]
	}
	if len(rest) > 0 {
		sel.Alternatives = append(sel.Alternatives, rest...)
	}
	return sel, nil
}
