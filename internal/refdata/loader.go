// Package refdata loads the read-only reference datasets the decision
// pipeline consults: the medical reference case table, the landing zone
// registry, and the target location constants. Loaded tables are immutable;
// hot reload swaps a whole snapshot rather than mutating in place.
package refdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
)

// Reference dataset file names, resolved relative to the data directory.
const (
	CasesFile  = "reference_cases.json"
	ZonesFile  = "landing_zones.json"
	TargetFile = "target_location.json"
	MedicsFile = "medics.json"
)

// TargetLocation is the fixed dispatch target coordinate plus the fleet
// cruise speed constants used for travel time estimates.
type TargetLocation struct {
	Name              string  `json:"name,omitempty"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	AmbulanceSpeedKMH float64 `json:"ambulance_speed_kmh"`
	DroneSpeedKMH     float64 `json:"drone_speed_kmh"`
}

// Coordinate returns the target as a domain coordinate.
func (t TargetLocation) Coordinate() domain.Coordinate {
	return domain.Coordinate{Lat: t.Lat, Lon: t.Lon}
}

// Tables is one immutable snapshot of all reference data. Medics may be nil
// when no roster file is deployed; medic assignment is then skipped.
type Tables struct {
	Cases    *domain.CaseTable
	Zones    []domain.LandingZone
	Target   TargetLocation
	Medics   []domain.Medic
	LoadedAt time.Time
}

// caseRecord is the on-disk shape of a reference case. Harm windows are
// stored as the original range strings ("4-6 m", ">60 m") and parsed at load
// time so a malformed table fails the load, not a live request.
type caseRecord struct {
	ID            int      `json:"id"`
	Name          string   `json:"case_name"`
	Category      string   `json:"category"`
	Description   string   `json:"description,omitempty"`
	Severity      string   `json:"severity"`
	SeverityLevel int      `json:"severity_level"`
	CTAS          int      `json:"ctas,omitempty"`
	HarmWindow    string   `json:"harm_window"`
	Intervention  string   `json:"intervention,omitempty"`
	Equipment     []string `json:"equipment,omitempty"`
}

// Load reads all reference datasets from dir and returns a validated
// snapshot.
func Load(dir string) (*Tables, error) {
	cases, err := loadCases(filepath.Join(dir, CasesFile))
	if err != nil {
		return nil, err
	}

	zones, err := loadZones(filepath.Join(dir, ZonesFile))
	if err != nil {
		return nil, err
	}

	target, err := loadTarget(filepath.Join(dir, TargetFile))
	if err != nil {
		return nil, err
	}

	medics, err := loadMedics(filepath.Join(dir, MedicsFile))
	if err != nil {
		return nil, err
	}

	return &Tables{
		Cases:    cases,
		Zones:    zones,
		Target:   target,
		Medics:   medics,
		LoadedAt: time.Now().UTC(),
	}, nil
}

func loadCases(path string) (*domain.CaseTable, error) {
	var records []caseRecord
	if err := readJSON(path, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: reference case table is empty", path)
	}

	cases := make([]domain.ReferenceCase, 0, len(records))
	for _, r := range records {
		window, err := domain.ParseHarmWindow(r.HarmWindow)
		if err != nil {
			return nil, fmt.Errorf("%s: case %d (%q): %w", path, r.ID, r.Name, err)
		}
		cases = append(cases, domain.ReferenceCase{
			ID:            r.ID,
			Name:          r.Name,
			Category:      domain.Category(r.Category),
			Description:   r.Description,
			Severity:      r.Severity,
			SeverityLevel: r.SeverityLevel,
			CTAS:          r.CTAS,
			HarmWindow:    window,
			HarmWindowRaw: r.HarmWindow,
			Intervention:  r.Intervention,
			Equipment:     r.Equipment,
		})
	}

	table, err := domain.NewCaseTable(cases)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func loadZones(path string) ([]domain.LandingZone, error) {
	var zones []domain.LandingZone
	if err := readJSON(path, &zones); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		if z.ID == "" {
			return nil, fmt.Errorf("%s: zone %q has no id", path, z.Name)
		}
		if _, dup := seen[z.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate zone id %q", path, z.ID)
		}
		seen[z.ID] = struct{}{}
		if !z.Coord.Valid() {
			return nil, fmt.Errorf("%s: zone %q has invalid coordinates (%.4f, %.4f)", path, z.ID, z.Coord.Lat, z.Coord.Lon)
		}
	}
	return zones, nil
}

// loadMedics reads the medic roster. The file is optional: a deployment
// without one serves decisions with no medic assignment.
func loadMedics(path string) ([]domain.Medic, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var medics []domain.Medic
	if err := readJSON(path, &medics); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(medics))
	for _, m := range medics {
		if m.ID == "" {
			return nil, fmt.Errorf("%s: medic %q has no id", path, m.Name)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate medic id %q", path, m.ID)
		}
		seen[m.ID] = struct{}{}
		if !m.Coord.Valid() {
			return nil, fmt.Errorf("%s: medic %q has invalid coordinates (%.4f, %.4f)", path, m.ID, m.Coord.Lat, m.Coord.Lon)
		}
		if m.CurrentLoadPct < 0 || m.CurrentLoadPct > 100 {
			return nil, fmt.Errorf("%s: medic %q workload %d out of range", path, m.ID, m.CurrentLoadPct)
		}
		if m.Rating < 0 || m.Rating > 5 {
			return nil, fmt.Errorf("%s: medic %q rating %.1f out of range", path, m.ID, m.Rating)
		}
	}
	return medics, nil
}

func loadTarget(path string) (TargetLocation, error) {
	var target TargetLocation
	if err := readJSON(path, &target); err != nil {
		return TargetLocation{}, err
	}
	if !target.Coordinate().Valid() {
		return TargetLocation{}, fmt.Errorf("%s: invalid target coordinates (%.4f, %.4f)", path, target.Lat, target.Lon)
	}
	if target.AmbulanceSpeedKMH <= 0 || target.DroneSpeedKMH <= 0 {
		return TargetLocation{}, fmt.Errorf("%s: cruise speeds must be positive", path)
	}
	return target, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
