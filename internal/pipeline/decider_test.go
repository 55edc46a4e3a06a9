package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/observability"
	"github.com/couchcryptid/aerial-dispatch-service/internal/refdata"
)

type staticTables struct {
	tables *refdata.Tables
}

func (s *staticTables) Snapshot() *refdata.Tables { return s.tables }

type mockAuditor struct {
	mu       sync.Mutex
	name     string
	err      error
	appended []domain.DispatchDecision
}

func (m *mockAuditor) Name() string { return m.name }

func (m *mockAuditor) Append(_ context.Context, d domain.DispatchDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, d)
	return nil
}

func (m *mockAuditor) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appended)
}

func testTables(t *testing.T) *refdata.Tables {
	t.Helper()
	cases, err := domain.NewCaseTable([]domain.ReferenceCase{
		{ID: 1, Name: "Cardiac Arrest", Category: domain.CategoryCardiac, Severity: "critical", SeverityLevel: 3,
			HarmWindow: domain.Interval{Min: 4, Max: 6}, HarmWindowRaw: "4-6 m", Equipment: []string{"AED"}},
		{ID: 2, Name: "Stroke", Category: domain.CategoryNeurological, Severity: "critical", SeverityLevel: 3,
			HarmWindow: domain.Interval{Min: 60, Max: 60}, HarmWindowRaw: ">60 m"},
		{ID: 3, Name: "Fracture", Category: domain.CategoryTrauma, Severity: "moderate", SeverityLevel: 1,
			HarmWindow: domain.Interval{Min: 120, Max: 120}, HarmWindowRaw: "120 min"},
	})
	require.NoError(t, err)

	return &refdata.Tables{
		Cases: cases,
		Zones: []domain.LandingZone{
			{ID: "LZ-01", Name: "Al Ghadir Park", Coord: domain.Coordinate{Lat: 24.7703, Lon: 46.6529}, Operational: true},
			{ID: "LZ-02", Name: "School Field", Coord: domain.Coordinate{Lat: 24.7790, Lon: 46.6610}, Operational: true},
		},
		Target: refdata.TargetLocation{
			Lat: 24.7745, Lon: 46.6575,
			AmbulanceSpeedKMH: 35, DroneSpeedKMH: 120,
		},
	}
}

func newTestDecider(t *testing.T, tables *refdata.Tables, auditors ...Auditor) *Decider {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(&staticTables{tables: tables}, auditors, logger, observability.NewMetricsForTesting(), 0, domain.DefaultThresholds())
}

func TestDecider_AmbulanceOnUnsafeWeather(t *testing.T) {
	auditor := &mockAuditor{name: "test"}
	decider := newTestDecider(t, testTables(t), auditor)

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "Cardiac Arrest",
		WeatherRisk: domain.RawString("88%"),
		GroundETA:   domain.RawNumber(12),
		AirETA:      domain.RawNumber(4),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeAmbulance, decision.Mode)
	assert.Equal(t, domain.RuleSafetyFilter, decision.TriggeredRule)
	assert.NotEmpty(t, decision.ID)
	assert.Nil(t, decision.Zone)
	require.NotNil(t, decision.Case)
	assert.Equal(t, "Cardiac Arrest", decision.Case.Name)
	assert.True(t, decision.Case.ExactMatch)
	assert.Equal(t, 1, auditor.count())
}

func TestDecider_DroneGetsLandingZone(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	// Ground arrives after the cardiac arrest window closes.
	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "cardiac arrest",
		WeatherRisk: domain.RawNumber(0.05),
		GroundETA:   domain.RawNumber(18),
		AirETA:      domain.RawNumber(4),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeDoctorDrone, decision.Mode)
	assert.Equal(t, domain.RuleEmergencyOverride, decision.TriggeredRule)
	require.NotNil(t, decision.Zone)
	assert.Equal(t, "LZ-02", decision.Zone.Zone.ID)
	assert.Positive(t, decision.Zone.FlightTimeMin)
	assert.Nil(t, decision.Medic)
}

func testTablesWithMedics(t *testing.T) *refdata.Tables {
	t.Helper()
	tables := testTables(t)
	tables.Medics = []domain.Medic{
		{ID: "MED-1001", Name: "Dr. Aisha Rahman", Specialty: "cardiac", Certification: domain.CertCriticalCare,
			Coord: domain.Coordinate{Lat: 24.7722, Lon: 46.6551}, Available: true, CurrentLoadPct: 20, Rating: 4.9},
		{ID: "MED-1002", Name: "Omar Hadid", Specialty: "respiratory", Certification: domain.CertEMTAdvanced,
			Coord: domain.Coordinate{Lat: 24.7658, Lon: 46.6493}, Available: true, CurrentLoadPct: 10, Rating: 4.6},
		{ID: "MED-1003", Name: "Layla Nasser", Specialty: "trauma", Certification: domain.CertEMTAdvanced,
			Coord: domain.Coordinate{Lat: 24.7770, Lon: 46.6550}, Available: false, CurrentLoadPct: 0, Rating: 4.8},
	}
	return tables
}

func TestDecider_DroneGetsMedicAssignment(t *testing.T) {
	decider := newTestDecider(t, testTablesWithMedics(t))

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "cardiac arrest",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(18),
		AirETA:      domain.RawNumber(4),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeDoctorDrone, decision.Mode)
	require.NotNil(t, decision.Medic)
	assert.Equal(t, "MED-1001", decision.Medic.Best.Medic.ID)
	require.Len(t, decision.Medic.Alternatives, 1)
	assert.Equal(t, "MED-1002", decision.Medic.Alternatives[0].Medic.ID)
}

func TestDecider_AmbulanceGetsNoMedic(t *testing.T) {
	decider := newTestDecider(t, testTablesWithMedics(t))

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "fracture",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(12),
		AirETA:      domain.RawNumber(8),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeAmbulance, decision.Mode)
	assert.Nil(t, decision.Medic)
}

func TestDecider_NoAvailableMedicStillDecides(t *testing.T) {
	tables := testTables(t)
	tables.Medics = []domain.Medic{
		{ID: "MED-1003", Name: "Layla Nasser", Specialty: "trauma", Certification: domain.CertEMTAdvanced,
			Coord: domain.Coordinate{Lat: 24.7770, Lon: 46.6550}, Available: false, Rating: 4.8},
	}
	decider := newTestDecider(t, tables)

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "cardiac arrest",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(18),
		AirETA:      domain.RawNumber(4),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeDoctorDrone, decision.Mode)
	require.NotNil(t, decision.Zone)
	assert.Nil(t, decision.Medic)
}

func TestDecider_AbsentWeatherPassesSafetyFilter(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:  "fracture",
		GroundETA: domain.RawNumber(12),
		AirETA:    domain.RawNumber(8),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeAmbulance, decision.Mode)
	assert.Equal(t, domain.RuleDefault, decision.TriggeredRule)
	assert.Zero(t, decision.Inputs.WeatherRiskPct)
	require.NotEmpty(t, decision.Trace)
	assert.Equal(t, domain.RuleSafetyFilter, decision.Trace[0].Rule)
	assert.Equal(t, domain.OutcomePassed, decision.Trace[0].Outcome)
}

func TestDecider_CombinedOnParallelGround(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:       "cardiac arrest",
		WeatherRisk:    domain.RawNumber(5),
		GroundETA:      domain.RawNumber(18),
		AirETA:         domain.RawNumber(4),
		ParallelGround: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeCombined, decision.Mode)
	assert.Equal(t, domain.RuleEmergencyOverride, decision.TriggeredRule)
	require.NotNil(t, decision.Zone)
	assert.Contains(t, decision.Reasons, "ground unit dispatched in parallel at caller request")
}

func TestDecider_ParallelGroundDoesNotUpgradeAmbulance(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:       "fracture",
		WeatherRisk:    domain.RawNumber(5),
		GroundETA:      domain.RawNumber(12),
		AirETA:         domain.RawNumber(8),
		ParallelGround: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAmbulance, decision.Mode)
}

func TestDecider_ExplicitHarmWindowOverride(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	// No recognizable case name, but an explicit harm window lets the
	// decision proceed.
	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "unknown presentation",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(25),
		AirETA:      domain.RawNumber(6),
		HarmWindow:  domain.RawString("10-15 min"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeDoctorDrone, decision.Mode)
	require.NotNil(t, decision.Inputs.HarmWindow)
	assert.Equal(t, domain.Interval{Min: 10, Max: 15}, *decision.Inputs.HarmWindow)
	assert.Nil(t, decision.Case)
}

func TestDecider_UnresolvedCase(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	_, err := decider.Decide(context.Background(), Request{
		CaseName:    "spontaneous gardening",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(12),
		AirETA:      domain.RawNumber(8),
	})

	var unresolved *domain.UnresolvedCaseError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "spontaneous gardening", unresolved.Query)
}

func TestDecider_MalformedWeather(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	_, err := decider.Decide(context.Background(), Request{
		CaseName:    "stroke",
		WeatherRisk: domain.RawString("stormy"),
		GroundETA:   domain.RawNumber(12),
		AirETA:      domain.RawNumber(8),
	})

	var malformed *domain.MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "weather_risk", malformed.Field)
}

func TestDecider_MissingETA(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	_, err := decider.Decide(context.Background(), Request{
		CaseName:    "stroke",
		WeatherRisk: domain.RawNumber(5),
		AirETA:      domain.RawNumber(8),
	})

	var incomplete *domain.IncompleteDecisionInputError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"ground_eta_min"}, incomplete.Missing)
}

func TestDecider_NoOperationalZone(t *testing.T) {
	tables := testTables(t)
	for i := range tables.Zones {
		tables.Zones[i].Operational = false
	}
	decider := newTestDecider(t, tables)

	_, err := decider.Decide(context.Background(), Request{
		CaseName:    "cardiac arrest",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(18),
		AirETA:      domain.RawNumber(4),
	})

	var noZone *domain.NoAvailableZoneError
	require.ErrorAs(t, err, &noZone)
	assert.Equal(t, 2, noZone.Total)
}

func TestDecider_AuditFailureDoesNotFailDecision(t *testing.T) {
	broken := &mockAuditor{name: "broken", err: errors.New("sink down")}
	healthy := &mockAuditor{name: "healthy"}
	decider := newTestDecider(t, testTables(t), broken, healthy)

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "fracture",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(12),
		AirETA:      domain.RawNumber(8),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAmbulance, decision.Mode)
	assert.Equal(t, 1, healthy.count())
}

func TestDecider_TriageAttached(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "cardiac arrest",
		Symptoms:    []string{"chest_pain_crushing", "trouble_breathing"},
		VoiceStress: 0.9,
		WeatherRisk: domain.RawNumber(80),
		GroundETA:   domain.RawNumber(6),
		AirETA:      domain.RawNumber(3),
	})
	require.NoError(t, err)

	require.NotNil(t, decision.Triage)
	assert.Equal(t, 3, decision.Triage.SeverityLevel)
	assert.True(t, decision.Triage.Escalate)
	assert.NotEmpty(t, decision.Triage.RedFlags)
}

func TestDecider_PatientCoordinateOverride(t *testing.T) {
	decider := newTestDecider(t, testTables(t))

	// A patient right next to the park should get the park, not the zone
	// nearest the configured target.
	decision, err := decider.Decide(context.Background(), Request{
		CaseName:    "cardiac arrest",
		WeatherRisk: domain.RawNumber(5),
		GroundETA:   domain.RawNumber(18),
		AirETA:      domain.RawNumber(4),
		Patient:     &domain.Coordinate{Lat: 24.7705, Lon: 46.6531},
	})
	require.NoError(t, err)
	require.NotNil(t, decision.Zone)
	assert.Equal(t, "LZ-01", decision.Zone.Zone.ID)
}

func TestDecider_Readiness(t *testing.T) {
	empty := newTestDecider(t, nil)
	assert.Error(t, empty.CheckReadiness(context.Background()))

	ready := newTestDecider(t, testTables(t))
	assert.NoError(t, ready.CheckReadiness(context.Background()))
}
