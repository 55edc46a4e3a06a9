package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/aerial-dispatch-service/internal/adapter/httpapi"
	"github.com/couchcryptid/aerial-dispatch-service/internal/domain"
	"github.com/couchcryptid/aerial-dispatch-service/internal/pipeline"
	"github.com/couchcryptid/aerial-dispatch-service/internal/refdata"
)

type mockEngine struct {
	decision domain.DispatchDecision
	err      error
	readyErr error
}

func (m *mockEngine) Decide(_ context.Context, _ pipeline.Request) (domain.DispatchDecision, error) {
	return m.decision, m.err
}

func (m *mockEngine) CheckReadiness(_ context.Context) error { return m.readyErr }

type mockTables struct {
	tables *refdata.Tables
}

func (m *mockTables) Snapshot() *refdata.Tables { return m.tables }

func testTables() *refdata.Tables {
	return &refdata.Tables{
		Zones: []domain.LandingZone{
			{ID: "LZ-01", Name: "Al Ghadir Park", Coord: domain.Coordinate{Lat: 24.7703, Lon: 46.6529}, Operational: true},
			{ID: "LZ-02", Name: "School Field", Coord: domain.Coordinate{Lat: 24.7790, Lon: 46.6610}, Operational: true},
		},
		Target: refdata.TargetLocation{Lat: 24.7745, Lon: 46.6575, AmbulanceSpeedKMH: 35, DroneSpeedKMH: 120},
	}
}

func newTestServer(engine *mockEngine, tables *refdata.Tables) *httpapi.Server {
	return httpapi.NewServer(":0", engine, &mockTables{tables: tables}, slog.Default())
}

func postJSON(t *testing.T, srv *httpapi.Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	srv.ServeHTTP(rec, req)
	return rec
}

func TestDecideReturnsDecision(t *testing.T) {
	engine := &mockEngine{decision: domain.DispatchDecision{
		ID:            "d-1",
		Mode:          domain.ModeDoctorDrone,
		TriggeredRule: domain.RuleEmergencyOverride,
	}}
	srv := newTestServer(engine, testTables())

	rec := postJSON(t, srv, "/v1/decide", map[string]any{
		"case_name":      "cardiac arrest",
		"weather_risk":   "5%",
		"ground_eta_min": 18,
		"air_eta_min":    4,
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var decision domain.DispatchDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, "d-1", decision.ID)
	assert.Equal(t, domain.ModeDoctorDrone, decision.Mode)
}

func TestDecideRejectsBadJSON(t *testing.T) {
	srv := newTestServer(&mockEngine{}, testTables())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/decide", bytes.NewReader([]byte("{nope")))

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"malformed input", &domain.MalformedInputError{Field: "weather_risk", Raw: "stormy", Reason: "not a number"}, http.StatusBadRequest},
		{"incomplete input", &domain.IncompleteDecisionInputError{Missing: []string{"air_eta_min"}}, http.StatusBadRequest},
		{"unrecognized label", &domain.UnrecognizedLabelError{Raw: "taxi"}, http.StatusBadRequest},
		{"unresolved case", &domain.UnresolvedCaseError{Query: "mystery", BestScore: 0.1}, http.StatusUnprocessableEntity},
		{"no zone", &domain.NoAvailableZoneError{Total: 3}, http.StatusUnprocessableEntity},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockEngine{err: tt.err}, testTables())
			rec := postJSON(t, srv, "/v1/decide", map[string]any{"case_name": "x"})
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestDecideUnresolvedIncludesAlternatives(t *testing.T) {
	engine := &mockEngine{err: &domain.UnresolvedCaseError{
		Query:        "heart thing",
		BestScore:    0.2,
		Alternatives: []domain.Candidate{{Name: "Cardiac Arrest", Score: 0.2}},
	}}
	srv := newTestServer(engine, testTables())

	rec := postJSON(t, srv, "/v1/decide", map[string]any{"case_name": "heart thing"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["alternatives"])
}

func TestValidateReturnsReport(t *testing.T) {
	engine := &mockEngine{decision: domain.DispatchDecision{Mode: domain.ModeAmbulance}}
	srv := newTestServer(engine, testTables())

	rec := postJSON(t, srv, "/v1/validate", []map[string]any{
		{"id": "c-1", "request": map[string]any{"case_name": "fracture"}, "expected": "AMBULANCE"},
		{"id": "c-2", "request": map[string]any{"case_name": "stroke"}, "expected": "DOCTOR_DRONE"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Total    int     `json:"total"`
		Matched  int     `json:"matched"`
		Accuracy float64 `json:"accuracy"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 0.5, report.Accuracy)
}

func TestZonesRankedFromTarget(t *testing.T) {
	srv := newTestServer(&mockEngine{}, testTables())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/zones", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Zones []domain.ZoneSelection `json:"zones"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Zones, 2)
	assert.Equal(t, "LZ-02", body.Zones[0].Zone.ID)
}

func TestZonesFromQueryCoordinate(t *testing.T) {
	srv := newTestServer(&mockEngine{}, testTables())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/zones?lat=24.7705&lon=46.6531", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Zones []domain.ZoneSelection `json:"zones"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Zones, 2)
	assert.Equal(t, "LZ-01", body.Zones[0].Zone.ID)
}

func TestZonesRejectsBadCoordinate(t *testing.T) {
	srv := newTestServer(&mockEngine{}, testTables())

	for _, query := range []string{"?lat=abc&lon=46.6", "?lat=95&lon=46.6", "?lat=24.77"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/zones"+query, nil)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %s", query)
	}
}

func TestZonesUnavailableBeforeLoad(t *testing.T) {
	srv := newTestServer(&mockEngine{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/zones", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockEngine{}, testTables())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockEngine{}, testTables())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockEngine{readyErr: fmt.Errorf("not ready yet")}, testTables())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockEngine{}, testTables())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
