package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhaldi/mobility-growth/internal/domain"
)

type mockService struct {
	ready      error
	states     []string
	statesErr  error
	snapshot   domain.Snapshot
	recompErr  error
	lastParams domain.Params
}

func (m *mockService) CheckReadiness(_ context.Context) error { return m.ready }

func (m *mockService) Defaults() domain.Params {
	return domain.Params{
		State:    "New York",
		MinCases: 20,
		GrowthWindow: domain.DateRange{
			Start: time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2020, 4, 14, 0, 0, 0, 0, time.UTC),
		},
		MobilityWindow: domain.DateRange{
			Start: time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2020, 3, 28, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (m *mockService) States() ([]string, error) { return m.states, m.statesErr }

func (m *mockService) Recompute(_ context.Context, p domain.Params) (domain.Snapshot, error) {
	m.lastParams = p
	if m.recompErr != nil {
		return domain.Snapshot{}, m.recompErr
	}
	snap := m.snapshot
	snap.Params = p
	return snap, nil
}

type mockRenderer struct {
	png []byte
	err error
}

func (m *mockRenderer) Render(_ domain.Snapshot) ([]byte, error) { return m.png, m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(svc *mockService, r *mockRenderer) *Server {
	return NewServer(":0", svc, r, discardLogger())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&mockService{}, &mockRenderer{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(&mockService{}, &mockRenderer{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready while datasets load", func(t *testing.T) {
		srv := newTestServer(&mockService{ready: errors.New("datasets not loaded")}, &mockRenderer{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "datasets not loaded")
	})
}

func TestStatesEndpoint(t *testing.T) {
	svc := &mockService{states: []string{"New York", "Texas"}}
	srv := newTestServer(svc, &mockRenderer{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/states", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		States []string `json:"states"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"New York", "Texas"}, body.States)
}

func TestAggregateEndpoint(t *testing.T) {
	growth := 22.5
	snap := domain.Snapshot{
		Rows: []domain.RegionRow{
			{
				RegionID:           "48001",
				RegionName:         "Anderson",
				MeanDailyGrowthPct: &growth,
				MeanMobilityIndex:  61.0,
				MaxCaseCount:       120,
			},
		},
		Fit: &domain.TrendFit{Slope: -0.3, Intercept: 40.0},
	}

	t.Run("defaults applied when no parameters given", func(t *testing.T) {
		svc := &mockService{snapshot: snap}
		srv := newTestServer(svc, &mockRenderer{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aggregate", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "New York", svc.lastParams.State)
		assert.Equal(t, 20, svc.lastParams.MinCases)
		assert.Contains(t, rec.Body.String(), `"region_id":"48001"`)
		assert.Contains(t, rec.Body.String(), `"mean_daily_growth_pct":22.5`)
	})

	t.Run("query parameters override defaults", func(t *testing.T) {
		svc := &mockService{snapshot: snap}
		srv := newTestServer(svc, &mockRenderer{})

		target := "/api/aggregate?state=Texas&min_cases=50" +
			"&growth_start=2020-05-01&growth_end=2020-05-10" +
			"&mobility_start=2020-04-01&mobility_end=2020-04-10"
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Texas", svc.lastParams.State)
		assert.Equal(t, 50, svc.lastParams.MinCases)
		assert.Equal(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), svc.lastParams.GrowthWindow.Start)
		assert.Equal(t, time.Date(2020, 4, 10, 0, 0, 0, 0, time.UTC), svc.lastParams.MobilityWindow.End)
	})

	t.Run("bad request on malformed date", func(t *testing.T) {
		srv := newTestServer(&mockService{snapshot: snap}, &mockRenderer{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aggregate?growth_start=04-01-2020", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "growth window")
	})

	t.Run("bad request on inverted window", func(t *testing.T) {
		srv := newTestServer(&mockService{snapshot: snap}, &mockRenderer{})

		target := "/api/aggregate?growth_start=2020-04-14&growth_end=2020-04-01"
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad request on negative min_cases", func(t *testing.T) {
		srv := newTestServer(&mockService{snapshot: snap}, &mockRenderer{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aggregate?min_cases=-5", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service unavailable before datasets load", func(t *testing.T) {
		svc := &mockService{recompErr: errors.New("datasets not loaded")}
		srv := newTestServer(svc, &mockRenderer{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/aggregate", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestPlotEndpoint(t *testing.T) {
	t.Run("serves rendered png", func(t *testing.T) {
		renderer := &mockRenderer{png: []byte("\x89PNG fake")}
		srv := newTestServer(&mockService{}, renderer)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plot.png", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, renderer.png, rec.Body.Bytes())
	})

	t.Run("internal error when render fails", func(t *testing.T) {
		renderer := &mockRenderer{err: errors.New("encode failed")}
		srv := newTestServer(&mockService{}, renderer)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plot.png", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("bad parameters rejected before rendering", func(t *testing.T) {
		srv := newTestServer(&mockService{}, &mockRenderer{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plot.png?min_cases=abc", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockService{}, &mockRenderer{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/aggregate", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
