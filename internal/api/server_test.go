package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/repository"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
	"github.com/vfg2006/sales-anomaly-monitor/internal/scheduler"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/authenticating"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting/mocks"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/middleware"
	"go.uber.org/mock/gomock"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// stubJob simula o agendador de detecção
type stubJob struct {
	mu       sync.Mutex
	busy     bool
	runErr   error
	result   *detecting.RunResult
	triggers int
	dates    []time.Time
}

func (s *stubJob) RunForDate(_ context.Context, referenceDate time.Time) (*detecting.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = append(s.dates, referenceDate)
	if s.runErr != nil {
		return nil, s.runErr
	}
	if s.result != nil {
		return s.result, nil
	}
	return &detecting.RunResult{ReferenceDate: referenceDate}, nil
}

func (s *stubJob) TriggerManualSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.triggers++
	return true
}

func (s *stubJob) GetStatus() map[string]any {
	return map[string]any{"sync_enabled": true}
}

type testServer struct {
	handler   http.Handler
	runner    *mocks.MockRunner
	job       *stubJob
	incidents repository.IncidentRepository
	admin     string
	operator  string
}

func newTestServer(t *testing.T) *testServer {
	ctrl := gomock.NewController(t)

	cfg := &config.Config{
		Auth:             config.Auth{Secret: "segredo-de-teste"},
		AnomalyDetection: config.AnomalyDetection{Timezone: "UTC"},
	}

	auth := authenticating.NewService(cfg)
	admin, err := auth.GenerateToken("admin-1", "Admin", middleware.RoleAdmin, time.Hour)
	require.NoError(t, err)
	operator, err := auth.GenerateToken("ops-1", "Operador", middleware.RoleOperator, time.Hour)
	require.NoError(t, err)

	ts := &testServer{
		runner:    mocks.NewMockRunner(ctrl),
		job:       &stubJob{},
		incidents: repository.NewMemoryIncidentRepository(),
		admin:     admin,
		operator:  operator,
	}

	ts.handler = NewHandler(cfg, Dependencies{
		Authenticator: auth,
		Runner:        ts.runner,
		Job:           ts.job,
		Incidents:     ts.incidents,
	})

	return ts
}

func (ts *testServer) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_Autenticacao(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		target     string
		token      string
		wantStatus int
	}{
		{name: "Healthcheck é público", method: http.MethodGet, target: "/healthcheck", wantStatus: http.StatusOK},
		{name: "Sem token", method: http.MethodGet, target: "/v1/incidents", wantStatus: http.StatusUnauthorized},
		{name: "Token inválido", method: http.MethodGet, target: "/v1/incidents", token: "abc", wantStatus: http.StatusUnauthorized},
		{name: "Operador não vê o status", method: http.MethodGet, target: "/v1/anomalies/status", token: ts.operator, wantStatus: http.StatusForbidden},
		{name: "Operador não dispara a detecção", method: http.MethodPost, target: "/v1/anomalies/run", token: ts.operator, wantStatus: http.StatusForbidden},
		{name: "Admin vê o status", method: http.MethodGet, target: "/v1/anomalies/status", token: ts.admin, wantStatus: http.StatusOK},
		{name: "Operador lista incidentes", method: http.MethodGet, target: "/v1/incidents", token: ts.operator, wantStatus: http.StatusOK},
		{name: "Rota inexistente", method: http.MethodGet, target: "/v1/nada", token: ts.admin, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.target, tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_RunAnomalyDetection(t *testing.T) {
	t.Run("Sem data dispara em segundo plano", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(http.MethodPost, "/v1/anomalies/run", ts.admin)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, 1, ts.job.triggers)
	})

	t.Run("Execução em andamento retorna 409", func(t *testing.T) {
		ts := newTestServer(t)
		ts.job.busy = true

		rec := ts.do(http.MethodPost, "/v1/anomalies/run", ts.admin)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Com data reprocessa o dia", func(t *testing.T) {
		ts := newTestServer(t)

		referenceDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		ts.job.result = &detecting.RunResult{
			RunID:         "run-10",
			ReferenceDate: referenceDate,
			Findings: []domain.Finding{
				{RuleName: domain.RuleLowRevenue, Severity: domain.SeverityHigh, ReferenceDate: referenceDate, Details: domain.LowRevenueDetails{}},
				{RuleName: domain.RuleRevenueDrop, Severity: domain.SeverityHigh, ReferenceDate: referenceDate, Details: domain.RevenueDropDetails{}},
			},
			Incidents:  []*domain.Incident{{ID: "inc-1", RuleName: domain.RuleRevenueDrop}},
			Duplicates: []string{"LOW_REVENUE|2024-01-10"},
		}

		rec := ts.do(http.MethodPost, "/v1/anomalies/run?date=2024-01-10", ts.admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, ts.job.dates, 1)
		assert.Equal(t, "2024-01-10", ts.job.dates[0].Format(time.DateOnly))

		var body struct {
			RunID     string           `json:"run_id"`
			Findings  []map[string]any `json:"findings"`
			Incidents []struct {
				ID string `json:"id"`
			} `json:"incidents"`
			Duplicates []string `json:"duplicates"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "run-10", body.RunID)
		assert.Len(t, body.Findings, 2)
		require.Len(t, body.Incidents, 1)
		assert.Equal(t, "inc-1", body.Incidents[0].ID)
		assert.Equal(t, []string{"LOW_REVENUE|2024-01-10"}, body.Duplicates)
	})

	t.Run("Data inválida", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.do(http.MethodPost, "/v1/anomalies/run?date=10/01/2024", ts.admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, ts.job.dates)
	})

	t.Run("Reprocessamento concorrente retorna 409", func(t *testing.T) {
		ts := newTestServer(t)
		ts.job.runErr = scheduler.ErrDetectionRunning

		rec := ts.do(http.MethodPost, "/v1/anomalies/run?date=2024-01-10", ts.admin)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Falha de persistência", func(t *testing.T) {
		ts := newTestServer(t)
		ts.job.runErr = &detecting.PersistenceError{Err: assert.AnError, Findings: 2}

		rec := ts.do(http.MethodPost, "/v1/anomalies/run?date=2024-01-10", ts.admin)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "ANM_002")
	})
}

func TestServer_PreviewAnomalies(t *testing.T) {
	ts := newTestServer(t)
	referenceDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	ts.runner.EXPECT().
		Evaluate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, analysisTime time.Time) (*detecting.RunResult, error) {
			assert.Equal(t, "2024-01-16", analysisTime.Format(time.DateOnly))
			return &detecting.RunResult{
				RunID:         "run-1",
				ReferenceDate: referenceDate,
				Findings: []domain.Finding{{
					RuleName:      domain.RuleLowRevenue,
					Severity:      domain.SeverityHigh,
					ReferenceDate: referenceDate,
					Summary:       "Faturamento baixo",
					Details: domain.LowRevenueDetails{
						Date:      "2024-01-15",
						Revenue:   decimal.NewFromInt(5),
						Threshold: decimal.NewFromInt(10),
					},
				}},
			}, nil
		})

	rec := ts.do(http.MethodGet, "/v1/anomalies/preview?date=2024-01-15", ts.admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		RunID    string `json:"run_id"`
		Findings []struct {
			RuleName string         `json:"rule_name"`
			Details  map[string]any `json:"details"`
		} `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	require.Len(t, body.Findings, 1)
	assert.Equal(t, "LOW_REVENUE", body.Findings[0].RuleName)
	assert.Equal(t, "5", body.Findings[0].Details["revenue"])
}

func TestServer_ListIncidents(t *testing.T) {
	ts := newTestServer(t)

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	_, err := ts.incidents.Record(context.Background(), []domain.Finding{
		{RuleName: domain.RuleLowRevenue, Severity: domain.SeverityHigh, ReferenceDate: day(10), Details: domain.LowRevenueDetails{}},
		{RuleName: domain.RuleRevenueDrop, Severity: domain.SeverityHigh, ReferenceDate: day(12), Details: domain.RevenueDropDetails{}},
		{RuleName: domain.RuleLowRevenue, Severity: domain.SeverityHigh, ReferenceDate: day(14), Details: domain.LowRevenueDetails{}},
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{name: "Sem filtros", target: "/v1/incidents", wantStatus: http.StatusOK, wantCount: 3},
		{name: "Por período", target: "/v1/incidents?start_date=2024-01-11&end_date=2024-01-14", wantStatus: http.StatusOK, wantCount: 2},
		{name: "Por regra", target: "/v1/incidents?rule=low_revenue", wantStatus: http.StatusOK, wantCount: 2},
		{name: "Regra desconhecida", target: "/v1/incidents?rule=FOO", wantStatus: http.StatusBadRequest},
		{name: "Período invertido", target: "/v1/incidents?start_date=2024-01-14&end_date=2024-01-11", wantStatus: http.StatusBadRequest},
		{name: "Data inválida", target: "/v1/incidents?start_date=ontem", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodGet, tt.target, ts.operator)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				return
			}

			var incidents []domain.Incident
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &incidents))
			assert.Len(t, incidents, tt.wantCount)
		})
	}
}
