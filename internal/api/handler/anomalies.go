package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vfg2006/sales-anomaly-monitor/internal/scheduler"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/apiErrors"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/log"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/utils"
)

// AnomalyJob é o serviço agendado de detecção, acionado manualmente pela API
type AnomalyJob interface {
	RunForDate(ctx context.Context, referenceDate time.Time) (*detecting.RunResult, error)
	TriggerManualSync() bool
	GetStatus() map[string]any
}

// RunAnomalyDetection dispara a detecção. Sem data, roda em segundo plano para o último
// dia completo e responde 202. Com ?date=YYYY-MM-DD, reprocessa o dia e responde com o resultado.
func RunAnomalyDetection(job AnomalyJob) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())
		logger.Info("INIT - RunAnomalyDetection")

		dateParam := r.URL.Query().Get("date")
		if dateParam == "" {
			if !job.TriggerManualSync() {
				apiErrors.WriteError(w, apiErrors.ErrDetectionRunning, "Detecção de anomalias já em andamento", nil)
				return
			}

			writeJSON(w, http.StatusAccepted, map[string]any{
				"message": "Detecção de anomalias iniciada com sucesso",
			})
			return
		}

		referenceDate, err := utils.ParseDate(dateParam)
		if err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Data inválida, use o formato YYYY-MM-DD", nil)
			return
		}

		result, err := job.RunForDate(r.Context(), *referenceDate)
		if err != nil {
			var persistenceErr *detecting.PersistenceError
			switch {
			case errors.Is(err, scheduler.ErrDetectionRunning):
				apiErrors.WriteError(w, apiErrors.ErrDetectionRunning, "Detecção de anomalias já em andamento", nil)
			case errors.As(err, &persistenceErr):
				apiErrors.WriteError(w, apiErrors.ErrIncidentRecording, "Anomalias detectadas mas não registradas", map[string]int{
					"findings": persistenceErr.Findings,
				})
			default:
				logger.WithError(err).Error("Erro ao reprocessar detecção de anomalias")
				apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao executar detecção de anomalias", nil)
			}
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// GetAnomalyStatus retorna o status do agendador e da última execução
func GetAnomalyStatus(job AnomalyJob) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, job.GetStatus())
	}
}

// PreviewAnomalies executa os detectores sem registrar incidentes.
// Sem ?date, analisa o último dia completo.
func PreviewAnomalies(runner detecting.Runner, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())

		analysisTime := time.Now()
		if dateParam := r.URL.Query().Get("date"); dateParam != "" {
			referenceDate, err := utils.ParseDate(dateParam)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "Data inválida, use o formato YYYY-MM-DD", nil)
				return
			}
			analysisTime = utils.AnalysisTimeFor(*referenceDate, loc)
		}

		result, err := runner.Evaluate(r.Context(), analysisTime)
		if err != nil {
			logger.WithError(err).Error("Erro ao pré-visualizar anomalias")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao ler dados de vendas", nil)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
