// Package scheduler contém o agendamento da detecção diária de anomalias de vendas
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/utils"
)

// ErrDetectionRunning indica que já existe uma execução em andamento
var ErrDetectionRunning = errors.New("detecção de anomalias já em andamento")

type AnomalyDetectionConfig struct {
	CronSchedule string
	SyncEnabled  bool
	DryRun       bool
	Location     *time.Location
}

// AnomalyDetectionService agenda e executa o motor de detecção. Apenas uma execução
// por vez é permitida no processo.
type AnomalyDetectionService struct {
	scheduler *gocron.Scheduler
	config    AnomalyDetectionConfig
	runner    detecting.Runner
	now       func() time.Time

	syncRunning         bool
	syncMutex           sync.Mutex
	lastSyncStartedAt   time.Time
	lastSyncCompletedAt time.Time
	lastReferenceDate   time.Time
	lastFindings        int
	lastIncidents       int
	lastDuplicates      int
	lastDataUnavailable bool
	lastError           string
}

func NewAnomalyDetectionService(runner detecting.Runner, cfg *config.Config) *AnomalyDetectionService {
	detectionConfig := AnomalyDetectionConfig{
		CronSchedule: cfg.AnomalySync.CronSchedule, // Default: 7h da manhã todos os dias
		SyncEnabled:  cfg.AnomalySync.Enabled,
		DryRun:       cfg.AnomalyDetection.DryRun,
		Location:     cfg.AnomalyDetection.Location(),
	}

	logrus.WithFields(logrus.Fields{
		"cron_schedule": detectionConfig.CronSchedule,
		"sync_enabled":  detectionConfig.SyncEnabled,
		"dry_run":       detectionConfig.DryRun,
		"timezone":      detectionConfig.Location.String(),
	}).Info("Configuração do agendador de detecção de anomalias carregada")

	return &AnomalyDetectionService{
		scheduler: gocron.NewScheduler(detectionConfig.Location),
		config:    detectionConfig,
		runner:    runner,
		now:       time.Now,
	}
}

// Start inicia o agendador
func (s *AnomalyDetectionService) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		logrus.Info("Detecção de anomalias agendada desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando agendador de detecção de anomalias")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrDetectionRunning) {
			logrus.WithError(err).Error("Execução agendada da detecção de anomalias falhou")
		}
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar detecção de anomalias: %w", err)
	}

	s.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		logrus.Info("Parando agendador de detecção de anomalias")
		s.scheduler.Stop()
	}()

	return nil
}

// RunOnce executa o motor para o último dia completo. Falhas de persistência
// não são repetidas: a próxima execução agendada reprocessa o dia de forma idempotente.
func (s *AnomalyDetectionService) RunOnce(ctx context.Context) error {
	if !s.claim() {
		return ErrDetectionRunning
	}

	_, err := s.execute(ctx, nil)
	return err
}

// RunForDate reprocessa um dia específico e retorna o resultado da execução.
// Incidentes já registrados para o dia são ignorados pelo fingerprint.
func (s *AnomalyDetectionService) RunForDate(ctx context.Context, referenceDate time.Time) (*detecting.RunResult, error) {
	if !s.claim() {
		return nil, ErrDetectionRunning
	}

	analysisTime := utils.AnalysisTimeFor(referenceDate, s.config.Location)
	return s.execute(ctx, &analysisTime)
}

// claim reserva a execução. Retorna false se já existe uma em andamento.
func (s *AnomalyDetectionService) claim() bool {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	if s.syncRunning {
		logrus.Info("Detecção de anomalias já em andamento, ignorando")
		return false
	}

	s.syncRunning = true
	s.lastSyncStartedAt = s.now()
	return true
}

// execute roda o motor numa execução já reservada por claim e libera a reserva ao final
func (s *AnomalyDetectionService) execute(ctx context.Context, analysisTime *time.Time) (*detecting.RunResult, error) {
	s.syncMutex.Lock()
	startTime := s.lastSyncStartedAt
	s.syncMutex.Unlock()

	if analysisTime == nil {
		analysisTime = &startTime
	}

	result, err := s.runner.Run(ctx, *analysisTime)

	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	s.syncRunning = false
	s.lastSyncCompletedAt = s.now()

	if err != nil {
		s.lastError = err.Error()

		var persistenceErr *detecting.PersistenceError
		if errors.As(err, &persistenceErr) {
			logrus.WithError(err).WithField("findings", persistenceErr.Findings).
				Error("Incidentes detectados mas não registrados")
		} else {
			logrus.WithError(err).Error("Erro na detecção de anomalias")
		}
		return result, err
	}

	s.lastError = ""
	s.lastReferenceDate = result.ReferenceDate
	s.lastFindings = len(result.Findings)
	s.lastIncidents = len(result.Incidents)
	s.lastDuplicates = len(result.Duplicates)
	s.lastDataUnavailable = result.DataUnavailable

	logrus.WithFields(logrus.Fields{
		"run_id":         result.RunID,
		"reference_date": result.ReferenceDate.Format(time.DateOnly),
		"findings":       len(result.Findings),
		"incidents":      len(result.Incidents),
		"duration":       s.lastSyncCompletedAt.Sub(startTime).String(),
	}).Info("Detecção de anomalias concluída")

	return result, nil
}

// TriggerManualSync reserva a execução e a inicia em segundo plano.
// Retorna false se já existe uma execução em andamento.
func (s *AnomalyDetectionService) TriggerManualSync() bool {
	if !s.claim() {
		logrus.Info("Solicitação manual de detecção ignorada")
		return false
	}

	logrus.Info("Iniciando detecção manual de anomalias")
	go func() {
		_, _ = s.execute(context.Background(), nil)
	}()

	return true
}

// GetStatus retorna o status atual do agendador e o resumo da última execução
func (s *AnomalyDetectionService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	status := map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"sync_cron":              s.config.CronSchedule,
		"sync_running":           s.syncRunning,
		"dry_run":                s.config.DryRun,
		"timezone":               s.config.Location.String(),
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
		"last_findings":          s.lastFindings,
		"last_incidents":         s.lastIncidents,
		"last_duplicates":        s.lastDuplicates,
		"last_data_unavailable":  s.lastDataUnavailable,
		"last_error":             s.lastError,
	}

	if !s.lastReferenceDate.IsZero() {
		status["last_reference_date"] = s.lastReferenceDate.Format(time.DateOnly)
	}

	return status
}
