package detecting

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/log"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/utils"
)

// SalesReader é a fonte de dados de vendas usada pelo motor
type SalesReader interface {
	FetchDailyAggregates(ctx context.Context, startDate, endDate time.Time) ([]domain.DailySales, error)
	FetchTransactions(ctx context.Context, date time.Time) ([]domain.Transaction, error)
}

// IncidentSink persiste os achados de uma execução como incidentes
type IncidentSink interface {
	Record(ctx context.Context, findings []domain.Finding) (*domain.RecordResult, error)
}

// EngineConfig define a janela de análise e o fuso que decide o último dia completo
type EngineConfig struct {
	LookbackDays        int
	DuplicateWindowDays int
	Location            *time.Location
	QueryTimeout        time.Duration
}

// SkippedRule registra um detector que não se aplicou aos dados
type SkippedRule struct {
	Rule   domain.RuleName `json:"rule"`
	Reason string          `json:"reason"`
}

// RunResult resume uma execução do motor
type RunResult struct {
	RunID           string             `json:"run_id"`
	ReferenceDate   time.Time          `json:"reference_date"`
	DataUnavailable bool               `json:"data_unavailable"`
	WindowRevenue   decimal.Decimal    `json:"window_revenue"`
	Findings        []domain.Finding   `json:"findings"`
	Incidents       []*domain.Incident `json:"incidents"`
	Duplicates      []string           `json:"duplicates"`
	Skipped         []SkippedRule      `json:"skipped"`
}

type Engine struct {
	sales     SalesReader
	sink      IncidentSink
	detectors []Detector
	config    EngineConfig
}

// NewEngine cria o motor. Janelas abaixo do mínimo (2 dias de análise, 1 de duplicidade) são ajustadas.
func NewEngine(sales SalesReader, sink IncidentSink, cfg EngineConfig, detectors ...Detector) *Engine {
	if cfg.LookbackDays < 2 {
		cfg.LookbackDays = 2
	}
	if cfg.DuplicateWindowDays < 1 {
		cfg.DuplicateWindowDays = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Engine{
		sales:     sales,
		sink:      sink,
		detectors: detectors,
		config:    cfg,
	}
}

// NewEngineFromConfig cria o motor com os detectores padrão e os limites da configuração
func NewEngineFromConfig(sales SalesReader, sink IncidentSink, cfg *config.Config) *Engine {
	anomaly := cfg.AnomalyDetection

	return NewEngine(
		sales,
		sink,
		EngineConfig{
			LookbackDays:        anomaly.LookbackDays,
			DuplicateWindowDays: anomaly.DuplicateWindowDays,
			Location:            anomaly.Location(),
			QueryTimeout:        anomaly.QueryTimeout,
		},
		DefaultDetectors(ThresholdsFromConfig(anomaly))...,
	)
}

// Run analisa o último dia completo anterior a analysisTime e registra os achados.
// Uma falha de leitura interrompe a execução antes de qualquer escrita.
func (e *Engine) Run(ctx context.Context, analysisTime time.Time) (*RunResult, error) {
	ctx, result, err := e.evaluate(ctx, analysisTime)
	if err != nil {
		return nil, err
	}

	logger := log.ForContext(ctx).WithField("reference_date", result.ReferenceDate.Format(time.DateOnly))

	if len(result.Findings) == 0 {
		logger.WithField("window_revenue", result.WindowRevenue.StringFixed(2)).
			Info("OK: nenhum incidente detectado")
		return result, nil
	}

	recorded, err := e.sink.Record(ctx, result.Findings)
	if err != nil {
		logger.WithError(err).Error("Erro ao registrar incidentes")
		return result, &PersistenceError{Err: err, Findings: len(result.Findings)}
	}

	result.Incidents = recorded.Created
	result.Duplicates = recorded.Duplicates

	logger.WithFields(log.Fields{
		"findings":   len(result.Findings),
		"incidents":  len(result.Incidents),
		"duplicates": len(result.Duplicates),
	}).Info("Incidentes registrados na tabela incidentes")

	return result, nil
}

// Evaluate executa os detectores sem registrar incidentes
func (e *Engine) Evaluate(ctx context.Context, analysisTime time.Time) (*RunResult, error) {
	_, result, err := e.evaluate(ctx, analysisTime)
	return result, err
}

func (e *Engine) evaluate(ctx context.Context, analysisTime time.Time) (context.Context, *RunResult, error) {
	ctx, runID := log.WithCorrelationID(ctx)
	referenceDate := utils.LastCompleteDay(analysisTime, e.config.Location)

	result := &RunResult{
		RunID:         runID,
		ReferenceDate: referenceDate,
		WindowRevenue: decimal.Zero,
		Findings:      []domain.Finding{},
		Incidents:     []*domain.Incident{},
		Duplicates:    []string{},
		Skipped:       []SkippedRule{},
	}

	logger := log.ForContext(ctx).WithField("reference_date", referenceDate.Format(time.DateOnly))
	logger.Info("Iniciando detecção de anomalias de vendas")

	snapshot, err := e.loadSnapshot(ctx, referenceDate)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			logger.Info("Sem dados de vendas na janela de análise, nada para analisar")
			result.DataUnavailable = true
			return ctx, result, nil
		}
		return ctx, nil, err
	}

	revenues := make([]decimal.Decimal, 0, len(snapshot.Days))
	for _, day := range snapshot.Days {
		revenues = append(revenues, day.TotalRevenue)
	}
	result.WindowRevenue = utils.SumRevenue(revenues...)

	result.Findings, result.Skipped = e.runDetectors(ctx, snapshot)

	return ctx, result, nil
}

// loadSnapshot carrega os agregados da janela e as transações da janela de duplicidade
func (e *Engine) loadSnapshot(ctx context.Context, referenceDate time.Time) (Snapshot, error) {
	days := utils.DaysBack(referenceDate, e.config.LookbackDays)
	startDate := days[0]

	queryCtx, cancel := e.queryContext(ctx)
	defer cancel()

	aggregates, err := e.sales.FetchDailyAggregates(queryCtx, startDate, referenceDate)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			return Snapshot{}, err
		}
		return Snapshot{}, errors.Wrap(err, "erro ao buscar faturamento por dia")
	}

	if len(aggregates) == 0 {
		return Snapshot{}, domain.ErrDataUnavailable
	}

	transactions := make([]domain.Transaction, 0)
	for _, date := range utils.DaysBack(referenceDate, e.config.DuplicateWindowDays) {
		dayTransactions, err := e.sales.FetchTransactions(queryCtx, date)
		if err != nil {
			if errors.Is(err, domain.ErrDataUnavailable) {
				continue
			}
			return Snapshot{}, errors.Wrapf(err, "erro ao buscar vendas do dia %s", date.Format(time.DateOnly))
		}
		transactions = append(transactions, dayTransactions...)
	}

	log.ForContext(ctx).WithFields(log.Fields{
		"window_start":        startDate.Format(time.DateOnly),
		"window_end":          referenceDate.Format(time.DateOnly),
		"window_days":         len(aggregates),
		"window_transactions": len(transactions),
	}).Debug("Dados de vendas carregados")

	filled, noSales := fillWindow(days, aggregates)

	return Snapshot{
		ReferenceDate: referenceDate,
		Days:          filled,
		Transactions:  transactions,
		NoSales:       noSales,
	}, nil
}

func (e *Engine) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.QueryTimeout)
}

// runDetectors avalia cada detector de forma independente e ordena os achados por prioridade
func (e *Engine) runDetectors(ctx context.Context, snapshot Snapshot) ([]domain.Finding, []SkippedRule) {
	findings := make([]domain.Finding, 0)
	skipped := make([]SkippedRule, 0)

	for _, detector := range e.detectors {
		logger := log.ForContext(ctx).WithField("rule", string(detector.Rule()))

		detected, err := detector.Evaluate(snapshot)
		if err != nil {
			skipped = append(skipped, SkippedRule{Rule: detector.Rule(), Reason: err.Error()})

			if errors.Is(err, ErrComputationSkipped) {
				logger.WithError(err).Debug("Detector não aplicável aos dados")
			} else {
				logger.WithError(err).Warn("Erro ao avaliar detector, seguindo com os demais")
			}
			continue
		}

		for _, finding := range detected {
			logger.WithField("incident_summary", finding.Summary).Info("Anomalia detectada")
		}

		findings = append(findings, detected...)
	}

	SortFindings(findings)

	return findings, skipped
}

// SortFindings ordena os achados pela prioridade da regra, mantendo a ordem de cada detector
func SortFindings(findings []domain.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].RuleName.Priority() < findings[j].RuleName.Priority()
	})
}

// fillWindow garante um agregado por dia da janela. Dias sem vendas entram zerados
// e são devolvidos no mapa, para que as regras de queda não os comparem.
func fillWindow(days []time.Time, aggregates []domain.DailySales) ([]domain.DailySales, map[string]bool) {
	byDate := make(map[string]domain.DailySales, len(aggregates))
	for _, aggregate := range aggregates {
		byDate[aggregate.Date.Format(time.DateOnly)] = aggregate
	}

	filled := make([]domain.DailySales, 0, len(days))
	noSales := make(map[string]bool)
	for _, date := range days {
		key := date.Format(time.DateOnly)
		if aggregate, exists := byDate[key]; exists {
			aggregate.Date = date
			filled = append(filled, aggregate)
			continue
		}
		filled = append(filled, domain.EmptyDay(date))
		noSales[key] = true
	}

	return filled, noSales
}
