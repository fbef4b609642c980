// Package detecting contém os detectores de anomalias de vendas e o motor que os executa
package detecting

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

// ErrComputationSkipped indica que o detector não se aplica aos dados (histórico
// insuficiente, denominador zero). Não é falha da execução.
var ErrComputationSkipped = errors.New("computation skipped")

// Detector avalia um snapshot de vendas e retorna zero ou mais achados.
// Implementações devem ser funções puras do snapshot.
type Detector interface {
	Rule() domain.RuleName
	Evaluate(snapshot Snapshot) ([]domain.Finding, error)
}

// Snapshot é a visão imutável dos dados entregue a todos os detectores de uma execução
type Snapshot struct {
	// ReferenceDate é o último dia completo analisado
	ReferenceDate time.Time
	// Days contém um agregado por dia, em ordem crescente, terminando em ReferenceDate
	Days []domain.DailySales
	// Transactions contém as vendas da janela de duplicidade
	Transactions []domain.Transaction
	// NoSales marca (YYYY-MM-DD) os dias preenchidos com zero por não terem linhas em vendas
	NoSales map[string]bool
}

// HasSales indica se o dia tem vendas registradas na base
func (s Snapshot) HasSales(date time.Time) bool {
	return !s.NoSales[date.Format(time.DateOnly)]
}

// Day busca o agregado de um dia
func (s Snapshot) Day(date time.Time) (domain.DailySales, bool) {
	for _, day := range s.Days {
		if domain.SameDay(day.Date, date) {
			return day, true
		}
	}
	return domain.DailySales{}, false
}

// Current retorna o agregado do dia de referência
func (s Snapshot) Current() (domain.DailySales, bool) {
	return s.Day(s.ReferenceDate)
}

// Previous retorna o agregado do dia anterior ao de referência
func (s Snapshot) Previous() (domain.DailySales, bool) {
	return s.Day(s.ReferenceDate.AddDate(0, 0, -1))
}

// comparableDays retorna o dia anterior e o de referência para as regras de queda.
// Os dois dias precisam existir na base; um dia preenchido com zero não é comparado.
func comparableDays(snapshot Snapshot) (domain.DailySales, domain.DailySales, error) {
	current, ok := snapshot.Current()
	if !ok || !snapshot.HasSales(current.Date) {
		return domain.DailySales{}, domain.DailySales{}, errors.Wrapf(ErrComputationSkipped,
			"sem vendas registradas no dia %s", snapshot.ReferenceDate.Format(time.DateOnly))
	}

	previous, ok := snapshot.Previous()
	if !ok || !snapshot.HasSales(previous.Date) {
		return domain.DailySales{}, domain.DailySales{}, errors.Wrap(ErrComputationSkipped,
			"não há pelo menos 2 dias completos para comparação")
	}

	return previous, current, nil
}

// Thresholds são os limites aplicados pelos detectores
type Thresholds struct {
	LowRevenueFloor       decimal.Decimal
	DropRatio             decimal.Decimal
	SevereVolumeDropRatio decimal.Decimal
	DuplicateMinRepeats   int
}

// DefaultThresholds retorna os limites de referência: R$ 10, 30%, 60% e 3 repetições
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowRevenueFloor:       decimal.NewFromInt(10),
		DropRatio:             decimal.RequireFromString("0.30"),
		SevereVolumeDropRatio: decimal.RequireFromString("0.60"),
		DuplicateMinRepeats:   3,
	}
}

// ThresholdsFromConfig converte a configuração da aplicação
func ThresholdsFromConfig(cfg config.AnomalyDetection) Thresholds {
	return Thresholds{
		LowRevenueFloor:       decimal.NewFromFloat(cfg.LowRevenueFloor),
		DropRatio:             decimal.NewFromFloat(cfg.DropRatio),
		SevereVolumeDropRatio: decimal.NewFromFloat(cfg.SevereVolumeDropRatio),
		DuplicateMinRepeats:   cfg.DuplicateMinRepeats,
	}
}

// DefaultDetectors monta o conjunto fixo de detectores. Uma nova regra entra aqui.
func DefaultDetectors(t Thresholds) []Detector {
	return []Detector{
		NewLowRevenueDetector(t.LowRevenueFloor),
		NewRevenueDropDetector(t.DropRatio),
		NewVolumeDropDetector(t.DropRatio, t.SevereVolumeDropRatio),
		NewDuplicatePurchaseDetector(t.DuplicateMinRepeats),
	}
}

// dropRatio calcula (anterior - atual) / anterior. Retorna false quando o anterior não é positivo.
func dropRatio(previous, current decimal.Decimal) (decimal.Decimal, bool) {
	if !previous.IsPositive() {
		return decimal.Zero, false
	}
	return previous.Sub(current).Div(previous), true
}

func percent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).StringFixed(2)
}
