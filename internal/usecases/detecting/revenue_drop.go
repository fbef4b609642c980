package detecting

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

// RevenueDropDetector compara o faturamento do último dia completo com o do dia anterior
type RevenueDropDetector struct {
	threshold decimal.Decimal
}

// NewRevenueDropDetector cria o detector com a queda mínima (inclusiva), ex.: 0.30
func NewRevenueDropDetector(threshold decimal.Decimal) *RevenueDropDetector {
	return &RevenueDropDetector{threshold: threshold}
}

// Rule retorna REVENUE_DROP
func (*RevenueDropDetector) Rule() domain.RuleName {
	return domain.RuleRevenueDrop
}

// Evaluate retorna ErrComputationSkipped quando um dos dois dias não tem vendas na base
// ou quando o faturamento do dia anterior é zero
func (d *RevenueDropDetector) Evaluate(snapshot Snapshot) ([]domain.Finding, error) {
	previous, current, err := comparableDays(snapshot)
	if err != nil {
		return nil, err
	}

	ratio, ok := dropRatio(previous.TotalRevenue, current.TotalRevenue)
	if !ok {
		return nil, errors.Wrapf(ErrComputationSkipped, "faturamento do dia anterior (%s) é zero", previous.Date.Format(time.DateOnly))
	}

	if ratio.LessThan(d.threshold) {
		return nil, nil
	}

	currentDay := current.Date.Format(time.DateOnly)

	return []domain.Finding{
		{
			RuleName:      domain.RuleRevenueDrop,
			Severity:      domain.SeverityHigh,
			ReferenceDate: snapshot.ReferenceDate,
			Summary:       fmt.Sprintf("Queda de %s%% no faturamento do dia %s", percent(ratio), currentDay),
			Details: domain.RevenueDropDetails{
				PreviousDate:    previous.Date.Format(time.DateOnly),
				CurrentDate:     currentDay,
				PreviousRevenue: previous.TotalRevenue,
				CurrentRevenue:  current.TotalRevenue,
				DropRatio:       ratio,
				Threshold:       d.threshold,
			},
		},
	}, nil
}
