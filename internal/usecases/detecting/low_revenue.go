package detecting

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

// LowRevenueDetector dispara quando o faturamento do último dia completo fica
// abaixo ou igual ao piso configurado
type LowRevenueDetector struct {
	floor decimal.Decimal
}

// NewLowRevenueDetector cria o detector com o piso de faturamento (inclusivo)
func NewLowRevenueDetector(floor decimal.Decimal) *LowRevenueDetector {
	return &LowRevenueDetector{floor: floor}
}

// Rule retorna LOW_REVENUE
func (*LowRevenueDetector) Rule() domain.RuleName {
	return domain.RuleLowRevenue
}

// Evaluate compara o faturamento do dia de referência com o piso. Um dia sem vendas conta como zero.
func (d *LowRevenueDetector) Evaluate(snapshot Snapshot) ([]domain.Finding, error) {
	current, ok := snapshot.Current()
	if !ok {
		return nil, errors.Wrapf(ErrComputationSkipped, "sem agregado para o dia %s", snapshot.ReferenceDate.Format(time.DateOnly))
	}

	if current.TotalRevenue.GreaterThan(d.floor) {
		return nil, nil
	}

	day := current.Date.Format(time.DateOnly)

	return []domain.Finding{
		{
			RuleName:      domain.RuleLowRevenue,
			Severity:      domain.SeverityHigh,
			ReferenceDate: snapshot.ReferenceDate,
			Summary:       fmt.Sprintf("Faturamento muito baixo (≤ R$ %s) no dia %s", d.floor.StringFixed(2), day),
			Details: domain.LowRevenueDetails{
				Date:      day,
				Revenue:   current.TotalRevenue,
				Threshold: d.floor,
			},
		},
	}, nil
}
