package detecting

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

// VolumeDropDetector compara o número de vendas do último dia completo com o do dia anterior
type VolumeDropDetector struct {
	threshold decimal.Decimal
	severe    decimal.Decimal
}

// NewVolumeDropDetector cria o detector. Quedas a partir de severe são classificadas como HIGH.
func NewVolumeDropDetector(threshold, severe decimal.Decimal) *VolumeDropDetector {
	return &VolumeDropDetector{threshold: threshold, severe: severe}
}

// Rule retorna VOLUME_DROP
func (*VolumeDropDetector) Rule() domain.RuleName {
	return domain.RuleVolumeDrop
}

// Evaluate aplica a mesma regra de queda ao número de vendas
func (d *VolumeDropDetector) Evaluate(snapshot Snapshot) ([]domain.Finding, error) {
	previous, current, err := comparableDays(snapshot)
	if err != nil {
		return nil, err
	}

	ratio, ok := dropRatio(
		decimal.NewFromInt(int64(previous.TransactionCount)),
		decimal.NewFromInt(int64(current.TransactionCount)),
	)
	if !ok {
		return nil, errors.Wrapf(ErrComputationSkipped, "número de vendas do dia anterior (%s) é zero", previous.Date.Format(time.DateOnly))
	}

	if ratio.LessThan(d.threshold) {
		return nil, nil
	}

	severity := domain.SeverityMedium
	if ratio.GreaterThanOrEqual(d.severe) {
		severity = domain.SeverityHigh
	}

	currentDay := current.Date.Format(time.DateOnly)

	return []domain.Finding{
		{
			RuleName:      domain.RuleVolumeDrop,
			Severity:      severity,
			ReferenceDate: snapshot.ReferenceDate,
			Summary:       fmt.Sprintf("Queda de %s%% no número de vendas no dia %s", percent(ratio), currentDay),
			Details: domain.VolumeDropDetails{
				PreviousDate:  previous.Date.Format(time.DateOnly),
				CurrentDate:   currentDay,
				PreviousCount: previous.TransactionCount,
				CurrentCount:  current.TransactionCount,
				DropRatio:     ratio,
				Threshold:     d.threshold,
			},
		},
	}, nil
}
