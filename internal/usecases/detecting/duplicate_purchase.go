package detecting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

// DuplicatePurchaseDetector sinaliza clientes que repetem a mesma compra (mesmo valor)
// no mesmo dia. É uma heurística de duplicidade/fraude, por isso a severidade é INFO.
type DuplicatePurchaseDetector struct {
	minRepeats int
}

// NewDuplicatePurchaseDetector cria o detector com o mínimo de compras iguais para sinalizar o cliente
func NewDuplicatePurchaseDetector(minRepeats int) *DuplicatePurchaseDetector {
	return &DuplicatePurchaseDetector{minRepeats: minRepeats}
}

// Rule retorna DUPLICATE_FRAUD
func (*DuplicatePurchaseDetector) Rule() domain.RuleName {
	return domain.RuleDuplicateFraud
}

type purchaseKey struct {
	date     string
	customer string
	amount   string
}

type purchaseGroup struct {
	key    purchaseKey
	amount decimal.Decimal
	count  int
}

// Evaluate agrupa as vendas por dia, cliente e valor. Vendas sem cliente são ignoradas.
func (d *DuplicatePurchaseDetector) Evaluate(snapshot Snapshot) ([]domain.Finding, error) {
	groups := make(map[purchaseKey]*purchaseGroup)
	for _, trx := range snapshot.Transactions {
		customer := strings.TrimSpace(trx.CustomerID)
		if customer == "" {
			continue
		}

		key := purchaseKey{
			date:     trx.Date.Format(time.DateOnly),
			customer: customer,
			amount:   trx.Amount.String(),
		}

		group, exists := groups[key]
		if !exists {
			group = &purchaseGroup{key: key, amount: trx.Amount}
			groups[key] = group
		}
		group.count++
	}

	suspects := make([]*purchaseGroup, 0)
	for _, group := range groups {
		if group.count >= d.minRepeats {
			suspects = append(suspects, group)
		}
	}

	// caso mais forte primeiro; o restante da chave só desempata
	sort.Slice(suspects, func(i, j int) bool {
		a, b := suspects[i], suspects[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.key.date != b.key.date {
			return a.key.date < b.key.date
		}
		if a.key.customer != b.key.customer {
			return a.key.customer < b.key.customer
		}
		return a.amount.LessThan(b.amount)
	})

	findings := make([]domain.Finding, 0, len(suspects))
	for _, group := range suspects {
		findings = append(findings, domain.Finding{
			RuleName:      domain.RuleDuplicateFraud,
			Severity:      domain.SeverityInfo,
			ReferenceDate: snapshot.ReferenceDate,
			Summary: fmt.Sprintf(
				"Possível fraude/duplicidade: cliente '%s' repetiu compra de %s %dx no dia %s. Sugerir análise antifraude.",
				group.key.customer, group.amount.StringFixed(2), group.count, group.key.date,
			),
			Details: domain.DuplicatePurchaseDetails{
				Date:        group.key.date,
				CustomerID:  group.key.customer,
				Amount:      group.amount,
				RepeatCount: group.count,
				MinRepeats:  d.minRepeats,
			},
		})
	}

	return findings, nil
}
