package detecting

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

// Data de referência dos testes: 15 de janeiro (último dia completo quando a análise roda no dia 16)
var referenceDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func daySales(date time.Time, revenue string, count int) domain.DailySales {
	return domain.DailySales{
		Date:             date,
		TotalRevenue:     dec(revenue),
		TransactionCount: count,
	}
}

// twoDays monta um snapshot com o dia anterior e o dia de referência
func twoDays(previousRevenue, currentRevenue string, previousCount, currentCount int) Snapshot {
	return Snapshot{
		ReferenceDate: referenceDate,
		Days: []domain.DailySales{
			daySales(referenceDate.AddDate(0, 0, -1), previousRevenue, previousCount),
			daySales(referenceDate, currentRevenue, currentCount),
		},
	}
}

func purchase(customer, amount string) domain.Transaction {
	return domain.Transaction{
		ID:         customer + "-" + amount,
		CustomerID: customer,
		Date:       referenceDate,
		Amount:     dec(amount),
	}
}

func repeat(trx domain.Transaction, times int) []domain.Transaction {
	transactions := make([]domain.Transaction, 0, times)
	for i := 0; i < times; i++ {
		transactions = append(transactions, trx)
	}
	return transactions
}
