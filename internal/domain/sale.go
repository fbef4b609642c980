package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySales representa o agregado de um dia de vendas
type DailySales struct {
	Date             time.Time       `json:"date"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TransactionCount int             `json:"transaction_count"`
}

// Transaction representa uma venda individual da tabela vendas
type Transaction struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
}

// EmptyDay cria o agregado de um dia sem vendas
func EmptyDay(date time.Time) DailySales {
	return DailySales{
		Date:             date,
		TotalRevenue:     decimal.Zero,
		TransactionCount: 0,
	}
}

// SameDay compara apenas ano, mês e dia
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DateOnly normaliza a data para meia-noite em UTC, usada como chave de dia
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
