// Package repository contém as implementações dos repositórios para acesso aos dados
package repository

//go:generate mockgen -source=sales.go -destination=mocks/mock_sales.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/database/postgres"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

const (
	salesTable = "vendas v"
)

// SalesRepository lê a tabela vendas (id, data_venda, cliente, valor_total)
type SalesRepository interface {
	FetchDailyAggregates(ctx context.Context, startDate, endDate time.Time) ([]domain.DailySales, error)
	FetchTransactions(ctx context.Context, date time.Time) ([]domain.Transaction, error)
}

type salesRepository struct {
	conn postgres.Conn
}

func NewSalesRepository(conn postgres.Conn) SalesRepository {
	return &salesRepository{
		conn: conn,
	}
}

// FetchDailyAggregates retorna faturamento e número de vendas por dia, em ordem crescente.
// Vendas sem data são ignoradas e valor_total nulo conta como zero.
func (r *salesRepository) FetchDailyAggregates(ctx context.Context, startDate, endDate time.Time) ([]domain.DailySales, error) {
	query, args, err := squirrel.
		Select(
			"v.data_venda::date AS dia",
			"COALESCE(SUM(v.valor_total), 0) AS faturamento",
			"COUNT(v.id) AS vendas",
		).
		From(salesTable).
		Where(squirrel.NotEq{"v.data_venda": nil}).
		Where(squirrel.GtOrEq{"v.data_venda::date": startDate.Format(time.DateOnly)}).
		Where(squirrel.LtOrEq{"v.data_venda::date": endDate.Format(time.DateOnly)}).
		GroupBy("dia").
		OrderBy("dia ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	days := make([]domain.DailySales, 0)
	for rows.Next() {
		var (
			date    time.Time
			revenue decimal.Decimal
			count   int
		)

		if err := rows.Scan(&date, &revenue, &count); err != nil {
			return nil, fmt.Errorf("erro ao escanear faturamento por dia: %w", err)
		}

		days = append(days, domain.DailySales{
			Date:             domain.DateOnly(date),
			TotalRevenue:     revenue,
			TransactionCount: count,
		})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	if len(days) == 0 {
		return nil, domain.ErrDataUnavailable
	}

	return days, nil
}

// FetchTransactions retorna as vendas de um dia
func (r *salesRepository) FetchTransactions(ctx context.Context, date time.Time) ([]domain.Transaction, error) {
	query, args, err := squirrel.
		Select(
			"v.id::text",
			"COALESCE(v.cliente::text, '')",
			"v.data_venda::date",
			"COALESCE(v.valor_total, 0)",
		).
		From(salesTable).
		Where(squirrel.Eq{"v.data_venda::date": date.Format(time.DateOnly)}).
		OrderBy("v.id ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		trx := domain.Transaction{}

		if err := rows.Scan(&trx.ID, &trx.CustomerID, &trx.Date, &trx.Amount); err != nil {
			return nil, fmt.Errorf("erro ao escanear venda: %w", err)
		}

		trx.Date = domain.DateOnly(trx.Date)
		transactions = append(transactions, trx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	if len(transactions) == 0 {
		return nil, domain.ErrDataUnavailable
	}

	return transactions, nil
}
