package repository

//go:generate mockgen -source=incident.go -destination=mocks/mock_incident.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/database/postgres"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/utils"
)

const (
	incidentsTable = "incidentes i"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IncidentRepository grava e consulta a tabela incidentes. Os registros nunca são
// alterados nem removidos: a gravação é idempotente pelo fingerprint do achado.
type IncidentRepository interface {
	Record(ctx context.Context, findings []domain.Finding) (*domain.RecordResult, error)
	List(ctx context.Context, filters domain.IncidentFilters) ([]*domain.Incident, error)
}

type incidentRepository struct {
	conn postgres.Conn
}

func NewIncidentRepository(conn postgres.Conn) IncidentRepository {
	return &incidentRepository{
		conn: conn,
	}
}

// Record grava todos os achados em uma única transação. Achados já registrados
// (mesmo fingerprint) são ignorados e retornados em Duplicates.
func (r *incidentRepository) Record(ctx context.Context, findings []domain.Finding) (*domain.RecordResult, error) {
	result := &domain.RecordResult{
		Created:    make([]*domain.Incident, 0, len(findings)),
		Duplicates: make([]string, 0),
	}

	if len(findings) == 0 {
		return result, nil
	}

	err := r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		for _, finding := range findings {
			incident, err := newIncident(finding)
			if err != nil {
				return err
			}

			created, err := r.insert(ctx, tx, incident, finding.RuleName.Priority())
			if err != nil {
				return err
			}

			if !created {
				logrus.WithFields(logrus.Fields{
					"fingerprint": incident.Fingerprint,
				}).Debug("Incidente já registrado anteriormente, ignorando")
				result.Duplicates = append(result.Duplicates, incident.Fingerprint)
				continue
			}

			result.Created = append(result.Created, incident)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *incidentRepository) insert(ctx context.Context, tx *sql.Tx, incident *domain.Incident, priority int) (bool, error) {
	query, args, err := squirrel.StatementBuilder.
		Insert("incidentes").
		Columns(
			"id",
			"fingerprint",
			"tipo",
			"severidade",
			"prioridade",
			"data_referencia",
			"detalhe",
			"contexto",
		).
		Values(
			incident.ID,
			incident.Fingerprint,
			string(incident.RuleName),
			string(incident.Severity),
			priority,
			incident.ReferenceDate.Format(time.DateOnly),
			incident.Summary,
			squirrel.Expr("CAST(? AS jsonb)", string(incident.Context)),
		).
		Suffix("ON CONFLICT (fingerprint) DO NOTHING RETURNING created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("erro ao construir a query: %w", err)
	}

	err = tx.QueryRowContext(ctx, query, args...).Scan(&incident.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return false, fmt.Errorf("erro no banco de dados: %w (código: %s)", pqErr, pqErr.Code)
		}
		return false, fmt.Errorf("erro ao executar a query: %w", err)
	}

	return true, nil
}

func (r *incidentRepository) List(ctx context.Context, filters domain.IncidentFilters) ([]*domain.Incident, error) {
	builder := squirrel.
		Select(
			"i.id",
			"i.fingerprint",
			"i.tipo",
			"i.severidade",
			"i.data_referencia",
			"i.detalhe",
			"i.contexto",
			"i.created_at",
		).
		From(incidentsTable).
		OrderBy("i.data_referencia DESC", "i.prioridade ASC", "i.created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	if filters.StartDate != nil {
		builder = builder.Where(squirrel.GtOrEq{"i.data_referencia": filters.StartDate.Format(time.DateOnly)})
	}
	if filters.EndDate != nil {
		builder = builder.Where(squirrel.LtOrEq{"i.data_referencia": filters.EndDate.Format(time.DateOnly)})
	}
	if filters.RuleName != nil {
		builder = builder.Where(squirrel.Eq{"i.tipo": string(*filters.RuleName)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	incidents := make([]*domain.Incident, 0)
	for rows.Next() {
		incident := &domain.Incident{}
		var (
			ruleName string
			severity string
			payload  []byte
		)

		err := rows.Scan(
			&incident.ID,
			&incident.Fingerprint,
			&ruleName,
			&severity,
			&incident.ReferenceDate,
			&incident.Summary,
			&payload,
			&incident.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear incidente: %w", err)
		}

		incident.ReferenceDate = domain.DateOnly(incident.ReferenceDate)
		incident.RuleName = domain.RuleName(ruleName)
		incident.Severity = domain.Severity(severity)
		incident.Context = payload
		incidents = append(incidents, incident)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return incidents, nil
}

// newIncident monta o incidente a partir do achado, gerando ID e contexto JSON
func newIncident(finding domain.Finding) (*domain.Incident, error) {
	id, err := utils.GenerateID()
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar ID do incidente: %w", err)
	}

	payload, err := json.Marshal(finding.Payload())
	if err != nil {
		return nil, fmt.Errorf("erro ao serializar contexto do incidente: %w", err)
	}

	return &domain.Incident{
		ID:            id,
		Fingerprint:   finding.Fingerprint(),
		RuleName:      finding.RuleName,
		Severity:      finding.Severity,
		ReferenceDate: finding.ReferenceDate,
		Summary:       finding.Summary,
		Context:       payload,
	}, nil
}
