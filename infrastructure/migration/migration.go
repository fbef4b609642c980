// Package migration mantém o DDL das tabelas usadas pela detecção de anomalias.
// Todos os comandos podem ser reaplicados.
package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
)

type Statement struct {
	Name string
	SQL  string
}

// Statements cria a tabela incidentes e os índices usados pela detecção.
// A tabela vendas é do sistema de vendas e só recebe um índice por dia.
var Statements = []Statement{
	{
		Name: "tabela incidentes",
		SQL: `CREATE TABLE IF NOT EXISTS incidentes (
			id              VARCHAR(21)  PRIMARY KEY,
			fingerprint     TEXT         NOT NULL,
			tipo            VARCHAR(32)  NOT NULL,
			severidade      VARCHAR(16)  NOT NULL,
			prioridade      SMALLINT     NOT NULL,
			data_referencia DATE         NOT NULL,
			detalhe         TEXT         NOT NULL,
			contexto        JSONB        NOT NULL,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT now()
		)`,
	},
	{
		Name: "índice único de fingerprint",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS incidentes_fingerprint_uidx ON incidentes (fingerprint)`,
	},
	{
		Name: "índice por data de referência",
		SQL:  `CREATE INDEX IF NOT EXISTS incidentes_data_referencia_idx ON incidentes (data_referencia DESC, prioridade)`,
	},
	{
		Name: "índice de vendas por dia",
		SQL:  `CREATE INDEX IF NOT EXISTS vendas_data_venda_dia_idx ON vendas ((data_venda::date))`,
	},
}

// Transactor é satisfeito por postgres.Conn
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(*sql.Tx) error) error
}

// Apply executa todos os comandos em uma única transação
func Apply(ctx context.Context, db Transactor) error {
	return db.RunInTransaction(ctx, func(tx *sql.Tx) error {
		for _, statement := range Statements {
			logrus.WithField("statement", statement.Name).Info("Aplicando migração")
			if _, err := tx.ExecContext(ctx, statement.SQL); err != nil {
				return fmt.Errorf("erro ao aplicar %s: %w", statement.Name, err)
			}
		}
		return nil
	})
}
