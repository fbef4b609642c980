package detecting

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

import (
	"context"
	"time"
)

// Runner é o contrato usado pelo agendador, pela API e pela linha de comando
type Runner interface {
	Run(ctx context.Context, analysisTime time.Time) (*RunResult, error)
	Evaluate(ctx context.Context, analysisTime time.Time) (*RunResult, error)
}

var _ Runner = (*Engine)(nil)
