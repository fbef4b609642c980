package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/alice"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-anomaly-monitor/internal/api/handler"
	"github.com/vfg2006/sales-anomaly-monitor/internal/api/handler/router"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/authenticating"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/middleware"
)

type Server struct {
	httpServer *http.Server
}

// Dependencies agrupa os serviços expostos pela API
type Dependencies struct {
	Authenticator authenticating.Authenticator
	Runner        detecting.Runner
	Job           handler.AnomalyJob
	Incidents     handler.IncidentLister
	DB            handler.Pinger
}

func NewHandler(config *config.Config, deps Dependencies) http.Handler {
	rt := router.New(
		router.WithRoutes(handler.Healthcheck(deps.DB)...),
		router.WithRoutes(handler.Anomalies(deps.Job, deps.Runner, config.AnomalyDetection.Location())...),
		router.WithRoutes(handler.Incidents(deps.Incidents)...),
	)

	middlewares := []alice.Constructor{
		middleware.LogPanicMiddleware(),
		middleware.LoggingMiddleware(),
		middleware.Cors(config.Server.AllowedOrigins),
		middleware.AuthMiddleware(deps.Authenticator),
	}

	return alice.New(middlewares...).Then(rt)
}

func New(config *config.Config, deps Dependencies) (*Server, error) {
	if deps.Authenticator == nil || deps.Runner == nil || deps.Job == nil || deps.Incidents == nil {
		return nil, fmt.Errorf("dependências obrigatórias da API não informadas")
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
			Handler:           NewHandler(config, deps),
			ReadHeaderTimeout: 2 * time.Second,
		},
	}

	return srv, nil
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		logrus.WithFields(logrus.Fields{
			"address": s.httpServer.Addr,
		}).Info("Servidor iniciando")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("Erro durante a execução do servidor")
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		logrus.Info("Sinal de interrupção recebido")
	case <-ctx.Done():
		logrus.Info("Contexto de aplicação cancelado")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logrus.WithField("timeout", "15s").Info("Iniciando desligamento gracioso do servidor")

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Erro durante o desligamento do servidor")
		return err
	}

	logrus.Info("Servidor desligado com sucesso")
	return nil
}
