package main

import (
	"context"
	"os"
	"path"
	"runtime"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/database/postgres"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/repository"
	"github.com/vfg2006/sales-anomaly-monitor/internal/api"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/scheduler"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/authenticating"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting"
)

func main() {
	configureLogger()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	logLevel, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		logrus.Warnf("Nível de log inválido: %s, usando 'info'", cfg.App.LogLevel)
		logLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logLevel)
	logrus.Infof("Nível de log configurado para: %s", logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgConn := pgconn(ctx, cfg.Database)
	defer pgConn.Close()

	salesRepo := repository.NewSalesRepository(pgConn)

	incidentRepo := repository.NewIncidentRepository(pgConn)
	if cfg.AnomalyDetection.DryRun {
		logrus.Warn("Modo dry-run: incidentes ficam apenas em memória")
		incidentRepo = repository.NewMemoryIncidentRepository()
	}

	engine := detecting.NewEngineFromConfig(salesRepo, incidentRepo, cfg)

	anomalyDetectionService := scheduler.NewAnomalyDetectionService(engine, cfg)
	if err := anomalyDetectionService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de detecção de anomalias")
	} else {
		logrus.Info("Agendador de detecção de anomalias iniciado com sucesso")
	}

	server, err := api.New(cfg, api.Dependencies{
		Authenticator: authenticating.NewService(cfg),
		Runner:        engine,
		Job:           anomalyDetectionService,
		Incidents:     incidentRepo,
		DB:            pgConn,
	})
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// configureLogger configura o formato e comportamento dos logs
func configureLogger() {
	_, file, _, _ := runtime.Caller(0)
	dir := path.Dir(file)
	os.Chdir(dir)

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// pgconn cria uma conexão com o banco de vendas
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
