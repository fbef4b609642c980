// Comando detector executa uma única detecção de anomalias e termina.
// Pensado para cron externo ou pipeline de CI:
//
//	detector -date 2024-01-15 -dry-run
//
// O código de saída é 1 quando a leitura ou a gravação falham.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/database/postgres"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/repository"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/utils"
)

func main() {
	date := flag.String("date", "", "dia a analisar (YYYY-MM-DD); padrão: último dia completo")
	dryRun := flag.Bool("dry-run", false, "detecta sem gravar incidentes")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	if logLevel, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logrus.SetLevel(logLevel)
	}

	analysisTime := time.Now()
	if *date != "" {
		referenceDate, err := utils.ParseDate(*date)
		if err != nil {
			logrus.WithError(err).Fatal("Data inválida, use o formato YYYY-MM-DD")
		}
		analysisTime = utils.AnalysisTimeFor(*referenceDate, cfg.AnomalyDetection.Location())
	}

	ctx := context.Background()

	conn, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}
	defer conn.Close()

	sink := repository.NewIncidentRepository(conn)
	if *dryRun || cfg.AnomalyDetection.DryRun {
		sink = repository.NewMemoryIncidentRepository()
	}

	engine := detecting.NewEngineFromConfig(repository.NewSalesRepository(conn), sink, cfg)

	if err := run(ctx, engine, analysisTime); err != nil {
		var persistenceErr *detecting.PersistenceError
		if errors.As(err, &persistenceErr) {
			logrus.WithError(err).Errorf("%d anomalias detectadas mas não registradas", persistenceErr.Findings)
		} else {
			logrus.WithError(err).Error("Detecção de anomalias falhou")
		}
		conn.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, runner detecting.Runner, analysisTime time.Time) error {
	result, err := runner.Run(ctx, analysisTime)
	if err != nil {
		return err
	}

	fmt.Println(utils.PrettyJson(result))
	return nil
}
