// Script de migração: aplica o DDL de infrastructure/migration no banco configurado.
package main

import (
	"context"
	"log"
	"time"

	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/database/postgres"
	"github.com/vfg2006/sales-anomaly-monitor/infrastructure/migration"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
)

func setupLogger() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Iniciando script de migração...")
}

func main() {
	setupLogger()
	startTime := time.Now()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("ERRO ao carregar configuração: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := postgres.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("ERRO ao conectar ao banco de dados: %v", err)
	}
	defer conn.Close()

	if err := migration.Apply(ctx, conn); err != nil {
		conn.Close()
		log.Fatalf("Migração revertida: %v", err)
	}

	log.Printf("Migração de %d comandos concluída em %s", len(migration.Statements), time.Since(startTime))
}
