// Comando token emite um token de operador para a API de anomalias, assinado com AUTH_SECRET.
//
//	token -operator ops-1 -name "Operações" -role 1 -ttl 720h
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-anomaly-monitor/internal/config"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/authenticating"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/middleware"
)

func main() {
	operator := flag.String("operator", "", "identificador do operador")
	name := flag.String("name", "", "nome do operador")
	role := flag.Int("role", middleware.RoleOperator, "perfil: 1 = administrador, 2 = operador")
	ttl := flag.Duration("ttl", 24*time.Hour, "validade do token")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	token, err := authenticating.NewService(cfg).GenerateToken(*operator, *name, *role, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao emitir token")
	}

	fmt.Println(token)
}
