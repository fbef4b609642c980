package handler

import (
	"net/http"
	"time"

	"github.com/vfg2006/sales-anomaly-monitor/internal/api/handler/router"
	"github.com/vfg2006/sales-anomaly-monitor/internal/usecases/detecting"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/middleware"
)

func Healthcheck(db Pinger) []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(db),
		},
	}
}

func Anomalies(job AnomalyJob, runner detecting.Runner, loc *time.Location) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/anomalies/run",
			Method:      http.MethodPost,
			Handler:     RunAnomalyDetection(job),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/anomalies/status",
			Method:      http.MethodGet,
			Handler:     GetAnomalyStatus(job),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/anomalies/preview",
			Method:      http.MethodGet,
			Handler:     PreviewAnomalies(runner, loc),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}

func Incidents(incidents IncidentLister) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/incidents",
			Method:      http.MethodGet,
			Handler:     ListIncidents(incidents),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOrOperator()},
		},
	}
}
