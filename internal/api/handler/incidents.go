package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/apiErrors"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/log"
	"github.com/vfg2006/sales-anomaly-monitor/pkg/utils"
)

// IncidentLister consulta os incidentes registrados
type IncidentLister interface {
	List(ctx context.Context, filters domain.IncidentFilters) ([]*domain.Incident, error)
}

// ListIncidents lista incidentes por período de referência (start_date, end_date) e regra (rule)
func ListIncidents(incidents IncidentLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filters := domain.IncidentFilters{}

		if startDate := query.Get("start_date"); startDate != "" {
			date, err := utils.ParseDate(startDate)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "start_date inválida, use o formato YYYY-MM-DD", nil)
				return
			}
			filters.StartDate = date
		}

		if endDate := query.Get("end_date"); endDate != "" {
			date, err := utils.ParseDate(endDate)
			if err != nil {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "end_date inválida, use o formato YYYY-MM-DD", nil)
				return
			}
			filters.EndDate = date
		}

		if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "end_date deve ser posterior a start_date", nil)
			return
		}

		if rule := strings.ToUpper(strings.TrimSpace(query.Get("rule"))); rule != "" {
			ruleName := domain.RuleName(rule)
			if !ruleName.Known() {
				apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Regra desconhecida", map[string]string{"rule": rule})
				return
			}
			filters.RuleName = &ruleName
		}

		result, err := incidents.List(r.Context(), filters)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao listar incidentes")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar incidentes", nil)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
