package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

// memoryIncidentRepository guarda incidentes em memória. Usado no modo dry-run,
// onde a detecção roda completa sem escrever na base.
type memoryIncidentRepository struct {
	mu        sync.Mutex
	incidents []*domain.Incident
	byPrint   map[string]*domain.Incident
	now       func() time.Time
}

func NewMemoryIncidentRepository() IncidentRepository {
	return &memoryIncidentRepository{
		incidents: make([]*domain.Incident, 0),
		byPrint:   make(map[string]*domain.Incident),
		now:       time.Now,
	}
}

func (r *memoryIncidentRepository) Record(_ context.Context, findings []domain.Finding) (*domain.RecordResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := &domain.RecordResult{
		Created:    make([]*domain.Incident, 0, len(findings)),
		Duplicates: make([]string, 0),
	}

	// monta tudo antes de gravar, para não deixar gravação parcial em caso de erro
	pending := make([]*domain.Incident, 0, len(findings))
	seen := make(map[string]bool, len(findings))
	for _, finding := range findings {
		fingerprint := finding.Fingerprint()
		if _, exists := r.byPrint[fingerprint]; exists || seen[fingerprint] {
			result.Duplicates = append(result.Duplicates, fingerprint)
			continue
		}

		incident, err := newIncident(finding)
		if err != nil {
			return nil, err
		}
		incident.CreatedAt = r.now()

		seen[fingerprint] = true
		pending = append(pending, incident)
	}

	for _, incident := range pending {
		r.byPrint[incident.Fingerprint] = incident
		r.incidents = append(r.incidents, incident)
		result.Created = append(result.Created, incident)
	}

	return result, nil
}

func (r *memoryIncidentRepository) List(_ context.Context, filters domain.IncidentFilters) ([]*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incidents := make([]*domain.Incident, 0, len(r.incidents))
	for _, incident := range r.incidents {
		if filters.StartDate != nil && incident.ReferenceDate.Before(domain.DateOnly(*filters.StartDate)) {
			continue
		}
		if filters.EndDate != nil && incident.ReferenceDate.After(domain.DateOnly(*filters.EndDate)) {
			continue
		}
		if filters.RuleName != nil && incident.RuleName != *filters.RuleName {
			continue
		}
		incidents = append(incidents, incident)
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		if !incidents[i].ReferenceDate.Equal(incidents[j].ReferenceDate) {
			return incidents[i].ReferenceDate.After(incidents[j].ReferenceDate)
		}
		return incidents[i].RuleName.Priority() < incidents[j].RuleName.Priority()
	})

	return incidents, nil
}
