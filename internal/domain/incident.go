package domain

import (
	"encoding/json"
	"time"
)

// Incident é o registro persistido de um Finding na tabela incidentes
type Incident struct {
	ID            string          `json:"id"`
	Fingerprint   string          `json:"fingerprint"`
	RuleName      RuleName        `json:"rule_name"`
	Severity      Severity        `json:"severity"`
	ReferenceDate time.Time       `json:"reference_date"`
	Summary       string          `json:"summary"`
	Context       json.RawMessage `json:"context"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordResult resume uma gravação de achados
type RecordResult struct {
	Created    []*Incident `json:"created"`
	Duplicates []string    `json:"duplicates"` // fingerprints já registrados anteriormente
}

// IncidentFilters filtra incidentes pela data de referência
type IncidentFilters struct {
	StartDate *time.Time
	EndDate   *time.Time
	RuleName  *RuleName
}
