package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RuleName string

const (
	RuleDuplicateFraud RuleName = "DUPLICATE_FRAUD"
	RuleLowRevenue     RuleName = "LOW_REVENUE"
	RuleRevenueDrop    RuleName = "REVENUE_DROP"
	RuleVolumeDrop     RuleName = "VOLUME_DROP"
)

// rulePriority define a ordem de registro dos achados: sinais de fraude primeiro
var rulePriority = map[RuleName]int{
	RuleDuplicateFraud: 0,
	RuleLowRevenue:     1,
	RuleRevenueDrop:    2,
	RuleVolumeDrop:     3,
}

// Priority retorna a posição da regra na ordem de apresentação. Regras desconhecidas vão para o fim.
func (r RuleName) Priority() int {
	if p, ok := rulePriority[r]; ok {
		return p
	}
	return len(rulePriority)
}

// Known indica se a regra faz parte do conjunto de detectores
func (r RuleName) Known() bool {
	_, ok := rulePriority[r]
	return ok
}

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityInfo   Severity = "INFO"
)

// FindingDetails é o payload estruturado de um achado. Deve conter os valores brutos
// e o limite aplicado, para que a decisão possa ser auditada sem consultar a base.
type FindingDetails interface {
	// RuleKey identifica o achado dentro da regra e do dia (vazio para regras por dia)
	RuleKey() string
}

// Finding é o resultado de um detector, antes de ser persistido
type Finding struct {
	RuleName      RuleName       `json:"rule_name"`
	Severity      Severity       `json:"severity"`
	ReferenceDate time.Time      `json:"reference_date"`
	Summary       string         `json:"summary"`
	Details       FindingDetails `json:"details"`
}

// Fingerprint identifica de forma determinística o achado. Duas execuções sobre a mesma
// janela geram o mesmo fingerprint. Para regras por dia a chave é regra|data de referência.
// A duplicidade usa a data da compra no lugar da data de referência, para que janelas
// de vários dias não registrem o mesmo grupo de compras uma vez por execução.
func (f Finding) Fingerprint() string {
	key := ""
	if f.Details != nil {
		key = f.Details.RuleKey()
	}

	if f.RuleName == RuleDuplicateFraud && key != "" {
		return strings.Join([]string{string(f.RuleName), key}, "|")
	}

	parts := []string{string(f.RuleName), f.ReferenceDate.Format(time.DateOnly)}
	if key != "" {
		parts = append(parts, key)
	}
	return strings.Join(parts, "|")
}

// IncidentPayload é o formato persistido em incidentes.contexto, consumido por sistemas externos
type IncidentPayload struct {
	RuleName      RuleName       `json:"ruleName"`
	ReferenceDate string         `json:"referenceDate"`
	Severity      Severity       `json:"severity"`
	Details       FindingDetails `json:"details"`
}

// Payload monta o contexto persistido do achado
func (f Finding) Payload() IncidentPayload {
	return IncidentPayload{
		RuleName:      f.RuleName,
		ReferenceDate: f.ReferenceDate.Format(time.DateOnly),
		Severity:      f.Severity,
		Details:       f.Details,
	}
}

type LowRevenueDetails struct {
	Date      string          `json:"date"`
	Revenue   decimal.Decimal `json:"revenue"`
	Threshold decimal.Decimal `json:"threshold"`
}

func (LowRevenueDetails) RuleKey() string { return "" }

type RevenueDropDetails struct {
	PreviousDate    string          `json:"previousDate"`
	CurrentDate     string          `json:"currentDate"`
	PreviousRevenue decimal.Decimal `json:"previousRevenue"`
	CurrentRevenue  decimal.Decimal `json:"currentRevenue"`
	DropRatio       decimal.Decimal `json:"dropRatio"`
	Threshold       decimal.Decimal `json:"threshold"`
}

func (RevenueDropDetails) RuleKey() string { return "" }

type VolumeDropDetails struct {
	PreviousDate  string          `json:"previousDate"`
	CurrentDate   string          `json:"currentDate"`
	PreviousCount int             `json:"previousCount"`
	CurrentCount  int             `json:"currentCount"`
	DropRatio     decimal.Decimal `json:"dropRatio"`
	Threshold     decimal.Decimal `json:"threshold"`
}

func (VolumeDropDetails) RuleKey() string { return "" }

type DuplicatePurchaseDetails struct {
	Date        string          `json:"date"`
	CustomerID  string          `json:"customerId"`
	Amount      decimal.Decimal `json:"amount"`
	RepeatCount int             `json:"repeatCount"`
	MinRepeats  int             `json:"minRepeats"`
}

// RuleKey identifica o grupo de compras pela data da compra, que pode ser anterior
// à data de referência quando a janela de duplicidade tem mais de um dia
func (d DuplicatePurchaseDetails) RuleKey() string {
	return fmt.Sprintf("%s|%s|%s", d.Date, d.CustomerID, d.Amount.String())
}
