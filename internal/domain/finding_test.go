package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinding_Fingerprint(t *testing.T) {
	referenceDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		finding Finding
		want    string
	}{
		{
			name:    "Regra por dia usa apenas regra e data",
			finding: Finding{RuleName: RuleRevenueDrop, ReferenceDate: referenceDate, Details: RevenueDropDetails{}},
			want:    "REVENUE_DROP|2024-01-15",
		},
		{
			name: "Duplicidade usa dia da compra, cliente e valor",
			finding: Finding{
				RuleName:      RuleDuplicateFraud,
				ReferenceDate: referenceDate,
				Details:       DuplicatePurchaseDetails{Date: "2024-01-14", CustomerID: "X", Amount: decimal.RequireFromString("50.00")},
			},
			want: "DUPLICATE_FRAUD|2024-01-14|X|50",
		},
		{
			name:    "Sem detalhes",
			finding: Finding{RuleName: RuleLowRevenue, ReferenceDate: referenceDate},
			want:    "LOW_REVENUE|2024-01-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.finding.Fingerprint())
		})
	}
}

func TestFinding_Fingerprint_DuplicidadeIndependeDaExecucao(t *testing.T) {
	details := DuplicatePurchaseDetails{Date: "2024-01-15", CustomerID: "X", Amount: decimal.NewFromInt(50)}

	first := Finding{RuleName: RuleDuplicateFraud, ReferenceDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Details: details}
	second := Finding{RuleName: RuleDuplicateFraud, ReferenceDate: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), Details: details}

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestRuleName_Priority(t *testing.T) {
	rules := []RuleName{RuleVolumeDrop, "OUTRA", RuleRevenueDrop, RuleDuplicateFraud, RuleLowRevenue}

	priorities := make(map[RuleName]int)
	for _, rule := range rules {
		priorities[rule] = rule.Priority()
	}

	assert.Less(t, priorities[RuleDuplicateFraud], priorities[RuleLowRevenue])
	assert.Less(t, priorities[RuleLowRevenue], priorities[RuleRevenueDrop])
	assert.Less(t, priorities[RuleRevenueDrop], priorities[RuleVolumeDrop])
	assert.Less(t, priorities[RuleVolumeDrop], priorities["OUTRA"])

	assert.True(t, RuleVolumeDrop.Known())
	assert.False(t, RuleName("OUTRA").Known())
}

func TestFinding_Payload(t *testing.T) {
	finding := Finding{
		RuleName:      RuleVolumeDrop,
		Severity:      SeverityMedium,
		ReferenceDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Summary:       "Queda de 50.00% no volume de vendas",
		Details: VolumeDropDetails{
			PreviousDate:  "2024-01-14",
			CurrentDate:   "2024-01-15",
			PreviousCount: 10,
			CurrentCount:  5,
			DropRatio:     decimal.RequireFromString("0.5"),
			Threshold:     decimal.RequireFromString("0.3"),
		},
	}

	payload, err := json.Marshal(finding.Payload())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"ruleName": "VOLUME_DROP",
		"referenceDate": "2024-01-15",
		"severity": "MEDIUM",
		"details": {
			"previousDate": "2024-01-14",
			"currentDate": "2024-01-15",
			"previousCount": 10,
			"currentCount": 5,
			"dropRatio": "0.5",
			"threshold": "0.3"
		}
	}`, string(payload))
}
