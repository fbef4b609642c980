package detecting

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/sales-anomaly-monitor/internal/domain"
)

func TestRevenueDropDetector_Evaluate(t *testing.T) {
	detector := NewRevenueDropDetector(dec("0.30"))

	tests := []struct {
		name      string
		previous  string
		current   string
		wantFired bool
		wantRatio string
	}{
		{name: "Queda de exatamente 30% dispara", previous: "100", current: "70", wantFired: true, wantRatio: "0.3"},
		{name: "Queda de 95% dispara", previous: "100", current: "5", wantFired: true, wantRatio: "0.95"},
		{name: "Queda total dispara", previous: "250.50", current: "0", wantFired: true, wantRatio: "1"},
		{name: "Queda de 29.99% não dispara", previous: "100", current: "70.01", wantFired: false},
		{name: "Faturamento estável não dispara", previous: "100", current: "100", wantFired: false},
		{name: "Aumento de faturamento não dispara", previous: "100", current: "180", wantFired: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := detector.Evaluate(twoDays(tt.previous, tt.current, 10, 10))
			require.NoError(t, err)

			if !tt.wantFired {
				assert.Empty(t, findings)
				return
			}

			require.Len(t, findings, 1)
			assert.Equal(t, domain.RuleRevenueDrop, findings[0].RuleName)
			assert.Equal(t, domain.SeverityHigh, findings[0].Severity)

			details, ok := findings[0].Details.(domain.RevenueDropDetails)
			require.True(t, ok)
			assert.Equal(t, "2024-01-14", details.PreviousDate)
			assert.Equal(t, "2024-01-15", details.CurrentDate)
			assert.True(t, details.PreviousRevenue.Equal(dec(tt.previous)))
			assert.True(t, details.CurrentRevenue.Equal(dec(tt.current)))
			assert.True(t, details.DropRatio.Equal(dec(tt.wantRatio)), "dropRatio = %s", details.DropRatio)
			assert.True(t, details.Threshold.Equal(dec("0.3")))
		})
	}
}

// Para qualquer par (anterior > 0, atual) o detector dispara sse (anterior - atual) / anterior >= 0.30.
// A expectativa é calculada em centavos inteiros, sem divisão.
func TestRevenueDropDetector_PropriedadeDoLimite(t *testing.T) {
	detector := NewRevenueDropDetector(dec("0.30"))
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		previousCents := rng.Int63n(1_000_000) + 1
		currentCents := rng.Int63n(previousCents * 2)
		if i%10 == 0 {
			// força casos na fronteira exata: atual = 70% do anterior
			previousCents = (rng.Int63n(100_000) + 1) * 10
			currentCents = previousCents / 10 * 7
		}

		previous := decimal.New(previousCents, -2)
		current := decimal.New(currentCents, -2)
		shouldFire := (previousCents-currentCents)*10 >= 3*previousCents

		findings, err := detector.Evaluate(twoDays(previous.String(), current.String(), 1, 1))
		require.NoError(t, err)
		assert.Equal(t, shouldFire, len(findings) == 1, "anterior=%s atual=%s", previous, current)
	}
}

func TestVolumeDropDetector_Evaluate(t *testing.T) {
	detector := NewVolumeDropDetector(dec("0.30"), dec("0.60"))

	tests := []struct {
		name         string
		previous     int
		current      int
		wantFired    bool
		wantSeverity domain.Severity
		wantRatio    string
	}{
		{name: "Queda de exatamente 30% dispara como MEDIUM", previous: 10, current: 7, wantFired: true, wantSeverity: domain.SeverityMedium, wantRatio: "0.3"},
		{name: "Queda de 50% dispara como MEDIUM", previous: 10, current: 5, wantFired: true, wantSeverity: domain.SeverityMedium, wantRatio: "0.5"},
		{name: "Queda de exatamente 60% dispara como HIGH", previous: 10, current: 4, wantFired: true, wantSeverity: domain.SeverityHigh, wantRatio: "0.6"},
		{name: "Queda de 80% dispara como HIGH", previous: 10, current: 2, wantFired: true, wantSeverity: domain.SeverityHigh, wantRatio: "0.8"},
		{name: "Queda de 20% não dispara", previous: 10, current: 8, wantFired: false},
		{name: "Aumento de vendas não dispara", previous: 10, current: 12, wantFired: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := detector.Evaluate(twoDays("100", "100", tt.previous, tt.current))
			require.NoError(t, err)

			if !tt.wantFired {
				assert.Empty(t, findings)
				return
			}

			require.Len(t, findings, 1)
			assert.Equal(t, domain.RuleVolumeDrop, findings[0].RuleName)
			assert.Equal(t, tt.wantSeverity, findings[0].Severity)

			details, ok := findings[0].Details.(domain.VolumeDropDetails)
			require.True(t, ok)
			assert.Equal(t, tt.previous, details.PreviousCount)
			assert.Equal(t, tt.current, details.CurrentCount)
			assert.True(t, details.DropRatio.Equal(dec(tt.wantRatio)), "dropRatio = %s", details.DropRatio)
		})
	}
}

func TestDropDetectors_DenominadorZero(t *testing.T) {
	snapshot := twoDays("0", "0", 0, 0)

	detectors := []Detector{
		NewRevenueDropDetector(dec("0.30")),
		NewVolumeDropDetector(dec("0.30"), dec("0.60")),
	}

	for _, detector := range detectors {
		t.Run(string(detector.Rule()), func(t *testing.T) {
			var findings []domain.Finding
			var err error

			assert.NotPanics(t, func() {
				findings, err = detector.Evaluate(snapshot)
			})
			assert.ErrorIs(t, err, ErrComputationSkipped)
			assert.Empty(t, findings)
		})
	}
}

func TestDropDetectors_SemDiaAnterior(t *testing.T) {
	snapshot := Snapshot{
		ReferenceDate: referenceDate,
		Days:          []domain.DailySales{daySales(referenceDate, "1", 1)},
	}

	for _, detector := range []Detector{
		NewRevenueDropDetector(dec("0.30")),
		NewVolumeDropDetector(dec("0.30"), dec("0.60")),
	} {
		findings, err := detector.Evaluate(snapshot)
		assert.ErrorIs(t, err, ErrComputationSkipped)
		assert.Empty(t, findings)
	}
}

func TestDropDetectors_DiaSemVendasNaBase(t *testing.T) {
	tests := []struct {
		name    string
		noSales string
	}{
		{name: "Dia de referência sem vendas", noSales: "2024-01-15"},
		{name: "Dia anterior sem vendas", noSales: "2024-01-14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// os valores indicariam queda; o dia preenchido com zero não pode ser comparado
			snapshot := twoDays("300", "0", 6, 0)
			snapshot.NoSales = map[string]bool{tt.noSales: true}

			for _, detector := range []Detector{
				NewRevenueDropDetector(dec("0.30")),
				NewVolumeDropDetector(dec("0.30"), dec("0.60")),
			} {
				findings, err := detector.Evaluate(snapshot)
				assert.ErrorIs(t, err, ErrComputationSkipped, string(detector.Rule()))
				assert.Empty(t, findings)
			}
		})
	}
}
