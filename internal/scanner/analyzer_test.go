package scanner

import (
	"testing"

	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_Analyze_PicksFavorite(t *testing.T) {
	market := domain.Market{
		ConditionID:   "0xtest",
		Outcomes:      []string{"Yes", "No"},
		OutcomePrices: []float64{0.20, 0.80},
		Active:        true,
	}

	a := NewAnalyzer(domain.NewSizer(1_000, 0.25, 0.10), 2)
	pick, err := a.Analyze(market)

	require.NoError(t, err)
	assert.Equal(t, "No", pick.Outcome)
	assert.InDelta(t, 0.80, pick.Price, 1e-9)
	assert.InDelta(t, 80.0, pick.ProbabilityPct, 1e-9)
	// 1/0.8 - 1 = 25 %
	assert.InDelta(t, 25.0, pick.ROIPercent, 1e-9)
	assert.Equal(t, domain.KellySize(0.80, pick.ProbabilityPct+2, 1_000, 0.25, 0.10), pick.Sizing)
	assert.Greater(t, pick.Sizing.StakeUSD, 0.0)
}

func TestAnalyzer_Analyze_NoPrices(t *testing.T) {
	a := NewAnalyzer(domain.NewSizer(1_000, 0.25, 0.10), 2)
	_, err := a.Analyze(domain.Market{ConditionID: "0xtest"})
	assert.Error(t, err)
}

func TestAnalyzer_Analyze_ResolvedPrice(t *testing.T) {
	a := NewAnalyzer(domain.NewSizer(1_000, 0.25, 0.10), 2)
	_, err := a.Analyze(domain.Market{OutcomePrices: []float64{1, 0}})
	assert.Error(t, err)
}

func TestRankByProbability_TiesBrokenByVolume(t *testing.T) {
	picks := []domain.ScanPick{
		{ProbabilityPct: 70, Market: domain.Market{ConditionID: "a", Volume: 1}},
		{ProbabilityPct: 80, Market: domain.Market{ConditionID: "b", Volume: 1}},
		{ProbabilityPct: 70, Market: domain.Market{ConditionID: "c", Volume: 9}},
	}

	ranked := rankByProbability(picks)

	assert.Equal(t, "b", ranked[0].Market.ConditionID)
	assert.Equal(t, "c", ranked[1].Market.ConditionID)
	assert.Equal(t, "a", ranked[2].Market.ConditionID)
}
