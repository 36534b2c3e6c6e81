package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignTier(t *testing.T) {
	cases := []struct {
		name    string
		winRate float64
		roi     float64
		want    Tier
	}{
		{"top", 0.70, 60, TierTop},
		{"top boundary", 0.65, 50, TierTop},
		{"mid", 0.60, 30, TierMid},
		{"high win rate low roi", 0.70, 30, TierMid},
		{"watch", 0.55, 10, TierWatch},
		{"high roi low win rate", 0.55, 200, TierWatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AssignTier(tc.winRate, tc.roi))
		})
	}
}

func TestWallet_CountProfitableWindows(t *testing.T) {
	w := Wallet{PnLDay: -5, PnLWeek: 0, PnLMonth: 10, PnLAll: 5000}
	assert.Equal(t, 2, w.CountProfitableWindows())
}

func TestWallet_AdvanceCursorNeverDecreases(t *testing.T) {
	w := Wallet{LastSeenTradeTS: 100}
	w.AdvanceCursor(50)
	assert.Equal(t, int64(100), w.LastSeenTradeTS)
	w.AdvanceCursor(150)
	assert.Equal(t, int64(150), w.LastSeenTradeTS)
}

func TestMarket_ProbabilityAt(t *testing.T) {
	m := Market{OutcomePrices: []float64{0.3, 0.7}}
	assert.Equal(t, 0.7, m.ProbabilityAt(1, 0.5))
	assert.Equal(t, 0.5, m.ProbabilityAt(2, 0.5), "índice fuera de rango usa fallback")
	assert.Equal(t, 0.5, Market{}.ProbabilityAt(0, 0.5), "sin vector usa fallback")
}

func TestMarket_Favorite(t *testing.T) {
	m := Market{Outcomes: []string{"Yes", "No"}, OutcomePrices: []float64{0.12, 0.88}}
	outcome, price, ok := m.Favorite()
	assert.True(t, ok)
	assert.Equal(t, "No", outcome)
	assert.Equal(t, 0.88, price)

	_, _, ok = Market{}.Favorite()
	assert.False(t, ok)
}

func TestClosedMarket_IsNotOpen(t *testing.T) {
	assert.False(t, ClosedMarket("0xabc").IsOpen())
}
