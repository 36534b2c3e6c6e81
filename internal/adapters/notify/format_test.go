package notify_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/polytipster/internal/adapters/notify"
	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/stretchr/testify/assert"
)

func makeSignal(convergence int, tier domain.Tier) domain.Signal {
	return domain.Signal{
		ID:                "sig-1",
		WalletAddress:     "0x1111111111111111111111111111111111111111",
		WalletUsername:    "whale<1>",
		WalletTier:        tier,
		ConditionID:       "0xabc",
		MarketQuestion:    "Will the Fed cut rates?",
		MarketSlug:        "fed-cut",
		Outcome:           "Yes",
		Side:              domain.SideBuy,
		Size:              2500,
		Price:             0.58,
		EstimatedUSD:      1450,
		MarketProbability: 0.60,
		MarketLiquidity:   125_000,
		Timestamp:         time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC).Unix(),
		ConvergenceCount:  convergence,
		Sizing:            domain.Sizing{StakeUSD: 13, StakeFraction: 0.013, EdgePercent: 2},
	}
}

func TestFormatter_Confidence(t *testing.T) {
	f := notify.NewFormatter(2, notify.ScanFilters{})

	assert.Contains(t, f.Confidence(makeSignal(3, domain.TierWatch)), "ULTRA HIGH")
	assert.Contains(t, f.Confidence(makeSignal(2, domain.TierWatch)), "HIGH CONVICTION")
	assert.NotContains(t, f.Confidence(makeSignal(2, domain.TierWatch)), "ULTRA")
	assert.Contains(t, f.Confidence(makeSignal(1, domain.TierTop)), "STRONG SIGNAL")
	assert.Contains(t, f.Confidence(makeSignal(1, domain.TierMid)), "SMART MONEY SIGNAL")
}

func TestFormatter_Signal(t *testing.T) {
	f := notify.NewFormatter(2, notify.ScanFilters{})
	msg := f.Signal(makeSignal(2, domain.TierMid))

	assert.Contains(t, msg, "❓ <b>Will the Fed cut rates?</b>")
	assert.Contains(t, msg, "👉 TIP: <b>YES</b> @ 60.0%")
	assert.Contains(t, msg, "💰 Trade: <b>$1,450</b> (2,500 shares @ $0.58)")
	assert.Contains(t, msg, "💧 Liquidity: $125,000")
	assert.Contains(t, msg, "<code>whale&lt;1&gt;</code> [🥈 STRONG]")
	assert.Contains(t, msg, "🎯 <b>2 smart wallets</b> buying this!")
	assert.Contains(t, msg, "https://polymarket.com/event/fed-cut")
	assert.Contains(t, msg, "⏰ 14:30 UTC")
	assert.Contains(t, msg, "Kelly suggests: $13 (1.3% of bankroll)")
}

func TestFormatter_SignalLinkIsEscaped(t *testing.T) {
	s := makeSignal(1, domain.TierTop)
	s.MarketSlug = "x' onclick='y"

	msg := notify.NewFormatter(2, notify.ScanFilters{}).Signal(s)

	assert.NotContains(t, msg, "x' onclick")
	assert.Contains(t, msg, "<a href='https://polymarket.com/event/x&#39;")
}

func TestFormatter_SignalSingleWalletHasNoConvergenceLine(t *testing.T) {
	f := notify.NewFormatter(2, notify.ScanFilters{})
	msg := f.Signal(makeSignal(1, domain.TierTop))
	assert.NotContains(t, msg, "smart wallets")
}

func TestFormatter_WatchlistTopFivePerTier(t *testing.T) {
	var wallets []domain.Wallet
	for i := 0; i < 7; i++ {
		wallets = append(wallets, domain.Wallet{
			Username: fmt.Sprintf("elite%d", i),
			Tier:     domain.TierTop,
			PnLAll:   float64(1000 * (i + 1)),
			WinRate:  0.7,
		})
	}
	wallets = append(wallets, domain.Wallet{Username: "watcher", Tier: domain.TierWatch, PnLAll: 50_000})

	msg := notify.NewFormatter(2, notify.ScanFilters{}).Watchlist(wallets)

	assert.Contains(t, msg, "Tracking <b>8</b> verified wallets")
	assert.Contains(t, msg, "🥇 <b>ELITE</b> (7):")
	assert.Contains(t, msg, "🥉 <b>WATCH</b> (1):")
	assert.NotContains(t, msg, "STRONG")
	assert.Contains(t, msg, "elite6")
	assert.NotContains(t, msg, "elite0", "solo los 5 con más PnL")
	assert.Less(t, strings.Index(msg, "elite6"), strings.Index(msg, "elite5"))
}

func TestFormatter_Scan(t *testing.T) {
	f := notify.NewFormatter(2, notify.ScanFilters{MinProbabilityPct: 65, MaxProbabilityPct: 92, MinVolume: 10_000, MinLiquidity: 5_000})
	picks := []domain.ScanPick{{
		Market:         domain.Market{Question: "Will BTC close above 50k?", Slug: "btc-50k", Volume: 1_234_567, Liquidity: 45_000},
		Outcome:        "Yes",
		Price:          0.8,
		ProbabilityPct: 80,
		ROIPercent:     25,
		Sizing:         domain.Sizing{StakeUSD: 25, StakeFraction: 0.025},
	}}

	msg := f.Scan(picks, time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC))

	assert.Contains(t, msg, "MARKET SCANNER")
	assert.Contains(t, msg, "⏰ 05/01/2024 09:05 UTC")
	assert.Contains(t, msg, "<b>#1 Will BTC close above 50k?</b>")
	assert.Contains(t, msg, "📈 Probability: <b>80.0%</b>")
	assert.Contains(t, msg, "💵 Price: $0.800")
	assert.Contains(t, msg, "💰 Potential ROI: +25.0%")
	assert.Contains(t, msg, "📊 Volume: $1,234,567 | Liquidity: $45,000")
	assert.Contains(t, msg, "🧮 Kelly suggests: $25 (2.5% of bankroll)")
	assert.Contains(t, msg, "⚙️ Filters: 65-92% prob | Vol ≥$10,000 | Liq ≥$5,000")

	assert.Empty(t, f.Scan(nil, time.Now()))
}

func TestFormatter_Startup(t *testing.T) {
	msg := notify.NewFormatter(2, notify.ScanFilters{}).Startup(domain.StartupInfo{
		ScannerEnabled:    false,
		SmartMoneyEnabled: true,
		StartedAt:         time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	})

	assert.Contains(t, msg, "📊 Market Scanner: ❌ OFF")
	assert.Contains(t, msg, "🐋 Smart Money Tracker: ✅ ON")
	assert.Contains(t, msg, "Started at 08:00 UTC")
}
