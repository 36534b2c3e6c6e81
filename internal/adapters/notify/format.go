package notify

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

const (
	separator          = "━━━━━━━━━━━━━━━━━━━━"
	watchlistPerTier   = 5
	defaultMinWallets  = 2
	ultraConvergence   = 3
	maxQuestionDisplay = 200
)

// ScanFilters es el resumen de filtros que se muestra al pie del digest del scanner.
type ScanFilters struct {
	MinProbabilityPct float64
	MaxProbabilityPct float64
	MinVolume         float64
	MinLiquidity      float64
}

// Formatter construye los mensajes HTML de Telegram.
type Formatter struct {
	// MinWallets es el número de wallets a partir del cual una señal es de alta convicción.
	MinWallets int
	Filters    ScanFilters
}

// NewFormatter crea un Formatter. minWallets <= 1 usa 2.
func NewFormatter(minWallets int, filters ScanFilters) Formatter {
	if minWallets <= 1 {
		minWallets = defaultMinWallets
	}
	return Formatter{MinWallets: minWallets, Filters: filters}
}

// Confidence devuelve la cabecera de la señal según convergencia y tier.
func (f Formatter) Confidence(s domain.Signal) string {
	switch {
	case s.ConvergenceCount >= ultraConvergence && s.ConvergenceCount >= f.MinWallets:
		return "🔥🔥🔥 ULTRA HIGH CONVICTION"
	case s.ConvergenceCount >= f.MinWallets:
		return "🔥🔥 HIGH CONVICTION"
	case s.WalletTier == domain.TierTop:
		return "🔥 STRONG SIGNAL"
	default:
		return "📊 SMART MONEY SIGNAL"
	}
}

// Signal formatea una alerta de smart money.
func (f Formatter) Signal(s domain.Signal) string {
	var sb strings.Builder
	sb.WriteString(separator + "\n")
	fmt.Fprintf(&sb, "  %s\n", f.Confidence(s))
	sb.WriteString(separator + "\n\n")

	fmt.Fprintf(&sb, "❓ <b>%s</b>\n\n", esc(domain.TruncateQuestion(s.MarketQuestion, s.ConditionID, maxQuestionDisplay)))
	fmt.Fprintf(&sb, "👉 TIP: <b>%s</b> @ %.1f%%\n\n", esc(strings.ToUpper(s.Outcome)), s.MarketProbability*100)
	fmt.Fprintf(&sb, "💰 Trade: <b>$%s</b> (%s shares @ $%.2f)\n", money(s.EstimatedUSD), money(s.Size), s.Price)
	fmt.Fprintf(&sb, "💧 Liquidity: $%s\n", money(s.MarketLiquidity))
	if s.Sizing.StakeUSD > 0 {
		fmt.Fprintf(&sb, "🧮 Kelly suggests: $%s (%.1f%% of bankroll)\n", money(s.Sizing.StakeUSD), s.Sizing.StakeFraction*100)
	}
	fmt.Fprintf(&sb, "\n👤 Trader: <code>%s</code> [%s %s]\n", esc(s.WalletUsername), s.WalletTier.Icon(), s.WalletTier.Label())

	if s.ConvergenceCount >= f.MinWallets {
		fmt.Fprintf(&sb, "\n🎯 <b>%d smart wallets</b> buying this!\n", s.ConvergenceCount)
	}

	fmt.Fprintf(&sb, "\n🔗 <a href='%s'>View Market</a>\n", esc(domain.EventURL(s.MarketSlug)))
	fmt.Fprintf(&sb, "⏰ %s", s.Time().Format("15:04 UTC"))
	return sb.String()
}

// Watchlist formatea la lista de wallets seguidas, top 5 por tier según PnL.
func (f Formatter) Watchlist(wallets []domain.Wallet) string {
	byTier := make(map[domain.Tier][]domain.Wallet, 3)
	for _, w := range wallets {
		byTier[w.Tier] = append(byTier[w.Tier], w)
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>SMART MONEY WATCHLIST UPDATE</b>\n")
	sb.WriteString(separator + "\n\n")
	fmt.Fprintf(&sb, "Tracking <b>%d</b> verified wallets:\n\n", len(wallets))

	for _, tier := range domain.Tiers() {
		list := byTier[tier]
		if len(list) == 0 {
			continue
		}
		sort.Slice(list, func(i, j int) bool { return list[i].PnLAll > list[j].PnLAll })

		fmt.Fprintf(&sb, "%s <b>%s</b> (%d):\n", tier.Icon(), tier.Label(), len(list))
		for _, w := range list[:min(len(list), watchlistPerTier)] {
			fmt.Fprintf(&sb, "  • <code>%s</code> — WR: %.0f%% | ROI: %.0f%% | PnL: $%s\n",
				esc(w.Username), w.WinRate*100, w.ROIPercent, money(w.PnLAll))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("<i>Signals fire when these wallets make qualifying trades.</i>")
	return sb.String()
}

// Scan formatea el digest del scanner.
func (f Formatter) Scan(picks []domain.ScanPick, now time.Time) string {
	if len(picks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>MARKET SCANNER — HIGH PROBABILITY PLAYS</b>\n")
	fmt.Fprintf(&sb, "⏰ %s\n", now.UTC().Format("01/02/2006 15:04 UTC"))
	sb.WriteString(separator + "\n\n")

	for i, p := range picks {
		fmt.Fprintf(&sb, "<b>#%d %s</b>\n\n", i+1, esc(domain.TruncateQuestion(p.Market.Question, p.Market.ConditionID, maxQuestionDisplay)))
		fmt.Fprintf(&sb, "🎯 Bet: <b>%s</b>\n", esc(p.Outcome))
		fmt.Fprintf(&sb, "📈 Probability: <b>%.1f%%</b>\n", p.ProbabilityPct)
		fmt.Fprintf(&sb, "💵 Price: $%.3f\n", p.Price)
		fmt.Fprintf(&sb, "💰 Potential ROI: +%.1f%%\n", p.ROIPercent)
		fmt.Fprintf(&sb, "📊 Volume: $%s | Liquidity: $%s\n", money(p.Market.Volume), money(p.Market.Liquidity))
		if p.Sizing.StakeUSD > 0 {
			fmt.Fprintf(&sb, "🧮 Kelly suggests: $%s (%.1f%% of bankroll)\n", money(p.Sizing.StakeUSD), p.Sizing.StakeFraction*100)
		}
		fmt.Fprintf(&sb, "\n🔗 <a href='%s'>View Market</a>\n", esc(domain.EventURL(p.Market.Slug)))
		sb.WriteString(separator + "\n\n")
	}

	fmt.Fprintf(&sb, "⚙️ Filters: %.0f-%.0f%% prob | Vol ≥$%s | Liq ≥$%s",
		f.Filters.MinProbabilityPct, f.Filters.MaxProbabilityPct,
		money(f.Filters.MinVolume), money(f.Filters.MinLiquidity))
	return sb.String()
}

// Startup formatea el mensaje de arranque.
func (f Formatter) Startup(info domain.StartupInfo) string {
	return fmt.Sprintf("🟢 <b>Polymarket Tipster Bot is online!</b>\n\n"+
		"📊 Market Scanner: %s\n"+
		"🐋 Smart Money Tracker: %s\n"+
		"⏰ Started at %s",
		onOff(info.ScannerEnabled), onOff(info.SmartMoneyEnabled),
		info.StartedAt.UTC().Format("15:04 UTC"))
}

func onOff(enabled bool) string {
	if enabled {
		return "✅ ON"
	}
	return "❌ OFF"
}

// money formatea un importe en USD sin decimales y con separador de miles.
func money(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func esc(s string) string {
	return html.EscapeString(s)
}
