package domain

// Tier es el grado de calificación de una wallet.
type Tier string

const (
	TierTop   Tier = "A"
	TierMid   Tier = "B"
	TierWatch Tier = "C"
)

// Umbrales de tier. Se evalúan en orden: top primero.
const (
	topTierWinRate = 0.65
	topTierROI     = 50.0
	midTierWinRate = 0.58
	midTierROI     = 25.0
)

// AssignTier asigna el tier a partir del win rate (0–1) y el ROI en porcentaje.
func AssignTier(winRate, roiPercent float64) Tier {
	switch {
	case winRate >= topTierWinRate && roiPercent >= topTierROI:
		return TierTop
	case winRate >= midTierWinRate && roiPercent >= midTierROI:
		return TierMid
	default:
		return TierWatch
	}
}

// Label devuelve el nombre legible del tier.
func (t Tier) Label() string {
	switch t {
	case TierTop:
		return "ELITE"
	case TierMid:
		return "STRONG"
	case TierWatch:
		return "WATCH"
	}
	return "UNRANKED"
}

// Icon devuelve el emoji del tier.
func (t Tier) Icon() string {
	switch t {
	case TierTop:
		return "🥇"
	case TierMid:
		return "🥈"
	case TierWatch:
		return "🥉"
	}
	return "📊"
}

// Tiers devuelve los tiers en orden de prioridad.
func Tiers() []Tier {
	return []Tier{TierTop, TierMid, TierWatch}
}

// Period es una ventana temporal del leaderboard.
type Period string

const (
	PeriodDay   Period = "DAY"
	PeriodWeek  Period = "WEEK"
	PeriodMonth Period = "MONTH"
	PeriodAll   Period = "ALL"
)

// Periods devuelve las cuatro ventanas que se consultan en cada refresh.
func Periods() []Period {
	return []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodAll}
}

// LeaderboardEntry es una fila del leaderboard de PnL.
type LeaderboardEntry struct {
	Address  string
	Username string
	PnL      float64
	Volume   float64
}

// LeaderboardPage agrupa las filas de una combinación categoría × ventana.
type LeaderboardPage struct {
	Category string
	Period   Period
	Entries  []LeaderboardEntry
}

// Wallet es un trader observado en el leaderboard, con sus métricas agregadas
// y el cursor de monitorización.
type Wallet struct {
	Address  string
	Username string

	// --- Leaderboard (máximo entre categorías) ---
	PnLAll   float64
	VolAll   float64
	PnLMonth float64
	PnLWeek  float64
	PnLDay   float64

	// --- Derivados ---
	ProfitableWindows int     // 0–4
	WinRate           float64 // 0–1 sobre posiciones cerradas
	ROIPercent        float64
	ClosedPositions   int
	Tier              Tier

	// LastSeenTradeTS es el timestamp del último trade procesado. Nunca decrece.
	LastSeenTradeTS int64
}

// CountProfitableWindows devuelve cuántas de las cuatro ventanas tienen PnL > 0.
func (w Wallet) CountProfitableWindows() int {
	n := 0
	for _, pnl := range []float64{w.PnLDay, w.PnLWeek, w.PnLMonth, w.PnLAll} {
		if pnl > 0 {
			n++
		}
	}
	return n
}

// AdvanceCursor mueve el cursor hacia delante; nunca lo retrocede.
func (w *Wallet) AdvanceCursor(ts int64) {
	if ts > w.LastSeenTradeTS {
		w.LastSeenTradeTS = ts
	}
}
