package domain

import "time"

// Signal es un trade de una wallet calificada que pasó todos los filtros de trade.
type Signal struct {
	ID string

	WalletAddress  string
	WalletUsername string
	WalletTier     Tier

	ConditionID    string
	MarketQuestion string
	MarketSlug     string
	Outcome        string

	Side         string // siempre BUY
	Size         float64
	Price        float64
	EstimatedUSD float64

	MarketProbability float64 // 0–1, precio actual del outcome
	MarketLiquidity   float64

	Timestamp int64 // unix segundos

	// ConvergenceCount arranca en 1 (la propia wallet) y solo lo sube el agregador.
	ConvergenceCount int

	Sizing Sizing
}

// MarketKey identifica el mercado para la convergencia: el conditionID si existe,
// si no el slug.
func (s Signal) MarketKey() string {
	if s.ConditionID != "" {
		return s.ConditionID
	}
	return s.MarketSlug
}

// Time devuelve el timestamp como time.Time en UTC.
func (s Signal) Time() time.Time {
	return time.Unix(s.Timestamp, 0).UTC()
}

// ScanPick es un mercado de alta probabilidad seleccionado por el scanner.
type ScanPick struct {
	Market         Market
	Outcome        string
	Price          float64
	ProbabilityPct float64
	ROIPercent     float64
	Sizing         Sizing
}
