package domain

import "github.com/shopspring/decimal"

// DefaultKellyCap es el tope por apuesta como fracción del bankroll.
const DefaultKellyCap = 0.10

// Sizing es la recomendación de stake para una apuesta.
type Sizing struct {
	StakeUSD      float64 // USD sugeridos
	StakeFraction float64 // fracción del bankroll (0–cap)
	EdgePercent   float64 // (p - precio) × 100, en puntos porcentuales
}

// KellySize calcula el stake recomendado con Kelly fraccional y tope.
//
// Fórmula:
//
//	p  = probPct / 100,  q = 1 - p
//	b  = (1 - price) / price            (odds netas)
//	f  = (b·p - q) / b                  (Kelly completo)
//	f' = min(max(0, f) · kellyFraction, capFraction)
//	stake = bankroll · f'
//
// Un precio fuera de (0,1) devuelve el Sizing cero: es un caso degenerado, no un error.
func KellySize(marketPrice, estimatedProbPct, bankroll, kellyFraction, capFraction float64) Sizing {
	if marketPrice <= 0 || marketPrice >= 1 {
		return Sizing{}
	}
	if capFraction <= 0 {
		capFraction = DefaultKellyCap
	}

	p := estimatedProbPct / 100.0
	q := 1.0 - p
	b := (1.0 - marketPrice) / marketPrice

	raw := (b*p - q) / b
	f := max(0, raw) * max(0, kellyFraction)
	f = min(f, capFraction)

	stake := 0.0
	if bankroll > 0 {
		stake = bankroll * f
	}

	return Sizing{
		StakeUSD:      round(stake, 2),
		StakeFraction: round(f, 4),
		EdgePercent:   round((p-marketPrice)*100, 2),
	}
}

// Sizer aplica KellySize con un bankroll y parámetros de riesgo fijos.
// Es inmutable y seguro para uso concurrente desde ambos engines.
type Sizer struct {
	Bankroll      float64
	KellyFraction float64
	CapFraction   float64
}

// NewSizer crea un Sizer. capFraction <= 0 usa DefaultKellyCap.
func NewSizer(bankroll, kellyFraction, capFraction float64) Sizer {
	if capFraction <= 0 {
		capFraction = DefaultKellyCap
	}
	return Sizer{Bankroll: bankroll, KellyFraction: kellyFraction, CapFraction: capFraction}
}

// Size devuelve la recomendación para un precio de mercado y una probabilidad estimada (%).
func (s Sizer) Size(marketPrice, estimatedProbPct float64) Sizing {
	return KellySize(marketPrice, estimatedProbPct, s.Bankroll, s.KellyFraction, s.CapFraction)
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
