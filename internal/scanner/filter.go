package scanner

import (
	"github.com/alejandrodnm/polytipster/internal/domain"
)

// FilterConfig contiene los parámetros configurables de filtrado.
type FilterConfig struct {
	// MinProbabilityPct y MaxProbabilityPct acotan la probabilidad del favorito.
	// Por encima del máximo el mercado está prácticamente resuelto y no paga.
	MinProbabilityPct float64
	MaxProbabilityPct float64
	// MinVolume descarta mercados con poco volumen histórico (USD).
	MinVolume float64
	// MinLiquidity descarta mercados con poca liquidez en el book (USD).
	MinLiquidity float64
}

// DefaultFilterConfig devuelve los filtros de producción.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinProbabilityPct: 65,
		MaxProbabilityPct: 92,
		MinVolume:         10_000,
		MinLiquidity:      5_000,
	}
}

// Filter aplica los filtros configurados sobre una lista de picks.
type Filter struct {
	cfg FilterConfig
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Apply devuelve los picks que pasan todos los filtros.
func (f *Filter) Apply(picks []domain.ScanPick) []domain.ScanPick {
	result := make([]domain.ScanPick, 0, len(picks))
	for _, p := range picks {
		if f.passes(p) {
			result = append(result, p)
		}
	}
	return result
}

// passes devuelve true si el pick supera todos los criterios.
func (f *Filter) passes(p domain.ScanPick) bool {
	if !p.Market.IsOpen() {
		return false
	}
	if p.Market.Volume < f.cfg.MinVolume {
		return false
	}
	if p.Market.Liquidity < f.cfg.MinLiquidity {
		return false
	}
	if p.ProbabilityPct < f.cfg.MinProbabilityPct || p.ProbabilityPct > f.cfg.MaxProbabilityPct {
		return false
	}
	return true
}
