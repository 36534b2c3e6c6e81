package scanner

import (
	"fmt"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

const defaultEdgeEstimatePct = 2.0

// Analyzer convierte un mercado en un ScanPick: elige el outcome favorito,
// calcula el ROI si se resuelve a favor y adjunta el sizing de Kelly.
type Analyzer struct {
	sizer   domain.Sizer
	edgePct float64
}

// NewAnalyzer crea un Analyzer. edgePct es la ventaja estimada en puntos
// porcentuales que se suma a la probabilidad implícita para el sizing.
func NewAnalyzer(sizer domain.Sizer, edgePct float64) *Analyzer {
	if edgePct < 0 {
		edgePct = defaultEdgeEstimatePct
	}
	return &Analyzer{sizer: sizer, edgePct: edgePct}
}

// Analyze devuelve el pick del mercado. Falla si el mercado no tiene precios
// o el favorito no tiene un precio en (0,1).
func (a *Analyzer) Analyze(market domain.Market) (domain.ScanPick, error) {
	outcome, price, ok := market.Favorite()
	if !ok {
		return domain.ScanPick{}, fmt.Errorf("analyzer: no prices for market %s", market.ConditionID)
	}
	if price <= 0 || price >= 1 {
		return domain.ScanPick{}, fmt.Errorf("analyzer: degenerate price %.4f for market %s", price, market.ConditionID)
	}

	probPct := price * 100
	return domain.ScanPick{
		Market:         market,
		Outcome:        outcome,
		Price:          price,
		ProbabilityPct: probPct,
		ROIPercent:     (1/price - 1) * 100,
		Sizing:         a.sizer.Size(price, probPct+a.edgePct),
	}, nil
}
