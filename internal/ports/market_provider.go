package ports

import (
	"context"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// MarketProvider obtiene metadata de mercados de Gamma.
type MarketProvider interface {
	// FetchMarket devuelve el mercado por conditionID. Si no existe devuelve
	// domain.ClosedMarket sin error; solo falla ante errores de transporte.
	FetchMarket(ctx context.Context, conditionID string) (domain.Market, error)
}

// MarketLister lista los mercados activos para el scanner.
type MarketLister interface {
	FetchActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error)
}
