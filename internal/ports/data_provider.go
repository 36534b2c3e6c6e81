package ports

import (
	"context"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// LeaderboardProvider obtiene rankings de PnL de la Data API.
type LeaderboardProvider interface {
	// FetchLeaderboard devuelve las filas de una categoría y ventana ordenadas por PnL.
	FetchLeaderboard(ctx context.Context, category string, period domain.Period, limit int) ([]domain.LeaderboardEntry, error)
}

// PositionProvider obtiene las posiciones cerradas de una wallet.
type PositionProvider interface {
	// FetchClosedPositions devuelve hasta limit posiciones ordenadas por PnL realizado desc.
	FetchClosedPositions(ctx context.Context, address string, limit int) ([]domain.ClosedPosition, error)
}

// ActivityProvider obtiene los trades de compra recientes de una wallet.
type ActivityProvider interface {
	// FetchBuyActivity devuelve trades BUY con timestamp >= start, más recientes primero.
	FetchBuyActivity(ctx context.Context, address string, start int64, limit int) ([]domain.ActivityTrade, error)
}
