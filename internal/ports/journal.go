package ports

import (
	"context"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// Journal registra las alertas emitidas durante la vida del proceso.
type Journal interface {
	RecordSignals(ctx context.Context, signals []domain.Signal) error
	RecordRefresh(ctx context.Context, wallets []domain.Wallet) error
	RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error)
	Stats(ctx context.Context) (domain.JournalStats, error)
	Close() error
}
