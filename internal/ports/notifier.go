package ports

import (
	"context"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// Notifier entrega las alertas al canal de chat.
// Los errores se loguean en el llamador; nunca se reintentan de forma síncrona.
type Notifier interface {
	NotifySignal(ctx context.Context, signal domain.Signal) error
	NotifyWatchlist(ctx context.Context, wallets []domain.Wallet) error
	NotifyScan(ctx context.Context, picks []domain.ScanPick) error
	NotifyStartup(ctx context.Context, info domain.StartupInfo) error
}
