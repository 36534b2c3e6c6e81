package smartmoney

import (
	"time"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// DefaultConvergenceWindow es la ventana de la capa 5.
const DefaultConvergenceWindow = 60 * time.Minute

// Aggregator mantiene las señales recientes y anota cada señal nueva con cuántas
// wallets distintas compraron el mismo outcome del mismo mercado dentro de la ventana.
//
// No es seguro para uso concurrente: el Tracker lo protege con su mutex.
type Aggregator struct {
	window time.Duration
	recent []domain.Signal
}

// NewAggregator crea un Aggregator. window <= 0 usa DefaultConvergenceWindow.
func NewAggregator(window time.Duration) *Aggregator {
	if window <= 0 {
		window = DefaultConvergenceWindow
	}
	return &Aggregator{window: window}
}

// Annotate purga las señales expiradas, incorpora el lote y devuelve el lote con
// ConvergenceCount calculado. Las señales ya emitidas no se actualizan.
func (a *Aggregator) Annotate(now time.Time, batch []domain.Signal) []domain.Signal {
	windowSec := int64(a.window / time.Second)
	nowTS := now.Unix()

	kept := a.recent[:0]
	for _, s := range a.recent {
		if nowTS-s.Timestamp < windowSec {
			kept = append(kept, s)
		}
	}
	a.recent = append(kept, batch...)

	out := make([]domain.Signal, len(batch))
	for i, s := range batch {
		wallets := make(map[string]struct{})
		for _, r := range a.recent {
			if r.WalletAddress == s.WalletAddress {
				continue
			}
			if r.MarketKey() != s.MarketKey() || r.Outcome != s.Outcome {
				continue
			}
			if absInt64(r.Timestamp-s.Timestamp) >= windowSec {
				continue
			}
			wallets[r.WalletAddress] = struct{}{}
		}
		count := 1 + len(wallets)
		if count > s.ConvergenceCount {
			s.ConvergenceCount = count
		}
		out[i] = s
	}
	return out
}

// Len devuelve cuántas señales retiene la ventana.
func (a *Aggregator) Len() int {
	return len(a.recent)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
