package smartmoney

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/alejandrodnm/polytipster/internal/ports"
)

// Tracker es el estado de larga vida del Engine 2: el set de wallets seguidas,
// la cache de cursores y la ventana de convergencia.
//
// RefreshWallets y PollTrades se serializan entre sí (cycleMu); las lecturas
// desde el health server solo toman mu en modo lectura.
type Tracker struct {
	qualifier *Qualifier
	monitor   *Monitor
	notifier  ports.Notifier
	journal   ports.Journal // puede ser nil

	cycleMu sync.Mutex

	mu          sync.RWMutex
	wallets     map[string]domain.Wallet
	cursors     map[string]int64 // sobrevive a que la wallet salga del set
	aggregator  *Aggregator
	lastRefresh time.Time

	now func() time.Time
}

// NewTracker crea un Tracker vacío. journal puede ser nil.
func NewTracker(q *Qualifier, m *Monitor, agg *Aggregator, notifier ports.Notifier, journal ports.Journal) *Tracker {
	return &Tracker{
		qualifier:  q,
		monitor:    m,
		notifier:   notifier,
		journal:    journal,
		wallets:    make(map[string]domain.Wallet),
		cursors:    make(map[string]int64),
		aggregator: agg,
		now:        time.Now,
	}
}

// RefreshWallets re-ejecuta las capas 1–3 y reemplaza el set de forma atómica.
// Si no sobrevive ninguna wallet se conserva el set anterior.
func (t *Tracker) RefreshWallets(ctx context.Context) error {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()

	start := time.Now()
	res, err := t.qualifier.Qualify(ctx)
	if err != nil {
		return fmt.Errorf("tracker.RefreshWallets: %w", err)
	}

	t.mu.Lock()
	next, replaced := NextTrackedSet(t.wallets, res.Wallets, t.cursors)
	if replaced {
		t.wallets = next
		t.lastRefresh = t.now()
	}
	kept := len(t.wallets)
	t.mu.Unlock()

	if !replaced {
		slog.Warn("smartmoney: no wallets qualified, keeping previous set",
			"candidates", res.Candidates,
			"layer1", res.Layer1,
			"layer2", res.Layer2,
			"tracked", kept,
		)
		return nil
	}

	wallets := t.Wallets()
	slog.Info("smartmoney: refresh complete",
		"tracked", len(wallets),
		"pages", res.Pages,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if t.journal != nil {
		if err := t.journal.RecordRefresh(ctx, wallets); err != nil {
			slog.Warn("journal refresh failed", "err", err)
		}
	}
	if err := t.notifier.NotifyWatchlist(ctx, wallets); err != nil {
		slog.Warn("watchlist notification failed", "err", err)
	}
	return nil
}

// PollTrades ejecuta las capas 4 y 5 sobre el set actual y notifica cada señal.
// Devuelve las señales emitidas en este pase.
func (t *Tracker) PollTrades(ctx context.Context) ([]domain.Signal, error) {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()

	snapshot := t.snapshot()
	if len(snapshot) == 0 {
		slog.Debug("smartmoney: no tracked wallets, skipping poll")
		return nil, nil
	}

	// Cada WalletPoll sin error es un lote completo: se aplica aunque otras
	// wallets hayan expirado.
	results := t.monitor.Poll(ctx, snapshot)

	t.mu.Lock()
	var batch []domain.Signal
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.Warn("wallet poll failed, cursor unchanged", "wallet", r.Address, "err", r.Err)
			continue
		}
		if w, ok := t.wallets[r.Address]; ok {
			w.AdvanceCursor(r.Cursor)
			t.wallets[r.Address] = w
		}
		if r.Cursor > t.cursors[r.Address] {
			t.cursors[r.Address] = r.Cursor
		}
		batch = append(batch, r.Signals...)
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp < batch[j].Timestamp
	})
	signals := t.aggregator.Annotate(t.now(), batch)
	t.mu.Unlock()

	slog.Info("smartmoney: poll complete",
		"wallets", len(snapshot),
		"polled", len(results),
		"failed", failed,
		"signals", len(signals),
	)
	if len(signals) == 0 {
		return nil, nil
	}

	if t.journal != nil {
		if err := t.journal.RecordSignals(ctx, signals); err != nil {
			slog.Warn("journal signals failed", "err", err)
		}
	}
	for _, s := range signals {
		if err := t.notifier.NotifySignal(ctx, s); err != nil {
			slog.Warn("signal notification failed",
				"wallet", s.WalletUsername,
				"market", s.MarketQuestion,
				"err", err,
			)
		}
	}
	return signals, nil
}

func (t *Tracker) snapshot() []domain.Wallet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	list := make([]domain.Wallet, 0, len(t.wallets))
	for _, w := range t.wallets {
		list = append(list, w)
	}
	return list
}

// Wallets devuelve una copia del set seguido ordenada por PnL histórico desc.
func (t *Tracker) Wallets() []domain.Wallet {
	list := t.snapshot()
	sort.Slice(list, func(i, j int) bool {
		if list[i].PnLAll != list[j].PnLAll {
			return list[i].PnLAll > list[j].PnLAll
		}
		return list[i].Address < list[j].Address
	})
	return list
}

// TrackedCount devuelve cuántas wallets se siguen.
func (t *Tracker) TrackedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.wallets)
}

// LastRefresh devuelve cuándo se reemplazó el set por última vez (cero si nunca).
func (t *Tracker) LastRefresh() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastRefresh
}
