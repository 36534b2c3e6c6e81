package smartmoney_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// --- mocks ---

type mockLeaderboard struct {
	mu    sync.Mutex
	pages map[string][]domain.LeaderboardEntry // clave: categoría|ventana
	fail  map[string]bool
	calls int
}

func pageKey(category string, period domain.Period) string {
	return fmt.Sprintf("%s|%s", category, period)
}

func (m *mockLeaderboard) FetchLeaderboard(_ context.Context, category string, period domain.Period, _ int) ([]domain.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	key := pageKey(category, period)
	if m.fail[key] {
		return nil, errors.New("boom")
	}
	return m.pages[key], nil
}

type mockPositions struct {
	byWallet map[string][]domain.ClosedPosition
	fail     map[string]bool
}

func (m *mockPositions) FetchClosedPositions(_ context.Context, address string, _ int) ([]domain.ClosedPosition, error) {
	if m.fail[address] {
		return nil, errors.New("positions down")
	}
	return m.byWallet[address], nil
}

type mockActivity struct {
	mu       sync.Mutex
	byWallet map[string][]domain.ActivityTrade
	fail     map[string]bool
	// hang bloquea la llamada hasta que expire el contexto.
	hang map[string]bool
}

func (m *mockActivity) FetchBuyActivity(ctx context.Context, address string, _ int64, _ int) ([]domain.ActivityTrade, error) {
	m.mu.Lock()
	hang := m.hang[address]
	m.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[address] {
		return nil, errors.New("activity down")
	}
	return m.byWallet[address], nil
}

type mockMarkets struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	fail    map[string]bool
	calls   int
}

func (m *mockMarkets) FetchMarket(_ context.Context, id string) (domain.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail[id] {
		return domain.Market{}, errors.New("gamma down")
	}
	market, ok := m.markets[id]
	if !ok {
		return domain.ClosedMarket(id), nil
	}
	return market, nil
}

type mockNotifier struct {
	mu        sync.Mutex
	signals   []domain.Signal
	watchlist [][]domain.Wallet
	err       error
}

func (m *mockNotifier) NotifySignal(_ context.Context, s domain.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, s)
	return m.err
}

func (m *mockNotifier) NotifyWatchlist(_ context.Context, wallets []domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchlist = append(m.watchlist, wallets)
	return m.err
}

func (m *mockNotifier) NotifyScan(_ context.Context, _ []domain.ScanPick) error { return m.err }

func (m *mockNotifier) NotifyStartup(_ context.Context, _ domain.StartupInfo) error { return m.err }

// --- helpers ---

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
	walletC = "0x3333333333333333333333333333333333333333"
)

func openMarket(id string, liquidity float64, prices ...float64) domain.Market {
	return domain.Market{
		ConditionID:   id,
		Question:      "Will it happen?",
		Slug:          "will-it-happen",
		Outcomes:      []string{"Yes", "No"},
		OutcomePrices: prices,
		Liquidity:     liquidity,
		Active:        true,
	}
}

func buy(ts int64, size, price float64, conditionID string, outcomeIdx int) domain.ActivityTrade {
	outcome := "Yes"
	if outcomeIdx == 1 {
		outcome = "No"
	}
	return domain.ActivityTrade{
		Timestamp:    ts,
		Size:         size,
		Price:        price,
		ConditionID:  conditionID,
		Outcome:      outcome,
		OutcomeIndex: outcomeIdx,
		Title:        "Will it happen?",
		Slug:         "will-it-happen",
	}
}

// positionsWith devuelve wins+losses posiciones con stake 100 cada una.
func positionsWith(wins, losses int, winPnL, lossPnL float64) []domain.ClosedPosition {
	out := make([]domain.ClosedPosition, 0, wins+losses)
	for i := 0; i < wins; i++ {
		out = append(out, domain.ClosedPosition{RealizedPnL: winPnL, TotalBought: 200, AvgPrice: 0.5})
	}
	for i := 0; i < losses; i++ {
		out = append(out, domain.ClosedPosition{RealizedPnL: lossPnL, TotalBought: 200, AvgPrice: 0.5})
	}
	return out
}
