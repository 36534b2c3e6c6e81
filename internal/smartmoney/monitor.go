package smartmoney

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/alejandrodnm/polytipster/internal/ports"
)

// MonitorConfig contiene los filtros de la capa 4.
type MonitorConfig struct {
	LookbackSeconds int64
	ActivityLimit   int

	MinTradeUSD         float64
	MinMarketLiquidity  float64
	MaxProbability      float64
	MinProbability      float64 // por debajo es longshot
	LongshotMinTradeUSD float64

	// EdgeEstimatePct se suma a la probabilidad implícita para el sizing de la señal.
	EdgeEstimatePct float64

	// WalletTimeout acota el procesado de una wallet (actividad + mercados).
	WalletTimeout time.Duration

	Workers int
}

const (
	defaultWalletTimeout = 30 * time.Second
	// notifyReserveDiv: con deadline de job, 1/notifyReserveDiv del tiempo
	// restante queda fuera del pase para journal y notificaciones.
	notifyReserveDiv = 4
)

// DefaultMonitorConfig devuelve los filtros de producción.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		LookbackSeconds:     300,
		ActivityLimit:       30,
		MinTradeUSD:         200,
		MinMarketLiquidity:  8_000,
		MaxProbability:      0.92,
		MinProbability:      0.05,
		LongshotMinTradeUSD: 1_000,
		EdgeEstimatePct:     2,
		WalletTimeout:       defaultWalletTimeout,
		Workers:             defaultWorkers,
	}
}

// RejectReason identifica el filtro que descartó un trade.
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectPrice        RejectReason = "non_positive_price"
	RejectNotional     RejectReason = "below_min_notional"
	RejectClosed       RejectReason = "market_closed"
	RejectLiquidity    RejectReason = "low_liquidity"
	RejectNearResolved RejectReason = "near_resolved"
	RejectLongshot     RejectReason = "longshot_too_small"
)

// RejectBeforeMarket aplica los filtros que no necesitan metadata del mercado.
// Se evalúan antes de pedir el mercado a Gamma.
func RejectBeforeMarket(cfg MonitorConfig, t domain.ActivityTrade) RejectReason {
	if t.Price <= 0 {
		return RejectPrice
	}
	if t.Notional() < cfg.MinTradeUSD {
		return RejectNotional
	}
	return RejectNone
}

// EvaluateTrade aplica la capa 4 completa y devuelve la probabilidad implícita
// del outcome comprado. reason != RejectNone significa descartado.
func EvaluateTrade(cfg MonitorConfig, t domain.ActivityTrade, m domain.Market) (prob float64, reason RejectReason) {
	if r := RejectBeforeMarket(cfg, t); r != RejectNone {
		return 0, r
	}
	if !m.IsOpen() {
		return 0, RejectClosed
	}
	if m.Liquidity < cfg.MinMarketLiquidity {
		return 0, RejectLiquidity
	}

	prob = m.ProbabilityAt(t.OutcomeIndex, t.Price)
	if prob > cfg.MaxProbability {
		return prob, RejectNearResolved
	}
	if prob < cfg.MinProbability && t.Notional() < cfg.LongshotMinTradeUSD {
		return prob, RejectLongshot
	}
	return prob, RejectNone
}

// WalletPoll es el resultado de procesar una wallet en un pase.
type WalletPoll struct {
	Address string
	Signals []domain.Signal
	// Cursor es el timestamp máximo del lote traído (incluye trades descartados).
	// Solo es válido si Err == nil.
	Cursor  int64
	Fetched int
	Err     error
}

// Monitor ejecuta la capa 4 sobre el set de wallets seguidas.
type Monitor struct {
	cfg      MonitorConfig
	activity ports.ActivityProvider
	markets  ports.MarketProvider
	sizer    domain.Sizer
	now      func() time.Time
}

// NewMonitor crea un Monitor con sus dependencias inyectadas.
func NewMonitor(cfg MonitorConfig, activity ports.ActivityProvider, markets ports.MarketProvider, sizer domain.Sizer) *Monitor {
	return &Monitor{cfg: cfg, activity: activity, markets: markets, sizer: sizer, now: time.Now}
}

// marketCache guarda los mercados consultados durante un pase para no repetir
// la misma request cuando varias wallets compran en el mismo mercado.
type marketCache struct {
	mu      sync.Mutex
	markets map[string]domain.Market
}

func newMarketCache() *marketCache {
	return &marketCache{markets: make(map[string]domain.Market)}
}

func (c *marketCache) get(id string) (domain.Market, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.markets[id]
	return m, ok
}

func (c *marketCache) put(id string, m domain.Market) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markets[id] = m
}

// Poll procesa todas las wallets con un worker pool. El resultado de cada wallet
// es independiente: un error o timeout en una no afecta al resto. Cada wallet
// tiene su propio deadline, y si ctx trae deadline el pase termina antes que él.
// Las wallets que no llegaron a arrancar no aparecen en el resultado.
func (m *Monitor) Poll(ctx context.Context, wallets []domain.Wallet) []WalletPoll {
	pollCtx, cancel := passContext(ctx)
	defer cancel()

	cache := newMarketCache()
	return runPool(pollCtx, wallets, m.cfg.Workers, func(ctx context.Context, w domain.Wallet) (WalletPoll, bool) {
		return m.pollWallet(ctx, w, cache), true
	})
}

// passContext recorta el deadline de ctx para dejar margen a lo que viene
// después del pase.
func passContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	remaining := time.Until(deadline)
	return context.WithTimeout(ctx, remaining-remaining/notifyReserveDiv)
}

// PollWallet procesa una wallet sin cache compartida.
func (m *Monitor) PollWallet(ctx context.Context, w domain.Wallet) WalletPoll {
	return m.pollWallet(ctx, w, newMarketCache())
}

func (m *Monitor) pollWallet(ctx context.Context, w domain.Wallet, cache *marketCache) WalletPoll {
	res := WalletPoll{Address: w.Address, Cursor: w.LastSeenTradeTS}

	if m.cfg.WalletTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.WalletTimeout)
		defer cancel()
	}

	start := m.now().Unix() - m.cfg.LookbackSeconds
	trades, err := m.activity.FetchBuyActivity(ctx, w.Address, start, m.cfg.ActivityLimit)
	if err != nil {
		res.Err = fmt.Errorf("monitor: activity %s: %w", w.Address, err)
		return res
	}
	res.Fetched = len(trades)

	cursor := w.LastSeenTradeTS
	var signals []domain.Signal
	for _, t := range trades {
		if t.Timestamp > cursor {
			cursor = t.Timestamp
		}
		if t.Timestamp <= w.LastSeenTradeTS {
			continue
		}
		if reason := RejectBeforeMarket(m.cfg, t); reason != RejectNone {
			slog.Debug("trade rejected", "wallet", w.Username, "reason", reason, "usd", t.Notional())
			continue
		}

		market, err := m.resolveMarket(ctx, t, cache)
		if err != nil {
			// El lote entero se reintenta en el próximo pase: cursor sin tocar.
			res.Err = fmt.Errorf("monitor: market %s: %w", t.ConditionID, err)
			return res
		}

		prob, reason := EvaluateTrade(m.cfg, t, market)
		if reason != RejectNone {
			slog.Debug("trade rejected",
				"wallet", w.Username,
				"market", market.Question,
				"reason", reason,
				"prob", prob,
			)
			continue
		}
		signals = append(signals, m.buildSignal(w, t, market, prob))
	}

	res.Signals = signals
	res.Cursor = cursor
	return res
}

// resolveMarket obtiene el mercado del trade. Si el trade no trae conditionId se
// sintetiza un registro abierto con liquidez cero a partir del propio trade.
func (m *Monitor) resolveMarket(ctx context.Context, t domain.ActivityTrade, cache *marketCache) (domain.Market, error) {
	if t.ConditionID == "" {
		return domain.Market{
			Question: t.Title,
			Slug:     t.Slug,
			Active:   true,
		}, nil
	}
	if market, ok := cache.get(t.ConditionID); ok {
		return market, nil
	}
	market, err := m.markets.FetchMarket(ctx, t.ConditionID)
	if err != nil {
		return domain.Market{}, err
	}
	cache.put(t.ConditionID, market)
	return market, nil
}

func (m *Monitor) buildSignal(w domain.Wallet, t domain.ActivityTrade, market domain.Market, prob float64) domain.Signal {
	question := market.Question
	if question == "" || question == "Unknown Market" {
		if t.Title != "" {
			question = t.Title
		}
	}
	slug := market.Slug
	if slug == "" {
		slug = t.Slug
	}

	return domain.Signal{
		ID:                uuid.NewString(),
		WalletAddress:     w.Address,
		WalletUsername:    w.Username,
		WalletTier:        w.Tier,
		ConditionID:       t.ConditionID,
		MarketQuestion:    question,
		MarketSlug:        slug,
		Outcome:           t.Outcome,
		Side:              domain.SideBuy,
		Size:              t.Size,
		Price:             t.Price,
		EstimatedUSD:      t.Notional(),
		MarketProbability: prob,
		MarketLiquidity:   market.Liquidity,
		Timestamp:         t.Timestamp,
		ConvergenceCount:  1,
		Sizing:            m.sizer.Size(prob, prob*100+m.cfg.EdgeEstimatePct),
	}
}
