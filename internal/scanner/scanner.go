package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/alejandrodnm/polytipster/internal/ports"
)

// Config contiene la configuración del scanner.
type Config struct {
	Interval    time.Duration
	MarketLimit int
	TopN        int
	// EdgeEstimatePct se suma a la probabilidad implícita para el sizing.
	EdgeEstimatePct float64
	Filter          FilterConfig
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		Interval:        6 * time.Hour,
		MarketLimit:     100,
		TopN:            5,
		EdgeEstimatePct: defaultEdgeEstimatePct,
		Filter:          DefaultFilterConfig(),
	}
}

// Scanner es el Engine 1: busca mercados de alta probabilidad y publica un digest.
type Scanner struct {
	cfg      Config
	markets  ports.MarketLister
	notifier ports.Notifier
	analyzer *Analyzer
	filter   *Filter
}

// New crea un Scanner con todas las dependencias inyectadas.
func New(cfg Config, markets ports.MarketLister, notifier ports.Notifier, sizer domain.Sizer) *Scanner {
	if cfg.MarketLimit <= 0 {
		cfg.MarketLimit = 100
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	return &Scanner{
		cfg:      cfg,
		markets:  markets,
		notifier: notifier,
		analyzer: NewAnalyzer(sizer, cfg.EdgeEstimatePct),
		filter:   NewFilter(cfg.Filter),
	}
}

// RunOnce ejecuta exactamente un ciclo de escaneo y devuelve los picks ordenados.
func (s *Scanner) RunOnce(ctx context.Context) ([]domain.ScanPick, error) {
	return s.cycle(ctx)
}

// RunCycle ejecuta un ciclo completo y publica el digest. Si nada pasa los
// filtros no se envía mensaje.
func (s *Scanner) RunCycle(ctx context.Context) error {
	start := time.Now()

	picks, err := s.cycle(ctx)
	if err != nil {
		return err
	}

	if len(picks) > 0 {
		if err := s.notifier.NotifyScan(ctx, picks); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("scan cycle complete",
		"picks", len(picks),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// cycle hace fetch → analyze → filter → rank.
func (s *Scanner) cycle(ctx context.Context) ([]domain.ScanPick, error) {
	markets, err := s.markets.FetchActiveMarkets(ctx, s.cfg.MarketLimit)
	if err != nil {
		return nil, fmt.Errorf("scanner.cycle: fetch markets: %w", err)
	}

	picks := make([]domain.ScanPick, 0, len(markets))
	for _, market := range markets {
		pick, err := s.analyzer.Analyze(market)
		if err != nil {
			slog.Debug("analyze failed", "condition_id", market.ConditionID, "err", err)
			continue
		}
		picks = append(picks, pick)
	}

	filtered := s.filter.Apply(picks)
	ranked := rankByProbability(filtered)
	if len(ranked) > s.cfg.TopN {
		ranked = ranked[:s.cfg.TopN]
	}
	return ranked, nil
}

// rankByProbability ordena por probabilidad descendente y desempata por volumen.
func rankByProbability(picks []domain.ScanPick) []domain.ScanPick {
	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].ProbabilityPct != picks[j].ProbabilityPct {
			return picks[i].ProbabilityPct > picks[j].ProbabilityPct
		}
		return picks[i].Market.Volume > picks[j].Market.Volume
	})
	return picks
}
