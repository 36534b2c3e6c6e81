package smartmoney

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/alejandrodnm/polytipster/internal/ports"
)

// QualifierConfig contiene los umbrales de las capas 1–3.
type QualifierConfig struct {
	// Categories son las categorías del leaderboard que se consultan en cada refresh.
	Categories []string
	// LeaderboardLimit es el número de filas por categoría × ventana.
	LeaderboardLimit int

	// Capa 1: filtros duros sobre el histórico.
	MinPnLAllTime    float64
	MinVolumeAllTime float64

	// Capa 2: consistencia multi-ventana.
	MinProfitableWindows int

	// Capa 3: backtest sobre posiciones cerradas.
	ClosedPositionsLimit int
	MinClosedPositions   int
	MinWinRate           float64
	MinROIPercent        float64
	// MinStakeUSD descarta posiciones con stake reconstruido despreciable.
	MinStakeUSD float64

	Workers int
}

// DefaultQualifierConfig devuelve los umbrales de producción.
func DefaultQualifierConfig() QualifierConfig {
	return QualifierConfig{
		Categories:           []string{"OVERALL", "POLITICS", "SPORTS", "CRYPTO", "ECONOMICS"},
		LeaderboardLimit:     50,
		MinPnLAllTime:        5_000,
		MinVolumeAllTime:     50_000,
		MinProfitableWindows: 2,
		ClosedPositionsLimit: 50,
		MinClosedPositions:   8,
		MinWinRate:           0.54,
		MinROIPercent:        8,
		MinStakeUSD:          1,
		Workers:              defaultWorkers,
	}
}

// QualifyResult es la salida de un ciclo de calificación.
type QualifyResult struct {
	Wallets map[string]domain.Wallet

	// Conteos por etapa, para logging.
	Pages      int
	Candidates int
	Layer1     int
	Layer2     int
	Validated  int
}

// Qualifier ejecuta las capas 1–3 del smart money tracker.
type Qualifier struct {
	cfg         QualifierConfig
	leaderboard ports.LeaderboardProvider
	positions   ports.PositionProvider
}

// NewQualifier crea un Qualifier con sus dependencias inyectadas.
func NewQualifier(cfg QualifierConfig, leaderboard ports.LeaderboardProvider, positions ports.PositionProvider) *Qualifier {
	return &Qualifier{cfg: cfg, leaderboard: leaderboard, positions: positions}
}

// Qualify descarga los leaderboards, aplica los filtros y valida el track record.
// Un resultado con Wallets vacío significa "sin cambios": el llamador conserva
// el set anterior.
func (q *Qualifier) Qualify(ctx context.Context) (QualifyResult, error) {
	pages := q.fetchPages(ctx)
	if err := ctx.Err(); err != nil {
		return QualifyResult{}, fmt.Errorf("qualifier.Qualify: fetch leaderboards: %w", err)
	}

	res := QualifyResult{Pages: len(pages)}

	candidates := MergeLeaderboards(pages)
	res.Candidates = len(candidates)
	slog.Info("smartmoney: leaderboard merged", "pages", len(pages), "unique_wallets", len(candidates))

	layer1 := FilterThresholds(candidates, q.cfg.MinPnLAllTime, q.cfg.MinVolumeAllTime)
	res.Layer1 = len(layer1)
	slog.Info("smartmoney: layer 1 pass", "wallets", len(layer1))

	layer2 := FilterConsistency(layer1, q.cfg.MinProfitableWindows)
	res.Layer2 = len(layer2)
	slog.Info("smartmoney: layer 2 pass", "wallets", len(layer2))

	if len(layer2) == 0 {
		return res, nil
	}

	validated := q.validate(ctx, layer2)
	if err := ctx.Err(); err != nil {
		return QualifyResult{}, fmt.Errorf("qualifier.Qualify: validate: %w", err)
	}
	res.Wallets = validated
	res.Validated = len(validated)
	slog.Info("smartmoney: layer 3 pass", "wallets", len(validated))
	return res, nil
}

type pageRequest struct {
	category string
	period   domain.Period
}

// fetchPages descarga todas las combinaciones categoría × ventana.
// Una página que falla se loguea y se trata como vacía.
func (q *Qualifier) fetchPages(ctx context.Context) []domain.LeaderboardPage {
	reqs := make([]pageRequest, 0, len(q.cfg.Categories)*4)
	for _, cat := range q.cfg.Categories {
		for _, p := range domain.Periods() {
			reqs = append(reqs, pageRequest{category: cat, period: p})
		}
	}

	return runPool(ctx, reqs, q.cfg.Workers, func(ctx context.Context, r pageRequest) (domain.LeaderboardPage, bool) {
		entries, err := q.leaderboard.FetchLeaderboard(ctx, r.category, r.period, q.cfg.LeaderboardLimit)
		if err != nil {
			slog.Warn("leaderboard page failed, skipping",
				"category", r.category,
				"period", r.period,
				"err", err,
			)
			return domain.LeaderboardPage{}, false
		}
		return domain.LeaderboardPage{Category: r.category, Period: r.period, Entries: entries}, true
	})
}

// validate ejecuta la capa 3 sobre cada candidato en paralelo.
func (q *Qualifier) validate(ctx context.Context, candidates map[string]domain.Wallet) map[string]domain.Wallet {
	list := make([]domain.Wallet, 0, len(candidates))
	for _, w := range candidates {
		list = append(list, w)
	}

	admitted := runPool(ctx, list, q.cfg.Workers, func(ctx context.Context, w domain.Wallet) (domain.Wallet, bool) {
		positions, err := q.positions.FetchClosedPositions(ctx, w.Address, q.cfg.ClosedPositionsLimit)
		if err != nil {
			slog.Warn("closed positions failed, skipping wallet", "wallet", w.Address, "err", err)
			return domain.Wallet{}, false
		}
		admittedWallet, ok := AdmitWallet(w, positions, q.cfg)
		if ok {
			slog.Info("smartmoney: wallet validated",
				"user", admittedWallet.Username,
				"win_rate", fmt.Sprintf("%.0f%%", admittedWallet.WinRate*100),
				"roi", fmt.Sprintf("%.1f%%", admittedWallet.ROIPercent),
				"tier", admittedWallet.Tier,
			)
		}
		return admittedWallet, ok
	})

	result := make(map[string]domain.Wallet, len(admitted))
	for _, w := range admitted {
		result[w.Address] = w
	}
	return result
}

// --- etapas puras ---

// MergeLeaderboards combina las páginas por dirección tomando el máximo observado
// de cada métrica entre categorías. Una wallet listada en varias categorías no
// suma su PnL.
func MergeLeaderboards(pages []domain.LeaderboardPage) map[string]domain.Wallet {
	type acc struct {
		w    domain.Wallet
		seen map[domain.Period]bool
		vol  bool
	}

	accs := make(map[string]*acc)
	for _, page := range pages {
		for _, e := range page.Entries {
			if e.Address == "" {
				continue
			}
			a, ok := accs[e.Address]
			if !ok {
				a = &acc{
					w:    domain.Wallet{Address: e.Address, Username: e.Username},
					seen: make(map[domain.Period]bool, 4),
				}
				accs[e.Address] = a
			}

			target := periodField(&a.w, page.Period)
			if target == nil {
				continue
			}
			if !a.seen[page.Period] {
				*target = e.PnL
				a.seen[page.Period] = true
			} else {
				*target = math.Max(*target, e.PnL)
			}

			if page.Period == domain.PeriodAll {
				if !a.vol {
					a.w.VolAll = e.Volume
					a.vol = true
				} else {
					a.w.VolAll = math.Max(a.w.VolAll, e.Volume)
				}
			}
		}
	}

	out := make(map[string]domain.Wallet, len(accs))
	for addr, a := range accs {
		out[addr] = a.w
	}
	return out
}

func periodField(w *domain.Wallet, p domain.Period) *float64 {
	switch p {
	case domain.PeriodAll:
		return &w.PnLAll
	case domain.PeriodMonth:
		return &w.PnLMonth
	case domain.PeriodWeek:
		return &w.PnLWeek
	case domain.PeriodDay:
		return &w.PnLDay
	}
	return nil
}

// FilterThresholds es la capa 1: PnL y volumen históricos mínimos.
func FilterThresholds(candidates map[string]domain.Wallet, minPnL, minVolume float64) map[string]domain.Wallet {
	out := make(map[string]domain.Wallet)
	for addr, w := range candidates {
		if w.PnLAll >= minPnL && w.VolAll >= minVolume {
			out[addr] = w
		}
	}
	return out
}

// FilterConsistency es la capa 2: rentable en al menos minWindows de las cuatro ventanas.
// Rellena ProfitableWindows en las wallets que devuelve.
func FilterConsistency(candidates map[string]domain.Wallet, minWindows int) map[string]domain.Wallet {
	out := make(map[string]domain.Wallet)
	for addr, w := range candidates {
		w.ProfitableWindows = w.CountProfitableWindows()
		if w.ProfitableWindows >= minWindows {
			out[addr] = w
		}
	}
	return out
}

// TrackRecord es el resultado del backtest sobre posiciones cerradas.
type TrackRecord struct {
	Wins       int
	Total      int
	TotalPnL   float64
	TotalStake float64
	WinRate    float64
	ROIPercent float64
}

// EvaluateTrackRecord calcula win rate y ROI sobre las posiciones con stake
// reconstruido (totalBought × avgPrice) de al menos minStake en valor absoluto.
func EvaluateTrackRecord(positions []domain.ClosedPosition, minStake float64) TrackRecord {
	var rec TrackRecord
	for _, p := range positions {
		stake := math.Abs(p.InitialStake())
		if stake < minStake {
			continue
		}
		rec.Total++
		rec.TotalPnL += p.RealizedPnL
		rec.TotalStake += stake
		if p.RealizedPnL > 0 {
			rec.Wins++
		}
	}
	if rec.Total > 0 {
		rec.WinRate = float64(rec.Wins) / float64(rec.Total)
	}
	if rec.TotalStake > 0 {
		rec.ROIPercent = rec.TotalPnL / rec.TotalStake * 100
	}
	return rec
}

// AdmitWallet es la capa 3 para una wallet: exige muestra mínima, win rate y ROI
// mínimos, y asigna el tier. Devuelve la wallet con las métricas rellenas.
func AdmitWallet(w domain.Wallet, positions []domain.ClosedPosition, cfg QualifierConfig) (domain.Wallet, bool) {
	if len(positions) < cfg.MinClosedPositions {
		return w, false
	}

	rec := EvaluateTrackRecord(positions, cfg.MinStakeUSD)
	if rec.Total < cfg.MinClosedPositions || rec.Total == 0 {
		return w, false
	}

	w.WinRate = rec.WinRate
	w.ROIPercent = rec.ROIPercent
	w.ClosedPositions = rec.Total

	if rec.WinRate < cfg.MinWinRate || rec.ROIPercent < cfg.MinROIPercent {
		return w, false
	}
	w.Tier = domain.AssignTier(rec.WinRate, rec.ROIPercent)
	return w, true
}

// NextTrackedSet calcula el nuevo set de wallets seguidas. Si validated está vacío
// devuelve prev sin cambios (replaced=false): un refresh fallido nunca vacía el set.
// Los cursores se arrastran desde prev o, si la wallet había salido del set, desde cursors.
func NextTrackedSet(prev, validated map[string]domain.Wallet, cursors map[string]int64) (next map[string]domain.Wallet, replaced bool) {
	if len(validated) == 0 {
		return prev, false
	}

	next = make(map[string]domain.Wallet, len(validated))
	for addr, w := range validated {
		if old, ok := prev[addr]; ok {
			w.AdvanceCursor(old.LastSeenTradeTS)
		}
		w.AdvanceCursor(cursors[addr])
		next[addr] = w
	}
	return next, true
}
