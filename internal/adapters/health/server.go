package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/alejandrodnm/polytipster/internal/scheduler"
	"github.com/gin-gonic/gin"
)

// Heartbeat indica si el loop principal sigue vivo.
type Heartbeat interface {
	Alive(maxAge time.Duration) bool
	LastHeartbeat() time.Time
	Status() []scheduler.JobStatus
}

// StatsSource aporta los contadores y las últimas señales del journal.
type StatsSource interface {
	Stats(ctx context.Context) (domain.JournalStats, error)
	RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error)
}

const recentSignalsLimit = 10

// TrackerSource aporta el estado del tracker de smart money.
type TrackerSource interface {
	TrackedCount() int
	LastRefresh() time.Time
}

// Config del servidor de salud.
type Config struct {
	Port              int
	MaxHeartbeatAge   time.Duration // sin tick más reciente → 503
	ScannerEnabled    bool
	SmartMoneyEnabled bool
}

// Server expone GET / (liveness) y GET /status (JSON).
type Server struct {
	cfg       Config
	heartbeat Heartbeat
	stats     StatsSource   // nil permitido
	tracker   TrackerSource // nil si smart money está desactivado
	started   time.Time
	srv       *http.Server
}

// StatusResponse es el cuerpo de GET /status.
type StatusResponse struct {
	Status         string                `json:"status"`
	StartedAt      time.Time             `json:"started_at"`
	Uptime         string                `json:"uptime"`
	LastHeartbeat  time.Time             `json:"last_heartbeat"`
	Scanner        bool                  `json:"scanner_enabled"`
	SmartMoney     bool                  `json:"smart_money_enabled"`
	TrackedWallets int                   `json:"tracked_wallets"`
	LastRefresh    *time.Time            `json:"last_refresh,omitempty"`
	Signals        *SignalStats          `json:"signals,omitempty"`
	Jobs           []scheduler.JobStatus `json:"jobs"`
}

// SignalStats es la parte de journal de /status.
type SignalStats struct {
	Sent         int            `json:"sent"`
	Convergent   int            `json:"convergent"`
	Refreshes    int            `json:"refreshes"`
	LastSignalAt *time.Time     `json:"last_signal_at,omitempty"`
	Recent       []RecentSignal `json:"recent,omitempty"`
}

// RecentSignal es una alerta emitida, resumida para /status.
type RecentSignal struct {
	ID          string    `json:"id"`
	Wallet      string    `json:"wallet"`
	Username    string    `json:"username,omitempty"`
	Question    string    `json:"question"`
	Outcome     string    `json:"outcome"`
	USD         float64   `json:"usd"`
	Price       float64   `json:"price"`
	Convergence int       `json:"convergence"`
	TradeAt     time.Time `json:"trade_at"`
}

// New crea el servidor. stats y tracker pueden ser nil.
func New(cfg Config, heartbeat Heartbeat, stats StatsSource, tracker TrackerSource) *Server {
	if cfg.MaxHeartbeatAge <= 0 {
		cfg.MaxHeartbeatAge = 5 * time.Minute
	}
	s := &Server{
		cfg:       cfg,
		heartbeat: heartbeat,
		stats:     stats,
		tracker:   tracker,
		started:   time.Now(),
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router construye el handler gin.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleLiveness)
	r.GET("/status", s.handleStatus)
	return r
}

func (s *Server) handleLiveness(c *gin.Context) {
	if !s.heartbeat.Alive(s.cfg.MaxHeartbeatAge) {
		c.String(http.StatusServiceUnavailable, "stale")
		return
	}
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		Status:        "ok",
		StartedAt:     s.started.UTC(),
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		LastHeartbeat: s.heartbeat.LastHeartbeat().UTC(),
		Scanner:       s.cfg.ScannerEnabled,
		SmartMoney:    s.cfg.SmartMoneyEnabled,
		Jobs:          s.heartbeat.Status(),
	}
	code := http.StatusOK
	if !s.heartbeat.Alive(s.cfg.MaxHeartbeatAge) {
		resp.Status = "stale"
		code = http.StatusServiceUnavailable
	}

	if s.tracker != nil {
		resp.TrackedWallets = s.tracker.TrackedCount()
		if at := s.tracker.LastRefresh(); !at.IsZero() {
			at = at.UTC()
			resp.LastRefresh = &at
		}
	}

	if s.stats != nil {
		st, err := s.stats.Stats(c.Request.Context())
		if err != nil {
			slog.Warn("health: journal stats failed", "err", err)
		} else {
			resp.Signals = &SignalStats{
				Sent:       st.SignalsSent,
				Convergent: st.ConvergentSent,
				Refreshes:  st.Refreshes,
			}
			if !st.LastSignalAt.IsZero() {
				at := st.LastSignalAt.UTC()
				resp.Signals.LastSignalAt = &at
			}
			resp.Signals.Recent = s.recentSignals(c.Request.Context())
		}
	}

	c.JSON(code, resp)
}

func (s *Server) recentSignals(ctx context.Context) []RecentSignal {
	signals, err := s.stats.RecentSignals(ctx, recentSignalsLimit)
	if err != nil {
		slog.Warn("health: recent signals failed", "err", err)
		return nil
	}
	out := make([]RecentSignal, 0, len(signals))
	for _, sig := range signals {
		out = append(out, RecentSignal{
			ID:          sig.ID,
			Wallet:      sig.WalletAddress,
			Username:    sig.WalletUsername,
			Question:    sig.MarketQuestion,
			Outcome:     sig.Outcome,
			USD:         sig.EstimatedUSD,
			Price:       sig.Price,
			Convergence: sig.ConvergenceCount,
			TradeAt:     time.Unix(sig.Timestamp, 0).UTC(),
		})
	}
	return out
}

// ListenAndServe bloquea hasta que ctx se cancela, luego apaga el servidor.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("health: listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("health.ListenAndServe: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
