package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polytipster/config"
	"github.com/alejandrodnm/polytipster/internal/adapters/health"
	"github.com/alejandrodnm/polytipster/internal/adapters/notify"
	"github.com/alejandrodnm/polytipster/internal/adapters/polymarket"
	"github.com/alejandrodnm/polytipster/internal/adapters/storage"
	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/alejandrodnm/polytipster/internal/ports"
	"github.com/alejandrodnm/polytipster/internal/scanner"
	"github.com/alejandrodnm/polytipster/internal/scheduler"
	"github.com/alejandrodnm/polytipster/internal/smartmoney"
	"gopkg.in/natefinch/lumberjack.v2"
)

// minHeartbeatAge acota /: un tick con refresh puede tardar varios minutos.
const minHeartbeatAge = 30 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run every job once and exit")
	dryRun := flag.Bool("dry-run", false, "print alerts to stdout instead of Telegram")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *dryRun {
		cfg.DryRun = true
	}
	closeLog := setupLogger(cfg.Log)
	defer closeLog()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	slog.Info("polytipster starting",
		"config", *configPath,
		"scanner", cfg.ScannerEnabled(),
		"smart_money", cfg.SmartMoneyEnabled(),
		"bankroll", cfg.Bankroll.Amount,
		"dry_run", cfg.DryRun,
		"once", *once,
	)

	client := polymarket.NewClient(polymarket.Options{
		DataBase:  cfg.API.DataBase,
		GammaBase: cfg.API.GammaBase,
		Timeout:   time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		Retry: polymarket.RetryPolicy{
			MaxAttempts: cfg.API.MaxAttempts,
			BaseDelay:   time.Duration(cfg.API.RetryBaseSeconds) * time.Second,
			Multiplier:  2,
		},
	})

	sizer := domain.NewSizer(cfg.Bankroll.Amount, cfg.Bankroll.KellyFraction, cfg.Bankroll.KellyCap)
	format := notify.NewFormatter(cfg.SmartMoney.MinWallets, notify.ScanFilters{
		MinProbabilityPct: cfg.Scanner.MinProbabilityPct,
		MaxProbabilityPct: cfg.Scanner.MaxProbabilityPct,
		MinVolume:         cfg.Scanner.MinVolume,
		MinLiquidity:      cfg.Scanner.MinLiquidity,
	})

	var notifier ports.Notifier
	if cfg.DryRun {
		notifier = notify.NewConsole(format)
	} else {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:   cfg.Telegram.Token,
			ChatID:  cfg.Telegram.ChatID,
			Timeout: time.Duration(cfg.Telegram.TimeoutSeconds) * time.Second,
		}, format)
		if err != nil {
			slog.Error("failed to connect to telegram", "err", err)
			os.Exit(1)
		}
		notifier = tg
	}

	journal, err := storage.NewJournal(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open journal", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer journal.Close()

	var (
		jobs    []scheduler.Job
		tracker *smartmoney.Tracker
	)

	if cfg.ScannerEnabled() {
		s := scanner.New(scannerConfig(cfg), client, notifier, sizer)
		jobs = append(jobs, scheduler.Job{Name: "market-scanner", Interval: cfg.ScanInterval(), Run: s.RunCycle})
	}

	if cfg.SmartMoneyEnabled() {
		q := smartmoney.NewQualifier(qualifierConfig(cfg), client, client)
		m := smartmoney.NewMonitor(monitorConfig(cfg), client, client, sizer)
		agg := smartmoney.NewAggregator(cfg.ConvergenceWindow())
		tracker = smartmoney.NewTracker(q, m, agg, notifier, journal)

		jobs = append(jobs,
			scheduler.Job{Name: "leaderboard-refresh", Interval: cfg.RefreshInterval(), Run: tracker.RefreshWallets},
			scheduler.Job{Name: "trade-poll", Interval: cfg.PollInterval(), Run: func(ctx context.Context) error {
				_, err := tracker.PollTrades(ctx)
				return err
			}},
		)
	}

	sched, err := scheduler.New(jobs...)
	if err != nil {
		slog.Error("failed to build scheduler", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := notifier.NotifyStartup(ctx, domain.StartupInfo{
		ScannerEnabled:    cfg.ScannerEnabled(),
		SmartMoneyEnabled: cfg.SmartMoneyEnabled(),
		StartedAt:         time.Now(),
	}); err != nil {
		slog.Warn("startup notification failed", "err", err)
	}

	if *once {
		ran := sched.Tick(ctx)
		slog.Info("single pass complete", "jobs_run", ran)
		return
	}

	if cfg.Server.Port > 0 {
		var trackerSrc health.TrackerSource
		if tracker != nil {
			trackerSrc = tracker
		}
		srv := health.New(health.Config{
			Port:              cfg.Server.Port,
			MaxHeartbeatAge:   max(3*sched.TickInterval(), minHeartbeatAge),
			ScannerEnabled:    cfg.ScannerEnabled(),
			SmartMoneyEnabled: cfg.SmartMoneyEnabled(),
		}, sched, journal, trackerSrc)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				slog.Error("health server exited", "err", err)
			}
		}()
	}

	if err := sched.Run(ctx); err != nil {
		slog.Error("scheduler exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("polytipster stopped cleanly")
}

func scannerConfig(cfg *config.Config) scanner.Config {
	sc := scanner.DefaultConfig()
	sc.Interval = cfg.ScanInterval()
	sc.MarketLimit = cfg.Scanner.MarketLimit
	sc.TopN = cfg.Scanner.MarketsPerPost
	sc.EdgeEstimatePct = cfg.Scanner.EdgeEstimatePct
	sc.Filter = scanner.FilterConfig{
		MinProbabilityPct: cfg.Scanner.MinProbabilityPct,
		MaxProbabilityPct: cfg.Scanner.MaxProbabilityPct,
		MinVolume:         cfg.Scanner.MinVolume,
		MinLiquidity:      cfg.Scanner.MinLiquidity,
	}
	return sc
}

func qualifierConfig(cfg *config.Config) smartmoney.QualifierConfig {
	sm := cfg.SmartMoney
	qc := smartmoney.DefaultQualifierConfig()
	qc.Categories = sm.Categories
	qc.LeaderboardLimit = sm.LeaderboardLimit
	qc.MinPnLAllTime = sm.MinPnLAllTime
	qc.MinVolumeAllTime = sm.MinVolumeAllTime
	qc.MinProfitableWindows = sm.MinProfitableWindows
	qc.ClosedPositionsLimit = sm.ClosedPositionsLimit
	qc.MinClosedPositions = sm.MinClosedPositions
	qc.MinWinRate = sm.MinWinRate
	qc.MinROIPercent = sm.MinROIPercent
	qc.Workers = sm.Workers
	return qc
}

func monitorConfig(cfg *config.Config) smartmoney.MonitorConfig {
	sm := cfg.SmartMoney
	mc := smartmoney.DefaultMonitorConfig()
	mc.LookbackSeconds = sm.LookbackSeconds
	mc.ActivityLimit = sm.ActivityLimit
	mc.MinTradeUSD = sm.MinTradeUSD
	mc.MinMarketLiquidity = sm.MinMarketLiquidity
	mc.MaxProbability = sm.MaxProbability
	mc.MinProbability = sm.MinProbability
	mc.LongshotMinTradeUSD = sm.LongshotMinTradeUSD
	mc.EdgeEstimatePct = sm.EdgeEstimatePct
	mc.Workers = sm.Workers
	mc.WalletTimeout = time.Duration(sm.WalletTimeout) * time.Second
	return mc
}

// setupLogger configura slog. Con log.file se escribe también a un fichero rotado.
// Devuelve la función que cierra el fichero.
func setupLogger(cfg config.LogConfig) func() {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var (
		out     io.Writer = os.Stdout
		closeFn           = func() {}
	)
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closeFn = func() { rotator.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn
}
