package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Bankroll   BankrollConfig   `yaml:"bankroll"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	SmartMoney SmartMoneyConfig `yaml:"smart_money"`
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`

	// DryRun imprime las alertas por consola en vez de enviarlas a Telegram.
	DryRun bool `yaml:"dry_run"`
}

// TelegramConfig contiene las credenciales del bot de Telegram.
type TelegramConfig struct {
	Token          string `yaml:"token"`
	ChatID         string `yaml:"chat_id"` // numérico o "@canal"
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// BankrollConfig controla el sizing Kelly.
type BankrollConfig struct {
	Amount        float64 `yaml:"amount"`
	KellyFraction float64 `yaml:"kelly_fraction"`
	KellyCap      float64 `yaml:"kelly_cap"` // tope por apuesta, fracción del bankroll
}

// ScannerConfig controla el Engine 1.
type ScannerConfig struct {
	Enabled           *bool   `yaml:"enabled"`
	IntervalHours     float64 `yaml:"interval_hours"`
	MarketLimit       int     `yaml:"market_limit"`
	MarketsPerPost    int     `yaml:"markets_per_post"`
	MinProbabilityPct float64 `yaml:"min_probability"`
	MaxProbabilityPct float64 `yaml:"max_probability"`
	MinVolume         float64 `yaml:"min_volume"`
	MinLiquidity      float64 `yaml:"min_liquidity"`
	EdgeEstimatePct   float64 `yaml:"edge_estimate_pct"`
}

// SmartMoneyConfig controla el Engine 2 (capas 1–5).
type SmartMoneyConfig struct {
	Enabled         *bool   `yaml:"enabled"`
	RefreshHours    float64 `yaml:"leaderboard_refresh_hours"`
	PollSeconds     int     `yaml:"trade_poll_seconds"`
	LookbackSeconds int64   `yaml:"activity_lookback_seconds"`
	ActivityLimit   int     `yaml:"activity_limit"`
	Workers         int     `yaml:"workers"`
	WalletTimeout   int     `yaml:"wallet_timeout_seconds"` // tope por wallet dentro de un poll

	// Capa 1
	Categories       []string `yaml:"categories"`
	LeaderboardLimit int      `yaml:"leaderboard_limit"`
	MinPnLAllTime    float64  `yaml:"min_pnl_all_time"`
	MinVolumeAllTime float64  `yaml:"min_volume_all_time"`

	// Capa 2
	MinProfitableWindows int `yaml:"min_profitable_windows"`

	// Capa 3
	ClosedPositionsLimit int     `yaml:"closed_positions_limit"`
	MinClosedPositions   int     `yaml:"min_closed_positions"`
	MinWinRate           float64 `yaml:"min_win_rate"`
	MinROIPercent        float64 `yaml:"min_roi_percent"`

	// Capa 4
	MinTradeUSD         float64 `yaml:"min_trade_size_usd"`
	MinMarketLiquidity  float64 `yaml:"min_market_liquidity"`
	MaxProbability      float64 `yaml:"max_probability"`
	MinProbability      float64 `yaml:"min_probability"`
	LongshotMinTradeUSD float64 `yaml:"longshot_min_trade_usd"`
	EdgeEstimatePct     float64 `yaml:"edge_estimate_pct"`

	// Capa 5
	ConvergenceMinutes int `yaml:"convergence_window_minutes"`
	MinWallets         int `yaml:"convergence_min_wallets"`
}

// APIConfig contiene los base URLs y la política de red.
type APIConfig struct {
	DataBase         string `yaml:"data_base"`
	GammaBase        string `yaml:"gamma_base"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	MaxAttempts      int    `yaml:"max_attempts"`
	RetryBaseSeconds int    `yaml:"retry_base_seconds"`
}

// StorageConfig controla dónde vive el journal de alertas.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug | info | warn | error
	Format     string `yaml:"format"` // text | json
	File       string `yaml:"file"`   // vacío = solo stdout
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// ServerConfig controla el endpoint de salud.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existen.
// Sin YAML se usan los defaults; las variables de entorno siempre ganan.
//
// Los umbrales se precargan antes de leer YAML y entorno, así que una clave
// ausente conserva su default y un 0 explícito se respeta.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// solo env
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Validate comprueba la coherencia de la configuración ya con defaults.
func (c *Config) Validate() error {
	var errs []error
	if !c.DryRun {
		if c.Telegram.Token == "" {
			errs = append(errs, errors.New("telegram token is required (TELEGRAM_BOT_TOKEN)"))
		}
		if c.Telegram.ChatID == "" {
			errs = append(errs, errors.New("telegram chat id is required (TELEGRAM_CHAT_ID)"))
		}
	}
	if !c.ScannerEnabled() && !c.SmartMoneyEnabled() {
		errs = append(errs, errors.New("both engines are disabled"))
	}
	if c.Bankroll.Amount < 0 {
		errs = append(errs, fmt.Errorf("bankroll must be >= 0, got %v", c.Bankroll.Amount))
	}
	if c.Bankroll.KellyCap > 1 {
		errs = append(errs, fmt.Errorf("kelly_cap must be <= 1, got %v", c.Bankroll.KellyCap))
	}
	if c.Scanner.MinProbabilityPct > c.Scanner.MaxProbabilityPct {
		errs = append(errs, fmt.Errorf("scanner min_probability %v > max_probability %v",
			c.Scanner.MinProbabilityPct, c.Scanner.MaxProbabilityPct))
	}
	sm := c.SmartMoney
	if sm.MinProbability > sm.MaxProbability {
		errs = append(errs, fmt.Errorf("smart_money min_probability %v > max_probability %v",
			sm.MinProbability, sm.MaxProbability))
	}
	if sm.MinProfitableWindows > 4 {
		errs = append(errs, fmt.Errorf("min_profitable_windows must be <= 4, got %d", sm.MinProfitableWindows))
	}
	if sm.MinWinRate > 1 {
		errs = append(errs, fmt.Errorf("min_win_rate is a fraction (0-1), got %v", sm.MinWinRate))
	}
	for name, v := range map[string]float64{
		"scanner.min_volume":                 c.Scanner.MinVolume,
		"scanner.min_liquidity":              c.Scanner.MinLiquidity,
		"smart_money.min_pnl_all_time":       sm.MinPnLAllTime,
		"smart_money.min_volume_all_time":    sm.MinVolumeAllTime,
		"smart_money.min_trade_size_usd":     sm.MinTradeUSD,
		"smart_money.min_market_liquidity":   sm.MinMarketLiquidity,
		"smart_money.longshot_min_trade_usd": sm.LongshotMinTradeUSD,
		"smart_money.min_probability":        sm.MinProbability,
		"smart_money.min_win_rate":           sm.MinWinRate,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// ScannerEnabled indica si el Engine 1 está activo (por defecto sí).
func (c *Config) ScannerEnabled() bool {
	return c.Scanner.Enabled == nil || *c.Scanner.Enabled
}

// SmartMoneyEnabled indica si el Engine 2 está activo (por defecto sí).
func (c *Config) SmartMoneyEnabled() bool {
	return c.SmartMoney.Enabled == nil || *c.SmartMoney.Enabled
}

// ScanInterval devuelve el intervalo del scanner como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalHours * float64(time.Hour))
}

// RefreshInterval devuelve el intervalo de refresh del leaderboard.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.SmartMoney.RefreshHours * float64(time.Hour))
}

// PollInterval devuelve el intervalo de polling de trades.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.SmartMoney.PollSeconds) * time.Second
}

// ConvergenceWindow devuelve la ventana de la capa 5.
func (c *Config) ConvergenceWindow() time.Duration {
	return time.Duration(c.SmartMoney.ConvergenceMinutes) * time.Minute
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst **bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = &b
		}
	}

	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.Token)
	str("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	float("USER_BANKROLL", &cfg.Bankroll.Amount)
	float("KELLY_FRACTION", &cfg.Bankroll.KellyFraction)
	integer("PORT", &cfg.Server.Port)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)
	str("STORAGE_DSN", &cfg.Storage.DSN)
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DRY_RUN: %w", err))
		} else {
			cfg.DryRun = b
		}
	}

	sc := &cfg.Scanner
	boolean("SCANNER_ENABLED", &sc.Enabled)
	float("SCANNER_INTERVAL_HOURS", &sc.IntervalHours)
	integer("SCANNER_MARKETS_PER_POST", &sc.MarketsPerPost)
	float("SCANNER_MIN_PROBABILITY", &sc.MinProbabilityPct)
	float("SCANNER_MAX_PROBABILITY", &sc.MaxProbabilityPct)
	float("SCANNER_MIN_VOLUME", &sc.MinVolume)
	float("SCANNER_MIN_LIQUIDITY", &sc.MinLiquidity)

	sm := &cfg.SmartMoney
	boolean("SM_ENABLED", &sm.Enabled)
	float("SM_REFRESH_HOURS", &sm.RefreshHours)
	integer("SM_POLL_SECONDS", &sm.PollSeconds)
	integer("SM_WALLET_TIMEOUT_SECONDS", &sm.WalletTimeout)
	float("SM_MIN_PNL", &sm.MinPnLAllTime)
	float("SM_MIN_VOLUME", &sm.MinVolumeAllTime)
	integer("SM_MIN_WINDOWS", &sm.MinProfitableWindows)
	integer("SM_MIN_CLOSED_POSITIONS", &sm.MinClosedPositions)
	float("SM_MIN_WIN_RATE", &sm.MinWinRate)
	float("SM_MIN_ROI", &sm.MinROIPercent)
	float("SM_MIN_TRADE_USD", &sm.MinTradeUSD)
	float("SM_MIN_LIQUIDITY", &sm.MinMarketLiquidity)
	float("SM_MAX_PROBABILITY", &sm.MaxProbability)
	float("SM_MIN_PROBABILITY", &sm.MinProbability)
	float("SM_LONGSHOT_MIN_USD", &sm.LongshotMinTradeUSD)
	integer("SM_CONVERGENCE_MINUTES", &sm.ConvergenceMinutes)
	integer("SM_MIN_WALLETS", &sm.MinWallets)
	if v := os.Getenv("SM_CATEGORIES"); v != "" {
		sm.Categories = splitList(v)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Load: env: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Defaults devuelve la configuración con los umbrales del bot en producción.
// Cero es un valor válido para todos ellos (desactiva el filtro).
func Defaults() Config {
	return Config{
		Bankroll: BankrollConfig{
			Amount:        1000,
			KellyFraction: 0.25,
		},
		Scanner: ScannerConfig{
			MinProbabilityPct: 65,
			MaxProbabilityPct: 92,
			MinVolume:         10_000,
			MinLiquidity:      5_000,
			EdgeEstimatePct:   2,
		},
		SmartMoney: SmartMoneyConfig{
			MinPnLAllTime:        5_000,
			MinVolumeAllTime:     50_000,
			MinProfitableWindows: 2,
			MinClosedPositions:   8,
			MinWinRate:           0.54,
			MinROIPercent:        8,
			MinTradeUSD:          200,
			MinMarketLiquidity:   8_000,
			MaxProbability:       0.92,
			MinProbability:       0.05,
			LongshotMinTradeUSD:  1_000,
			EdgeEstimatePct:      2,
		},
		Server: ServerConfig{Port: 10000}, // 0 desactiva el endpoint
	}
}

// setDefaults rellena los valores estructurales (intervalos, límites, timeouts)
// donde cero o negativo no tiene sentido.
func setDefaults(cfg *Config) {
	if cfg.Telegram.TimeoutSeconds <= 0 {
		cfg.Telegram.TimeoutSeconds = 15
	}
	if cfg.Bankroll.KellyCap <= 0 {
		cfg.Bankroll.KellyCap = 0.10
	}

	sc := &cfg.Scanner
	if sc.IntervalHours <= 0 {
		sc.IntervalHours = 6
	}
	if sc.MarketLimit <= 0 {
		sc.MarketLimit = 100
	}
	if sc.MarketsPerPost <= 0 {
		sc.MarketsPerPost = 5
	}

	sm := &cfg.SmartMoney
	if sm.RefreshHours <= 0 {
		sm.RefreshHours = 6
	}
	if sm.PollSeconds <= 0 {
		sm.PollSeconds = 60
	}
	if sm.LookbackSeconds <= 0 {
		sm.LookbackSeconds = 300
	}
	if sm.ActivityLimit <= 0 {
		sm.ActivityLimit = 30
	}
	if sm.Workers <= 0 {
		sm.Workers = 4
	}
	if sm.WalletTimeout <= 0 {
		sm.WalletTimeout = 30
	}
	if len(sm.Categories) == 0 {
		sm.Categories = []string{"OVERALL", "POLITICS", "SPORTS", "CRYPTO", "ECONOMICS"}
	}
	if sm.LeaderboardLimit <= 0 {
		sm.LeaderboardLimit = 50
	}
	if sm.ClosedPositionsLimit <= 0 {
		sm.ClosedPositionsLimit = 50
	}
	if sm.ConvergenceMinutes <= 0 {
		sm.ConvergenceMinutes = 60
	}
	if sm.MinWallets <= 0 {
		sm.MinWallets = 2
	}

	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 20
	}
	if cfg.API.MaxAttempts <= 0 {
		cfg.API.MaxAttempts = 3
	}
	if cfg.API.RetryBaseSeconds <= 0 {
		cfg.API.RetryBaseSeconds = 5
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = ":memory:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
}
