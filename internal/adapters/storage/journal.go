package storage

// journal.go: registro de las alertas emitidas.
//
// Por defecto vive en ":memory:": el bot no persiste estado entre reinicios y
// el journal solo alimenta /status y la depuración. Con una ruta de fichero
// sirve como histórico consultable con sqlite3.
//
//   - `signals`: una fila por señal emitida (id uuid, idempotente).
//   - `refreshes`: una fila por refresh del leaderboard que reemplazó el set.
//   - `tracked_wallets`: snapshot del set actual, se reescribe en cada refresh.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polytipster/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id              TEXT PRIMARY KEY,
    emitted_at      INTEGER NOT NULL,
    wallet_address  TEXT    NOT NULL,
    wallet_username TEXT,
    wallet_tier     TEXT,
    condition_id    TEXT,
    question        TEXT,
    slug            TEXT,
    outcome         TEXT,
    side            TEXT,
    size            REAL    NOT NULL DEFAULT 0,
    price           REAL    NOT NULL DEFAULT 0,
    usd             REAL    NOT NULL DEFAULT 0,
    probability     REAL    NOT NULL DEFAULT 0,
    liquidity       REAL    NOT NULL DEFAULT 0,
    trade_ts        INTEGER NOT NULL,
    convergence     INTEGER NOT NULL DEFAULT 1,
    stake_usd       REAL    NOT NULL DEFAULT 0,
    stake_fraction  REAL    NOT NULL DEFAULT 0,
    edge_pct        REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS refreshes (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    refreshed_at INTEGER NOT NULL,
    tracked      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tracked_wallets (
    address     TEXT PRIMARY KEY,
    username    TEXT,
    tier        TEXT,
    win_rate    REAL NOT NULL DEFAULT 0,
    roi_pct     REAL NOT NULL DEFAULT 0,
    pnl_all     REAL NOT NULL DEFAULT 0,
    vol_all     REAL NOT NULL DEFAULT 0,
    sample      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_signals_emitted ON signals(emitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_signals_market  ON signals(condition_id, outcome);
`

// Journal implementa ports.Journal sobre SQLite (pure Go, sin CGo).
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// NewJournal abre (o crea) el journal en la ruta dada. ":memory:" o "" lo
// mantiene solo en memoria.
func NewJournal(path string) (*Journal, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewJournal: open %q: %w", path, err)
	}
	// SQLite es single-writer; con ":memory:" además cada conexión es una base distinta
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewJournal: apply schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// RecordSignals inserta las señales. Una señal ya registrada (mismo id) se ignora.
func (j *Journal) RecordSignals(ctx context.Context, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RecordSignals: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO signals (
			id, emitted_at, wallet_address, wallet_username, wallet_tier,
			condition_id, question, slug, outcome, side,
			size, price, usd, probability, liquidity,
			trade_ts, convergence, stake_usd, stake_fraction, edge_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.RecordSignals: prepare: %w", err)
	}
	defer stmt.Close()

	emitted := j.now().Unix()
	for _, s := range signals {
		if _, err := stmt.ExecContext(ctx,
			s.ID, emitted, s.WalletAddress, s.WalletUsername, string(s.WalletTier),
			s.ConditionID, s.MarketQuestion, s.MarketSlug, s.Outcome, s.Side,
			s.Size, s.Price, s.EstimatedUSD, s.MarketProbability, s.MarketLiquidity,
			s.Timestamp, s.ConvergenceCount, s.Sizing.StakeUSD, s.Sizing.StakeFraction, s.Sizing.EdgePercent,
		); err != nil {
			return fmt.Errorf("storage.RecordSignals: insert %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// RecordRefresh registra un refresh y reemplaza el snapshot de wallets seguidas.
func (j *Journal) RecordRefresh(ctx context.Context, wallets []domain.Wallet) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RecordRefresh: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refreshes (refreshed_at, tracked) VALUES (?, ?)`,
		j.now().Unix(), len(wallets),
	); err != nil {
		return fmt.Errorf("storage.RecordRefresh: insert refresh: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_wallets`); err != nil {
		return fmt.Errorf("storage.RecordRefresh: clear wallets: %w", err)
	}
	for _, w := range wallets {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tracked_wallets (address, username, tier, win_rate, roi_pct, pnl_all, vol_all, sample)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			w.Address, w.Username, string(w.Tier), w.WinRate, w.ROIPercent, w.PnLAll, w.VolAll, w.ClosedPositions,
		); err != nil {
			return fmt.Errorf("storage.RecordRefresh: insert wallet %s: %w", w.Address, err)
		}
	}
	return tx.Commit()
}

// RecentSignals devuelve las últimas señales emitidas, más recientes primero.
func (j *Journal) RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, wallet_address, wallet_username, wallet_tier,
		       condition_id, question, slug, outcome, side,
		       size, price, usd, probability, liquidity,
		       trade_ts, convergence, stake_usd, stake_fraction, edge_pct
		FROM signals
		ORDER BY emitted_at DESC, trade_ts DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentSignals: query: %w", err)
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		var (
			s    domain.Signal
			tier string
		)
		if err := rows.Scan(
			&s.ID, &s.WalletAddress, &s.WalletUsername, &tier,
			&s.ConditionID, &s.MarketQuestion, &s.MarketSlug, &s.Outcome, &s.Side,
			&s.Size, &s.Price, &s.EstimatedUSD, &s.MarketProbability, &s.MarketLiquidity,
			&s.Timestamp, &s.ConvergenceCount, &s.Sizing.StakeUSD, &s.Sizing.StakeFraction, &s.Sizing.EdgePercent,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentSignals: scan: %w", err)
		}
		s.WalletTier = domain.Tier(tier)
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// Stats resume lo registrado desde que se abrió el journal.
func (j *Journal) Stats(ctx context.Context) (domain.JournalStats, error) {
	var (
		stats      domain.JournalStats
		convergent sql.NullInt64
		lastSignal sql.NullInt64
	)
	if err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(CASE WHEN convergence >= 2 THEN 1 ELSE 0 END), MAX(emitted_at) FROM signals`,
	).Scan(&stats.SignalsSent, &convergent, &lastSignal); err != nil {
		return stats, fmt.Errorf("storage.Stats: signals: %w", err)
	}
	stats.ConvergentSent = int(convergent.Int64)
	if lastSignal.Valid {
		stats.LastSignalAt = time.Unix(lastSignal.Int64, 0).UTC()
	}

	var lastRefresh, tracked sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM refreshes`).Scan(&stats.Refreshes); err != nil {
		return stats, fmt.Errorf("storage.Stats: refreshes: %w", err)
	}
	err := j.db.QueryRowContext(ctx,
		`SELECT refreshed_at, tracked FROM refreshes ORDER BY id DESC LIMIT 1`,
	).Scan(&lastRefresh, &tracked)
	if err != nil && err != sql.ErrNoRows {
		return stats, fmt.Errorf("storage.Stats: last refresh: %w", err)
	}
	if lastRefresh.Valid {
		stats.LastRefreshedAt = time.Unix(lastRefresh.Int64, 0).UTC()
		stats.TrackedWallets = int(tracked.Int64)
	}
	return stats, nil
}

// Close cierra la conexión.
func (j *Journal) Close() error {
	return j.db.Close()
}
