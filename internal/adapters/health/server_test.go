package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/polytipster/internal/adapters/health"
	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/alejandrodnm/polytipster/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHeartbeat struct {
	alive bool
	jobs  []scheduler.JobStatus
}

func (f fakeHeartbeat) Alive(time.Duration) bool      { return f.alive }
func (f fakeHeartbeat) LastHeartbeat() time.Time      { return time.Unix(1_700_000_000, 0) }
func (f fakeHeartbeat) Status() []scheduler.JobStatus { return f.jobs }

type fakeStats struct {
	stats     domain.JournalStats
	recent    []domain.Signal
	err       error
	recentErr error
	limit     *int
}

func (f fakeStats) Stats(context.Context) (domain.JournalStats, error) { return f.stats, f.err }

func (f fakeStats) RecentSignals(_ context.Context, limit int) ([]domain.Signal, error) {
	if f.limit != nil {
		*f.limit = limit
	}
	return f.recent, f.recentErr
}

type fakeTracker struct {
	count int
	last  time.Time
}

func (f fakeTracker) TrackedCount() int      { return f.count }
func (f fakeTracker) LastRefresh() time.Time { return f.last }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLiveness(t *testing.T) {
	alive := health.New(health.Config{}, fakeHeartbeat{alive: true}, nil, nil)
	rec := get(t, alive.Router(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	stale := health.New(health.Config{}, fakeHeartbeat{alive: false}, nil, nil)
	rec = get(t, stale.Router(), "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatus(t *testing.T) {
	refreshed := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	srv := health.New(
		health.Config{ScannerEnabled: true, SmartMoneyEnabled: true},
		fakeHeartbeat{alive: true, jobs: []scheduler.JobStatus{{Name: "trade-poll", Interval: "1m0s", Runs: 3}}},
		fakeStats{stats: domain.JournalStats{SignalsSent: 7, ConvergentSent: 2, Refreshes: 1}},
		fakeTracker{count: 12, last: refreshed},
	)

	rec := get(t, srv.Router(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body health.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Scanner)
	assert.True(t, body.SmartMoney)
	assert.Equal(t, 12, body.TrackedWallets)
	require.NotNil(t, body.LastRefresh)
	assert.True(t, refreshed.Equal(*body.LastRefresh))
	require.NotNil(t, body.Signals)
	assert.Equal(t, 7, body.Signals.Sent)
	assert.Equal(t, 2, body.Signals.Convergent)
	assert.Nil(t, body.Signals.LastSignalAt)
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "trade-poll", body.Jobs[0].Name)
}

func TestStatus_StaleAndNoJournal(t *testing.T) {
	srv := health.New(health.Config{}, fakeHeartbeat{alive: false}, fakeStats{err: errors.New("db closed")}, nil)

	rec := get(t, srv.Router(), "/status")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body health.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stale", body.Status)
	assert.Nil(t, body.Signals, "un error de journal no rompe /status")
	assert.Nil(t, body.LastRefresh)
	assert.Zero(t, body.TrackedWallets)
}

func TestStatus_RecentSignals(t *testing.T) {
	var limit int
	srv := health.New(
		health.Config{SmartMoneyEnabled: true},
		fakeHeartbeat{alive: true},
		fakeStats{
			stats: domain.JournalStats{SignalsSent: 1},
			recent: []domain.Signal{{
				ID:               "sig-1",
				WalletAddress:    "0xabc",
				WalletUsername:   "whale",
				MarketQuestion:   "Will it rain?",
				Outcome:          "Yes",
				EstimatedUSD:     1500,
				Price:            0.62,
				ConvergenceCount: 2,
				Timestamp:        1_700_000_000,
			}},
			limit: &limit,
		},
		nil,
	)

	rec := get(t, srv.Router(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body health.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Signals)
	require.Len(t, body.Signals.Recent, 1)

	got := body.Signals.Recent[0]
	assert.Equal(t, "sig-1", got.ID)
	assert.Equal(t, "whale", got.Username)
	assert.Equal(t, "Yes", got.Outcome)
	assert.Equal(t, 1500.0, got.USD)
	assert.Equal(t, 2, got.Convergence)
	assert.True(t, time.Unix(1_700_000_000, 0).Equal(got.TradeAt))
	assert.Equal(t, 10, limit)
}

func TestStatus_RecentSignalsErrorKeepsCounters(t *testing.T) {
	srv := health.New(health.Config{}, fakeHeartbeat{alive: true},
		fakeStats{stats: domain.JournalStats{SignalsSent: 3}, recentErr: errors.New("locked")}, nil)

	rec := get(t, srv.Router(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body health.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Signals)
	assert.Equal(t, 3, body.Signals.Sent)
	assert.Empty(t, body.Signals.Recent)
}
