package polymarket_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/polytipster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLeaderboard_QueryAndMapping(t *testing.T) {
	fixture := `[
		{"proxyWallet": "0xAbCdEf0000000000000000000000000000000001", "userName": "Alpha", "pnl": "12500.5", "vol": 90000},
		{"proxyWallet": "0x56687bf447db6ffa42ffe2204a05edaa20f55839", "userName": "", "pnl": 5000, "vol": null},
		{"proxyWallet": "not-an-address", "userName": "ghost", "pnl": 1, "vol": 1},
		{"proxyWallet": "", "userName": "empty", "pnl": 1, "vol": 1}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/leaderboard", r.URL.Path)
		assert.Equal(t, "POLITICS", r.URL.Query().Get("category"))
		assert.Equal(t, "WEEK", r.URL.Query().Get("timePeriod"))
		assert.Equal(t, "PNL", r.URL.Query().Get("orderBy"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	entries, err := client.FetchLeaderboard(context.Background(), "POLITICS", domain.PeriodWeek, 50)

	require.NoError(t, err)
	require.Len(t, entries, 2, "direcciones inválidas se descartan")

	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", entries[0].Address)
	assert.Equal(t, "Alpha", entries[0].Username)
	assert.InDelta(t, 12500.5, entries[0].PnL, 0.001)
	assert.InDelta(t, 90000, entries[0].Volume, 0.001)

	// sin username → prefijo de la dirección; vol null → 0
	assert.Equal(t, "0x56687bf4", entries[1].Username)
	assert.Equal(t, 0.0, entries[1].Volume)
}

func TestFetchClosedPositions_Mapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/closed-positions", r.URL.Path)
		assert.Equal(t, "REALIZEDPNL", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "DESC", r.URL.Query().Get("sortDirection"))
		w.Write([]byte(`[{"realizedPnl": 42.5, "totalBought": "100", "avgPrice": 0.35}, {"realizedPnl": "", "totalBought": 10, "avgPrice": 0.5}]`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	positions, err := client.FetchClosedPositions(context.Background(), "0x56687bf447db6ffa42ffe2204a05edaa20f55839", 50)

	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.InDelta(t, 42.5, positions[0].RealizedPnL, 0.001)
	assert.InDelta(t, 35.0, positions[0].InitialStake(), 0.001)
	assert.Equal(t, 0.0, positions[1].RealizedPnL)
}

func TestFetchBuyActivity_QueryAndMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/activity", r.URL.Path)
		assert.Equal(t, "TRADE", q.Get("type"))
		assert.Equal(t, "BUY", q.Get("side"))
		assert.Equal(t, "1700000000", q.Get("start"))
		assert.Equal(t, "TIMESTAMP", q.Get("sortBy"))
		w.Write([]byte(`[
			{"timestamp": 1700000100, "type": "TRADE", "side": "BUY", "size": 500, "price": "0.42",
			 "conditionId": "0xcond", "outcome": "Yes", "outcomeIndex": 0, "title": "Will it?", "slug": "will-it"},
			{"timestamp": 1700000050, "type": "TRADE", "side": "SELL", "size": 10, "price": 0.5, "conditionId": "0xcond"},
			{"timestamp": "1700000020", "type": "TRADE", "size": 10, "price": 0.5, "conditionId": "0xother", "outcomeIndex": "1"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	trades, err := client.FetchBuyActivity(context.Background(), "0x56687bf447db6ffa42ffe2204a05edaa20f55839", 1700000000, 30)

	require.NoError(t, err)
	require.Len(t, trades, 2, "las filas SELL se descartan")

	assert.Equal(t, int64(1700000100), trades[0].Timestamp)
	assert.InDelta(t, 210.0, trades[0].Notional(), 0.001)
	assert.Equal(t, "Yes", trades[0].Outcome)

	assert.Equal(t, int64(1700000020), trades[1].Timestamp)
	assert.Equal(t, 1, trades[1].OutcomeIndex)
	assert.Equal(t, "Unknown", trades[1].Outcome)
}

func TestFetchBuyActivity_NonFiniteNumbersBecomeZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"timestamp": 1700000100, "side": "BUY", "size": 500, "price": "NaN", "conditionId": "0xa"},
			{"timestamp": 1700000090, "side": "BUY", "size": "Inf", "price": 0.5, "conditionId": "0xb"},
			{"timestamp": 1700000080, "side": "BUY", "size": "-Infinity", "price": "nan", "conditionId": "0xc"}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	trades, err := client.FetchBuyActivity(context.Background(), "0x56687bf447db6ffa42ffe2204a05edaa20f55839", 1700000000, 30)

	require.NoError(t, err)
	require.Len(t, trades, 3)
	for _, tr := range trades {
		assert.False(t, math.IsNaN(tr.Notional()) || math.IsInf(tr.Notional(), 0), "notional %v", tr.Notional())
	}
	assert.Zero(t, trades[0].Price)
	assert.Equal(t, 500.0, trades[0].Size)
	assert.Zero(t, trades[1].Size)
	assert.Zero(t, trades[2].Size)
	assert.Zero(t, trades[2].Price)
}
