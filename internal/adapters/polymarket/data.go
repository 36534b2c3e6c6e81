package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

const (
	leaderboardPath     = "/v1/leaderboard"
	closedPositionsPath = "/closed-positions"
	activityPath        = "/activity"
)

// FetchLeaderboard devuelve el leaderboard de PnL para una categoría y ventana.
// Un 404 se trata como leaderboard vacío.
func (c *Client) FetchLeaderboard(ctx context.Context, category string, period domain.Period, limit int) ([]domain.LeaderboardEntry, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("timePeriod", string(period))
	q.Set("orderBy", "PNL")
	q.Set("limit", strconv.Itoa(limit))

	var resp []leaderboardEntry
	if err := c.get(ctx, c.dataLimiter, c.dataBase, leaderboardPath, q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("data-api.FetchLeaderboard %s/%s: %w", category, period, err)
	}

	entries := mapLeaderboard(resp)
	slog.Debug("leaderboard fetched",
		"category", category,
		"period", period,
		"rows", len(resp),
		"valid", len(entries),
	)
	return entries, nil
}

// FetchClosedPositions devuelve las posiciones cerradas de una wallet,
// ordenadas por PnL realizado descendente.
func (c *Client) FetchClosedPositions(ctx context.Context, address string, limit int) ([]domain.ClosedPosition, error) {
	q := url.Values{}
	q.Set("user", address)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sortBy", "REALIZEDPNL")
	q.Set("sortDirection", "DESC")

	var resp []closedPosition
	if err := c.get(ctx, c.dataLimiter, c.dataBase, closedPositionsPath, q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("data-api.FetchClosedPositions %s: %w", address, err)
	}
	return mapClosedPositions(resp), nil
}

// FetchBuyActivity devuelve los trades BUY de una wallet desde start (unix segundos),
// más recientes primero.
func (c *Client) FetchBuyActivity(ctx context.Context, address string, start int64, limit int) ([]domain.ActivityTrade, error) {
	q := url.Values{}
	q.Set("user", address)
	q.Set("type", "TRADE")
	q.Set("side", domain.SideBuy)
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sortBy", "TIMESTAMP")
	q.Set("sortDirection", "DESC")

	var resp []activityTrade
	if err := c.get(ctx, c.dataLimiter, c.dataBase, activityPath, q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("data-api.FetchBuyActivity %s: %w", address, err)
	}
	return mapActivity(resp), nil
}
