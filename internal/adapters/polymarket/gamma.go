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

const gammaMarketsPath = "/markets"

// FetchMarket devuelve la metadata de un mercado por conditionID.
// Si Gamma no lo conoce devuelve domain.ClosedMarket para que los filtros lo descarten.
func (c *Client) FetchMarket(ctx context.Context, conditionID string) (domain.Market, error) {
	q := url.Values{}
	q.Set("condition_ids", conditionID)

	var resp []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, c.gammaBase, gammaMarketsPath, q, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.ClosedMarket(conditionID), nil
		}
		return domain.Market{}, fmt.Errorf("gamma.FetchMarket %s: %w", conditionID, err)
	}
	if len(resp) == 0 {
		slog.Debug("gamma market not found", "condition_id", conditionID)
		return domain.ClosedMarket(conditionID), nil
	}

	m := mapGammaMarket(resp[0])
	if m.ConditionID == "" {
		m.ConditionID = conditionID
	}
	return m, nil
}

// FetchActiveMarkets devuelve hasta limit mercados activos y no cerrados.
func (c *Client) FetchActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("active", "true")
	q.Set("closed", "false")

	var resp []gammaMarket
	if err := c.get(ctx, c.gammaLimiter, c.gammaBase, gammaMarketsPath, q, &resp); err != nil {
		return nil, fmt.Errorf("gamma.FetchActiveMarkets: %w", err)
	}

	markets := make([]domain.Market, 0, len(resp))
	for _, r := range resp {
		markets = append(markets, mapGammaMarket(r))
	}
	slog.Debug("gamma markets fetched", "count", len(markets))
	return markets, nil
}
