package polymarket

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// normalizeAddress valida una dirección de wallet y la devuelve en minúsculas.
// ok=false si no es una dirección hex de 20 bytes.
func normalizeAddress(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), true
}

// mapLeaderboard convierte las filas del leaderboard descartando direcciones inválidas.
// Si la fila no trae username se usan los primeros 10 caracteres de la dirección.
func mapLeaderboard(raw []leaderboardEntry) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(raw))
	for _, r := range raw {
		addr, ok := normalizeAddress(r.ProxyWallet)
		if !ok {
			continue
		}
		name := strings.TrimSpace(r.UserName)
		if name == "" {
			name = addr[:10]
		}
		entries = append(entries, domain.LeaderboardEntry{
			Address:  addr,
			Username: name,
			PnL:      float64(r.PnL),
			Volume:   float64(r.Vol),
		})
	}
	return entries
}

// mapClosedPositions convierte las posiciones cerradas.
func mapClosedPositions(raw []closedPosition) []domain.ClosedPosition {
	positions := make([]domain.ClosedPosition, 0, len(raw))
	for _, r := range raw {
		positions = append(positions, domain.ClosedPosition{
			RealizedPnL: float64(r.RealizedPnL),
			TotalBought: float64(r.TotalBought),
			AvgPrice:    float64(r.AvgPrice),
		})
	}
	return positions
}

// mapActivity convierte los trades de actividad. Descarta filas que no son BUY
// por si la API ignora el filtro side.
func mapActivity(raw []activityTrade) []domain.ActivityTrade {
	trades := make([]domain.ActivityTrade, 0, len(raw))
	for _, r := range raw {
		if r.Side != "" && !strings.EqualFold(r.Side, domain.SideBuy) {
			continue
		}
		outcome := r.Outcome
		if outcome == "" {
			outcome = "Unknown"
		}
		trades = append(trades, domain.ActivityTrade{
			Timestamp:    int64(r.Timestamp),
			Size:         float64(r.Size),
			Price:        float64(r.Price),
			ConditionID:  r.ConditionID,
			Outcome:      outcome,
			OutcomeIndex: int(r.OutcomeIndex),
			Title:        r.Title,
			Slug:         r.Slug,
		})
	}
	return trades
}

// mapGammaMarket convierte un mercado de Gamma. El vector de precios queda nil
// si venía ausente o con algún precio no numérico.
func mapGammaMarket(r gammaMarket) domain.Market {
	m := domain.Market{
		ConditionID: r.ConditionID,
		Question:    r.Question,
		Slug:        r.Slug,
		Volume:      float64(r.Volume),
		Liquidity:   float64(r.Liquidity),
		Active:      r.Active,
		Closed:      r.Closed,
	}
	if m.Question == "" {
		m.Question = "Unknown Market"
	}

	if r.Outcomes.Valid {
		m.Outcomes = r.Outcomes.Items
	}
	if r.OutcomePrices.Valid {
		m.OutcomePrices = parsePrices(r.OutcomePrices.Items)
	}

	// Respuestas con tokens[] en lugar de outcomes/outcomePrices
	if len(m.OutcomePrices) == 0 && len(r.Tokens) > 0 {
		m.Outcomes = make([]string, len(r.Tokens))
		m.OutcomePrices = make([]float64, len(r.Tokens))
		for i, t := range r.Tokens {
			m.Outcomes[i] = t.Outcome
			m.OutcomePrices[i] = float64(t.Price)
		}
	}
	return m
}

func parsePrices(items []string) []float64 {
	prices := make([]float64, 0, len(items))
	for _, s := range items {
		p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		prices = append(prices, p)
	}
	return prices
}
