package domain

import "net/url"

// Market es la metadata de un mercado de Polymarket tal como la devuelve Gamma,
// ya normalizada. OutcomePrices está alineado con Outcomes por índice.
type Market struct {
	ConditionID   string
	Question      string
	Slug          string
	Outcomes      []string
	OutcomePrices []float64 // nil si Gamma no lo devolvió o venía malformado
	Volume        float64
	Liquidity     float64
	Active        bool
	Closed        bool
}

// ClosedMarket devuelve el registro por defecto para un mercado que no se pudo
// resolver: cerrado e inactivo, así los filtros posteriores lo descartan.
func ClosedMarket(conditionID string) Market {
	return Market{
		ConditionID: conditionID,
		Question:    "Unknown",
		Active:      false,
		Closed:      true,
	}
}

// IsOpen devuelve true si el mercado está activo y no cerrado.
func (m Market) IsOpen() bool {
	return m.Active && !m.Closed
}

// ProbabilityAt devuelve la probabilidad implícita del outcome idx según el vector
// de precios actual. Si el vector falta o el índice no existe devuelve fallback.
func (m Market) ProbabilityAt(idx int, fallback float64) float64 {
	if len(m.OutcomePrices) == 0 || idx < 0 || idx >= len(m.OutcomePrices) {
		return fallback
	}
	return m.OutcomePrices[idx]
}

// Favorite devuelve el outcome con mayor precio (el más probable) y su precio.
// ok=false si el mercado no tiene precios.
func (m Market) Favorite() (outcome string, price float64, ok bool) {
	best := -1
	for i, p := range m.OutcomePrices {
		if best < 0 || p > m.OutcomePrices[best] {
			best = i
		}
	}
	if best < 0 {
		return "", 0, false
	}
	outcome = "YES"
	if best < len(m.Outcomes) && m.Outcomes[best] != "" {
		outcome = m.Outcomes[best]
	}
	return outcome, m.OutcomePrices[best], true
}

// EventURL devuelve el enlace público al evento en polymarket.com.
func EventURL(slug string) string {
	return "https://polymarket.com/event/" + url.PathEscape(slug)
}

// TruncateQuestion devuelve la pregunta del mercado truncada a maxLen runas.
// Si la pregunta está vacía usa los primeros caracteres del conditionID como fallback.
func TruncateQuestion(question, conditionID string, maxLen int) string {
	q := question
	if q == "" {
		if len(conditionID) > 20 {
			q = conditionID[:20] + "..."
		} else {
			q = conditionID
		}
	}
	if r := []rune(q); len(r) > maxLen {
		q = string(r[:maxLen-3]) + "..."
	}
	return q
}
