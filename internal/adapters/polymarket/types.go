package polymarket

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DTOs raw de las APIs de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.
//
// Las APIs mezclan números JSON y números como string, y a veces devuelven "" o null.
// Los tipos flex* aceptan todas esas formas y caen a cero en lugar de romper el decode.

// flexFloat acepta 1.5, "1.5", "", null. NaN e Inf caen a cero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = 0
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.TrimSpace(unq)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		*f = flexFloat(v)
	}
	return nil
}

// flexInt acepta enteros, floats y strings numéricos.
type flexInt int64

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	_ = f.UnmarshalJSON(b)
	*i = flexInt(int64(f))
	return nil
}

// flexList acepta un array JSON o un string que contiene un array JSON
// (Gamma serializa outcomes y outcomePrices así: "[\"Yes\",\"No\"]").
// Si el contenido está malformado, Valid queda en false.
type flexList struct {
	Items []string
	Valid bool
}

func (l *flexList) UnmarshalJSON(b []byte) error {
	*l = flexList{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return nil
		}
		b = bytes.TrimSpace([]byte(inner))
		if len(b) == 0 || b[0] != '[' {
			return nil
		}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	items := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			items = append(items, s)
			continue
		}
		// número sin comillas
		items = append(items, strings.TrimSpace(string(r)))
	}
	l.Items = items
	l.Valid = true
	return nil
}

// --- Data API ---

// leaderboardEntry es una fila de GET /v1/leaderboard.
type leaderboardEntry struct {
	ProxyWallet string    `json:"proxyWallet"`
	UserName    string    `json:"userName"`
	PnL         flexFloat `json:"pnl"`
	Vol         flexFloat `json:"vol"`
}

// closedPosition es una fila de GET /closed-positions.
type closedPosition struct {
	RealizedPnL flexFloat `json:"realizedPnl"`
	TotalBought flexFloat `json:"totalBought"`
	AvgPrice    flexFloat `json:"avgPrice"`
}

// activityTrade es una fila de GET /activity?type=TRADE.
type activityTrade struct {
	Timestamp    flexInt   `json:"timestamp"`
	Type         string    `json:"type"`
	Side         string    `json:"side"`
	Size         flexFloat `json:"size"`
	Price        flexFloat `json:"price"`
	ConditionID  string    `json:"conditionId"`
	Outcome      string    `json:"outcome"`
	OutcomeIndex flexInt   `json:"outcomeIndex"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
}

// --- Gamma API ---

// gammaMarket contiene la metadata de un mercado de GET /markets.
type gammaMarket struct {
	ConditionID   string       `json:"conditionId"`
	Question      string       `json:"question"`
	Slug          string       `json:"slug"`
	Outcomes      flexList     `json:"outcomes"`
	OutcomePrices flexList     `json:"outcomePrices"`
	Volume        flexFloat    `json:"volume"`
	Liquidity     flexFloat    `json:"liquidity"`
	Active        bool         `json:"active"`
	Closed        bool         `json:"closed"`
	Tokens        []gammaToken `json:"tokens"`
}

// gammaToken aparece en algunas respuestas antiguas en lugar de outcomes/outcomePrices.
type gammaToken struct {
	Outcome string    `json:"outcome"`
	Price   flexFloat `json:"price"`
}
