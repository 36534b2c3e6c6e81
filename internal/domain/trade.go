package domain

// SideBuy es el único lado que sigue el tracker.
const SideBuy = "BUY"

// ActivityTrade es un trade de compra de una wallet según el endpoint /activity.
type ActivityTrade struct {
	Timestamp    int64 // unix segundos
	Size         float64
	Price        float64
	ConditionID  string
	Outcome      string
	OutcomeIndex int
	Title        string
	Slug         string
}

// Notional devuelve el valor estimado del trade en USD (shares × precio).
func (t ActivityTrade) Notional() float64 {
	return t.Size * t.Price
}

// ClosedPosition es una posición ya realizada de una wallet.
type ClosedPosition struct {
	RealizedPnL float64
	TotalBought float64 // cantidad de shares compradas
	AvgPrice    float64 // precio medio de entrada
}

// InitialStake reconstruye el capital inicial de la posición.
func (p ClosedPosition) InitialStake() float64 {
	return p.TotalBought * p.AvgPrice
}
