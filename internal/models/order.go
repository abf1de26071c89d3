package models

import "time"

// Order represents a trading order.
type Order struct {
	ID           string
	Symbol       string
	Side         OrderSide
	Type         OrderType
	Quantity     int
	Price        float64
	Tag          string
	Status       string
	FilledQty    int
	AveragePrice float64
	PlacedAt     time.Time
}

// Order statuses.
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusComplete  = "COMPLETE"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusRejected  = "REJECTED"
)

// OrderTicket tracks a submitted order until it fills or is cancelled.
type OrderTicket struct {
	ID          string
	Symbol      string
	Side        OrderSide
	Quantity    int
	LimitPrice  float64
	SubmittedAt time.Time
	Closed      bool
	Tag         string
}

// Age returns how long the ticket has been open at now.
func (t *OrderTicket) Age(now time.Time) time.Duration {
	return now.Sub(t.SubmittedAt)
}

// Fill is an executed order, in whole or in part.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Side     OrderSide `json:"side"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	// AverageCost is the position's average cost before the fill was applied.
	AverageCost float64   `json:"average_cost"`
	Time        time.Time `json:"time"`
}

// Profit is the realized profit of a sell fill.
func (f Fill) Profit() float64 {
	return (f.Price - f.AverageCost) * float64(f.Quantity)
}

// Position represents an open trading position.
type Position struct {
	Symbol       string
	Quantity     int
	AveragePrice float64
	LTP          float64
	Sector       string
	Value        float64
}

// Invested reports whether the position holds any quantity.
func (p Position) Invested() bool {
	return p.Quantity != 0
}

// Balance represents account balance.
type Balance struct {
	AvailableCash float64
	TotalEquity   float64
}
