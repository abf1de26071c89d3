package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

// PaperBroker implements the Broker interface for paper trading simulation.
// Market orders fill at the last price. Limit orders fill at their limit once
// the price crosses it, re-checked on every price update.
type PaperBroker struct {
	// Simulated state
	positions map[string]*models.Position
	orders    map[string]*models.Order
	pending   []string
	fills     []models.Fill
	cash      float64

	// Price cache for simulation
	priceCache map[string]float64
	sectors    map[string]string
	clock      time.Time

	mu sync.RWMutex
}

// PaperBrokerConfig holds configuration for paper broker.
type PaperBrokerConfig struct {
	InitialBalance float64
}

// NewPaperBroker creates a new paper trading broker.
func NewPaperBroker(cfg PaperBrokerConfig) *PaperBroker {
	p := &PaperBroker{}
	p.Reset(cfg.InitialBalance)
	return p
}

// PlaceOrder simulates order placement.
func (p *PaperBroker) PlaceOrder(ctx context.Context, order *models.Order) (*OrderResult, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	orderID := uuid.NewString()
	price := p.priceCache[order.Symbol]
	if order.Type == models.OrderTypeMarket && price <= 0 {
		return nil, errors.NewOrderError(orderID, order.Symbol, "place", "no price for market order", errors.ErrInvalidOrder)
	}
	if order.Side == models.OrderSideSell && p.held(order.Symbol) < order.Quantity+p.pendingSellQty(order.Symbol) {
		return nil, errors.NewOrderError(orderID, order.Symbol, "place",
			fmt.Sprintf("sell %d exceeds held %d", order.Quantity, p.held(order.Symbol)), errors.ErrInvalidOrder)
	}

	newOrder := &models.Order{
		ID:       orderID,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Type:     order.Type,
		Quantity: order.Quantity,
		Price:    order.Price,
		Tag:      order.Tag,
		Status:   models.OrderStatusOpen,
		PlacedAt: p.clock,
	}

	if p.canFill(newOrder, price) {
		if err := p.fill(newOrder, p.execPrice(newOrder, price)); err != nil {
			return nil, err
		}
	} else {
		p.pending = append(p.pending, orderID)
	}
	p.orders[orderID] = newOrder

	return &OrderResult{
		OrderID: orderID,
		Status:  newOrder.Status,
		Message: "Paper order placed",
	}, nil
}

// CancelOrder simulates order cancellation.
func (p *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return errors.NewOrderError(orderID, "", "cancel", "unknown order", errors.ErrOrderNotFound)
	}

	if order.Status != models.OrderStatusOpen {
		return errors.NewOrderError(orderID, order.Symbol, "cancel", fmt.Sprintf("cannot cancel order with status %s", order.Status), nil)
	}

	order.Status = models.OrderStatusCancelled
	p.removePending(orderID)
	return nil
}

// GetOrders returns all paper orders ordered by placement.
func (p *PaperBroker) GetOrders(ctx context.Context) ([]models.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	orders := make([]models.Order, 0, len(p.orders))
	for _, o := range p.orders {
		orders = append(orders, *o)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].PlacedAt.Equal(orders[j].PlacedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].PlacedAt.Before(orders[j].PlacedAt)
	})
	return orders, nil
}

// GetPositions returns simulated positions marked at the last price.
func (p *PaperBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		cur := *pos
		if price := p.priceCache[cur.Symbol]; price > 0 {
			cur.LTP = price
			cur.Value = price * float64(cur.Quantity)
		}
		cur.Sector = p.sectors[cur.Symbol]
		positions = append(positions, cur)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return positions, nil
}

// GetBalance returns simulated balance.
func (p *PaperBroker) GetBalance(ctx context.Context) (*models.Balance, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Calculate total equity including positions
	totalEquity := p.cash
	for _, pos := range p.positions {
		price := p.priceCache[pos.Symbol]
		if price <= 0 {
			price = pos.AveragePrice
		}
		totalEquity += price * float64(pos.Quantity)
	}

	return &models.Balance{
		AvailableCash: p.cash,
		TotalEquity:   totalEquity,
	}, nil
}

// UpdatePrice sets the last price for symbol, advances the simulation clock
// and fills any pending orders the new price crosses.
func (p *PaperBroker) UpdatePrice(symbol string, price float64, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.priceCache[symbol] = price
	if at.After(p.clock) {
		p.clock = at
	}

	remaining := p.pending[:0]
	for _, id := range p.pending {
		order := p.orders[id]
		if order.Symbol != symbol || !p.canFill(order, price) {
			remaining = append(remaining, id)
			continue
		}
		if err := p.fill(order, p.execPrice(order, price)); err != nil {
			order.Status = models.OrderStatusRejected
		}
	}
	p.pending = remaining
}

// SetSector records the sector of symbol for position reporting.
func (p *PaperBroker) SetSector(symbol, sector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sector != "" {
		p.sectors[symbol] = sector
	}
}

// DrainFills returns fills since the last call in execution order.
func (p *PaperBroker) DrainFills() []models.Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.fills
	p.fills = nil
	return out
}

// Reset resets the paper broker to initial state.
func (p *PaperBroker) Reset(initialBalance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.positions = make(map[string]*models.Position)
	p.orders = make(map[string]*models.Order)
	p.pending = nil
	p.fills = nil
	p.cash = initialBalance
	p.priceCache = make(map[string]float64)
	p.sectors = make(map[string]string)
	p.clock = time.Time{}
}

// GetTrades returns all completed orders.
func (p *PaperBroker) GetTrades() []models.Order {
	orders, _ := p.GetOrders(context.Background())
	trades := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == models.OrderStatusComplete {
			trades = append(trades, o)
		}
	}
	return trades
}

func (p *PaperBroker) canFill(order *models.Order, price float64) bool {
	if price <= 0 {
		return false
	}
	if order.Type == models.OrderTypeMarket {
		return true
	}
	if order.Side == models.OrderSideBuy {
		return price <= order.Price
	}
	return price >= order.Price
}

func (p *PaperBroker) execPrice(order *models.Order, price float64) float64 {
	if order.Type == models.OrderTypeLimit {
		return order.Price
	}
	return price
}

// fill executes order at price. Caller holds the lock.
func (p *PaperBroker) fill(order *models.Order, price float64) error {
	value := price * float64(order.Quantity)
	if order.Side == models.OrderSideBuy && p.cash < value {
		return errors.NewOrderError(order.ID, order.Symbol, "fill",
			fmt.Sprintf("need %.2f, have %.2f", value, p.cash), errors.ErrInsufficientFunds)
	}

	avgCost := p.updatePosition(order.Symbol, order.Side, order.Quantity, price)
	if order.Side == models.OrderSideBuy {
		p.cash -= value
	} else {
		p.cash += value
	}

	order.Status = models.OrderStatusComplete
	order.FilledQty = order.Quantity
	order.AveragePrice = price

	p.fills = append(p.fills, models.Fill{
		OrderID:     order.ID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    order.Quantity,
		Price:       price,
		AverageCost: avgCost,
		Time:        p.clock,
	})
	return nil
}

// updatePosition applies a trade and returns the average cost before it.
func (p *PaperBroker) updatePosition(symbol string, side models.OrderSide, qty int, price float64) float64 {
	pos, exists := p.positions[symbol]
	if !exists {
		pos = &models.Position{Symbol: symbol}
		p.positions[symbol] = pos
	}
	before := pos.AveragePrice

	if side == models.OrderSideBuy {
		// Calculate new average price
		totalValue := pos.AveragePrice*float64(pos.Quantity) + price*float64(qty)
		pos.Quantity += qty
		if pos.Quantity > 0 {
			pos.AveragePrice = totalValue / float64(pos.Quantity)
		}
	} else {
		pos.Quantity -= qty
		// If position is closed, remove it
		if pos.Quantity == 0 {
			delete(p.positions, symbol)
			return before
		}
	}

	pos.LTP = price
	pos.Value = price * float64(pos.Quantity)
	return before
}

func (p *PaperBroker) held(symbol string) int {
	if pos, ok := p.positions[symbol]; ok {
		return pos.Quantity
	}
	return 0
}

func (p *PaperBroker) pendingSellQty(symbol string) int {
	n := 0
	for _, id := range p.pending {
		if o := p.orders[id]; o.Symbol == symbol && o.Side == models.OrderSideSell {
			n += o.Quantity
		}
	}
	return n
}

func (p *PaperBroker) removePending(orderID string) {
	for i, id := range p.pending {
		if id == orderID {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}

// Ensure PaperBroker implements Broker interface
var _ Broker = (*PaperBroker)(nil)
