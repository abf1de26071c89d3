package resilience

import (
	"context"

	"equity-trader/internal/broker"
	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

// GuardedBroker routes every call of the wrapped broker through a breaker.
type GuardedBroker struct {
	inner   broker.Broker
	breaker *Breaker
}

// NewGuardedBroker wraps inner with breaker.
func NewGuardedBroker(inner broker.Broker, breaker *Breaker) *GuardedBroker {
	return &GuardedBroker{inner: inner, breaker: breaker}
}

// Breaker returns the breaker guarding the broker.
func (g *GuardedBroker) Breaker() *Breaker {
	return g.breaker
}

// countsAsFailure reports whether err says something about broker health.
// Rejections of a particular order do not.
func countsAsFailure(err error) bool {
	switch {
	case errors.Is(err, errors.ErrInvalidOrder),
		errors.Is(err, errors.ErrInsufficientFunds),
		errors.Is(err, errors.ErrOrderNotFound):
		return false
	}
	var orderErr *errors.OrderError
	if errors.As(err, &orderErr) {
		return false
	}
	return true
}

// PlaceOrder places order unless the circuit is open.
func (g *GuardedBroker) PlaceOrder(ctx context.Context, order *models.Order) (*broker.OrderResult, error) {
	var res *broker.OrderResult
	err := g.breaker.Execute(func() error {
		var err error
		res, err = g.inner.PlaceOrder(ctx, order)
		return err
	}, countsAsFailure)
	return res, err
}

// CancelOrder cancels orderID unless the circuit is open.
func (g *GuardedBroker) CancelOrder(ctx context.Context, orderID string) error {
	return g.breaker.Execute(func() error {
		return g.inner.CancelOrder(ctx, orderID)
	}, countsAsFailure)
}

// GetOrders lists orders unless the circuit is open.
func (g *GuardedBroker) GetOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := g.breaker.Execute(func() error {
		var err error
		orders, err = g.inner.GetOrders(ctx)
		return err
	}, countsAsFailure)
	return orders, err
}

// GetPositions lists positions unless the circuit is open.
func (g *GuardedBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	err := g.breaker.Execute(func() error {
		var err error
		positions, err = g.inner.GetPositions(ctx)
		return err
	}, countsAsFailure)
	return positions, err
}

// GetBalance reads the balance unless the circuit is open.
func (g *GuardedBroker) GetBalance(ctx context.Context) (*models.Balance, error) {
	var bal *models.Balance
	err := g.breaker.Execute(func() error {
		var err error
		bal, err = g.inner.GetBalance(ctx)
		return err
	}, countsAsFailure)
	return bal, err
}

var _ broker.Broker = (*GuardedBroker)(nil)
