// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"
	"fmt"

	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

// Broker defines the interface for broker operations used by the engine.
type Broker interface {
	// Orders
	PlaceOrder(ctx context.Context, order *models.Order) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrders(ctx context.Context) ([]models.Order, error)

	// Positions & Account
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetBalance(ctx context.Context) (*models.Balance, error)
}

// OrderResult represents the result of an order placement.
type OrderResult struct {
	OrderID string
	Status  string
	Message string
}

// ValidateOrder checks order parameters before submission.
func ValidateOrder(order *models.Order) error {
	if order == nil {
		return errors.ErrInvalidOrder
	}
	if order.Symbol == "" {
		return errors.NewOrderError("", order.Symbol, "validate", "symbol is required", errors.ErrInvalidOrder)
	}
	if order.Side != models.OrderSideBuy && order.Side != models.OrderSideSell {
		return errors.NewOrderError("", order.Symbol, "validate", fmt.Sprintf("invalid side %q", order.Side), errors.ErrInvalidOrder)
	}
	switch order.Type {
	case models.OrderTypeMarket:
	case models.OrderTypeLimit:
		if order.Price <= 0 {
			return errors.NewOrderError("", order.Symbol, "validate", "limit order requires a positive price", errors.ErrInvalidOrder)
		}
	default:
		return errors.NewOrderError("", order.Symbol, "validate", fmt.Sprintf("invalid order type %q", order.Type), errors.ErrInvalidOrder)
	}
	if order.Quantity <= 0 {
		return errors.NewOrderError("", order.Symbol, "validate", "quantity must be positive", errors.ErrInvalidOrder)
	}
	return nil
}
