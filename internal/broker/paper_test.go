package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-trader/internal/errors"
	"equity-trader/internal/models"
)

var t0 = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func TestPaperMarketOrderFills(t *testing.T) {
	ctx := context.Background()
	pb := NewPaperBroker(PaperBrokerConfig{InitialBalance: 1000})
	pb.UpdatePrice("AAPL", 50, t0)
	pb.SetSector("AAPL", "Technology")

	res, err := pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusComplete, res.Status)

	fills := pb.DrainFills()
	require.Len(t, fills, 1)
	assert.Equal(t, res.OrderID, fills[0].OrderID)
	assert.Equal(t, 50.0, fills[0].Price)
	assert.Equal(t, t0, fills[0].Time)
	assert.Empty(t, pb.DrainFills())

	positions, err := pb.GetPositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 10, positions[0].Quantity)
	assert.Equal(t, "Technology", positions[0].Sector)

	bal, err := pb.GetBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500.0, bal.AvailableCash)
	assert.Equal(t, 1000.0, bal.TotalEquity)
}

func TestPaperLimitOrderRematches(t *testing.T) {
	ctx := context.Background()
	pb := NewPaperBroker(PaperBrokerConfig{InitialBalance: 1000})
	pb.UpdatePrice("AAPL", 50, t0)

	res, err := pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: 10, Price: 49})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusOpen, res.Status)
	assert.Empty(t, pb.DrainFills())

	pb.UpdatePrice("MSFT", 10, t0.Add(time.Minute))
	assert.Empty(t, pb.DrainFills())

	pb.UpdatePrice("AAPL", 48.5, t0.Add(2*time.Minute))
	fills := pb.DrainFills()
	require.Len(t, fills, 1)
	assert.Equal(t, 49.0, fills[0].Price)

	// Limit sell at 55 waits for the price to reach it.
	_, err = pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideSell, Type: models.OrderTypeLimit, Quantity: 10, Price: 55})
	require.NoError(t, err)
	pb.UpdatePrice("AAPL", 56, t0.Add(3*time.Minute))
	fills = pb.DrainFills()
	require.Len(t, fills, 1)
	assert.Equal(t, 55.0, fills[0].Price)
	assert.Equal(t, 49.0, fills[0].AverageCost)
	assert.InDelta(t, 60, fills[0].Profit(), 1e-9)

	positions, _ := pb.GetPositions(ctx)
	assert.Empty(t, positions)
}

func TestPaperCancelOrder(t *testing.T) {
	ctx := context.Background()
	pb := NewPaperBroker(PaperBrokerConfig{InitialBalance: 1000})
	pb.UpdatePrice("AAPL", 50, t0)

	res, err := pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: 1, Price: 40})
	require.NoError(t, err)
	require.NoError(t, pb.CancelOrder(ctx, res.OrderID))

	pb.UpdatePrice("AAPL", 30, t0.Add(time.Minute))
	assert.Empty(t, pb.DrainFills(), "cancelled orders never fill")

	assert.Error(t, pb.CancelOrder(ctx, res.OrderID))
	err = pb.CancelOrder(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrOrderNotFound))
}

func TestPaperRejections(t *testing.T) {
	ctx := context.Background()
	pb := NewPaperBroker(PaperBrokerConfig{InitialBalance: 100})

	_, err := pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 1})
	assert.True(t, errors.Is(err, errors.ErrInvalidOrder), "market order needs a price")

	pb.UpdatePrice("AAPL", 50, t0)
	_, err = pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 3})
	assert.True(t, errors.Is(err, errors.ErrInsufficientFunds))

	_, err = pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideSell, Type: models.OrderTypeMarket, Quantity: 1})
	assert.True(t, errors.Is(err, errors.ErrInvalidOrder), "no shorting")

	_, err = pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: 1})
	assert.True(t, errors.Is(err, errors.ErrInvalidOrder), "limit needs a price")
}

func TestPaperGetOrdersAndTrades(t *testing.T) {
	ctx := context.Background()
	pb := NewPaperBroker(PaperBrokerConfig{InitialBalance: 1000})
	pb.UpdatePrice("AAPL", 10, t0)

	_, err := pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 1})
	require.NoError(t, err)
	pb.UpdatePrice("AAPL", 10, t0.Add(time.Minute))
	_, err = pb.PlaceOrder(ctx, &models.Order{Symbol: "AAPL", Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: 1, Price: 5})
	require.NoError(t, err)

	orders, err := pb.GetOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].PlacedAt.Before(orders[1].PlacedAt))
	assert.Len(t, pb.GetTrades(), 1)
}
