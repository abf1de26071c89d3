// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"equity-trader/internal/models"
)

// Journal records decisions and fills. The engine writes through it.
type Journal interface {
	SaveDecision(ctx context.Context, decision *models.Decision) error
	LogFill(ctx context.Context, fill *models.Fill) error
}

// DataStore defines the full persistence interface.
type DataStore interface {
	Journal

	GetDecisions(ctx context.Context, filter DecisionFilter) ([]models.Decision, error)
	GetFills(ctx context.Context, filter FillFilter) ([]models.Fill, error)

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// DecisionFilter represents filters for querying decisions.
type DecisionFilter struct {
	Symbol    string
	Side      models.OrderSide
	StartDate time.Time
	EndDate   time.Time
	Executed  *bool
	Limit     int
}

// FillFilter represents filters for querying fills.
type FillFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
