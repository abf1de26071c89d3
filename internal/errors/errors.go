// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotReady          = errors.New("indicator or price target not ready")
	ErrInvalidRisk       = errors.New("risk or reward per share is non-positive")
	ErrNoTargets         = errors.New("no price target method produced a value")
	ErrCapitalExhausted  = errors.New("account value below capital floor")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPositionNotFound  = errors.New("position not found")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrDatabaseError     = errors.New("database error")
)

// Fault kinds used for diagnostics and metrics labels.
const (
	KindNotReady         = "not_ready"
	KindInvalidRisk      = "invalid_risk"
	KindComputation      = "computation"
	KindCapitalExhausted = "capital_exhausted"
	KindOther            = "other"
)

// OrderError represents an error related to order operations.
type OrderError struct {
	OrderID string
	Symbol  string
	Action  string
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", e.OrderID, e.Action, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", e.OrderID, e.Action, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, action, reason string, err error) *OrderError {
	return &OrderError{
		OrderID: orderID,
		Symbol:  symbol,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error, such as an indicator that has
// not finished warming up.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// NotReady reports that the named input for symbol is unavailable this cycle.
func NotReady(symbol, input string) *DataError {
	return NewDataError(input, symbol, "not ready", ErrNotReady)
}

// RiskError represents a risk management error.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
	Err     error
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk violation [%s]: %s (current: %.2f, limit: %.2f)", e.Rule, e.Message, e.Current, e.Limit)
}

func (e *RiskError) Unwrap() error {
	return e.Err
}

// NewRiskError creates a new RiskError.
func NewRiskError(rule string, current, limit float64, message string, err error) *RiskError {
	return &RiskError{
		Rule:    rule,
		Current: current,
		Limit:   limit,
		Message: message,
		Err:     err,
	}
}

// ComputationFault represents an unexpected numeric or logic failure while
// evaluating one instrument. It is always local to that instrument.
type ComputationFault struct {
	Component string
	Symbol    string
	Err       error
}

func (e *ComputationFault) Error() string {
	return fmt.Sprintf("computation fault [%s] %s: %v", e.Component, e.Symbol, e.Err)
}

func (e *ComputationFault) Unwrap() error {
	return e.Err
}

// NewComputationFault creates a new ComputationFault.
func NewComputationFault(component, symbol string, err error) *ComputationFault {
	return &ComputationFault{
		Component: component,
		Symbol:    symbol,
		Err:       err,
	}
}

// FaultKind classifies err into one of the fault kinds.
func FaultKind(err error) string {
	var fault *ComputationFault
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrNoTargets):
		return KindNotReady
	case errors.Is(err, ErrInvalidRisk):
		return KindInvalidRisk
	case errors.Is(err, ErrCapitalExhausted):
		return KindCapitalExhausted
	case errors.As(err, &fault):
		return KindComputation
	default:
		return KindOther
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
