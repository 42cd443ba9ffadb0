package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed carts and identifiers. Raised before any lock.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a product is missing, archived or owned by another store.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when a line asks for more than the ledger holds.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrContention is returned when a row lock wait exceeded the datastore timeout.
	// The whole sale may be retried from scratch.
	ErrContention = errors.New("lock contention")

	// ErrStorage is returned when the datastore is unavailable or rejects a write
	// for reasons unrelated to business rules.
	ErrStorage = errors.New("storage failure")
)

// ValidationError names the offending field of a rejected request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Message)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// InsufficientStockError provides details about a stock shortage.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (product %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// IsRetryable returns true if the whole operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}

// IsClientError returns true if the error is due to the request rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientStock)
}
