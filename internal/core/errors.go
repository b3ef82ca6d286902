package core

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is; the typed errors below
// carry detail and unwrap to one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("concurrent modification")
	ErrPartialWrite      = errors.New("partial write")
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError is returned when a request exceeds the stock on hand.
// It is an expected condition: the caller may abort or retry with an override.
type InsufficientStockError struct {
	Size      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for size %s: available %d, requested %d", e.Size, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError rejects input before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports a failed conditional write.
type ConflictError struct {
	Entity          string
	ID              string
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q was modified concurrently (expected version %d)", e.Entity, e.ID, e.ExpectedVersion)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PartialWriteError is returned when a multi-step write ended in an unknown state,
// e.g. the commit acknowledgement was lost. Retrying with IdempotencyKey is safe:
// the store will either find the committed entry or apply the write once.
type PartialWriteError struct {
	Op             string
	IdempotencyKey string
	Err            error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s ended in an unknown state (retry with idempotency key %s): %v", e.Op, e.IdempotencyKey, e.Err)
}

func (e *PartialWriteError) Unwrap() []error { return []error{ErrPartialWrite, e.Err} }
