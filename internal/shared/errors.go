package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request failed validation before any persistence.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock indicates a medicine cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidStateTransition indicates a lifecycle transition not allowed from the current status.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrConcurrencyConflict indicates the operation lost a race and should be retried as a whole.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrReferenced indicates a delete blocked by existing references.
	ErrReferenced = errors.New("record is still referenced")
	// ErrUnauthorized indicates a missing or invalid identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes which input was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is reports ErrValidation equivalence.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is reports ErrNotFound equivalence.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError carries the medicine identity and what was available when the check ran.
type InsufficientStockError struct {
	MedicineID   int64
	MedicineName string
	Available    int
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (id %d): available %d, requested %d", e.MedicineName, e.MedicineID, e.Available, e.Requested)
}

// Is reports ErrInsufficientStock equivalence.
func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// InvalidTransitionError names the rejected lifecycle move.
type InvalidTransitionError struct {
	Entity string
	ID     int64
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %d cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

// Is reports ErrInvalidStateTransition equivalence.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }
