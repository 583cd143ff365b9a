package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across modules. Services return either one of
// these (possibly wrapped) or one of the typed errors below; handlers map
// them to HTTP status codes.
var (
	ErrNotFound      = errors.New("record not found")
	ErrMissingWinner = errors.New("no winner selected")
	ErrMissingReason = errors.New("reason is required")
	ErrConflict      = errors.New("concurrent modification detected")
)

// ValidationError reports malformed input. It is returned before any store
// access happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for a single field.
func Validation(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports a capacity violation with the exact
// required and available quantities so the operator can act on it.
type InsufficientStockError struct {
	LotID     string
	Required  float64
	Available float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock on %s: required %.2f, available %.2f",
		e.LotID, e.Required, e.Available)
}

// InvalidTransitionError reports a purchase-request state machine
// violation, naming the current status, the attempted one and the set of
// legal targets.
type InvalidTransitionError struct {
	Current   string
	Attempted string
	Allowed   []string
}

func (e *InvalidTransitionError) Error() string {
	allowed := "none"
	if len(e.Allowed) > 0 {
		allowed = strings.Join(e.Allowed, ", ")
	}
	return fmt.Sprintf("invalid transition %s -> %s (allowed: %s)",
		e.Current, e.Attempted, allowed)
}

// DuplicateIdentityError reports a lot id / PR number collision within a
// tenant.
type DuplicateIdentityError struct {
	Entity   string
	Identity string
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Identity)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInsufficientStock reports whether err is an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var ie *InsufficientStockError
	return errors.As(err, &ie)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// IsDuplicateIdentity reports whether err is a DuplicateIdentityError.
func IsDuplicateIdentity(err error) bool {
	var de *DuplicateIdentityError
	return errors.As(err, &de)
}
