package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownDomain indicates no handler is registered for a sync domain.
	ErrUnknownDomain = errors.New("unknown sync domain")

	// ErrMissingCredentials indicates a vendor adapter was constructed
	// without the credentials it needs. Surfaced as a setup failure, never
	// recorded as a run error.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrPageLimitExceeded indicates pagination did not terminate before
	// the hard page ceiling. Treated as a vendor contract violation.
	ErrPageLimitExceeded = errors.New("page limit exceeded")
)

// ValidationError reports a structurally invalid record: a missing natural
// key field, a negative quantity, or similar contract violation from the
// vendor or normalisation layer. A run that hits one fails closed.
type ValidationError struct {
	Table  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record in %s: %s %s", e.Table, e.Field, e.Reason)
}

// IsValidation checks whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
