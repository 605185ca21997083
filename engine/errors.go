/*
errors.go - Centralized error types for the valuation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers and the persistence layer wrap these with additional context.

ERROR CATEGORIES:
  1. Validation errors - malformed input the engine refuses to repair
  2. Precondition violations - caller contract breaches (unordered log)
  3. Persistence errors - surfaced by stores, not by the pure passes

Note on missing reference data: a missing product or price is NOT an error.
It is represented as explicit absence in the output (ValuedLine.PriceKnown
= false, zero amount) per the engine's error taxonomy.

USAGE:
  if errors.Is(err, engine.ErrUnorderedEvents) {
      // the event slice was not timestamp-ordered
  }

SEE ALSO:
  - valuation.go: Raises InvalidQuantityError
  - audit.go: Raises UnorderedEventsError
  - store/sqlite: Returns ErrDuplicateIdentifier on uniqueness conflicts
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantity is returned when a sale line carries a negative
	// quantity. The engine raises this to the caller; it never repairs
	// malformed input silently.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrUnorderedEvents is returned when an audit event slice is not
	// ordered by timestamp. Folding an unordered log would produce silently
	// wrong attribution, so the reconstructor fails loudly instead.
	ErrUnorderedEvents = errors.New("audit events not ordered by timestamp")

	// ErrDuplicateIdentifier is returned by the persistence layer when an
	// external transaction identifier already exists. Identifier generation
	// is a pure function; uniqueness under concurrent creators is enforced
	// here, and callers are expected to regenerate and retry.
	ErrDuplicateIdentifier = errors.New("duplicate transaction identifier")

	// ErrSaleNotFound is returned when a referenced sale doesn't exist.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrProductNotFound is returned when a referenced product doesn't exist.
	ErrProductNotFound = errors.New("product not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidQuantityError reports which line carried a malformed quantity.
type InvalidQuantityError struct {
	SaleID    SaleID
	ProductID ProductID
	Quantity  decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %s for product %s on sale %s",
		e.Quantity, e.ProductID, e.SaleID)
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

// UnorderedEventsError reports where the audit log ordering precondition
// was violated.
type UnorderedEventsError struct {
	Index    int
	RecordID RecordID
}

func (e *UnorderedEventsError) Error() string {
	return fmt.Sprintf("audit event %d (record %s) is earlier than its predecessor",
		e.Index, e.RecordID)
}

func (e *UnorderedEventsError) Unwrap() error { return ErrUnorderedEvents }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrUnorderedEvents)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSaleNotFound) ||
		errors.Is(err, ErrProductNotFound)
}

// IsConflict returns true if the error might succeed after regenerating
// the identifier and retrying.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdentifier)
}
