package orders

import (
	"errors"
	"fmt"

	"github.com/safar/merch-store/internal/database"
	"github.com/safar/merch-store/internal/models"
)

// ErrNotFound is returned, possibly wrapped, for operations on an order id that
// does not exist.
var ErrNotFound = database.ErrOrderNotFound

// ValidationError rejects a malformed request before any transaction opens.
// Index is the offending line item, or -1 when the error is not about a line.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid request: items[%d].%s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// StockError reports the first line item, in submission order, whose quantity
// could not be taken from stock. The whole order was rolled back. Requested and
// Available cover the whole cart for that (merchandise, size) entry: Requested
// sums every line up to the failing one, Available is the stock left once the
// order is rolled back.
type StockError struct {
	MerchandiseID int64  `json:"merchandise_id"`
	Name          string `json:"name"`
	Size          string `json:"size"`
	Requested     int    `json:"requested"`
	Available     int    `json:"available"`
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (size %s): requested %d, available %d",
		e.displayName(), e.Size, e.Requested, e.Available)
}

func (e *StockError) displayName() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("merchandise #%d", e.MerchandiseID)
}

type InvalidTransitionError struct {
	OrderID int64
	From    models.OrderStatus
	To      models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %d cannot move from %s to %s", e.OrderID, e.From, e.To)
}

// FailureError wraps an infrastructure error. The transaction it happened in was
// rolled back and nothing was retried.
type FailureError struct {
	Op  string
	Err error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FailureError) Unwrap() error { return e.Err }

// Retryable reports whether the underlying database error is one a caller may
// reasonably retry, such as a deadlock or lost connection.
func (e *FailureError) Retryable() bool {
	return database.IsRetryable(e.Err)
}

type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindStock
	KindInvalidTransition
	KindNotFound
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindStock:
		return "stock"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindNotFound:
		return "not_found"
	default:
		return "failure"
	}
}

// KindOf classifies err. Errors this package did not produce count as failures.
func KindOf(err error) Kind {
	var (
		validationErr *ValidationError
		stockErr      *StockError
		transitionErr *InvalidTransitionError
	)

	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &stockErr):
		return KindStock
	case errors.As(err, &transitionErr):
		return KindInvalidTransition
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindFailure
	}
}
