package orders

import (
	"fmt"

	"github.com/safar/merch-store/internal/models"
)

var validNext = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.OrderStatusCreated:    {models.OrderStatusProcessing: true, models.OrderStatusCancelled: true},
	models.OrderStatusProcessing: {models.OrderStatusShipped: true, models.OrderStatusCancelled: true},
	models.OrderStatusShipped:    {models.OrderStatusDelivered: true},
	models.OrderStatusDelivered:  {},
	models.OrderStatusCancelled:  {},
}

// CanTransition reports whether to directly follows from on the regular order path.
func CanTransition(from, to models.OrderStatus) bool {
	return validNext[from][to]
}

func CanCancel(status models.OrderStatus) bool {
	return CanTransition(status, models.OrderStatusCancelled)
}

// IsTerminal reports whether no cancellation is possible anymore. Shipped still
// moves on to delivered but can no longer be cancelled.
func IsTerminal(status models.OrderStatus) bool {
	switch status {
	case models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}

func IsKnownStatus(status models.OrderStatus) bool {
	_, ok := validNext[status]
	return ok
}

func ParseStatus(s string) (models.OrderStatus, error) {
	status := models.OrderStatus(s)
	if !IsKnownStatus(status) {
		return "", &ValidationError{Index: -1, Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
	return status, nil
}
