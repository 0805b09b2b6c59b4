package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/safar/merch-store/internal/orders"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondServiceError maps an order service error to a status code. Failure
// details stay in the logs.
func respondServiceError(w http.ResponseWriter, err error) {
	kind := orders.KindOf(err)
	resp := errorResponse{Error: err.Error(), Code: kind.String()}

	var status int
	switch kind {
	case orders.KindValidation:
		status = http.StatusBadRequest
		var ve *orders.ValidationError
		if errors.As(err, &ve) {
			resp.Detail = map[string]any{"index": ve.Index, "field": ve.Field, "reason": ve.Reason}
		}
	case orders.KindStock:
		status = http.StatusConflict
		var se *orders.StockError
		if errors.As(err, &se) {
			resp.Detail = se
		}
	case orders.KindInvalidTransition:
		status = http.StatusConflict
		var te *orders.InvalidTransitionError
		if errors.As(err, &te) {
			resp.Detail = map[string]any{"order_id": te.OrderID, "from": te.From, "to": te.To}
		}
	case orders.KindNotFound:
		status = http.StatusNotFound
		resp.Error = "order not found"
	default:
		status = http.StatusInternalServerError
		resp.Error = "internal error"
		var fe *orders.FailureError
		if errors.As(err, &fe) && fe.Retryable() {
			w.Header().Set("Retry-After", "1")
		}
	}

	respondJSON(w, status, resp)
}
