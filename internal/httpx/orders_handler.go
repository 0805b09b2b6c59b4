package httpx

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/safar/merch-store/internal/models"
	"github.com/safar/merch-store/internal/orders"
)

const maxBodyBytes = 1 << 20

type OrdersHandler struct {
	Service OrderService
	Logger  zerolog.Logger
}

type createOrderRequest struct {
	CustomerName    string            `json:"customer_name"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerAddress string            `json:"customer_address"`
	Items           []orders.LineItem `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type addMessageRequest struct {
	Content     string `json:"content"`
	IsFromAdmin bool   `json:"is_from_admin"`
}

type markReadRequest struct {
	ReaderIsAdmin bool `json:"reader_is_admin"`
}

func (h *OrdersHandler) Register(r chi.Router, orderLimit func(http.Handler) http.Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.With(orderLimit).Post("/", h.createOrder)
		r.Get("/", h.listOrders)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.Delete("/", h.deleteOrder)
			r.Get("/status", h.getOrderStatus)
			r.Put("/status", h.updateOrderStatus)
			r.Post("/cancel", h.cancelOrder)
			r.Get("/messages", h.listMessages)
			r.Post("/messages", h.addMessage)
			r.Post("/messages/read", h.markMessagesRead)
		})
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func customerMeta(req createOrderRequest) (models.CustomerMeta, string) {
	meta := models.CustomerMeta{
		Name:    strings.TrimSpace(req.CustomerName),
		Email:   strings.TrimSpace(req.CustomerEmail),
		Address: strings.TrimSpace(req.CustomerAddress),
	}
	switch {
	case meta.Name == "":
		return meta, "customer_name is required"
	case meta.Email == "":
		return meta, "customer_email is required"
	case meta.Address == "":
		return meta, "customer_address is required"
	}
	if _, err := mail.ParseAddress(meta.Email); err != nil {
		return meta, "customer_email is invalid"
	}
	return meta, ""
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	meta, problem := customerMeta(req)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}

	order, err := h.Service.PlaceOrder(r.Context(), meta, req.Items)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := orders.ListOrdersFilter{
		Status:        q.Get("status"),
		CustomerEmail: q.Get("email"),
		Cursor:        q.Get("cursor"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	page, err := h.Service.ListOrders(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.Service.GetOrderByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	status, err := h.Service.GetOrderStatus(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.Service.CancelOrder(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	order, err := h.Service.UpdateOrderStatus(r.Context(), id, status)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteOrder(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	messages, err := h.Service.GetOrderMessages(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, messages)
}

func (h *OrdersHandler) addMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req addMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := h.Service.AddOrderMessage(r.Context(), id, req.Content, req.IsFromAdmin)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

func (h *OrdersHandler) markMessagesRead(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req markReadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	n, err := h.Service.MarkMessagesRead(r.Context(), id, req.ReaderIsAdmin)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"marked": n})
}
