// Package api is the HTTP surface of the funnel: upload, checkout, queue
// status and the operator endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"santamoment/internal/catalog"
	"santamoment/internal/config"
	"santamoment/internal/logger"
	"santamoment/internal/models"
	"santamoment/internal/order"
	"santamoment/internal/order/gateway"
	"santamoment/internal/quality"
	"santamoment/internal/store"
	"santamoment/internal/utils"
)

type Handler struct {
	OrderService *order.OrderService
	Analyzer     *quality.Analyzer
	Config       *config.Config
	Logger       *logger.Logger
}

func NewHandler(orderService *order.OrderService, analyzer *quality.Analyzer, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		OrderService: orderService,
		Analyzer:     analyzer,
		Config:       cfg,
		Logger:       log,
	}
}

// Routes mounts everything on a fresh chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.Config.Upload.Dir))))
	r.Get("/api/config", h.GetConfig)
	r.Get("/api/pricing", h.GetPricing)
	r.Post("/api/upload", h.Upload)
	r.Post("/api/payment/prepare", h.PreparePayment)
	r.Post("/api/payments/confirm", h.ConfirmPayment)
	r.Get("/api/orders/{orderId}", h.GetOrder)
	r.Get("/api/queue/status", h.QueueStatus)

	r.Group(func(r chi.Router) {
		r.Use(AdminAuth(h.Config.Admin.Key, h.Logger))
		r.Get("/api/admin/orders", h.AdminListOrders)
		r.Put("/api/admin/orders/{orderId}/status", h.AdminOverrideStatus)
		r.Post("/api/admin/orders/{orderId}/delivery", h.AdminAttachDelivery)
		r.Post("/api/admin/send-delivery", h.AdminSendDelivery)
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"publishableKey": h.Config.Payment.StripePublishableKey,
		"baseUrl":        h.Config.Server.BaseURL,
	})
}

func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"packages": catalog.Packages(),
		"addOns":   catalog.AddOns(),
		"currency": catalog.Currency,
	})
}

func (h *Handler) PreparePayment(w http.ResponseWriter, r *http.Request) {
	var req models.PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PreparePayment: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.OrderService.PrepareOrder(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "PreparePayment", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.PrepareResponse{
		Success: true,
		OrderID: created.OrderID,
		Amount:  created.TotalPrice,
	})
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ConfirmPayment: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PaymentKey == "" || req.OrderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "paymentKey and orderId are required")
		return
	}

	confirmed, err := h.OrderService.ConfirmPayment(r.Context(), req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		h.writeServiceError(w, "ConfirmPayment", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.ConfirmResponse{
		Success: true,
		Order:   confirmed,
		Message: "Payment completed",
	})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	h.Logger.Info("API", fmt.Sprintf("GetOrder: orderId=%s", orderID))

	result, err := h.OrderService.GetOrderWithQueue(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, "GetOrder", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.OrderService.QueueStatus(r.Context())
	if err != nil {
		h.writeServiceError(w, "QueueStatus", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, status)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))

	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, order.ErrValidation),
		errors.Is(err, order.ErrAmountMismatch),
		errors.Is(err, order.ErrInvalidTransition):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrDeclined), errors.Is(err, gateway.ErrAmountMismatch):
		utils.WriteError(w, http.StatusBadRequest, "Payment was not approved")
	case errors.Is(err, order.ErrAlreadyPaid):
		utils.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrOrderBusy):
		utils.WriteError(w, http.StatusConflict, err.Error())
	default:
		// External-service and persistence failures: generic, retryable.
		utils.WriteError(w, http.StatusBadGateway, "Something went wrong, please try again")
	}
}
