package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"santamoment/internal/models"
	"santamoment/internal/utils"
)

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.OrderService.ListOrdersWithStats(r.Context())
	if err != nil {
		h.writeServiceError(w, "AdminListOrders", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) AdminOverrideStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var req models.StatusOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.OrderService.OverrideStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeServiceError(w, "AdminOverrideStatus", err)
		return
	}

	h.Logger.LogOrder("STATUS", orderID, fmt.Sprintf("Status set to %s", updated.Status))
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) AdminAttachDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var req models.AttachDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.OrderService.AttachDelivery(r.Context(), orderID, req.Files)
	if err != nil {
		h.writeServiceError(w, "AdminAttachDelivery", err)
		return
	}

	h.Logger.LogOrder("DELIVERY", orderID, fmt.Sprintf("Attached %d file(s)", len(req.Files)))
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) AdminSendDelivery(w http.ResponseWriter, r *http.Request) {
	var req models.SendDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OrderID == "" {
		utils.WriteError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	updated, err := h.OrderService.SendDelivery(r.Context(), req.OrderID, req.Link)
	if err != nil {
		h.writeServiceError(w, "AdminSendDelivery", err)
		return
	}

	h.Logger.LogOrder("DELIVERY", req.OrderID, "Delivery sent, order completed")
	utils.WriteJSON(w, http.StatusOK, updated)
}
