package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/albertomartinsanchez/breakfast-backend/internal/middleware"
	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
	"github.com/albertomartinsanchez/breakfast-backend/internal/services"
	"github.com/albertomartinsanchez/breakfast-backend/pkg/utils"
)

type DeliveryHandler struct {
	Service *services.DeliveryService
}

func NewDeliveryHandler(s *services.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{Service: s}
}

func (h *DeliveryHandler) StartDelivery(w http.ResponseWriter, r *http.Request) {
	accountID, saleID, ok := deliveryScope(w, r)
	if !ok {
		return
	}

	route, err := h.Service.Start(r.Context(), saleID, accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, route)
}

func (h *DeliveryHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	accountID, saleID, ok := deliveryScope(w, r)
	if !ok {
		return
	}

	route, err := h.Service.Route(r.Context(), saleID, accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, route)
}

func (h *DeliveryHandler) ReorderRoute(w http.ResponseWriter, r *http.Request) {
	accountID, saleID, ok := deliveryScope(w, r)
	if !ok {
		return
	}

	var req models.ReorderRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	route, err := h.Service.Reorder(r.Context(), saleID, accountID, req.Route)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, route)
}

func (h *DeliveryHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	accountID, saleID, ok := deliveryScope(w, r)
	if !ok {
		return
	}

	progress, err := h.Service.Progress(r.Context(), saleID, accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, progress)
}

// UpdateDeliveryCustomer multiplexes the per-customer delivery actions the
// driver app sends as partial updates: point the queue here, complete with
// collected cash, skip with a reason, or reset back to pending.
func (h *DeliveryHandler) UpdateDeliveryCustomer(w http.ResponseWriter, r *http.Request) {
	accountID, saleID, ok := deliveryScope(w, r)
	if !ok {
		return
	}
	customerID, err := strconv.Atoi(mux.Vars(r)["customer_id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var req models.UpdateDeliveryCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch {
	case req.IsNext != nil && *req.IsNext:
		if err := h.Service.SelectNext(r.Context(), saleID, customerID, accountID); err != nil {
			writeServiceError(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]string{"message": "next delivery selected"})

	case req.Status != nil && *req.Status == string(models.StepStatusCompleted):
		if req.AmountCollected == nil {
			utils.Error(w, http.StatusBadRequest, "amount_collected is required to complete a delivery")
			return
		}
		result, err := h.Service.Complete(r.Context(), saleID, customerID, accountID, *req.AmountCollected)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, result)

	case req.Status != nil && *req.Status == string(models.StepStatusSkipped):
		reason := ""
		if req.SkipReason != nil {
			reason = *req.SkipReason
		}
		if err := h.Service.Skip(r.Context(), saleID, customerID, accountID, reason); err != nil {
			writeServiceError(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]string{"message": "delivery skipped"})

	case req.Status != nil && *req.Status == string(models.StepStatusPending):
		if err := h.Service.ResetToPending(r.Context(), saleID, customerID, accountID); err != nil {
			writeServiceError(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]string{"message": "delivery reset to pending"})

	default:
		utils.Error(w, http.StatusBadRequest, "request must set is_next or a valid status")
	}
}

func deliveryScope(w http.ResponseWriter, r *http.Request) (accountID, saleID int, ok bool) {
	accountID, ok = middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "missing account scope")
		return 0, 0, false
	}
	saleID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid sale id")
		return 0, 0, false
	}
	return accountID, saleID, true
}
