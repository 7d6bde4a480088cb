package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/albertomartinsanchez/breakfast-backend/internal/metrics"
	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
	"github.com/albertomartinsanchez/breakfast-backend/internal/services"
	"github.com/albertomartinsanchez/breakfast-backend/internal/stream"
	"github.com/albertomartinsanchez/breakfast-backend/pkg/utils"
)

// PortalHandler serves the token-scoped customer endpoints, including the
// websocket delivery status stream.
type PortalHandler struct {
	Service      *services.PortalService
	Logger       *zap.Logger
	PollInterval time.Duration

	upgrader websocket.Upgrader
}

func NewPortalHandler(s *services.PortalService, logger *zap.Logger, pollInterval time.Duration) *PortalHandler {
	return &PortalHandler{
		Service:      s,
		Logger:       logger,
		PollInterval: pollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The access token in the path is the auth; origin checks
			// would break the mobile webview clients.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *PortalHandler) GetCustomerInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.CustomerInfo(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, info)
}

func (h *PortalHandler) GetSaleDetail(w http.ResponseWriter, r *http.Request) {
	token, saleID, ok := portalScope(w, r)
	if !ok {
		return
	}

	detail, err := h.Service.SaleDetail(r.Context(), token, saleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, detail)
}

func (h *PortalHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	token, saleID, ok := portalScope(w, r)
	if !ok {
		return
	}

	var req models.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Service.SubmitOrder(r.Context(), token, saleID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *PortalHandler) GetDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	token, saleID, ok := portalScope(w, r)
	if !ok {
		return
	}

	snap, err := h.Service.DeliveryStatus(r.Context(), token, saleID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, snap)
}

// StreamDeliveryStatus upgrades to a websocket and runs the polling loop
// until the client disconnects or the token or sale stops resolving.
func (h *PortalHandler) StreamDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	token, saleID, ok := portalScope(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}
	defer conn.Close()

	streamID := uuid.NewString()
	metrics.ActiveStatusStreams.Inc()
	defer metrics.ActiveStatusStreams.Dec()
	h.Logger.Info("status stream opened",
		zap.String("stream_id", streamID),
		zap.Int("sale_id", saleID))

	ctx, cancel := stream.WithDisconnect(r.Context(), conn)
	defer cancel()

	poller := &stream.Poller{
		Interval: h.PollInterval,
		Logger:   h.Logger,
		Fetch: func(ctx context.Context) (interface{}, error) {
			return h.Service.DeliveryStatus(ctx, token, saleID)
		},
	}
	err = poller.Run(ctx, func(data []byte) error {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, data)
	})
	if err != nil {
		h.Logger.Info("status stream closed on error",
			zap.String("stream_id", streamID),
			zap.Int("sale_id", saleID),
			zap.Error(err))
		return
	}
	h.Logger.Info("status stream closed",
		zap.String("stream_id", streamID),
		zap.Int("sale_id", saleID))
}

func (h *PortalHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	device, err := h.Service.RegisterDevice(r.Context(), mux.Vars(r)["token"], req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, device)
}

func (h *PortalHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	var req models.UnregisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.UnregisterDevice(r.Context(), mux.Vars(r)["token"], req); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "device unregistered"})
}

func portalScope(w http.ResponseWriter, r *http.Request) (token string, saleID int, ok bool) {
	vars := mux.Vars(r)
	token = vars["token"]
	saleID, err := strconv.Atoi(vars["id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid sale id")
		return "", 0, false
	}
	return token, saleID, true
}
