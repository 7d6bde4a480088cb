package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/albertomartinsanchez/breakfast-backend/internal/handlers"
	"github.com/albertomartinsanchez/breakfast-backend/internal/middleware"
)

func NewRouter(
	saleHandler *handlers.SaleHandler,
	deliveryHandler *handlers.DeliveryHandler,
	portalHandler *handlers.PortalHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	accessLog *middleware.AccessLogMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	r.Use(accessLog.Handler)
	r.Use(middleware.MetricsMiddleware)

	// Ops endpoints
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Owner API - Sales
	salesAPI := r.PathPrefix("/api/sales").Subrouter()
	salesAPI.Use(authMiddleware.Authenticate)
	salesAPI.HandleFunc("", saleHandler.CreateSale).Methods("POST")
	salesAPI.HandleFunc("", saleHandler.ListSales).Methods("GET")
	salesAPI.HandleFunc("/{id}", saleHandler.GetSale).Methods("GET")
	salesAPI.HandleFunc("/{id}", saleHandler.UpdateSale).Methods("PUT")
	salesAPI.HandleFunc("/{id}", saleHandler.PatchSale).Methods("PATCH")
	salesAPI.HandleFunc("/{id}", saleHandler.DeleteSale).Methods("DELETE")
	salesAPI.HandleFunc("/{id}/state", saleHandler.GetSaleState).Methods("GET")

	// Owner API - Deliveries
	salesAPI.HandleFunc("/{id}/deliveries", deliveryHandler.StartDelivery).Methods("POST")
	salesAPI.HandleFunc("/{id}/deliveries", deliveryHandler.GetRoute).Methods("GET")
	salesAPI.HandleFunc("/{id}/deliveries", deliveryHandler.ReorderRoute).Methods("PATCH")
	salesAPI.HandleFunc("/{id}/deliveries/progress", deliveryHandler.GetProgress).Methods("GET")
	salesAPI.HandleFunc("/{id}/deliveries/customers/{customer_id}", deliveryHandler.UpdateDeliveryCustomer).Methods("PATCH")

	// Customer portal (token in path, no owner auth)
	portal := r.PathPrefix("/customer/{token}").Subrouter()
	portal.HandleFunc("", portalHandler.GetCustomerInfo).Methods("GET")
	portal.HandleFunc("/sales/{id}", portalHandler.GetSaleDetail).Methods("GET")
	portal.HandleFunc("/sales/{id}/order", portalHandler.UpdateOrder).Methods("PUT")
	portal.HandleFunc("/sales/{id}/delivery", portalHandler.GetDeliveryStatus).Methods("GET")
	portal.HandleFunc("/sales/{id}/delivery/stream", portalHandler.StreamDeliveryStatus).Methods("GET")
	portal.HandleFunc("/devices", portalHandler.RegisterDevice).Methods("POST")
	portal.HandleFunc("/devices", portalHandler.UnregisterDevice).Methods("DELETE")

	// 404 for everything else
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return r
}
