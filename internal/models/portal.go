package models

import "github.com/shopspring/decimal"

// PortalSaleSummary is one row in the customer's sale list.
type PortalSaleSummary struct {
	ID     int        `json:"id"`
	Date   string     `json:"date"`
	Status SaleStatus `json:"status"`
	IsOpen bool       `json:"is_open"`
}

// PortalCustomerInfo is the customer's personal page: identity plus sales.
type PortalCustomerInfo struct {
	CustomerID   int                 `json:"customer_id"`
	CustomerName string              `json:"customer_name"`
	Sales        []PortalSaleSummary `json:"sales"`
}

// PortalProduct is a product as shown on the order form.
type PortalProduct struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SellPrice   decimal.Decimal `json:"sell_price"`
}

// PortalOrderLine is one line of the customer's current order.
type PortalOrderLine struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// PortalSaleDetail is the order form for one sale.
type PortalSaleDetail struct {
	SaleID            int               `json:"sale_id"`
	SaleDate          string            `json:"sale_date"`
	SaleStatus        SaleStatus        `json:"sale_status"`
	IsOpen            bool              `json:"is_open"`
	CustomerID        int               `json:"customer_id"`
	CustomerName      string            `json:"customer_name"`
	AvailableProducts []PortalProduct   `json:"available_products"`
	CurrentOrder      []PortalOrderLine `json:"current_order"`
	OrderTotal        decimal.Decimal   `json:"order_total"`
	Message           string            `json:"message,omitempty"`
}

// PortalOrderItem is one requested line in an order submission.
type PortalOrderItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// UpdateOrderRequest replaces the customer's order for a sale.
type UpdateOrderRequest struct {
	Items []PortalOrderItem `json:"items"`
}

// UpdateOrderResponse reports the outcome of an order submission.
type UpdateOrderResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	OrderTotal decimal.Decimal `json:"order_total"`
	ItemsCount int             `json:"items_count"`
}

// DeliveryStatusSnapshot is the customer-visible delivery status: the
// status-stream ticker emits it whenever the serialized form changes.
type DeliveryStatusSnapshot struct {
	SaleStatus             SaleStatus       `json:"sale_status"`
	CustomerDeliveryStatus StepStatus       `json:"customer_delivery_status"`
	PositionInQueue        *int             `json:"position_in_queue"`
	DeliveriesAhead        *int             `json:"deliveries_ahead"`
	EstimatedMinutes       *int             `json:"estimated_minutes"`
	CompletedAt            *string          `json:"completed_at"`
	AmountCollected        *decimal.Decimal `json:"amount_collected"`
	SkipReason             *string          `json:"skip_reason"`
}
