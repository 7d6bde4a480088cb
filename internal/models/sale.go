package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SaleStatusDraft      SaleStatus = "draft"
	SaleStatusClosed     SaleStatus = "closed"
	SaleStatusInProgress SaleStatus = "in_progress"
	SaleStatusCompleted  SaleStatus = "completed"
)

// Valid reports whether s is a known sale status.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusDraft, SaleStatusClosed, SaleStatusInProgress, SaleStatusCompleted:
		return true
	}
	return false
}

type Sale struct {
	ID        int        `json:"id"`
	AccountID int        `json:"account_id"`
	Date      time.Time  `json:"date"`
	Status    SaleStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []SaleItem `json:"items,omitempty"`
}

// SaleItem is one product line of a customer's order within a sale. Buy and
// sell prices are snapshotted at creation time so historical figures stay
// stable when product prices change later.
type SaleItem struct {
	ID              int             `json:"id"`
	SaleID          int             `json:"sale_id"`
	CustomerID      int             `json:"customer_id"`
	ProductID       int             `json:"product_id"`
	Quantity        int             `json:"quantity"`
	BuyPriceAtSale  decimal.Decimal `json:"buy_price_at_sale"`
	SellPriceAtSale decimal.Decimal `json:"sell_price_at_sale"`

	// Denormalized for responses, populated by joined reads.
	ProductName  string `json:"product_name,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// Revenue is the sell-side value of the line.
func (i SaleItem) Revenue() decimal.Decimal {
	return i.SellPriceAtSale.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Benefit is the per-line margin.
func (i SaleItem) Benefit() decimal.Decimal {
	return i.SellPriceAtSale.Sub(i.BuyPriceAtSale).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SaleItemCreate is one product line in a create/update request.
type SaleItemCreate struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// CustomerSaleCreate groups requested lines per customer.
type CustomerSaleCreate struct {
	CustomerID int              `json:"customer_id"`
	Products   []SaleItemCreate `json:"products"`
}

// CreateSaleRequest represents the request body for creating a sale.
type CreateSaleRequest struct {
	Date          string               `json:"date"`
	CustomerSales []CustomerSaleCreate `json:"customer_sales"`
}

// UpdateSaleRequest replaces a sale's date and all of its items.
type UpdateSaleRequest struct {
	Date          string               `json:"date"`
	CustomerSales []CustomerSaleCreate `json:"customer_sales"`
}

// PatchSaleRequest partially updates a sale (status and/or date).
type PatchSaleRequest struct {
	Status *string `json:"status,omitempty"`
	Date   *string `json:"date,omitempty"`
}

type SaleItemResponse struct {
	ProductID       int             `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	BuyPriceAtSale  decimal.Decimal `json:"buy_price_at_sale"`
	SellPriceAtSale decimal.Decimal `json:"sell_price_at_sale"`
	Benefit         decimal.Decimal `json:"benefit"`
}

type CustomerSaleResponse struct {
	CustomerID   int                `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	Products     []SaleItemResponse `json:"products"`
	TotalBenefit decimal.Decimal    `json:"total_benefit"`
	TotalRevenue decimal.Decimal    `json:"total_revenue"`
}

type SaleResponse struct {
	ID            int                    `json:"id"`
	AccountID     int                    `json:"account_id"`
	Date          string                 `json:"date"`
	Status        SaleStatus             `json:"status"`
	CustomerSales []CustomerSaleResponse `json:"customer_sales"`
	TotalBenefit  decimal.Decimal        `json:"total_benefit"`
	TotalRevenue  decimal.Decimal        `json:"total_revenue"`
}

// SaleStateResponse reports whether a sale is still taking orders.
type SaleStateResponse struct {
	Status         SaleStatus `json:"status"`
	IsOpen         bool       `json:"is_open"`
	HoursRemaining float64    `json:"hours_remaining"`
	CutoffTime     time.Time  `json:"cutoff_time"`
}
