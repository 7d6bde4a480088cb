package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StepStatus is the state of one delivery step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusCompleted StepStatus = "completed"
	StepStatusSkipped   StepStatus = "skipped"

	// StepStatusNotScheduled is never persisted; it is reported to portal
	// clients before a delivery step exists for them.
	StepStatusNotScheduled StepStatus = "not_scheduled"
)

// DeliveryStep is one stop on a sale's delivery route. Exactly one step
// exists per (sale, customer) and sequence orders are unique within a sale.
type DeliveryStep struct {
	ID              int              `json:"id"`
	SaleID          int              `json:"sale_id"`
	CustomerID      int              `json:"customer_id"`
	SequenceOrder   int              `json:"sequence_order"`
	Status          StepStatus       `json:"status"`
	IsNext          bool             `json:"is_next"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	AmountCollected *decimal.Decimal `json:"amount_collected,omitempty"`
	CreditApplied   *decimal.Decimal `json:"credit_applied,omitempty"`
	SkipReason      *string          `json:"skip_reason,omitempty"`

	CustomerName string `json:"customer_name,omitempty"`
}

// RouteTarget assigns a sequence position to a customer's step.
type RouteTarget struct {
	CustomerID int `json:"customer_id"`
	Sequence   int `json:"sequence"`
}

// ReorderRouteRequest replaces the route ordering of a sale.
type ReorderRouteRequest struct {
	Route []RouteTarget `json:"route"`
}

// UpdateDeliveryCustomerRequest drives the per-customer delivery actions:
// select as next (is_next), complete (status + amount_collected), skip
// (status + skip_reason) or reset (status = pending).
type UpdateDeliveryCustomerRequest struct {
	IsNext          *bool            `json:"is_next,omitempty"`
	Status          *string          `json:"status,omitempty"`
	AmountCollected *decimal.Decimal `json:"amount_collected,omitempty"`
	SkipReason      *string          `json:"skip_reason,omitempty"`
}

// RouteStop is a delivery step enriched with the customer's order lines,
// totals and the credit that would apply on completion.
type RouteStop struct {
	DeliveryStep
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	CustomerCredit  decimal.Decimal    `json:"customer_credit"`
	CreditToApply   decimal.Decimal    `json:"credit_to_apply"`
	AmountToCollect decimal.Decimal    `json:"amount_to_collect"`
	Items           []SaleItemResponse `json:"items"`
}

// DeliveryProgress summarizes a sale's route: per-status counts, money
// totals and the currently pointed-to stop, if any.
type DeliveryProgress struct {
	TotalDeliveries    int             `json:"total_deliveries"`
	CompletedCount     int             `json:"completed_count"`
	PendingCount       int             `json:"pending_count"`
	SkippedCount       int             `json:"skipped_count"`
	TotalCollected     decimal.Decimal `json:"total_collected"`
	TotalCreditApplied decimal.Decimal `json:"total_credit_applied"`
	TotalExpected      decimal.Decimal `json:"total_expected"`
	TotalSkippedAmount decimal.Decimal `json:"total_skipped_amount"`
	CurrentDelivery    *RouteStop      `json:"current_delivery,omitempty"`
	PendingDeliveries  []RouteStop     `json:"pending_deliveries"`
}

// CompleteDeliveryResult is returned from a completion so callers can
// reconcile the collected cash against the computed totals.
type CompleteDeliveryResult struct {
	TotalOrderAmount  decimal.Decimal `json:"total_order_amount"`
	CreditApplied     decimal.Decimal `json:"credit_applied"`
	AmountCollected   decimal.Decimal `json:"amount_collected"`
	NewCustomerCredit decimal.Decimal `json:"new_customer_credit"`
}
