package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

// Store interfaces are declared here, at the consumer, so the state-machine
// and queue logic can be exercised against in-memory implementations. The
// pgx-backed implementations live in internal/repositories.
//
// Conditional operations return a bool reporting whether the guarded write
// matched a row; false means the precondition no longer held at write time
// (e.g. the step was completed concurrently) and the whole operation was
// rolled back.

// SaleStore persists sales and their items.
type SaleStore interface {
	// Create inserts the sale and its items; fills IDs and timestamps.
	Create(ctx context.Context, sale *models.Sale) error
	// Get returns the sale with items (incl. denormalized customer and
	// product names), scoped to the owning account. Nil when absent.
	Get(ctx context.Context, id, accountID int) (*models.Sale, error)
	List(ctx context.Context, accountID int) ([]models.Sale, error)
	// ReplaceItems updates the date and swaps all items in one transaction.
	ReplaceItems(ctx context.Context, sale *models.Sale) error
	// Patch updates status and/or date; nil fields are left untouched.
	Patch(ctx context.Context, id int, status *models.SaleStatus, date *time.Time) error
	Delete(ctx context.Context, id, accountID int) error
	// ReplaceCustomerOrder swaps one customer's items, guarded on the sale
	// still being in draft. Returns false when the sale is no longer open.
	ReplaceCustomerOrder(ctx context.Context, saleID, customerID int, items []models.SaleItem) (bool, error)
}

// DeliveryStore persists delivery steps and runs the queue's guarded,
// multi-statement writes as single transactions.
type DeliveryStore interface {
	// StepsBySale returns all steps ordered by sequence, with customer names.
	StepsBySale(ctx context.Context, saleID int) ([]models.DeliveryStep, error)
	// StepByCustomer returns the step for (sale, customer), nil when absent.
	StepByCustomer(ctx context.Context, saleID, customerID int) (*models.DeliveryStep, error)
	// CreateSteps inserts pre-seeded steps (route drawn before start).
	CreateSteps(ctx context.Context, steps []models.DeliveryStep) error
	// Start inserts newSteps (may be empty when the route was pre-seeded),
	// points is_next at nextCustomerID and moves the sale from closed to
	// in_progress. False when the sale was not closed anymore.
	Start(ctx context.Context, saleID int, newSteps []models.DeliveryStep, nextCustomerID int) (bool, error)
	// Reorder reassigns sequence numbers using a two-phase offset rewrite
	// inside one transaction so per-sale sequence uniqueness never breaks.
	Reorder(ctx context.Context, saleID int, targets []models.RouteTarget) error
	// SetNext clears is_next on every step of the sale and sets it on the
	// target step, guarded on that step still being pending.
	SetNext(ctx context.Context, saleID, customerID int) (bool, error)
	// Complete resolves a pending step: stamps completion, records the
	// collected amount and applied credit, subtracts the credit from the
	// customer's balance and auto-completes the sale when no pending steps
	// remain. newCredit is the customer's balance after the subtraction,
	// read inside the transaction. False when the step was not pending at
	// write time.
	Complete(ctx context.Context, saleID, customerID int, amountCollected, creditApplied decimal.Decimal) (newCredit decimal.Decimal, ok bool, err error)
	// Skip resolves a pending step as skipped; same auto-completion check.
	Skip(ctx context.Context, saleID, customerID int, reason string) (bool, error)
	// Reset moves a completed or skipped step back to pending, restores the
	// exact credit recorded on it and reverts the sale from completed to
	// in_progress when applicable. restored is the credit given back; false
	// when no resettable (non-pending) step matched.
	Reset(ctx context.Context, saleID, customerID int) (restored decimal.Decimal, ok bool, err error)
}

// CustomerStore reads customer records (names, credit).
type CustomerStore interface {
	Get(ctx context.Context, id, accountID int) (*models.Customer, error)
	List(ctx context.Context, accountID int) ([]models.Customer, error)
	ByIDs(ctx context.Context, ids []int) ([]models.Customer, error)
}

// ProductStore reads product records (prices to snapshot).
type ProductStore interface {
	Get(ctx context.Context, id, accountID int) (*models.Product, error)
	List(ctx context.Context, accountID int) ([]models.Product, error)
}

// TokenStore resolves customer access tokens for the portal surface.
type TokenStore interface {
	// CustomerByToken returns the token's customer and stamps last access.
	// Nil when the token is unknown.
	CustomerByToken(ctx context.Context, token string) (*models.Customer, error)
}

// DeviceStore owns push device registrations.
type DeviceStore interface {
	Register(ctx context.Context, customerID int, deviceToken, deviceType string) (*models.PushDevice, error)
	// Unregister deactivates the registration, scoped to the owning
	// customer so one token holder cannot silence another's devices.
	Unregister(ctx context.Context, customerID int, deviceToken string) (bool, error)
}

// StatusCache is a short-TTL cache for customer delivery status snapshots,
// read on every portal status request and stream tick. Implementations must
// be safe to call with a nil backing connection (cache disabled).
type StatusCache interface {
	GetDeliveryStatus(ctx context.Context, saleID, customerID int) (*models.DeliveryStatusSnapshot, bool)
	SetDeliveryStatus(ctx context.Context, saleID, customerID int, snap *models.DeliveryStatusSnapshot)
	// InvalidateSale drops every cached snapshot for the sale; called after
	// any queue mutation so clients never see a stale pointer for long.
	InvalidateSale(ctx context.Context, saleID int)
}
