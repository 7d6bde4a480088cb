package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a delivery recipient. Credit is a non-negative running balance
// mutated only by delivery completion and reset.
type Customer struct {
	ID        int             `json:"id"`
	AccountID int             `json:"account_id"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Phone     string          `json:"phone"`
	Credit    decimal.Decimal `json:"credit"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CustomerAccessToken is the opaque token a customer uses for the public
// portal endpoints. One token per customer.
type CustomerAccessToken struct {
	ID             int        `json:"id"`
	CustomerID     int        `json:"customer_id"`
	AccessToken    string     `json:"access_token"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}
