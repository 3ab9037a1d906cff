package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusApproved  Status = "APPROVED"
	StatusCompleted Status = "COMPLETED"
)

// Order is the view of a provider order this system cares about:
// status, captured money, and the optional item reference the buyer
// chose at checkout.
type Order struct {
	ID       string
	Status   Status
	Amount   decimal.Decimal
	Currency string
	// CustomID optionally names a catalog item requested at checkout.
	CustomID string
}

// Verifier confirms purchases. GetOrder reads the current state;
// CaptureOrder finalizes an approved order into a completed one.
type Verifier interface {
	GetOrder(ctx context.Context, id string) (Order, error)
	CaptureOrder(ctx context.Context, id string) (Order, error)
}
