package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/recibo/recibo/internal/types"
)

// MonthlyTotal aggregates completed payments for one calendar month
type MonthlyTotal struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

// Repository defines the interface for payment ledger operations. The ledger
// is append-only; there is deliberately no Update.
type Repository interface {
	// Create appends a payment to the ledger
	Create(ctx context.Context, p *Payment) error

	// Get retrieves a payment by id
	Get(ctx context.Context, id string) (*Payment, error)

	// List retrieves payments matching the filter, newest first
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)

	// ListBySubscription retrieves all payments of a subscription, newest first
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Payment, error)

	// CompletedTotalInMonth sums completed payments whose payment date falls
	// in the given calendar month
	CompletedTotalInMonth(ctx context.Context, year int, month int) (*MonthlyTotal, error)

	// CompletedTotalAllTime sums all completed payments in the ledger
	CompletedTotalAllTime(ctx context.Context) (decimal.Decimal, error)
}
