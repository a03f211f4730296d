package payment

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/types"
)

// Payment is one recorded payment event. Payments are append-only: once
// created they are never mutated, only soft-deleted with their subscription.
type Payment struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	// UserID is denormalized from the subscription for ledger queries
	UserID          string              `json:"user_id"`
	Amount          decimal.Decimal     `json:"amount"`
	Method          types.PaymentMethod `json:"method"`
	PaymentStatus   types.PaymentStatus `json:"payment_status"`
	PaymentDate     time.Time           `json:"payment_date"`
	PeriodStart     time.Time           `json:"period_start"`
	PeriodEnd       time.Time           `json:"period_end"`
	ReferenceNumber string              `json:"reference_number,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	// RecordedBy is the staff user that entered the payment
	RecordedBy string `json:"recorded_by,omitempty"`
	types.BaseModel
}

// IsCompleted reports whether the payment counts towards revenue
func (p *Payment) IsCompleted() bool {
	return p.PaymentStatus == types.PaymentStatusCompletado
}

// Validate validates the payment record
func (p *Payment) Validate() error {
	if p.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Payment must reference a subscription").
			Mark(ierr.ErrValidation)
	}
	if p.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Payment must reference the subscription owner").
			Mark(ierr.ErrValidation)
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]interface{}{
				"amount": p.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if err := p.Method.Validate(); err != nil {
		return err
	}
	if err := p.PaymentStatus.Validate(); err != nil {
		return err
	}
	if !p.PeriodEnd.After(p.PeriodStart) {
		return ierr.NewError("period_end must be after period_start").
			WithHint("Payment period must span at least one day").
			Mark(ierr.ErrValidation)
	}
	return nil
}
