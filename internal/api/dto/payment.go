package dto

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recibo/recibo/internal/domain/payment"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/types"
	"github.com/recibo/recibo/internal/validator"
)

// RegisterPaymentRequest is the already-validated command to record a manual
// payment against a subscription.
type RegisterPaymentRequest struct {
	SubscriptionID  string              `json:"subscription_id" validate:"required"`
	Amount          decimal.Decimal     `json:"amount" validate:"required"`
	Method          types.PaymentMethod `json:"method" validate:"required"`
	PaymentDate     *time.Time          `json:"payment_date,omitempty"`
	ReferenceNumber string              `json:"reference_number,omitempty" validate:"omitempty,max=100"`
	Notes           string              `json:"notes,omitempty"`
}

func (r *RegisterPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]interface{}{
				"amount": r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	return r.Method.Validate()
}

// PaymentResponse is the payment record returned to callers
type PaymentResponse struct {
	*payment.Payment
}

// NewPaymentResponse wraps a payment into a response
func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{Payment: p}
}

// PaymentHistoryResponse is the per-subscription ledger view
type PaymentHistoryResponse struct {
	Payments []*PaymentResponse    `json:"payments"`
	Summary  PaymentHistorySummary `json:"summary"`
}

// PaymentHistorySummary aggregates a subscription's ledger
type PaymentHistorySummary struct {
	TotalPayments  int                         `json:"total_payments"`
	CompletedTotal decimal.Decimal             `json:"completed_total"`
	MethodCounts   map[types.PaymentMethod]int `json:"method_counts"`
}

// ListPaymentMethodsResponse exposes the payment method catalog
type ListPaymentMethodsResponse struct {
	Methods map[types.PaymentMethod]string `json:"methods"`
}

// ToPayment builds the ledger record for this request. The caller supplies
// the resolved period and owner since those come off the subscription.
func (r *RegisterPaymentRequest) ToPayment(ctx context.Context, userID string, paymentDate, periodStart, periodEnd time.Time) *payment.Payment {
	return &payment.Payment{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		SubscriptionID:  r.SubscriptionID,
		UserID:          userID,
		Amount:          r.Amount,
		Method:          r.Method,
		PaymentStatus:   types.PaymentStatusCompletado,
		PaymentDate:     paymentDate,
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		RecordedBy:      types.GetUserID(ctx),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}
