package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/recibo/recibo/internal/clock"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/types"
)

// Subscription is the recurring billing relationship of one user. Exactly one
// non-deleted subscription exists per user.
type Subscription struct {
	ID                 string                   `json:"id"`
	UserID             string                   `json:"user_id"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	MonthlyPrice       decimal.Decimal          `json:"monthly_price"`
	StartDate          time.Time                `json:"start_date"`
	NextPaymentDate    time.Time                `json:"next_payment_date"`
	LastPaymentDate    *time.Time               `json:"last_payment_date,omitempty"`
	SuspensionDate     *time.Time               `json:"suspension_date,omitempty"`
	CancellationDate   *time.Time               `json:"cancellation_date,omitempty"`
	MonthsPaid         int                      `json:"months_paid"`
	ArrearsDays        int                      `json:"arrears_days"`
	Notes              string                   `json:"notes,omitempty"`
	// Version implements optimistic locking on concurrent updates
	Version int `json:"version"`
	types.BaseModel
}

// IsActive reports whether the subscription is currently ACTIVA
func (s *Subscription) IsActive() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusActiva
}

// IsOverdue reports whether the next payment date has passed as of today
func (s *Subscription) IsOverdue(today time.Time) bool {
	return s.NextPaymentDate.Before(clock.StartOfDay(today))
}

// ComputeArrearsDays returns the whole days of arrears as of today; 0 when
// the subscription is not overdue.
func (s *Subscription) ComputeArrearsDays(today time.Time) int {
	if !s.IsOverdue(today) {
		return 0
	}
	return clock.DaysBetween(s.NextPaymentDate, today)
}

// Suspend transitions the subscription to SUSPENDIDA. The sweep checks the
// status before calling, so suspending an already suspended or cancelled
// subscription is a caller error and is surfaced, not swallowed.
func (s *Subscription) Suspend(now time.Time) error {
	if s.SubscriptionStatus == types.SubscriptionStatusCancelada {
		return ierr.NewError("cannot suspend a cancelled subscription").
			WithHint("Cancelled subscriptions are terminal").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
				"status":          s.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	if s.SubscriptionStatus == types.SubscriptionStatusSuspendida {
		return ierr.NewError("subscription is already suspended").
			WithHint("Subscription is already suspended").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	s.SubscriptionStatus = types.SubscriptionStatusSuspendida
	suspendedAt := clock.StartOfDay(now)
	s.SuspensionDate = &suspendedAt
	return nil
}

// Cancel transitions the subscription to the terminal CANCELADA state. The
// reason, when given, is recorded on the notes.
func (s *Subscription) Cancel(now time.Time, reason string) error {
	if s.SubscriptionStatus == types.SubscriptionStatusCancelada {
		return ierr.NewError("subscription is already cancelled").
			WithHint("Cancelled subscriptions are terminal").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if reason != "" {
		note := "Cancelada: " + reason
		if s.Notes != "" {
			note = s.Notes + "\n" + note
		}
		s.Notes = note
	}

	s.SubscriptionStatus = types.SubscriptionStatusCancelada
	cancelledAt := clock.StartOfDay(now)
	s.CancellationDate = &cancelledAt
	return nil
}

// Reactivate transitions a SUSPENDIDA subscription back to ACTIVA. Unlike
// the legacy behaviour, reactivation from any other state is rejected.
func (s *Subscription) Reactivate() error {
	if s.SubscriptionStatus != types.SubscriptionStatusSuspendida {
		return ierr.NewErrorf("cannot reactivate subscription in status %s", s.SubscriptionStatus).
			WithHint("Only suspended subscriptions can be reactivated").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
				"status":          s.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	s.SubscriptionStatus = types.SubscriptionStatusActiva
	s.SuspensionDate = nil
	s.ArrearsDays = 0
	return nil
}

// ApplyPayment rolls the subscription forward for a completed payment
// covering periodStart..periodEnd. Any status except CANCELADA becomes
// ACTIVA; arrears and suspension are cleared.
func (s *Subscription) ApplyPayment(paymentDate, periodEnd time.Time) error {
	if s.SubscriptionStatus == types.SubscriptionStatusCancelada {
		return ierr.NewError("cannot apply a payment to a cancelled subscription").
			WithHint("Cancelled subscriptions are terminal").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": s.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	paidAt := clock.StartOfDay(paymentDate)
	s.SubscriptionStatus = types.SubscriptionStatusActiva
	s.LastPaymentDate = &paidAt
	s.NextPaymentDate = clock.StartOfDay(periodEnd)
	s.MonthsPaid++
	s.ArrearsDays = 0
	s.SuspensionDate = nil
	return nil
}

// Validate validates the subscription aggregate
func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Subscription must belong to a user").
			Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if s.MonthlyPrice.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("monthly_price must be positive").
			WithHint("Monthly price must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if s.MonthsPaid < 0 {
		return ierr.NewError("months_paid cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if s.ArrearsDays < 0 {
		return ierr.NewError("arrears_days cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
