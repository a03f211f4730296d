package dto

import (
	"time"

	"github.com/recibo/recibo/internal/domain/subscription"
	"github.com/recibo/recibo/internal/validator"
)

// CreateSubscriptionRequest provisions the billing relationship for a newly
// created user account.
type CreateSubscriptionRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CancelSubscriptionRequest carries the optional cancellation reason
type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
	Reason         string `json:"reason,omitempty"`
}

func (r *CancelSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SubscriptionResponse is the subscription view returned to callers, with
// the derived due-date fields the operator screens show.
type SubscriptionResponse struct {
	*subscription.Subscription
	IsOverdue bool `json:"is_overdue"`
	// DaysToDue is negative when the payment is already overdue
	DaysToDue int `json:"days_to_due"`
}

// SweepResult summarizes one dunning sweep run
type SweepResult struct {
	DueToday          int `json:"due_today"`
	Suspended         int `json:"suspended"`
	NotificationsSent int `json:"notifications_sent"`
	// FailedSubscriptionIDs lists subscriptions skipped after an error;
	// their state is untouched and the sweep continued past them
	FailedSubscriptionIDs []string  `json:"failed_subscription_ids,omitempty"`
	RanAt                 time.Time `json:"ran_at"`
}
