package notification

import (
	"time"

	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/types"
)

// Notification records one dunning/billing event raised for a subscription.
// Sent starts false; the external delivery mechanism flips it. There is no
// uniqueness constraint per (subscription, type, day): rerunning the dunning
// sweep within one day appends duplicate rows, matching historical behaviour.
type Notification struct {
	ID             string                 `json:"id"`
	SubscriptionID string                 `json:"subscription_id"`
	UserID         string                 `json:"user_id"`
	Type           types.NotificationType `json:"type"`
	Message        string                 `json:"message"`
	Sent           bool                   `json:"sent"`
	SentAt         *time.Time             `json:"sent_at,omitempty"`
	// ArrearsDays snapshots the subscription's arrears when the event was raised
	ArrearsDays int `json:"arrears_days"`
	types.BaseModel
}

// Validate validates the notification record
func (n *Notification) Validate() error {
	if n.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Notification must reference a subscription").
			Mark(ierr.ErrValidation)
	}
	if n.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Notification must reference the subscription owner").
			Mark(ierr.ErrValidation)
	}
	if err := n.Type.Validate(); err != nil {
		return err
	}
	if n.Message == "" {
		return ierr.NewError("message is required").
			WithHint("Notification message cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if n.ArrearsDays < 0 {
		return ierr.NewError("arrears_days cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
