package subscription

import (
	"context"
	"time"

	"github.com/recibo/recibo/internal/types"
)

// Repository defines the interface for subscription persistence operations
type Repository interface {
	// Create creates a new subscription; fails with ErrAlreadyExists when the
	// user already has a non-deleted subscription
	Create(ctx context.Context, sub *Subscription) error

	// Get retrieves a subscription by id
	Get(ctx context.Context, id string) (*Subscription, error)

	// GetByUserID retrieves the subscription owned by the given user
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)

	// Update persists the subscription, bumping its version; fails with
	// ErrVersionConflict when the stored version no longer matches
	Update(ctx context.Context, sub *Subscription) error

	// List retrieves subscriptions matching the filter
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)

	// Count returns the number of subscriptions matching the filter
	Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error)

	// ListDueOn returns ACTIVA subscriptions whose next payment date falls on
	// the given day
	ListDueOn(ctx context.Context, day time.Time) ([]*Subscription, error)

	// ListOverdue returns non-cancelled subscriptions whose next payment date
	// is strictly before the given day
	ListOverdue(ctx context.Context, day time.Time) ([]*Subscription, error)

	// ListUpcoming returns ACTIVA subscriptions whose next payment date falls
	// within [from, to] inclusive
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*Subscription, error)

	// CountOverdue returns the number of non-cancelled subscriptions overdue
	// as of the given day
	CountOverdue(ctx context.Context, day time.Time) (int, error)

	// Delete soft-deletes the subscription
	Delete(ctx context.Context, sub *Subscription) error
}
