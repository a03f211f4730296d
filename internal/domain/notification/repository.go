package notification

import (
	"context"
	"time"
)

// Repository defines the interface for notification recording operations
type Repository interface {
	// Create appends a notification record
	Create(ctx context.Context, n *Notification) error

	// Get retrieves a notification by id
	Get(ctx context.Context, id string) (*Notification, error)

	// ListBySubscription retrieves all notifications of a subscription,
	// newest first
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Notification, error)

	// ListPending retrieves notifications not yet delivered, oldest first
	ListPending(ctx context.Context, limit int) ([]*Notification, error)

	// MarkSent flags a notification as delivered at the given time
	MarkSent(ctx context.Context, id string, at time.Time) error
}
