package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/recibo/recibo/internal/domain/notification"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/types"
)

// InMemoryNotificationStore implements notification.Repository
type InMemoryNotificationStore struct {
	*InMemoryStore[*notification.Notification]
}

// NewInMemoryNotificationStore creates a new in-memory notification store
func NewInMemoryNotificationStore() *InMemoryNotificationStore {
	return &InMemoryNotificationStore{
		InMemoryStore: NewInMemoryStore[*notification.Notification](),
	}
}

func copyNotification(n *notification.Notification) *notification.Notification {
	if n == nil {
		return nil
	}
	copied := *n
	copied.SentAt = copyTimePtr(n.SentAt)
	return &copied
}

func (s *InMemoryNotificationStore) Create(ctx context.Context, n *notification.Notification) error {
	if n == nil {
		return ierr.NewError("notification cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, n.ID, copyNotification(n))
}

func (s *InMemoryNotificationStore) Get(ctx context.Context, id string) (*notification.Notification, error) {
	n, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyNotification(n), nil
}

func (s *InMemoryNotificationStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*notification.Notification, error) {
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *notification.Notification) bool {
		return item.SubscriptionID == subscriptionID && item.Status != types.StatusDeleted
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return lo.Map(items, func(item *notification.Notification, _ int) *notification.Notification {
		return copyNotification(item)
	}), nil
}

func (s *InMemoryNotificationStore) ListPending(ctx context.Context, limit int) ([]*notification.Notification, error) {
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *notification.Notification) bool {
		return !item.Sent && item.Status != types.StatusDeleted
	})
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return lo.Map(items, func(item *notification.Notification, _ int) *notification.Notification {
		return copyNotification(item)
	}), nil
}

func (s *InMemoryNotificationStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	n, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.Sent {
		return ierr.NewErrorf("notification %s is already sent", id).
			Mark(ierr.ErrNotFound)
	}
	n.Sent = true
	n.SentAt = &at
	return s.InMemoryStore.Update(ctx, id, n)
}
