package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/domain/subscription"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}

	copied := *sub
	copied.LastPaymentDate = copyTimePtr(sub.LastPaymentDate)
	copied.SuspensionDate = copyTimePtr(sub.SuspensionDate)
	copied.CancellationDate = copyTimePtr(sub.CancellationDate)
	return &copied
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	existing := s.InMemoryStore.List(ctx, func(_ context.Context, item *subscription.Subscription) bool {
		return item.UserID == sub.UserID && item.Status != types.StatusDeleted
	})
	if len(existing) > 0 {
		return ierr.NewErrorf("user %s already has a subscription", sub.UserID).
			WithHint("A user can only have one subscription").
			Mark(ierr.ErrAlreadyExists)
	}

	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == types.StatusDeleted {
		return nil, ierr.NewErrorf("subscription not found with id %s", id).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(_ context.Context, item *subscription.Subscription) bool {
		return item.UserID == userID && item.Status != types.StatusDeleted
	})
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("subscription not found for user %s", userID).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(matches[0]), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	stored, err := s.InMemoryStore.Get(ctx, sub.ID)
	if err != nil {
		return err
	}
	if stored.Version != sub.Version {
		return ierr.NewErrorf("subscription %s was modified concurrently", sub.ID).
			WithHint("Reload the subscription and retry").
			Mark(ierr.ErrVersionConflict)
	}

	sub.Version++
	return s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	items := s.InMemoryStore.List(ctx, subscriptionFilterFn(filter))

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if filter != nil && !filter.IsUnlimited() {
		offset := filter.GetOffset()
		if offset >= len(items) {
			return nil, nil
		}
		items = items[offset:]
		if limit := filter.GetLimit(); limit > 0 && limit < len(items) {
			items = items[:limit]
		}
	}

	return lo.Map(items, func(item *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(item)
	}), nil
}

func (s *InMemorySubscriptionStore) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, subscriptionFilterFn(filter)), nil
}

func (s *InMemorySubscriptionStore) ListDueOn(ctx context.Context, day time.Time) ([]*subscription.Subscription, error) {
	day = clock.StartOfDay(day)
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *subscription.Subscription) bool {
		return item.Status != types.StatusDeleted &&
			item.SubscriptionStatus == types.SubscriptionStatusActiva &&
			clock.SameDay(item.NextPaymentDate, day)
	})
	return copyAllSubscriptions(items), nil
}

func (s *InMemorySubscriptionStore) ListOverdue(ctx context.Context, day time.Time) ([]*subscription.Subscription, error) {
	day = clock.StartOfDay(day)
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *subscription.Subscription) bool {
		return item.Status != types.StatusDeleted &&
			item.SubscriptionStatus != types.SubscriptionStatusCancelada &&
			clock.StartOfDay(item.NextPaymentDate).Before(day)
	})
	return copyAllSubscriptions(items), nil
}

func (s *InMemorySubscriptionStore) ListUpcoming(ctx context.Context, from, to time.Time) ([]*subscription.Subscription, error) {
	from = clock.StartOfDay(from)
	to = clock.StartOfDay(to)
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *subscription.Subscription) bool {
		due := clock.StartOfDay(item.NextPaymentDate)
		return item.Status != types.StatusDeleted &&
			item.SubscriptionStatus == types.SubscriptionStatusActiva &&
			!due.Before(from) && !due.After(to)
	})
	return copyAllSubscriptions(items), nil
}

func (s *InMemorySubscriptionStore) CountOverdue(ctx context.Context, day time.Time) (int, error) {
	items, err := s.ListOverdue(ctx, day)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *InMemorySubscriptionStore) Delete(ctx context.Context, sub *subscription.Subscription) error {
	stored, err := s.InMemoryStore.Get(ctx, sub.ID)
	if err != nil {
		return err
	}
	stored.Status = types.StatusDeleted
	return s.InMemoryStore.Update(ctx, sub.ID, stored)
}

func subscriptionFilterFn(filter *types.SubscriptionFilter) func(context.Context, *subscription.Subscription) bool {
	return func(_ context.Context, item *subscription.Subscription) bool {
		if item.Status == types.StatusDeleted {
			return false
		}
		if filter == nil {
			return true
		}
		if len(filter.SubscriptionIDs) > 0 && !lo.Contains(filter.SubscriptionIDs, item.ID) {
			return false
		}
		if len(filter.UserIDs) > 0 && !lo.Contains(filter.UserIDs, item.UserID) {
			return false
		}
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, item.SubscriptionStatus) {
			return false
		}
		if filter.WithArrears != nil && *filter.WithArrears != (item.ArrearsDays > 0) {
			return false
		}
		return true
	}
}

func copyAllSubscriptions(items []*subscription.Subscription) []*subscription.Subscription {
	sort.Slice(items, func(i, j int) bool {
		if items[i].NextPaymentDate.Equal(items[j].NextPaymentDate) {
			return items[i].ID < items[j].ID
		}
		return items[i].NextPaymentDate.Before(items[j].NextPaymentDate)
	})
	return lo.Map(items, func(item *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(item)
	})
}
