package testutil

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/recibo/recibo/internal/domain/payment"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/types"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

// NewInMemoryPaymentStore creates a new in-memory payment store
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	items := s.InMemoryStore.List(ctx, paymentFilterFn(filter))
	sortPaymentsNewestFirst(items)

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

	return lo.Map(items, func(item *payment.Payment, _ int) *payment.Payment {
		return copyPayment(item)
	}), nil
}

func (s *InMemoryPaymentStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*payment.Payment, error) {
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *payment.Payment) bool {
		return item.SubscriptionID == subscriptionID && item.Status != types.StatusDeleted
	})
	sortPaymentsNewestFirst(items)
	return lo.Map(items, func(item *payment.Payment, _ int) *payment.Payment {
		return copyPayment(item)
	}), nil
}

func (s *InMemoryPaymentStore) CompletedTotalInMonth(ctx context.Context, year int, month int) (*payment.MonthlyTotal, error) {
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *payment.Payment) bool {
		return item.Status != types.StatusDeleted &&
			item.IsCompleted() &&
			item.PaymentDate.Year() == year &&
			int(item.PaymentDate.Month()) == month
	})

	total := &payment.MonthlyTotal{Year: year, Month: month, Revenue: decimal.Zero}
	for _, p := range items {
		total.Revenue = total.Revenue.Add(p.Amount)
		total.Count++
	}
	return total, nil
}

func (s *InMemoryPaymentStore) CompletedTotalAllTime(ctx context.Context) (decimal.Decimal, error) {
	items := s.InMemoryStore.List(ctx, func(_ context.Context, item *payment.Payment) bool {
		return item.Status != types.StatusDeleted && item.IsCompleted()
	})

	total := decimal.Zero
	for _, p := range items {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func paymentFilterFn(filter *types.PaymentFilter) func(context.Context, *payment.Payment) bool {
	return func(_ context.Context, item *payment.Payment) bool {
		if item.Status == types.StatusDeleted {
			return false
		}
		if filter == nil {
			return true
		}
		if len(filter.PaymentIDs) > 0 && !lo.Contains(filter.PaymentIDs, item.ID) {
			return false
		}
		if len(filter.SubscriptionIDs) > 0 && !lo.Contains(filter.SubscriptionIDs, item.SubscriptionID) {
			return false
		}
		if len(filter.Statuses) > 0 && !lo.Contains(filter.Statuses, item.PaymentStatus) {
			return false
		}
		if filter.Year != nil && item.PaymentDate.Year() != *filter.Year {
			return false
		}
		if filter.Month != nil && int(item.PaymentDate.Month()) != *filter.Month {
			return false
		}
		return true
	}
}

func sortPaymentsNewestFirst(items []*payment.Payment) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].PaymentDate.Equal(items[j].PaymentDate) {
			return items[i].ID > items[j].ID
		}
		return items[i].PaymentDate.After(items[j].PaymentDate)
	})
}
