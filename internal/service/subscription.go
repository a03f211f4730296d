package service

import (
	"context"
	"fmt"

	"github.com/recibo/recibo/internal/api/dto"
	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/domain/subscription"
	"github.com/recibo/recibo/internal/types"
)

// SubscriptionService owns the subscription lifecycle: provisioning and the
// suspend/cancel/reactivate transitions, each applied together with its user
// activation side effect as one atomic unit.
type SubscriptionService interface {
	// CreateSubscription provisions the billing relationship for a new user.
	// The subscription starts PENDIENTE_PAGO and the user is deactivated
	// until the first payment lands.
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)

	// GetSubscription retrieves a subscription by id with derived due fields
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)

	// GetSubscriptionByUserID retrieves the subscription owned by a user
	GetSubscriptionByUserID(ctx context.Context, userID string) (*dto.SubscriptionResponse, error)

	// ListSubscriptions lists subscriptions matching the filter
	ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) ([]*dto.SubscriptionResponse, error)

	// Suspend suspends a subscription for non-payment and deactivates the
	// owning user
	Suspend(ctx context.Context, id string) (*dto.SubscriptionResponse, error)

	// Cancel cancels a subscription (terminal) and deactivates the owning user
	Cancel(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error)

	// Reactivate returns a suspended subscription to ACTIVA and reactivates
	// the owning user
	Reactivate(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	today := clock.StartOfDay(s.Clock.Now())
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:             req.UserID,
		SubscriptionStatus: types.SubscriptionStatusPendientePago,
		MonthlyPrice:       s.Config.Billing.MonthlyPrice,
		StartDate:          today,
		NextPaymentDate:    clock.AddMonths(today, 1),
		MonthsPaid:         0,
		ArrearsDays:        0,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return err
		}
		// The account stays locked out until the first payment
		return s.AccountGate.Deactivate(ctx, sub.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription created",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"next_payment_date", sub.NextPaymentDate)

	s.invalidateStatsCache(ctx)
	return s.toResponse(sub), nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(sub), nil
}

func (s *subscriptionService) GetSubscriptionByUserID(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) ([]*dto.SubscriptionResponse, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.SubscriptionResponse, len(subs))
	for i, sub := range subs {
		responses[i] = s.toResponse(sub)
	}
	return responses, nil
}

func (s *subscriptionService) Suspend(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	now := s.Clock.Now()
	var sub *subscription.Subscription

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.NewSubscriptionLockRequest(id)); err != nil {
			return err
		}

		var err error
		sub, err = s.SubRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		sub.ArrearsDays = sub.ComputeArrearsDays(now)
		if err := sub.Suspend(now); err != nil {
			return err
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		if err := s.AccountGate.Deactivate(ctx, sub.UserID); err != nil {
			return err
		}

		msg := fmt.Sprintf(
			"Tu cuenta ha sido suspendida por falta de pago. Tienes %d días de mora.",
			sub.ArrearsDays)
		return s.recordNotification(ctx, sub, types.NotificationTypeSuspension, msg)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription suspended",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"arrears_days", sub.ArrearsDays)

	s.invalidateStatsCache(ctx)
	return s.toResponse(sub), nil
}

func (s *subscriptionService) Cancel(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	var sub *subscription.Subscription

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.NewSubscriptionLockRequest(req.SubscriptionID)); err != nil {
			return err
		}

		var err error
		sub, err = s.SubRepo.Get(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}

		if err := sub.Cancel(now, req.Reason); err != nil {
			return err
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.AccountGate.Deactivate(ctx, sub.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription cancelled",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"reason", req.Reason)

	s.invalidateStatsCache(ctx)
	return s.toResponse(sub), nil
}

func (s *subscriptionService) Reactivate(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	var sub *subscription.Subscription

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.NewSubscriptionLockRequest(id)); err != nil {
			return err
		}

		var err error
		sub, err = s.SubRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		if err := sub.Reactivate(); err != nil {
			return err
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.AccountGate.Activate(ctx, sub.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription reactivated",
		"subscription_id", sub.ID,
		"user_id", sub.UserID)

	s.invalidateStatsCache(ctx)
	return s.toResponse(sub), nil
}

func (s *subscriptionService) toResponse(sub *subscription.Subscription) *dto.SubscriptionResponse {
	today := s.Clock.Now()
	return &dto.SubscriptionResponse{
		Subscription: sub,
		IsOverdue:    sub.IsOverdue(today),
		DaysToDue:    clock.DaysBetween(today, sub.NextPaymentDate),
	}
}
