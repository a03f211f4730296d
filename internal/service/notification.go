package service

import (
	"context"

	"github.com/recibo/recibo/internal/api/dto"
)

// defaultPendingBatchSize bounds one delivery batch
const defaultPendingBatchSize = 100

// NotificationService exposes the delivery queue. Records are written by the
// billing and subscription services; a delivery worker drains them from here.
type NotificationService interface {
	// ListPending returns undelivered notifications, oldest first
	ListPending(ctx context.Context, limit int) (*dto.ListNotificationsResponse, error)

	// ListBySubscription returns a subscription's notification history
	ListBySubscription(ctx context.Context, subscriptionID string) (*dto.ListNotificationsResponse, error)

	// MarkSent flags a notification as delivered
	MarkSent(ctx context.Context, id string) error
}

type notificationService struct {
	ServiceParams
}

// NewNotificationService creates a new notification service
func NewNotificationService(params ServiceParams) NotificationService {
	return &notificationService{ServiceParams: params}
}

func (s *notificationService) ListPending(ctx context.Context, limit int) (*dto.ListNotificationsResponse, error) {
	if limit <= 0 {
		limit = defaultPendingBatchSize
	}
	items, err := s.NotificationRepo.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewListNotificationsResponse(items), nil
}

func (s *notificationService) ListBySubscription(ctx context.Context, subscriptionID string) (*dto.ListNotificationsResponse, error) {
	if _, err := s.SubRepo.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}
	items, err := s.NotificationRepo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	return dto.NewListNotificationsResponse(items), nil
}

func (s *notificationService) MarkSent(ctx context.Context, id string) error {
	if err := s.NotificationRepo.MarkSent(ctx, id, s.Clock.Now()); err != nil {
		return err
	}
	s.Logger.Debugw("notification marked sent", "notification_id", id)
	return nil
}
