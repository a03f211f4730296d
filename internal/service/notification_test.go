package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/recibo/recibo/internal/api/dto"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/testutil"
	"github.com/recibo/recibo/internal/types"
)

type NotificationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        NotificationService
	billingService BillingService
}

func TestNotificationService(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Clock:            s.GetClock(),
		SubRepo:          s.GetStores().SubscriptionRepo,
		PaymentRepo:      s.GetStores().PaymentRepo,
		NotificationRepo: s.GetStores().NotificationRepo,
		AccountGate:      s.GetAccountGate(),
		Cache:            s.GetCache(),
	}
	s.service = NewNotificationService(params)
	s.billingService = NewBillingService(params)
}

// seedOverdueSweep creates an overdue subscription and runs the sweep so
// pending notifications exist
func (s *NotificationServiceSuite) seedOverdueSweep() string {
	subSvc := NewSubscriptionService(ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Clock:            s.GetClock(),
		SubRepo:          s.GetStores().SubscriptionRepo,
		PaymentRepo:      s.GetStores().PaymentRepo,
		NotificationRepo: s.GetStores().NotificationRepo,
		AccountGate:      s.GetAccountGate(),
		Cache:            s.GetCache(),
	})

	created, err := subSvc.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
	})
	s.NoError(err)

	// A month plus three days past the start puts the subscription in the
	// warning band of the sweep
	s.GetClock().Set(created.NextPaymentDate.AddDate(0, 0, 3))
	_, err = s.billingService.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)

	return created.ID
}

func (s *NotificationServiceSuite) TestListPending() {
	subID := s.seedOverdueSweep()

	pending, err := s.service.ListPending(s.GetContext(), 0)
	s.NoError(err)
	s.Equal(1, pending.Total)
	s.Equal(subID, pending.Notifications[0].SubscriptionID)
	s.Equal(types.NotificationTypePagoVencido, pending.Notifications[0].Type)
	s.False(pending.Notifications[0].Sent)
}

func (s *NotificationServiceSuite) TestMarkSent() {
	s.seedOverdueSweep()

	pending, err := s.service.ListPending(s.GetContext(), 10)
	s.NoError(err)
	s.Equal(1, pending.Total)

	id := pending.Notifications[0].ID
	s.NoError(s.service.MarkSent(s.GetContext(), id))

	sent, err := s.GetStores().NotificationRepo.Get(s.GetContext(), id)
	s.NoError(err)
	s.True(sent.Sent)
	s.NotNil(sent.SentAt)
	s.Equal(s.GetClock().Now(), *sent.SentAt)

	// Delivered notifications drop out of the pending queue
	pending, err = s.service.ListPending(s.GetContext(), 10)
	s.NoError(err)
	s.Equal(0, pending.Total)

	// Marking twice is rejected
	s.Error(s.service.MarkSent(s.GetContext(), id))
}

func (s *NotificationServiceSuite) TestListBySubscription() {
	subID := s.seedOverdueSweep()

	resp, err := s.service.ListBySubscription(s.GetContext(), subID)
	s.NoError(err)
	s.Equal(1, resp.Total)

	_, err = s.service.ListBySubscription(s.GetContext(), "subs_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
