package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/recibo/recibo/internal/api/dto"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/testutil"
	"github.com/recibo/recibo/internal/types"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionService(s.params())
}

func (s *SubscriptionServiceSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		Clock:            s.GetClock(),
		SubRepo:          stores.SubscriptionRepo,
		PaymentRepo:      stores.PaymentRepo,
		NotificationRepo: stores.NotificationRepo,
		AccountGate:      s.GetAccountGate(),
		Cache:            s.GetCache(),
	}
}

func (s *SubscriptionServiceSuite) createSubscription(userID string) *dto.SubscriptionResponse {
	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: userID,
	})
	s.NoError(err)
	s.NotNil(resp)
	return resp
}

func (s *SubscriptionServiceSuite) TestCreateSubscription() {
	resp := s.createSubscription("user_1")

	s.Equal(types.SubscriptionStatusPendientePago, resp.SubscriptionStatus)
	s.Equal("user_1", resp.UserID)
	s.True(resp.MonthlyPrice.Equal(s.GetConfig().Billing.MonthlyPrice))
	s.Equal(0, resp.MonthsPaid)
	s.Equal(0, resp.ArrearsDays)

	// The first due date is one calendar month after the start date
	s.Equal(resp.StartDate.AddDate(0, 1, 0), resp.NextPaymentDate)

	// The account stays locked out until the first payment lands
	s.False(s.GetAccountGate().IsActive("user_1"))
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionRejectsDuplicateUser() {
	s.createSubscription("user_1")

	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionRequiresUserID() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestGetSubscription() {
	created := s.createSubscription("user_1")

	got, err := s.service.GetSubscription(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.ID, got.ID)
	s.False(got.IsOverdue)

	_, err = s.service.GetSubscription(s.GetContext(), "subs_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestGetSubscriptionByUserID() {
	created := s.createSubscription("user_1")

	got, err := s.service.GetSubscriptionByUserID(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(created.ID, got.ID)

	_, err = s.service.GetSubscriptionByUserID(s.GetContext(), "user_unknown")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestListSubscriptionsByStatus() {
	s.createSubscription("user_1")
	s.createSubscription("user_2")
	sub := s.createSubscription("user_3")

	_, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
		SubscriptionID: sub.ID,
	})
	s.NoError(err)

	filter := types.NewSubscriptionFilter()
	filter.Statuses = []types.SubscriptionStatus{types.SubscriptionStatusPendientePago}
	pending, err := s.service.ListSubscriptions(s.GetContext(), filter)
	s.NoError(err)
	s.Len(pending, 2)

	filter = types.NewSubscriptionFilter()
	filter.Statuses = []types.SubscriptionStatus{types.SubscriptionStatusCancelada}
	cancelled, err := s.service.ListSubscriptions(s.GetContext(), filter)
	s.NoError(err)
	s.Len(cancelled, 1)
	s.Equal(sub.ID, cancelled[0].ID)
}

func (s *SubscriptionServiceSuite) TestSuspend() {
	created := s.createSubscription("user_1")

	// Run past the due date so arrears accumulate
	s.GetClock().Set(created.NextPaymentDate.AddDate(0, 0, 8))

	resp, err := s.service.Suspend(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspendida, resp.SubscriptionStatus)
	s.Equal(8, resp.ArrearsDays)
	s.NotNil(resp.SuspensionDate)
	s.False(s.GetAccountGate().IsActive("user_1"))

	// Suspension raises a notification carrying the arrears
	notifs, err := s.GetStores().NotificationRepo.ListBySubscription(s.GetContext(), created.ID)
	s.NoError(err)
	s.Len(notifs, 1)
	s.Equal(types.NotificationTypeSuspension, notifs[0].Type)
	s.Equal(8, notifs[0].ArrearsDays)
	s.Contains(notifs[0].Message, "8 días de mora")
}

func (s *SubscriptionServiceSuite) TestSuspendTwiceFails() {
	created := s.createSubscription("user_1")
	s.GetClock().AdvanceDays(40)

	_, err := s.service.Suspend(s.GetContext(), created.ID)
	s.NoError(err)

	_, err = s.service.Suspend(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestCancel() {
	created := s.createSubscription("user_1")

	resp, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
		SubscriptionID: created.ID,
		Reason:         "se muda de ciudad",
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelada, resp.SubscriptionStatus)
	s.NotNil(resp.CancellationDate)
	s.Contains(resp.Notes, "se muda de ciudad")
	s.False(s.GetAccountGate().IsActive("user_1"))
}

func (s *SubscriptionServiceSuite) TestCancelIsTerminal() {
	created := s.createSubscription("user_1")

	_, err := s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
		SubscriptionID: created.ID,
	})
	s.NoError(err)

	// No transition leaves CANCELADA
	_, err = s.service.Cancel(s.GetContext(), &dto.CancelSubscriptionRequest{
		SubscriptionID: created.ID,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.Suspend(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	_, err = s.service.Reactivate(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *SubscriptionServiceSuite) TestReactivate() {
	created := s.createSubscription("user_1")
	s.GetClock().AdvanceDays(40)

	_, err := s.service.Suspend(s.GetContext(), created.ID)
	s.NoError(err)
	s.False(s.GetAccountGate().IsActive("user_1"))

	resp, err := s.service.Reactivate(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActiva, resp.SubscriptionStatus)
	s.Nil(resp.SuspensionDate)
	s.True(s.GetAccountGate().IsActive("user_1"))
}

func (s *SubscriptionServiceSuite) TestReactivateRequiresSuspended() {
	created := s.createSubscription("user_1")

	// PENDIENTE_PAGO is not reactivable; only a suspension can be undone
	_, err := s.service.Reactivate(s.GetContext(), created.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
