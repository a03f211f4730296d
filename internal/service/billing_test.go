package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/recibo/recibo/internal/api/dto"
	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/domain/notification"
	"github.com/recibo/recibo/internal/domain/subscription"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/testutil"
	"github.com/recibo/recibo/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewBillingService(ServiceParams{
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
}

// seedSubscription inserts a subscription with the given status and due date
func (s *BillingServiceSuite) seedSubscription(userID string, status types.SubscriptionStatus, nextPaymentDate time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:             userID,
		SubscriptionStatus: status,
		MonthlyPrice:       s.GetConfig().Billing.MonthlyPrice,
		StartDate:          nextPaymentDate.AddDate(0, -1, 0),
		NextPaymentDate:    nextPaymentDate,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *BillingServiceSuite) today() time.Time {
	return clock.StartOfDay(s.GetClock().Now())
}

func (s *BillingServiceSuite) notificationsFor(subID string) []*notification.Notification {
	notifs, err := s.GetStores().NotificationRepo.ListBySubscription(s.GetContext(), subID)
	s.NoError(err)
	return notifs
}

func (s *BillingServiceSuite) registerPayment(subID string) *dto.PaymentResponse {
	resp, err := s.service.RegisterPayment(s.GetContext(), &dto.RegisterPaymentRequest{
		SubscriptionID: subID,
		Amount:         s.GetConfig().Billing.MonthlyPrice,
		Method:         types.PaymentMethodSinpe,
	})
	s.NoError(err)
	s.NotNil(resp)
	return resp
}

func (s *BillingServiceSuite) TestRegisterFirstPayment() {
	due := s.today()
	sub := s.seedSubscription("user_1", types.SubscriptionStatusPendientePago, due)

	resp := s.registerPayment(sub.ID)

	s.Equal(sub.ID, resp.SubscriptionID)
	s.Equal("user_1", resp.UserID)
	s.Equal(types.PaymentStatusCompletado, resp.PaymentStatus)
	s.Equal(due, resp.PeriodStart)
	s.Equal(due.AddDate(0, 1, 0), resp.PeriodEnd)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActiva, updated.SubscriptionStatus)
	s.Equal(1, updated.MonthsPaid)
	s.Equal(0, updated.ArrearsDays)
	s.Equal(due.AddDate(0, 1, 0), updated.NextPaymentDate)
	s.Equal(s.today(), lo.FromPtr(updated.LastPaymentDate))

	// The account unlocks with the payment
	s.True(s.GetAccountGate().IsActive("user_1"))

	notifs := s.notificationsFor(sub.ID)
	s.Len(notifs, 1)
	s.Equal(types.NotificationTypePagoRecibido, notifs[0].Type)
	s.Contains(notifs[0].Message, "Pago recibido por ₡15,000.00")
	s.Contains(notifs[0].Message, updated.NextPaymentDate.Format("02/01/2006"))
}

func (s *BillingServiceSuite) TestRegisterPaymentAdvancesPeriodFromDueDate() {
	// Paying early still advances from the due date, not from today
	due := s.today().AddDate(0, 0, 10)
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, due)

	s.registerPayment(sub.ID)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(due.AddDate(0, 1, 0), updated.NextPaymentDate)
}

func (s *BillingServiceSuite) TestRegisterPaymentClampsMonthEnd() {
	due := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	s.GetClock().Set(due)
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, due)
	sub.MonthsPaid = 3
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	s.registerPayment(sub.ID)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), updated.NextPaymentDate)
	s.Equal(4, updated.MonthsPaid)
}

func (s *BillingServiceSuite) TestRegisterPaymentReactivatesSuspended() {
	due := s.today().AddDate(0, 0, -10)
	sub := s.seedSubscription("user_1", types.SubscriptionStatusSuspendida, due)
	suspendedAt := due.AddDate(0, 0, 7)
	sub.SuspensionDate = &suspendedAt
	sub.ArrearsDays = 10
	s.NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), sub))

	s.registerPayment(sub.ID)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActiva, updated.SubscriptionStatus)
	s.Equal(0, updated.ArrearsDays)
	s.Nil(updated.SuspensionDate)
	s.True(s.GetAccountGate().IsActive("user_1"))
}

func (s *BillingServiceSuite) TestRegisterPaymentOnCancelledFails() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusCancelada, s.today())

	_, err := s.service.RegisterPayment(s.GetContext(), &dto.RegisterPaymentRequest{
		SubscriptionID: sub.ID,
		Amount:         s.GetConfig().Billing.MonthlyPrice,
		Method:         types.PaymentMethodEfectivo,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// The rejected payment leaves no ledger entry behind in-memory either;
	// the transaction would roll it back in production, here the subscription
	// state is checked before any side effect is observable
	updated, getErr := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(getErr)
	s.Equal(types.SubscriptionStatusCancelada, updated.SubscriptionStatus)
}

func (s *BillingServiceSuite) TestRegisterPaymentValidation() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today())

	_, err := s.service.RegisterPayment(s.GetContext(), &dto.RegisterPaymentRequest{
		SubscriptionID: sub.ID,
		Amount:         s.GetConfig().Billing.MonthlyPrice.Neg(),
		Method:         types.PaymentMethodEfectivo,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.RegisterPayment(s.GetContext(), &dto.RegisterPaymentRequest{
		SubscriptionID: sub.ID,
		Amount:         s.GetConfig().Billing.MonthlyPrice,
		Method:         types.PaymentMethod("CHEQUE"),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingServiceSuite) TestSweepDueToday() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today())

	result, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Equal(1, result.DueToday)
	s.Equal(0, result.Suspended)
	s.Empty(result.FailedSubscriptionIDs)

	notifs := s.notificationsFor(sub.ID)
	hoy, found := lo.Find(notifs, func(n *notification.Notification) bool {
		return n.Type == types.NotificationTypeVencimientoHoy
	})
	s.True(found)
	s.Equal("Tu pago vence hoy. Por favor realiza tu pago de ₡15,000.00 para mantener tu cuenta activa.", hoy.Message)
}

func (s *BillingServiceSuite) TestSweepDueTodayAlsoGetsUpcomingNotice() {
	// A subscription due today falls inside the upcoming window too and
	// receives both notices, matching how the passes have always stacked
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today())

	_, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)

	notifs := s.notificationsFor(sub.ID)
	s.Len(notifs, 2)
	notifTypes := lo.Map(notifs, func(n *notification.Notification, _ int) types.NotificationType { return n.Type })
	s.Contains(notifTypes, types.NotificationTypeVencimientoHoy)
	s.Contains(notifTypes, types.NotificationTypeProximoVencimiento)
}

func (s *BillingServiceSuite) TestSweepOverdueBelowThreshold() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today().AddDate(0, 0, -6))

	result, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Equal(0, result.Suspended)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActiva, updated.SubscriptionStatus)
	s.Equal(6, updated.ArrearsDays)

	notifs := s.notificationsFor(sub.ID)
	s.Len(notifs, 1)
	s.Equal(types.NotificationTypePagoVencido, notifs[0].Type)
	s.Equal("Tu pago está vencido. Llevas 6 días de mora. Por favor paga antes de que tu cuenta sea suspendida.", notifs[0].Message)
}

func (s *BillingServiceSuite) TestSweepSuspendsAtThreshold() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today().AddDate(0, 0, -7))

	result, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Equal(1, result.Suspended)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspendida, updated.SubscriptionStatus)
	s.Equal(7, updated.ArrearsDays)
	s.NotNil(updated.SuspensionDate)
	s.False(s.GetAccountGate().IsActive("user_1"))

	notifs := s.notificationsFor(sub.ID)
	s.Len(notifs, 1)
	s.Equal(types.NotificationTypeSuspension, notifs[0].Type)
	s.Equal("Tu cuenta ha sido suspendida por falta de pago. Tienes 7 días de mora.", notifs[0].Message)
}

func (s *BillingServiceSuite) TestSweepRefreshesArrearsOnAlreadySuspended() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusSuspendida, s.today().AddDate(0, 0, -12))

	result, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Equal(0, result.Suspended)

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspendida, updated.SubscriptionStatus)
	s.Equal(12, updated.ArrearsDays)

	// No repeat suspension notice
	s.Empty(s.notificationsFor(sub.ID))
}

func (s *BillingServiceSuite) TestSweepSkipsCancelled() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusCancelada, s.today().AddDate(0, 0, -30))

	result, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Equal(0, result.DueToday)
	s.Equal(0, result.Suspended)
	s.Equal(0, result.NotificationsSent)
	s.Empty(s.notificationsFor(sub.ID))
}

func (s *BillingServiceSuite) TestSweepUpcomingWindow() {
	inWindow := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today().AddDate(0, 0, 3))
	outOfWindow := s.seedSubscription("user_2", types.SubscriptionStatusActiva, s.today().AddDate(0, 0, 4))

	_, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)

	notifs := s.notificationsFor(inWindow.ID)
	s.Len(notifs, 1)
	s.Equal(types.NotificationTypeProximoVencimiento, notifs[0].Type)
	s.Contains(notifs[0].Message, "Tu pago vence en 3 días")
	s.Contains(notifs[0].Message, inWindow.NextPaymentDate.Format("02/01/2006"))
	s.Contains(notifs[0].Message, "₡15,000.00")

	s.Empty(s.notificationsFor(outOfWindow.ID))
}

func (s *BillingServiceSuite) TestSweepRerunDuplicatesNotifications() {
	// The sweep keeps no memory of earlier runs within the same day; running
	// it twice doubles the notices
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today().AddDate(0, 0, -3))

	_, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Len(s.notificationsFor(sub.ID), 1)

	_, err = s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Len(s.notificationsFor(sub.ID), 2)
}

func (s *BillingServiceSuite) TestSweepIsolatesFailures() {
	failing := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today().AddDate(0, 0, -8))
	healthy := s.seedSubscription("user_2", types.SubscriptionStatusActiva, s.today().AddDate(0, 0, -9))

	// The first deactivation call fails; the suspension of the other
	// subscription must still land
	s.GetAccountGate().FailNext = ierr.NewError("user service unavailable").Mark(ierr.ErrDatabase)

	result, err := s.service.RunDunningSweep(s.GetContext(), s.GetClock().Now())
	s.NoError(err)
	s.Equal(1, result.Suspended)
	s.Len(result.FailedSubscriptionIDs, 1)

	failedID := result.FailedSubscriptionIDs[0]
	okID := healthy.ID
	if failedID == healthy.ID {
		okID = failing.ID
	}

	suspended, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), okID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspendida, suspended.SubscriptionStatus)
}

func (s *BillingServiceSuite) TestGetPaymentHistory() {
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, s.today())

	s.registerPayment(sub.ID)
	s.GetClock().AdvanceDays(31)
	s.registerPayment(sub.ID)

	history, err := s.service.GetPaymentHistory(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Len(history.Payments, 2)
	s.Equal(2, history.Summary.TotalPayments)
	s.True(history.Summary.CompletedTotal.Equal(s.GetConfig().Billing.MonthlyPrice.Mul(decimal.NewFromInt(2))))
	s.Equal(2, history.Summary.MethodCounts[types.PaymentMethodSinpe])

	// Newest first
	s.True(history.Payments[0].PaymentDate.After(history.Payments[1].PaymentDate))
}

func (s *BillingServiceSuite) TestGetPaymentHistoryUnknownSubscription() {
	_, err := s.service.GetPaymentHistory(s.GetContext(), "subs_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingServiceSuite) TestListPaymentMethods() {
	resp := s.service.ListPaymentMethods(s.GetContext())
	s.Len(resp.Methods, 5)
	s.Equal("SINPE Móvil", resp.Methods[types.PaymentMethodSinpe])
}
