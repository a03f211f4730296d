package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/domain/payment"
	"github.com/recibo/recibo/internal/domain/subscription"
	"github.com/recibo/recibo/internal/testutil"
	"github.com/recibo/recibo/internal/types"
)

type StatsServiceSuite struct {
	testutil.BaseServiceTestSuite
	service StatsService
}

func TestStatsService(t *testing.T) {
	suite.Run(t, new(StatsServiceSuite))
}

func (s *StatsServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewStatsService(ServiceParams{
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

func (s *StatsServiceSuite) seedSubscription(userID string, status types.SubscriptionStatus, nextPaymentDate time.Time) *subscription.Subscription {
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

func (s *StatsServiceSuite) seedPayment(sub *subscription.Subscription, paymentDate time.Time, status types.PaymentStatus) {
	p := &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Amount:         s.GetConfig().Billing.MonthlyPrice,
		Method:         types.PaymentMethodEfectivo,
		PaymentStatus:  status,
		PaymentDate:    clock.StartOfDay(paymentDate),
		PeriodStart:    clock.StartOfDay(paymentDate),
		PeriodEnd:      clock.AddMonths(clock.StartOfDay(paymentDate), 1),
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PaymentRepo.Create(s.GetContext(), p))
}

func (s *StatsServiceSuite) TestStatusCounts() {
	today := clock.StartOfDay(s.GetClock().Now())
	s.seedSubscription("user_1", types.SubscriptionStatusActiva, today.AddDate(0, 0, 10))
	s.seedSubscription("user_2", types.SubscriptionStatusActiva, today.AddDate(0, 0, -4))
	s.seedSubscription("user_3", types.SubscriptionStatusSuspendida, today.AddDate(0, 0, -10))
	s.seedSubscription("user_4", types.SubscriptionStatusCancelada, today.AddDate(0, 0, -60))
	s.seedSubscription("user_5", types.SubscriptionStatusPendientePago, today.AddDate(0, 0, 5))

	stats, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	s.Equal(5, stats.TotalSubscriptions)
	s.Equal(2, stats.Active)
	s.Equal(1, stats.Suspended)
	s.Equal(1, stats.Cancelled)
	s.Equal(1, stats.PendingPayment)

	// Overdue counts the active and suspended subscriptions past their due
	// date; the cancelled one never counts
	s.Equal(2, stats.Overdue)
}

func (s *StatsServiceSuite) TestRevenueTotals() {
	today := clock.StartOfDay(s.GetClock().Now())
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, today.AddDate(0, 1, 0))

	s.seedPayment(sub, today, types.PaymentStatusCompletado)
	s.seedPayment(sub, today.AddDate(0, 0, -1), types.PaymentStatusCompletado)
	s.seedPayment(sub, today.AddDate(0, 0, -2), types.PaymentStatusCompletado)

	// Rejected payments never count towards revenue
	s.seedPayment(sub, today, types.PaymentStatusRechazado)

	// Last month's payment counts all-time but not in the current month
	s.seedPayment(sub, today.AddDate(0, -1, 0), types.PaymentStatusCompletado)

	stats, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	price := s.GetConfig().Billing.MonthlyPrice
	s.True(stats.CurrentMonthRevenue.Equal(price.Mul(decimal.NewFromInt(3))),
		"expected 45000, got %s", stats.CurrentMonthRevenue)
	s.Equal(3, stats.CurrentMonthPaymentCount)
	s.True(stats.TotalRevenueAllTime.Equal(price.Mul(decimal.NewFromInt(4))))
}

func (s *StatsServiceSuite) TestMonthlyRevenueSeries() {
	today := clock.StartOfDay(s.GetClock().Now())
	sub := s.seedSubscription("user_1", types.SubscriptionStatusActiva, today.AddDate(0, 1, 0))

	s.seedPayment(sub, today, types.PaymentStatusCompletado)
	s.seedPayment(sub, today.AddDate(0, -1, 0), types.PaymentStatusCompletado)
	s.seedPayment(sub, today.AddDate(0, -11, 0), types.PaymentStatusCompletado)
	// One year back falls off the series
	s.seedPayment(sub, today.AddDate(0, -12, 0), types.PaymentStatusCompletado)

	stats, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)

	s.Len(stats.MonthlyRevenueSeries, 12)

	price := s.GetConfig().Billing.MonthlyPrice
	first := stats.MonthlyRevenueSeries[0]
	last := stats.MonthlyRevenueSeries[11]

	// Oldest first, current month last
	s.Equal(today.AddDate(0, -11, 0).Format("Jan 2006"), first.Label)
	s.Equal(today.Format("Jan 2006"), last.Label)
	s.True(first.Revenue.Equal(price))
	s.True(last.Revenue.Equal(price))
	s.Equal(1, last.PaymentCount)

	// Months with no payments report zero, not a gap
	s.True(stats.MonthlyRevenueSeries[5].Revenue.IsZero())
	s.Equal(0, stats.MonthlyRevenueSeries[5].PaymentCount)
}

func (s *StatsServiceSuite) TestStatisticsAreCached() {
	today := clock.StartOfDay(s.GetClock().Now())
	s.seedSubscription("user_1", types.SubscriptionStatusActiva, today.AddDate(0, 1, 0))

	stats, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)
	s.Equal(1, stats.TotalSubscriptions)

	// A direct store write bypasses invalidation, so the cached aggregate
	// still answers
	s.seedSubscription("user_2", types.SubscriptionStatusActiva, today.AddDate(0, 1, 0))

	cached, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)
	s.Equal(1, cached.TotalSubscriptions)

	// Dropping the cache entry makes the next read recompute
	s.GetCache().Delete(s.GetContext(), "stats:dashboard")
	fresh, err := s.service.GetStatistics(s.GetContext())
	s.NoError(err)
	s.Equal(2, fresh.TotalSubscriptions)
}
