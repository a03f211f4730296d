package service

import (
	"context"
	"time"

	"github.com/recibo/recibo/internal/api/dto"
	"github.com/recibo/recibo/internal/cache"
	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/types"
)

// monthlySeriesLength is the number of trailing calendar months in the
// dashboard revenue series, current month included.
const monthlySeriesLength = 12

// statsCacheTTL keeps dashboard reads cheap between writes; any mutation
// invalidates the entry early.
const statsCacheTTL = time.Minute

// StatsService computes the dashboard aggregates
type StatsService interface {
	// GetStatistics returns subscription counts by status, overdue count,
	// revenue totals and the trailing twelve month revenue series
	GetStatistics(ctx context.Context) (*dto.StatisticsResponse, error)
}

type statsService struct {
	ServiceParams
}

// NewStatsService creates a new stats service
func NewStatsService(params ServiceParams) StatsService {
	return &statsService{ServiceParams: params}
}

func (s *statsService) GetStatistics(ctx context.Context) (*dto.StatisticsResponse, error) {
	if s.Cache != nil {
		if value, found := s.Cache.Get(ctx, statsCacheKey); found {
			if resp, ok := cache.UnmarshalValue[dto.StatisticsResponse](value); ok {
				s.Logger.Debugw("statistics served from cache")
				return resp, nil
			}
		}
	}

	resp := &dto.StatisticsResponse{}

	total, err := s.SubRepo.Count(ctx, types.NewSubscriptionFilter())
	if err != nil {
		return nil, err
	}
	resp.TotalSubscriptions = total

	byStatus := []struct {
		status types.SubscriptionStatus
		dest   *int
	}{
		{types.SubscriptionStatusActiva, &resp.Active},
		{types.SubscriptionStatusSuspendida, &resp.Suspended},
		{types.SubscriptionStatusCancelada, &resp.Cancelled},
		{types.SubscriptionStatusPendientePago, &resp.PendingPayment},
	}
	for _, sc := range byStatus {
		filter := types.NewSubscriptionFilter()
		filter.Statuses = []types.SubscriptionStatus{sc.status}
		count, err := s.SubRepo.Count(ctx, filter)
		if err != nil {
			return nil, err
		}
		*sc.dest = count
	}

	today := clock.StartOfDay(s.Clock.Now())
	overdue, err := s.SubRepo.CountOverdue(ctx, today)
	if err != nil {
		return nil, err
	}
	resp.Overdue = overdue

	current, err := s.PaymentRepo.CompletedTotalInMonth(ctx, today.Year(), int(today.Month()))
	if err != nil {
		return nil, err
	}
	resp.CurrentMonthRevenue = current.Revenue
	resp.CurrentMonthPaymentCount = current.Count

	allTime, err := s.PaymentRepo.CompletedTotalAllTime(ctx)
	if err != nil {
		return nil, err
	}
	resp.TotalRevenueAllTime = allTime

	series, err := s.buildMonthlySeries(ctx, today)
	if err != nil {
		return nil, err
	}
	resp.MonthlyRevenueSeries = series

	if s.Cache != nil {
		s.Cache.Set(ctx, statsCacheKey, resp, statsCacheTTL)
	}
	return resp, nil
}

// buildMonthlySeries returns revenue for the trailing twelve calendar months,
// oldest first, current month last.
func (s *statsService) buildMonthlySeries(ctx context.Context, today time.Time) ([]dto.MonthlyRevenue, error) {
	series := make([]dto.MonthlyRevenue, 0, monthlySeriesLength)
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	for i := monthlySeriesLength - 1; i >= 0; i-- {
		month := firstOfMonth.AddDate(0, -i, 0)
		total, err := s.PaymentRepo.CompletedTotalInMonth(ctx, month.Year(), int(month.Month()))
		if err != nil {
			return nil, err
		}
		series = append(series, dto.MonthlyRevenue{
			Label:        month.Format("Jan 2006"),
			Revenue:      total.Revenue,
			PaymentCount: total.Count,
		})
	}
	return series, nil
}
