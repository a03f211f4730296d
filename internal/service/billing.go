package service

import (
	"context"
	"fmt"
	"time"

	"github.com/recibo/recibo/internal/api/dto"
	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/domain/payment"
	"github.com/recibo/recibo/internal/types"
)

// BillingService is the orchestrator for payment registration and the
// periodic dunning sweep.
type BillingService interface {
	// RegisterPayment records a manual payment, rolls the subscription
	// forward one period and reactivates the owning user. All writes are one
	// atomic unit.
	RegisterPayment(ctx context.Context, req *dto.RegisterPaymentRequest) (*dto.PaymentResponse, error)

	// RunDunningSweep classifies every subscription into due-today, overdue
	// or upcoming as of the given date, suspending and notifying as needed.
	// A failure on one subscription is isolated; the sweep continues.
	RunDunningSweep(ctx context.Context, asOf time.Time) (*dto.SweepResult, error)

	// GetPaymentHistory returns a subscription's ledger with a summary
	GetPaymentHistory(ctx context.Context, subscriptionID string) (*dto.PaymentHistoryResponse, error)

	// ListPaymentMethods returns the payment method catalog
	ListPaymentMethods(ctx context.Context) *dto.ListPaymentMethodsResponse
}

type billingService struct {
	ServiceParams
}

// NewBillingService creates a new billing service
func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (s *billingService) RegisterPayment(ctx context.Context, req *dto.RegisterPaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	var p *payment.Payment

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Serialize against concurrent registrations on the same subscription
		// so monthsPaid/nextPaymentDate never lose an update
		if err := s.DB.LockKey(ctx, types.NewSubscriptionLockRequest(req.SubscriptionID)); err != nil {
			return err
		}

		sub, err := s.SubRepo.Get(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}

		// The payment covers one calendar month starting at the current due
		// date; a subscription that never had a due date starts from today
		periodStart := sub.NextPaymentDate
		if periodStart.IsZero() {
			periodStart = clock.StartOfDay(now)
		}
		periodEnd := clock.AddMonths(periodStart, 1)

		paymentDate := clock.StartOfDay(now)
		if req.PaymentDate != nil {
			paymentDate = clock.StartOfDay(*req.PaymentDate)
		}

		p = req.ToPayment(ctx, sub.UserID, paymentDate, periodStart, periodEnd)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.PaymentRepo.Create(ctx, p); err != nil {
			return err
		}

		if err := sub.ApplyPayment(paymentDate, periodEnd); err != nil {
			return err
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		if err := s.AccountGate.Activate(ctx, sub.UserID); err != nil {
			return err
		}

		msg := fmt.Sprintf("Pago recibido por %s%s. Tu suscripción está activa hasta %s",
			s.Config.Billing.CurrencySymbol,
			formatAmount(p.Amount),
			formatDate(periodEnd))
		return s.recordNotification(ctx, sub, types.NotificationTypePagoRecibido, msg)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("payment registered",
		"payment_id", p.ID,
		"subscription_id", p.SubscriptionID,
		"amount", p.Amount,
		"method", p.Method,
		"period_end", p.PeriodEnd)

	s.invalidateStatsCache(ctx)
	return dto.NewPaymentResponse(p), nil
}

// RunDunningSweep runs the three dunning passes. Each subscription is
// processed in its own transaction; the sweep never rolls back work already
// done for other subscriptions.
func (s *billingService) RunDunningSweep(ctx context.Context, asOf time.Time) (*dto.SweepResult, error) {
	today := clock.StartOfDay(asOf)
	result := &dto.SweepResult{RanAt: s.Clock.Now()}

	s.Logger.Infow("starting dunning sweep", "as_of", today.Format("2006-01-02"))

	s.sweepDueToday(ctx, today, result)
	s.sweepOverdue(ctx, today, result)
	s.sweepUpcoming(ctx, today, result)

	s.Logger.Infow("dunning sweep completed",
		"due_today", result.DueToday,
		"suspended", result.Suspended,
		"notifications_sent", result.NotificationsSent,
		"failed", len(result.FailedSubscriptionIDs))

	s.invalidateStatsCache(ctx)
	return result, nil
}

// sweepDueToday notifies ACTIVA subscriptions whose payment is due today
func (s *billingService) sweepDueToday(ctx context.Context, today time.Time, result *dto.SweepResult) {
	subs, err := s.SubRepo.ListDueOn(ctx, today)
	if err != nil {
		s.Logger.Errorw("failed to list subscriptions due today", "error", err)
		return
	}

	for _, sub := range subs {
		msg := fmt.Sprintf(
			"Tu pago vence hoy. Por favor realiza tu pago de %s%s para mantener tu cuenta activa.",
			s.Config.Billing.CurrencySymbol,
			formatAmount(sub.MonthlyPrice))

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			return s.recordNotification(ctx, sub, types.NotificationTypeVencimientoHoy, msg)
		})
		if err != nil {
			s.Logger.Errorw("failed to notify due-today subscription",
				"subscription_id", sub.ID, "error", err)
			result.FailedSubscriptionIDs = append(result.FailedSubscriptionIDs, sub.ID)
			continue
		}
		result.DueToday++
	}
}

// sweepOverdue refreshes arrears on every overdue subscription, suspending
// those past the threshold and warning the rest.
func (s *billingService) sweepOverdue(ctx context.Context, today time.Time, result *dto.SweepResult) {
	subs, err := s.SubRepo.ListOverdue(ctx, today)
	if err != nil {
		s.Logger.Errorw("failed to list overdue subscriptions", "error", err)
		return
	}

	threshold := s.Config.Billing.SuspensionThresholdDays
	for _, sub := range subs {
		arrears := sub.ComputeArrearsDays(today)

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			if err := s.DB.LockKey(ctx, types.NewSubscriptionLockRequest(sub.ID)); err != nil {
				return err
			}

			sub.ArrearsDays = arrears

			switch {
			case arrears >= threshold && sub.SubscriptionStatus != types.SubscriptionStatusSuspendida:
				if err := sub.Suspend(today); err != nil {
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
				if err := s.recordNotification(ctx, sub, types.NotificationTypeSuspension, msg); err != nil {
					return err
				}
				result.Suspended++

			case arrears > 0 && arrears < threshold:
				if err := s.SubRepo.Update(ctx, sub); err != nil {
					return err
				}
				msg := fmt.Sprintf(
					"Tu pago está vencido. Llevas %d días de mora. Por favor paga antes de que tu cuenta sea suspendida.",
					arrears)
				if err := s.recordNotification(ctx, sub, types.NotificationTypePagoVencido, msg); err != nil {
					return err
				}
				result.NotificationsSent++

			default:
				// Already suspended past the threshold: just persist the
				// refreshed arrears counter
				return s.SubRepo.Update(ctx, sub)
			}
			return nil
		})
		if err != nil {
			s.Logger.Errorw("failed to process overdue subscription",
				"subscription_id", sub.ID, "arrears_days", arrears, "error", err)
			result.FailedSubscriptionIDs = append(result.FailedSubscriptionIDs, sub.ID)
		}
	}
}

// sweepUpcoming warns ACTIVA subscriptions due within the configured window
func (s *billingService) sweepUpcoming(ctx context.Context, today time.Time, result *dto.SweepResult) {
	window := s.Config.Billing.UpcomingWindowDays
	subs, err := s.SubRepo.ListUpcoming(ctx, today, today.AddDate(0, 0, window))
	if err != nil {
		s.Logger.Errorw("failed to list upcoming subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		daysLeft := clock.DaysBetween(today, sub.NextPaymentDate)
		msg := fmt.Sprintf(
			"Tu pago vence en %d días (el %s). Por favor realiza tu pago de %s%s.",
			daysLeft,
			formatDate(sub.NextPaymentDate),
			s.Config.Billing.CurrencySymbol,
			formatAmount(sub.MonthlyPrice))

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			return s.recordNotification(ctx, sub, types.NotificationTypeProximoVencimiento, msg)
		})
		if err != nil {
			s.Logger.Errorw("failed to notify upcoming subscription",
				"subscription_id", sub.ID, "error", err)
			result.FailedSubscriptionIDs = append(result.FailedSubscriptionIDs, sub.ID)
			continue
		}
		result.NotificationsSent++
	}
}

func (s *billingService) GetPaymentHistory(ctx context.Context, subscriptionID string) (*dto.PaymentHistoryResponse, error) {
	if _, err := s.SubRepo.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.PaymentHistoryResponse{
		Payments: make([]*dto.PaymentResponse, len(payments)),
		Summary: dto.PaymentHistorySummary{
			TotalPayments: len(payments),
			MethodCounts:  make(map[types.PaymentMethod]int),
		},
	}
	for i, p := range payments {
		resp.Payments[i] = dto.NewPaymentResponse(p)
		resp.Summary.MethodCounts[p.Method]++
		if p.IsCompleted() {
			resp.Summary.CompletedTotal = resp.Summary.CompletedTotal.Add(p.Amount)
		}
	}
	return resp, nil
}

func (s *billingService) ListPaymentMethods(ctx context.Context) *dto.ListPaymentMethodsResponse {
	return &dto.ListPaymentMethodsResponse{Methods: types.PaymentMethodLabels()}
}
