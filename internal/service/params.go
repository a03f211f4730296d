package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/recibo/recibo/internal/cache"
	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/config"
	"github.com/recibo/recibo/internal/domain/notification"
	"github.com/recibo/recibo/internal/domain/payment"
	"github.com/recibo/recibo/internal/domain/subscription"
	"github.com/recibo/recibo/internal/domain/user"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/postgres"
	"github.com/recibo/recibo/internal/types"
)

// ServiceParams bundles the dependencies every service needs. Services embed
// it so constructors stay stable as dependencies grow.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Clock  clock.Clock

	SubRepo          subscription.Repository
	PaymentRepo      payment.Repository
	NotificationRepo notification.Repository
	AccountGate      user.AccountGate

	Cache cache.Cache
}

// statsCacheKey is the dashboard aggregate cache entry; any write that moves
// the numbers deletes it.
const statsCacheKey = "stats:dashboard"

func (p ServiceParams) invalidateStatsCache(ctx context.Context) {
	if p.Cache != nil {
		p.Cache.Delete(ctx, statsCacheKey)
	}
}

// recordNotification appends a billing event for the subscription, snapshotting
// its current arrears.
func (p ServiceParams) recordNotification(ctx context.Context, sub *subscription.Subscription, typ types.NotificationType, message string) error {
	n := &notification.Notification{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Type:           typ,
		Message:        message,
		Sent:           false,
		ArrearsDays:    sub.ArrearsDays,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	return p.NotificationRepo.Create(ctx, n)
}

// formatAmount renders a money amount with thousands separators and two
// decimals, matching the notification copy operators are used to
// (e.g. 15000 -> "15,000.00").
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := b.String() + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// formatDate renders a day-granularity date the way the notification copy
// shows it (dd/mm/yyyy).
func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
