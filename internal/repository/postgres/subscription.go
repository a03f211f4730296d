package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/recibo/recibo/internal/domain/subscription"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/postgres"
	"github.com/recibo/recibo/internal/types"
)

const subscriptionColumns = `id, user_id, status, monthly_price, start_date, next_payment_date,
	last_payment_date, suspension_date, cancellation_date, months_paid, arrears_days,
	notes, version, created_at, updated_at, created_by, updated_by`

type subscriptionRepository struct {
	db  *postgres.Client
	log *logger.Logger
}

// NewSubscriptionRepository creates a postgres-backed subscription repository
func NewSubscriptionRepository(db *postgres.Client, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, log: log}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, status, monthly_price, start_date, next_payment_date,
			last_payment_date, suspension_date, cancellation_date, months_paid,
			arrears_days, notes, version, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.Querier(ctx).Exec(ctx, query,
		sub.ID,
		sub.UserID,
		sub.SubscriptionStatus,
		sub.MonthlyPrice,
		sub.StartDate,
		sub.NextPaymentDate,
		sub.LastPaymentDate,
		sub.SuspensionDate,
		sub.CancellationDate,
		sub.MonthsPaid,
		sub.ArrearsDays,
		nullableString(sub.Notes),
		sub.Version,
		sub.CreatedAt,
		sub.UpdatedAt,
		nullableString(sub.CreatedBy),
		nullableString(sub.UpdatedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("User already has a subscription").
				WithReportableDetails(map[string]interface{}{
					"user_id": sub.UserID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE id = $1 AND deleted_at IS NULL`, subscriptionColumns)
	sub, err := scanSubscription(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHint("Subscription not found").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return sub, nil
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE user_id = $1 AND deleted_at IS NULL`, subscriptionColumns)
	sub, err := scanSubscription(r.db.Querier(ctx).QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.NewError("subscription not found for user").
				WithHint("User has no subscription").
				WithReportableDetails(map[string]interface{}{
					"user_id": userID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription by user").
			Mark(ierr.ErrDatabase)
	}
	return sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `
		UPDATE subscriptions SET
			status = $1,
			monthly_price = $2,
			next_payment_date = $3,
			last_payment_date = $4,
			suspension_date = $5,
			cancellation_date = $6,
			months_paid = $7,
			arrears_days = $8,
			notes = $9,
			version = version + 1,
			updated_at = $10,
			updated_by = $11
		WHERE id = $12 AND version = $13 AND deleted_at IS NULL
	`
	now := time.Now().UTC()
	tag, err := r.db.Querier(ctx).Exec(ctx, query,
		sub.SubscriptionStatus,
		sub.MonthlyPrice,
		sub.NextPaymentDate,
		sub.LastPaymentDate,
		sub.SuspensionDate,
		sub.CancellationDate,
		sub.MonthsPaid,
		sub.ArrearsDays,
		nullableString(sub.Notes),
		now,
		nullableString(types.GetUserID(ctx)),
		sub.ID,
		sub.Version,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("subscription was modified concurrently").
			WithHint("Retry the operation").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"version":         sub.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}
	sub.Version++
	sub.UpdatedAt = now
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}

	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	if len(filter.SubscriptionIDs) > 0 {
		args = append(args, filter.SubscriptionIDs)
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(filter.UserIDs) > 0 {
		args = append(args, filter.UserIDs)
		conds = append(conds, fmt.Sprintf("user_id = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.WithArrears != nil && *filter.WithArrears {
		conds = append(conds, "arrears_days > 0")
	}

	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE %s ORDER BY %s %s`,
		subscriptionColumns,
		strings.Join(conds, " AND "),
		sanitizeSortColumn(filter.GetSort(), "created_at", "next_payment_date", "start_date", "arrears_days"),
		sanitizeSortOrder(filter.GetOrder()),
	)
	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	return r.queryMany(ctx, query, args...)
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	if filter != nil && len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM subscriptions WHERE %s`, strings.Join(conds, " AND "))
	var count int
	if err := r.db.Querier(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *subscriptionRepository) ListDueOn(ctx context.Context, day time.Time) ([]*subscription.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE deleted_at IS NULL AND status = $1 AND next_payment_date = $2::date
		ORDER BY next_payment_date ASC
	`, subscriptionColumns)
	return r.queryMany(ctx, query, types.SubscriptionStatusActiva, day)
}

func (r *subscriptionRepository) ListOverdue(ctx context.Context, day time.Time) ([]*subscription.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE deleted_at IS NULL AND status != $1 AND next_payment_date < $2::date
		ORDER BY next_payment_date ASC
	`, subscriptionColumns)
	return r.queryMany(ctx, query, types.SubscriptionStatusCancelada, day)
}

func (r *subscriptionRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]*subscription.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE deleted_at IS NULL AND status = $1
		  AND next_payment_date BETWEEN $2::date AND $3::date
		ORDER BY next_payment_date ASC
	`, subscriptionColumns)
	return r.queryMany(ctx, query, types.SubscriptionStatusActiva, from, to)
}

func (r *subscriptionRepository) CountOverdue(ctx context.Context, day time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM subscriptions
		WHERE deleted_at IS NULL AND status != $1 AND next_payment_date < $2::date
	`
	var count int
	if err := r.db.Querier(ctx).QueryRow(ctx, query, types.SubscriptionStatusCancelada, day).Scan(&count); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count overdue subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, sub *subscription.Subscription) error {
	query := `UPDATE subscriptions SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	tag, err := r.db.Querier(ctx).Exec(ctx, query, time.Now().UTC(), sub.ID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete subscription").
			Mark(ierr.ErrDatabase)
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) queryMany(ctx context.Context, query string, args ...any) ([]*subscription.Subscription, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription row").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate subscription rows").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub       subscription.Subscription
		notes     *string
		createdBy *string
		updatedBy *string
	)
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.SubscriptionStatus,
		&sub.MonthlyPrice,
		&sub.StartDate,
		&sub.NextPaymentDate,
		&sub.LastPaymentDate,
		&sub.SuspensionDate,
		&sub.CancellationDate,
		&sub.MonthsPaid,
		&sub.ArrearsDays,
		&notes,
		&sub.Version,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&createdBy,
		&updatedBy,
	)
	if err != nil {
		return nil, err
	}
	if notes != nil {
		sub.Notes = *notes
	}
	if createdBy != nil {
		sub.CreatedBy = *createdBy
	}
	if updatedBy != nil {
		sub.UpdatedBy = *updatedBy
	}
	sub.BaseModel.Status = types.StatusPublished
	return &sub, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sanitizeSortColumn(requested string, allowed ...string) string {
	for _, col := range allowed {
		if requested == col {
			return col
		}
	}
	return "created_at"
}

func sanitizeSortOrder(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
