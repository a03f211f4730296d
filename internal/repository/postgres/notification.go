package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/recibo/recibo/internal/domain/notification"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/postgres"
	"github.com/recibo/recibo/internal/types"
)

const notificationColumns = `id, subscription_id, user_id, type, message, sent, sent_at,
	arrears_days, created_at, updated_at`

type notificationRepository struct {
	db  *postgres.Client
	log *logger.Logger
}

// NewNotificationRepository creates a postgres-backed notification recorder
func NewNotificationRepository(db *postgres.Client, log *logger.Logger) notification.Repository {
	return &notificationRepository{db: db, log: log}
}

func (r *notificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO payment_notifications (
			id, subscription_id, user_id, type, message, sent, sent_at,
			arrears_days, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Querier(ctx).Exec(ctx, query,
		n.ID,
		n.SubscriptionID,
		n.UserID,
		n.Type,
		n.Message,
		n.Sent,
		n.SentAt,
		n.ArrearsDays,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record notification").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": n.SubscriptionID,
				"type":            n.Type,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id string) (*notification.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_notifications WHERE id = $1`, notificationColumns)
	n, err := scanNotification(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.NewError("notification not found").
				WithHint("Notification not found").
				WithReportableDetails(map[string]interface{}{
					"notification_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get notification").
			Mark(ierr.ErrDatabase)
	}
	return n, nil
}

func (r *notificationRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*notification.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_notifications
		WHERE subscription_id = $1
		ORDER BY created_at DESC
	`, notificationColumns)
	return r.queryMany(ctx, query, subscriptionID)
}

func (r *notificationRepository) ListPending(ctx context.Context, limit int) ([]*notification.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payment_notifications
		WHERE sent = false
		ORDER BY created_at ASC
	`, notificationColumns)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return r.queryMany(ctx, query)
}

func (r *notificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE payment_notifications
		SET sent = true, sent_at = $1, updated_at = $1
		WHERE id = $2 AND sent = false
	`
	tag, err := r.db.Querier(ctx).Exec(ctx, query, at, id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark notification as sent").
			Mark(ierr.ErrDatabase)
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("notification not found or already sent").
			WithHint("Notification not found or already sent").
			WithReportableDetails(map[string]interface{}{
				"notification_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *notificationRepository) queryMany(ctx context.Context, query string, args ...any) ([]*notification.Notification, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list notifications").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan notification row").
				Mark(ierr.ErrDatabase)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate notification rows").
			Mark(ierr.ErrDatabase)
	}
	return notifications, nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(
		&n.ID,
		&n.SubscriptionID,
		&n.UserID,
		&n.Type,
		&n.Message,
		&n.Sent,
		&n.SentAt,
		&n.ArrearsDays,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.BaseModel.Status = types.StatusPublished
	return &n, nil
}
