package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/recibo/recibo/internal/domain/payment"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/postgres"
	"github.com/recibo/recibo/internal/types"
)

const paymentColumns = `id, subscription_id, user_id, amount, method, status, payment_date,
	period_start, period_end, reference_number, notes, recorded_by, created_at, updated_at`

type paymentRepository struct {
	db  *postgres.Client
	log *logger.Logger
}

// NewPaymentRepository creates a postgres-backed payment ledger
func NewPaymentRepository(db *postgres.Client, log *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, log: log}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (
			id, subscription_id, user_id, amount, method, status, payment_date,
			period_start, period_end, reference_number, notes, recorded_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Querier(ctx).Exec(ctx, query,
		p.ID,
		p.SubscriptionID,
		p.UserID,
		p.Amount,
		p.Method,
		p.PaymentStatus,
		p.PaymentDate,
		p.PeriodStart,
		p.PeriodEnd,
		nullableString(p.ReferenceNumber),
		nullableString(p.Notes),
		nullableString(p.RecordedBy),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": p.SubscriptionID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1 AND deleted_at IS NULL`, paymentColumns)
	p, err := scanPayment(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.NewError("payment not found").
				WithHint("Payment not found").
				WithReportableDetails(map[string]interface{}{
					"payment_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return p, nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}

	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	if len(filter.PaymentIDs) > 0 {
		args = append(args, filter.PaymentIDs)
		conds = append(conds, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(filter.SubscriptionIDs) > 0 {
		args = append(args, filter.SubscriptionIDs)
		conds = append(conds, fmt.Sprintf("subscription_id = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conds = append(conds, fmt.Sprintf("EXTRACT(YEAR FROM payment_date) = $%d", len(args)))
	}
	if filter.Month != nil {
		args = append(args, *filter.Month)
		conds = append(conds, fmt.Sprintf("EXTRACT(MONTH FROM payment_date) = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s ORDER BY payment_date DESC, created_at DESC`,
		paymentColumns, strings.Join(conds, " AND "))
	if !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	return r.queryMany(ctx, query, args...)
}

func (r *paymentRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*payment.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM payments
		WHERE subscription_id = $1 AND deleted_at IS NULL
		ORDER BY payment_date DESC, created_at DESC
	`, paymentColumns)
	return r.queryMany(ctx, query, subscriptionID)
}

func (r *paymentRepository) CompletedTotalInMonth(ctx context.Context, year int, month int) (*payment.MonthlyTotal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM payments
		WHERE deleted_at IS NULL
		  AND status = $1
		  AND EXTRACT(YEAR FROM payment_date) = $2
		  AND EXTRACT(MONTH FROM payment_date) = $3
	`
	total := &payment.MonthlyTotal{Year: year, Month: month}
	err := r.db.Querier(ctx).QueryRow(ctx, query, types.PaymentStatusCompletado, year, month).
		Scan(&total.Revenue, &total.Count)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to sum monthly payments").
			WithReportableDetails(map[string]interface{}{
				"year":  year,
				"month": month,
			}).
			Mark(ierr.ErrDatabase)
	}
	return total, nil
}

func (r *paymentRepository) CompletedTotalAllTime(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE deleted_at IS NULL AND status = $1
	`
	var total decimal.Decimal
	if err := r.db.Querier(ctx).QueryRow(ctx, query, types.PaymentStatusCompletado).Scan(&total); err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to sum payments").
			Mark(ierr.ErrDatabase)
	}
	return total, nil
}

func (r *paymentRepository) queryMany(ctx context.Context, query string, args ...any) ([]*payment.Payment, error) {
	rows, err := r.db.Querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan payment row").
				Mark(ierr.ErrDatabase)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate payment rows").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var (
		p          payment.Payment
		reference  *string
		notes      *string
		recordedBy *string
	)
	err := row.Scan(
		&p.ID,
		&p.SubscriptionID,
		&p.UserID,
		&p.Amount,
		&p.Method,
		&p.PaymentStatus,
		&p.PaymentDate,
		&p.PeriodStart,
		&p.PeriodEnd,
		&reference,
		&notes,
		&recordedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reference != nil {
		p.ReferenceNumber = *reference
	}
	if notes != nil {
		p.Notes = *notes
	}
	if recordedBy != nil {
		p.RecordedBy = *recordedBy
	}
	p.BaseModel.Status = types.StatusPublished
	return &p, nil
}
