package postgres

import (
	"context"
	"time"

	"github.com/recibo/recibo/internal/domain/user"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/postgres"
)

type userAccountGate struct {
	db  *postgres.Client
	log *logger.Logger
}

// NewUserAccountGate creates the postgres-backed account gate. It only ever
// touches the is_active flag; the rest of the users table belongs to user
// management.
func NewUserAccountGate(db *postgres.Client, log *logger.Logger) user.AccountGate {
	return &userAccountGate{db: db, log: log}
}

func (g *userAccountGate) Activate(ctx context.Context, userID string) error {
	return g.setActive(ctx, userID, true)
}

func (g *userAccountGate) Deactivate(ctx context.Context, userID string) error {
	return g.setActive(ctx, userID, false)
}

func (g *userAccountGate) setActive(ctx context.Context, userID string, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3 AND deleted_at IS NULL`
	tag, err := g.db.Querier(ctx).Exec(ctx, query, active, time.Now().UTC(), userID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update user active flag").
			WithReportableDetails(map[string]interface{}{
				"user_id": userID,
				"active":  active,
			}).
			Mark(ierr.ErrDatabase)
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewError("user not found").
			WithHint("User not found").
			WithReportableDetails(map[string]interface{}{
				"user_id": userID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
