package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recibo/recibo/internal/config"
	ierr "github.com/recibo/recibo/internal/errors"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/types"
)

// IClient is the database surface services depend on. Repositories receive
// the concrete Client; services only need transaction and lock control.
type IClient interface {
	// WithTx runs fn inside a transaction. A transaction already present on
	// the context is reused, so nested WithTx calls join the outer one.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// LockKey acquires an advisory lock inside the current transaction
	LockKey(ctx context.Context, req types.LockRequest) error
}

// Querier is satisfied by both the pool and a transaction, letting
// repositories run inside or outside a transaction transparently.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txCtxKey struct{}

// Client wraps a pgx connection pool
type Client struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewClient connects to Postgres using the configured pool sizing
func NewClient(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid postgres connection URL").
			Mark(ierr.ErrInternal)
	}

	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MinConns = cfg.Postgres.MinConns
	poolCfg.MaxConnLifetime = cfg.Postgres.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to postgres").
			Mark(ierr.ErrDatabase)
	}

	return &Client{pool: pool, log: log}, nil
}

// Close releases the connection pool
func (c *Client) Close() {
	c.pool.Close()
}

// Pool exposes the underlying pool for health checks
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// TxFromContext returns the transaction stored on the context, if any
func (c *Client) TxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// Querier returns the transaction on the context when present, otherwise the
// pool.
func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.pool
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic. Nested calls reuse the outer transaction so one
// operation's writes stay atomic end to end.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	txCtx := context.WithValue(ctx, txCtxKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			c.log.Errorw("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
