package testutil

import (
	"context"

	"github.com/recibo/recibo/internal/postgres"
	"github.com/recibo/recibo/internal/types"
)

// NoopClient implements postgres.IClient for tests backed by in-memory
// stores. Transactions run the function directly and locks always succeed.
type NoopClient struct{}

var _ postgres.IClient = (*NoopClient)(nil)

// NewNoopClient creates a new noop database client
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (c *NoopClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (c *NoopClient) LockKey(ctx context.Context, req types.LockRequest) error {
	return nil
}
