package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeSubscription serializes mutations of one subscription aggregate
	LockScopeSubscription LockScope = "subscription"
)

// DefaultLockTimeout bounds how long an operation waits on a contended
// subscription before failing.
const DefaultLockTimeout = 10 * time.Second

// LockRequest describes an advisory lock to acquire inside a transaction
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// NewSubscriptionLockRequest builds the lock request that serializes all
// writes against a single subscription.
func NewSubscriptionLockRequest(subscriptionID string) LockRequest {
	return LockRequest{
		Key: GenerateLockKey(LockScopeSubscription, map[string]interface{}{
			"subscription_id": subscriptionID,
		}),
	}
}

// GenerateLockKey generates a deterministic lock key from a scope and
// parameters. The key is a plain string; Postgres hashes it internally via
// hashtext().
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Format: scope:key1=value1:key2=value2:...
	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}
	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameSubscriptions        TableName = "subscriptions"
	TableNamePayments             TableName = "payments"
	TableNamePaymentNotifications TableName = "payment_notifications"
	TableNameUsers                TableName = "users"
)
