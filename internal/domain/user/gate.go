package user

import "context"

// AccountGate is the only surface the billing engine has onto user
// management. Suspension and cancellation deactivate the owning account;
// payment and reactivation re-activate it. Session revocation for a
// deactivated user is the user component's responsibility, not billing's.
type AccountGate interface {
	// Activate marks the user account as active
	Activate(ctx context.Context, userID string) error

	// Deactivate marks the user account as inactive
	Deactivate(ctx context.Context, userID string) error
}
