package testutil

import (
	"context"
	"sync"
)

// StubAccountGate implements user.AccountGate, recording every call so tests
// can assert the activation side effects of billing operations.
type StubAccountGate struct {
	mu sync.Mutex

	active map[string]bool
	calls  []AccountGateCall

	// FailNext makes the next call return this error, then resets
	FailNext error
}

// AccountGateCall records one call to the gate
type AccountGateCall struct {
	UserID string
	Active bool
}

// NewStubAccountGate creates a new stub account gate
func NewStubAccountGate() *StubAccountGate {
	return &StubAccountGate{
		active: make(map[string]bool),
	}
}

func (g *StubAccountGate) Activate(ctx context.Context, userID string) error {
	return g.record(userID, true)
}

func (g *StubAccountGate) Deactivate(ctx context.Context, userID string) error {
	return g.record(userID, false)
}

func (g *StubAccountGate) record(userID string, activeState bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailNext != nil {
		err := g.FailNext
		g.FailNext = nil
		return err
	}

	g.active[userID] = activeState
	g.calls = append(g.calls, AccountGateCall{UserID: userID, Active: activeState})
	return nil
}

// IsActive reports the last activation state recorded for the user
func (g *StubAccountGate) IsActive(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[userID]
}

// Calls returns the recorded calls in order
func (g *StubAccountGate) Calls() []AccountGateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]AccountGateCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// Reset clears recorded state
func (g *StubAccountGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = make(map[string]bool)
	g.calls = nil
	g.FailNext = nil
}
