package types

import (
	ierr "github.com/recibo/recibo/internal/errors"
)

// SubscriptionStatus is the billing state of a subscription. CANCELADA is
// terminal; no transition leaves it.
type SubscriptionStatus string

const (
	SubscriptionStatusActiva        SubscriptionStatus = "ACTIVA"
	SubscriptionStatusSuspendida    SubscriptionStatus = "SUSPENDIDA"
	SubscriptionStatusCancelada     SubscriptionStatus = "CANCELADA"
	SubscriptionStatusPendientePago SubscriptionStatus = "PENDIENTE_PAGO"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusActiva,
		SubscriptionStatusSuspendida,
		SubscriptionStatusCancelada,
		SubscriptionStatusPendientePago:
		return nil
	}
	return ierr.NewErrorf("invalid subscription status: %s", s).
		WithHint("Subscription status must be one of ACTIVA, SUSPENDIDA, CANCELADA, PENDIENTE_PAGO").
		Mark(ierr.ErrValidation)
}

// IsTerminal reports whether no further transitions are allowed
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelada
}

// SubscriptionFilter narrows subscription listings
type SubscriptionFilter struct {
	*QueryFilter
	SubscriptionIDs []string             `json:"subscription_ids,omitempty" form:"subscription_ids"`
	UserIDs         []string             `json:"user_ids,omitempty" form:"user_ids"`
	Statuses        []SubscriptionStatus `json:"statuses,omitempty" form:"statuses"`
	WithArrears     *bool                `json:"with_arrears,omitempty" form:"with_arrears"`
}

// NewSubscriptionFilter creates a new subscription filter with default values
func NewSubscriptionFilter() *SubscriptionFilter {
	return &SubscriptionFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// Validate validates the subscription filter
func (f *SubscriptionFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	for _, st := range f.Statuses {
		if err := st.Validate(); err != nil {
			return err
		}
	}
	return f.QueryFilter.Validate()
}
