package types

import (
	ierr "github.com/recibo/recibo/internal/errors"
)

// PaymentMethod is how a manually recorded payment was made
type PaymentMethod string

const (
	PaymentMethodTransferencia PaymentMethod = "TRANSFERENCIA_BANCARIA"
	PaymentMethodSinpe         PaymentMethod = "SINPE_MOVIL"
	PaymentMethodEfectivo      PaymentMethod = "EFECTIVO"
	PaymentMethodTarjeta       PaymentMethod = "TARJETA"
	PaymentMethodOtro          PaymentMethod = "OTRO"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Validate() error {
	switch m {
	case PaymentMethodTransferencia,
		PaymentMethodSinpe,
		PaymentMethodEfectivo,
		PaymentMethodTarjeta,
		PaymentMethodOtro:
		return nil
	}
	return ierr.NewErrorf("invalid payment method: %s", m).
		WithHint("Payment method must be one of TRANSFERENCIA_BANCARIA, SINPE_MOVIL, EFECTIVO, TARJETA, OTRO").
		Mark(ierr.ErrValidation)
}

// PaymentMethodLabels returns the display labels for every payment method
func PaymentMethodLabels() map[PaymentMethod]string {
	return map[PaymentMethod]string{
		PaymentMethodTransferencia: "Transferencia Bancaria",
		PaymentMethodSinpe:         "SINPE Móvil",
		PaymentMethodEfectivo:      "Efectivo",
		PaymentMethodTarjeta:       "Tarjeta",
		PaymentMethodOtro:          "Otro",
	}
}

// PaymentStatus is the settlement state of a recorded payment. Manual entries
// are recorded directly as COMPLETADO; PENDIENTE and RECHAZADO exist for
// reporting parity with imported data.
type PaymentStatus string

const (
	PaymentStatusCompletado PaymentStatus = "COMPLETADO"
	PaymentStatusPendiente  PaymentStatus = "PENDIENTE"
	PaymentStatusRechazado  PaymentStatus = "RECHAZADO"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	switch s {
	case PaymentStatusCompletado, PaymentStatusPendiente, PaymentStatusRechazado:
		return nil
	}
	return ierr.NewErrorf("invalid payment status: %s", s).
		WithHint("Payment status must be one of COMPLETADO, PENDIENTE, RECHAZADO").
		Mark(ierr.ErrValidation)
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	*QueryFilter
	PaymentIDs      []string        `json:"payment_ids,omitempty" form:"payment_ids"`
	SubscriptionIDs []string        `json:"subscription_ids,omitempty" form:"subscription_ids"`
	Statuses        []PaymentStatus `json:"statuses,omitempty" form:"statuses"`
	Year            *int            `json:"year,omitempty" form:"year"`
	Month           *int            `json:"month,omitempty" form:"month"`
}

// NewPaymentFilter creates a new payment filter with default values
func NewPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// Validate validates the payment filter
func (f *PaymentFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	for _, st := range f.Statuses {
		if err := st.Validate(); err != nil {
			return err
		}
	}
	if f.Month != nil && (*f.Month < 1 || *f.Month > 12) {
		return ierr.NewErrorf("invalid month: %d", *f.Month).
			WithHint("Month must be between 1 and 12").
			Mark(ierr.ErrValidation)
	}
	return f.QueryFilter.Validate()
}
