package types

import (
	ierr "github.com/recibo/recibo/internal/errors"
)

// NotificationType tags the dunning/billing event a notification records
type NotificationType string

const (
	NotificationTypeProximoVencimiento NotificationType = "PROXIMO_VENCIMIENTO"
	NotificationTypeVencimientoHoy     NotificationType = "VENCIMIENTO_HOY"
	NotificationTypePagoVencido        NotificationType = "PAGO_VENCIDO"
	NotificationTypeSuspension         NotificationType = "SUSPENSION_CUENTA"
	NotificationTypePagoRecibido       NotificationType = "PAGO_RECIBIDO"
)

func (t NotificationType) String() string {
	return string(t)
}

func (t NotificationType) Validate() error {
	switch t {
	case NotificationTypeProximoVencimiento,
		NotificationTypeVencimientoHoy,
		NotificationTypePagoVencido,
		NotificationTypeSuspension,
		NotificationTypePagoRecibido:
		return nil
	}
	return ierr.NewErrorf("invalid notification type: %s", t).
		WithHint("Notification type must be one of PROXIMO_VENCIMIENTO, VENCIMIENTO_HOY, PAGO_VENCIDO, SUSPENSION_CUENTA, PAGO_RECIBIDO").
		Mark(ierr.ErrValidation)
}
