package dto

import (
	"github.com/recibo/recibo/internal/domain/notification"
)

// NotificationResponse wraps a notification record
type NotificationResponse struct {
	*notification.Notification
}

// ListNotificationsResponse is a page of notification records
type ListNotificationsResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	Total         int                     `json:"total"`
}

// NewListNotificationsResponse wraps notification records into a list response
func NewListNotificationsResponse(items []*notification.Notification) *ListNotificationsResponse {
	resp := &ListNotificationsResponse{
		Notifications: make([]*NotificationResponse, len(items)),
		Total:         len(items),
	}
	for i, n := range items {
		resp.Notifications[i] = &NotificationResponse{Notification: n}
	}
	return resp
}
