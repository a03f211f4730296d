package types

import (
	"context"
	"time"

	ierr "github.com/recibo/recibo/internal/errors"
)

// Status represents the lifecycle status of a database record, orthogonal to
// any domain status the record carries.
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Validate() error {
	switch s {
	case StatusPublished, StatusDeleted, StatusArchived:
		return nil
	}
	return ierr.NewErrorf("invalid status: %s", s).
		WithHint("Status must be one of published, deleted, archived").
		Mark(ierr.ErrValidation)
}

// BaseModel carries the audit fields shared by every persisted record
type BaseModel struct {
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// GetDefaultBaseModel returns a base model stamped with the acting user from
// the context and the current UTC time.
func GetDefaultBaseModel(ctx context.Context) BaseModel {
	now := time.Now().UTC()
	userID := GetUserID(ctx)
	return BaseModel{
		Status:    StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
}
