package models

import "time"

// UserEventType names an account lifecycle change.
type UserEventType string

const (
	UserRegistered      UserEventType = "user.registered"
	UserInfoUpdated     UserEventType = "user.info_updated"
	UserPasswordChanged UserEventType = "user.password_changed"
	UserDeleted         UserEventType = "user.deleted"
)

// UserEvent is published to the broker after a successful account change.
// It never carries password material.
type UserEvent struct {
	Type       UserEventType `json:"type"`
	UserID     string        `json:"userId"`
	Email      string        `json:"email,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
