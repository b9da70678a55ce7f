package domain

import "github.com/google/uuid"

// SystemUserID is the reserved all-zero identifier owning products the
// deal pipeline auto-tracks. Created once at startup if absent.
var SystemUserID = uuid.Nil

// User is the identity alert dispatch routes notifications to.
type User struct {
	ID              uuid.UUID
	Email           string
	MessagingChatID string // e.g. Telegram chat id, empty if unset
	WebhookURL      string
	Deleted         bool
}

func NewSystemUser() *User {
	return &User{ID: SystemUserID, Email: "system@keeper.local"}
}
