package models

import "time"

// MergeReceipt is the durable audit row written as the last step of an
// identity merge. One row per completed merge; its presence is the
// idempotency signal for future merge attempts.
type MergeReceipt struct {
	ID              int       `json:"id" db:"id"`
	AnonymousUserID string    `json:"anonymous_user_id" db:"anonymous_user_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Migrated        bool      `json:"migrated" db:"migrated"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
