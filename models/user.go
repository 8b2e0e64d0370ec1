package models

import "time"

// User is an authenticated account. IDs are UUID strings so that
// authenticated and anonymous identities share one id domain inside
// match team arrays.
type User struct {
	ID           string    `json:"id" db:"id"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	Email        *string   `json:"email,omitempty" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AnonymousUser is a device-local identity. Once MergedIntoUserID is set
// the identity is terminal and must never act again.
type AnonymousUser struct {
	ID                string     `json:"id" db:"id"`
	DisplayName       string     `json:"display_name" db:"display_name"`
	DeviceFingerprint *string    `json:"device_fingerprint,omitempty" db:"device_fingerprint"`
	MergedIntoUserID  *string    `json:"merged_into_user_id,omitempty" db:"merged_into_user_id"`
	MergedAt          *time.Time `json:"merged_at,omitempty" db:"merged_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Merged reports whether this identity has been consumed by a merge.
func (a *AnonymousUser) Merged() bool {
	return a.MergedIntoUserID != nil
}
