package entity

import (
	"database/sql"
	"time"
)

// PendingRegistration stages signup data until the email is proven.
// Exactly one row exists per canonical email; re-registering replaces
// the row and resets its expiry.
type PendingRegistration struct {
	ID             uint64
	Email          string
	CanonicalEmail string
	PasswordHash   string
	Name           string
	Gender         sql.NullString
	DateOfBirth    sql.NullTime
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OTPCode is a single-use numeric code. Verified rows are spent: they
// never match again and are removed by the sweep once expired.
type OTPCode struct {
	ID             uint64
	CanonicalEmail string
	Code           string
	Attempts       int
	Verified       bool
	ExpiresAt      time.Time
	CreatedAt      time.Time
}
