package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID                  uint64
	Email               string
	CanonicalEmail      string
	PasswordHash        string
	Name                string
	Gender              sql.NullString
	DateOfBirth         sql.NullTime
	IsVerified          bool
	IsPremium           bool
	ResetToken          sql.NullString
	ResetTokenExpiresAt sql.NullTime
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// LatestMetric is populated by FindByID only; nil when the user has
	// never recorded a body metric.
	LatestMetric *BodyMetric
}

type RefreshToken struct {
	ID        uint64
	UserID    uint64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type BodyMetric struct {
	ID         uint64
	UserID     uint64
	WeightKG   float64
	HeightCM   float64
	RecordedAt time.Time
}
