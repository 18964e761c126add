package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fitstack/ms-go-account/app/entity"
)

type PendingRegistrationRepository struct {
	db *sql.DB
}

func NewPendingRegistrationRepository(db *sql.DB) *PendingRegistrationRepository {
	return &PendingRegistrationRepository{db: db}
}

// Upsert inserts the staged registration or, when a row already exists
// for the canonical email, overwrites it in place and resets the expiry.
func (r *PendingRegistrationRepository) Upsert(ctx context.Context, pending *entity.PendingRegistration) error {
	query := `
		INSERT INTO pending_registrations (email, canonical_email, password_hash, name, gender, date_of_birth, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			email = VALUES(email),
			password_hash = VALUES(password_hash),
			name = VALUES(name),
			gender = VALUES(gender),
			date_of_birth = VALUES(date_of_birth),
			expires_at = VALUES(expires_at),
			updated_at = VALUES(updated_at)
	`
	_, err := r.db.ExecContext(ctx, query,
		pending.Email,
		pending.CanonicalEmail,
		pending.PasswordHash,
		pending.Name,
		pending.Gender,
		pending.DateOfBirth,
		pending.ExpiresAt,
		pending.CreatedAt,
		pending.UpdatedAt,
	)
	return err
}

// FindActive returns the staged registration for the canonical email,
// or nil when none exists or the row has already expired.
func (r *PendingRegistrationRepository) FindActive(ctx context.Context, canonicalEmail string, now time.Time) (*entity.PendingRegistration, error) {
	query := `
		SELECT id, email, canonical_email, password_hash, name, gender, date_of_birth, expires_at, created_at, updated_at
		FROM pending_registrations WHERE canonical_email = ? AND expires_at > ?
	`
	pending := &entity.PendingRegistration{}
	err := r.db.QueryRowContext(ctx, query, canonicalEmail, now).Scan(
		&pending.ID,
		&pending.Email,
		&pending.CanonicalEmail,
		&pending.PasswordHash,
		&pending.Name,
		&pending.Gender,
		&pending.DateOfBirth,
		&pending.ExpiresAt,
		&pending.CreatedAt,
		&pending.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *PendingRegistrationRepository) Delete(ctx context.Context, canonicalEmail string) error {
	query := `DELETE FROM pending_registrations WHERE canonical_email = ?`
	_, err := r.db.ExecContext(ctx, query, canonicalEmail)
	return err
}

func (r *PendingRegistrationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM pending_registrations WHERE expires_at <= ?`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type OTPCodeRepository struct {
	db *sql.DB
}

func NewOTPCodeRepository(db *sql.DB) *OTPCodeRepository {
	return &OTPCodeRepository{db: db}
}

// Replace discards any outstanding unverified code for the canonical
// email and stores the new one, keeping at most one live code per email.
func (r *OTPCodeRepository) Replace(ctx context.Context, code *entity.OTPCode) error {
	deleteQuery := `DELETE FROM otp_codes WHERE canonical_email = ? AND verified = FALSE`
	if _, err := r.db.ExecContext(ctx, deleteQuery, code.CanonicalEmail); err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO otp_codes (canonical_email, code, attempts, verified, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, insertQuery,
		code.CanonicalEmail,
		code.Code,
		code.Attempts,
		code.Verified,
		code.ExpiresAt,
		code.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	code.ID = uint64(id)
	return nil
}

// FindActive returns the live unverified code for the canonical email,
// or nil when none exists or it has expired.
func (r *OTPCodeRepository) FindActive(ctx context.Context, canonicalEmail string, now time.Time) (*entity.OTPCode, error) {
	query := `
		SELECT id, canonical_email, code, attempts, verified, expires_at, created_at
		FROM otp_codes WHERE canonical_email = ? AND verified = FALSE AND expires_at > ?
	`
	code := &entity.OTPCode{}
	err := r.db.QueryRowContext(ctx, query, canonicalEmail, now).Scan(
		&code.ID,
		&code.CanonicalEmail,
		&code.Code,
		&code.Attempts,
		&code.Verified,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return code, nil
}

// MarkVerified consumes the code. The verified = FALSE guard makes the
// transition single-use under concurrent verifies: exactly one caller
// sees an affected row, everyone else gets zero.
func (r *OTPCodeRepository) MarkVerified(ctx context.Context, id uint64) (int64, error) {
	query := `UPDATE otp_codes SET verified = TRUE WHERE id = ? AND verified = FALSE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OTPCodeRepository) IncrementAttempts(ctx context.Context, id uint64) error {
	query := `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// LastIssuedAt reports when a code was most recently issued for the
// canonical email. The zero time means no code has ever been issued.
func (r *OTPCodeRepository) LastIssuedAt(ctx context.Context, canonicalEmail string) (time.Time, error) {
	query := `SELECT COALESCE(MAX(created_at), '0001-01-01') FROM otp_codes WHERE canonical_email = ?`
	var issued time.Time
	if err := r.db.QueryRowContext(ctx, query, canonicalEmail).Scan(&issued); err != nil {
		return time.Time{}, err
	}
	return issued, nil
}

func (r *OTPCodeRepository) DeleteActive(ctx context.Context, canonicalEmail string) error {
	query := `DELETE FROM otp_codes WHERE canonical_email = ? AND verified = FALSE`
	_, err := r.db.ExecContext(ctx, query, canonicalEmail)
	return err
}

func (r *OTPCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM otp_codes WHERE expires_at <= ?`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
