package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fitstack/ms-go-account/app/entity"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, canonical_email, password_hash, name, gender, date_of_birth, is_verified, is_premium, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.Name,
		user.Gender,
		user.DateOfBirth,
		user.IsVerified,
		user.IsPremium,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error) {
	query := `
		SELECT id, email, canonical_email, password_hash, name, gender, date_of_birth, is_verified, is_premium,
		       reset_token, reset_token_expires_at, created_at, updated_at
		FROM users WHERE canonical_email = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, canonicalEmail))
}

// FindByID also attaches the user's most recently recorded body metric.
func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `
		SELECT id, email, canonical_email, password_hash, name, gender, date_of_birth, is_verified, is_premium,
		       reset_token, reset_token_expires_at, created_at, updated_at
		FROM users WHERE id = ?
	`
	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil || user == nil {
		return user, err
	}

	metric, err := r.latestBodyMetric(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.LatestMetric = metric
	return user, nil
}

func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*entity.User, error) {
	query := `
		SELECT id, email, canonical_email, password_hash, name, gender, date_of_birth, is_verified, is_premium,
		       reset_token, reset_token_expires_at, created_at, updated_at
		FROM users WHERE reset_token = ?
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			email = ?,
			canonical_email = ?,
			password_hash = ?,
			name = ?,
			gender = ?,
			date_of_birth = ?,
			is_verified = ?,
			is_premium = ?,
			reset_token = ?,
			reset_token_expires_at = ?,
			updated_at = ?
		WHERE id = ?
	`
	user.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.CanonicalEmail,
		user.PasswordHash,
		user.Name,
		user.Gender,
		user.DateOfBirth,
		user.IsVerified,
		user.IsPremium,
		user.ResetToken,
		user.ResetTokenExpiresAt,
		user.UpdatedAt,
		user.ID,
	)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id uint64) error {
	query := `DELETE FROM users WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *UserRepository) scanUser(row *sql.Row) (*entity.User, error) {
	user := &entity.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.CanonicalEmail,
		&user.PasswordHash,
		&user.Name,
		&user.Gender,
		&user.DateOfBirth,
		&user.IsVerified,
		&user.IsPremium,
		&user.ResetToken,
		&user.ResetTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) latestBodyMetric(ctx context.Context, userID uint64) (*entity.BodyMetric, error) {
	query := `
		SELECT id, user_id, weight_kg, height_cm, recorded_at
		FROM body_metrics WHERE user_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1
	`
	metric := &entity.BodyMetric{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&metric.ID,
		&metric.UserID,
		&metric.WeightKG,
		&metric.HeightCM,
		&metric.RecordedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return metric, nil
}

type BodyMetricRepository struct {
	db *sql.DB
}

func NewBodyMetricRepository(db *sql.DB) *BodyMetricRepository {
	return &BodyMetricRepository{db: db}
}

func (r *BodyMetricRepository) Create(ctx context.Context, metric *entity.BodyMetric) error {
	query := `
		INSERT INTO body_metrics (user_id, weight_kg, height_cm, recorded_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		metric.UserID,
		metric.WeightKG,
		metric.HeightCM,
		metric.RecordedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	metric.ID = uint64(id)
	return nil
}

func (r *BodyMetricRepository) DeleteByUserID(ctx context.Context, userID uint64) error {
	query := `DELETE FROM body_metrics WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
