package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fitstack/ms-go-account/app/entity"
	"github.com/fitstack/ms-go-account/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByResetToken(ctx context.Context, token string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	Delete(ctx context.Context, id uint64) error
}

type bodyMetricRepository interface {
	Create(ctx context.Context, metric *entity.BodyMetric) error
	DeleteByUserID(ctx context.Context, userID uint64) error
}

type LoginResult struct {
	User   *entity.User
	Tokens *TokenPair
	// RequiresVerification is set when the credentials are correct but
	// the email has not been proven yet.
	RequiresVerification bool
}

type ProfileInput struct {
	Name        *string
	Gender      *string
	DateOfBirth *time.Time
}

type UserServiceOption func(*UserService)

type UserService struct {
	userRepo    userRepository
	metricRepo  bodyMetricRepository
	pendingRepo pendingRegistrationRepository
	tokens      *TokenService
	notifier    NotificationSender
	cfg         *config.Config
	asyncRunner AsyncRunner
	now         func() time.Time
}

func NewUserService(
	userRepo userRepository,
	metricRepo bodyMetricRepository,
	pendingRepo pendingRegistrationRepository,
	tokens *TokenService,
	notifier NotificationSender,
	cfg *config.Config,
	opts ...UserServiceOption,
) *UserService {
	svc := &UserService{
		userRepo:    userRepo,
		metricRepo:  metricRepo,
		pendingRepo: pendingRepo,
		tokens:      tokens,
		notifier:    notifier,
		cfg:         cfg,
		asyncRunner: func(task func()) {
			go task()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithUserAsyncRunner(runner AsyncRunner) UserServiceOption {
	return func(s *UserService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func WithUserClock(now func() time.Time) UserServiceOption {
	return func(s *UserService) {
		if now != nil {
			s.now = now
		}
	}
}

// Login checks credentials and issues a token pair. Correct credentials
// against an unverified registration yield RequiresVerification instead
// of tokens, so the client can route to the code-entry screen.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	canonicalEmail := CanonicalizeEmail(email)

	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return s.loginAgainstPending(ctx, canonicalEmail, password)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return &LoginResult{User: user, RequiresVerification: true}, nil
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Tokens: pair}, nil
}

func (s *UserService) loginAgainstPending(ctx context.Context, canonicalEmail, password string) (*LoginResult, error) {
	pending, err := s.pendingRepo.FindActive(ctx, canonicalEmail, s.now())
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(pending.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// No user row exists yet; carry the staged identity so the client
	// can show who is being asked to verify.
	return &LoginResult{
		User:                 &entity.User{Email: pending.Email, Name: pending.Name},
		RequiresVerification: true,
	}, nil
}

func (s *UserService) Profile(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies the provided fields; nil fields are untouched.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, input *ProfileInput) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Gender != nil {
		if *input.Gender == "" {
			user.Gender = sql.NullString{}
		} else {
			user.Gender = sql.NullString{String: *input.Gender, Valid: true}
		}
	}
	if input.DateOfBirth != nil {
		user.DateOfBirth = sql.NullTime{Time: *input.DateOfBirth, Valid: true}
	}

	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) RecordBodyMetric(ctx context.Context, userID uint64, weightKG, heightCM float64) (*entity.BodyMetric, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	metric := &entity.BodyMetric{
		UserID:     userID,
		WeightKG:   weightKG,
		HeightCM:   heightCM,
		RecordedAt: s.now(),
	}
	if err = s.metricRepo.Create(ctx, metric); err != nil {
		return nil, err
	}
	return metric, nil
}

// ChangePassword swaps the password and ends every other session.
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrPasswordMismatch
	}

	if err = s.cfg.Password.Policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	if err = s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	return s.tokens.RevokeAllForUser(ctx, user.ID)
}

// RequestPasswordReset emails a reset link when the address belongs to
// a verified account. It reports success either way so callers cannot
// probe which emails are registered.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	canonicalEmail := CanonicalizeEmail(email)

	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return err
	}
	if user == nil || !user.IsVerified {
		return nil
	}

	resetToken := uuid.New().String()
	user.ResetToken = sql.NullString{String: resetToken, Valid: true}
	user.ResetTokenExpiresAt = sql.NullTime{
		Time:  s.now().Add(s.cfg.Registration.ResetTokenTTL),
		Valid: true,
	}

	if err = s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	recipientEmail, recipientName := user.Email, user.Name
	s.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if sendErr := s.notifier.DeliverPasswordReset(sendCtx, recipientEmail, recipientName, resetToken); sendErr != nil {
			logrus.WithError(sendErr).WithField("email", canonicalEmail).Error("failed to deliver password reset email")
		}
	})

	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.userRepo.FindByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}

	if !user.ResetTokenExpiresAt.Valid || user.ResetTokenExpiresAt.Time.Before(s.now()) {
		return ErrTokenExpired
	}

	if err = s.cfg.Password.Policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	user.ResetToken = sql.NullString{}
	user.ResetTokenExpiresAt = sql.NullTime{}

	if err = s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	return s.tokens.RevokeAllForUser(ctx, user.ID)
}

// DeleteAccount removes the user together with their sessions and
// recorded metrics.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err = s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	if err = s.metricRepo.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, userID)
}
