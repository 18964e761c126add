package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fitstack/ms-go-account/app/entity"
	"github.com/fitstack/ms-go-account/config"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type pendingRegistrationRepository interface {
	Upsert(ctx context.Context, pending *entity.PendingRegistration) error
	FindActive(ctx context.Context, canonicalEmail string, now time.Time) (*entity.PendingRegistration, error)
	Delete(ctx context.Context, canonicalEmail string) error
}

// NotificationSender delivers account emails. Implementations live in
// the notify package.
type NotificationSender interface {
	DeliverCode(ctx context.Context, email, name, code string) error
	DeliverWelcome(ctx context.Context, email, name string) error
	DeliverPasswordReset(ctx context.Context, email, name, token string) error
}

type AsyncRunner func(task func())

type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	Gender      string
	DateOfBirth *time.Time
}

type RegistrationServiceOption func(*RegistrationService)

// RegistrationService runs the verify-before-create signup flow: signup
// data is staged in pending_registrations, a code proves the email, and
// only then does a user row exist.
type RegistrationService struct {
	userRepo    userRepository
	pendingRepo pendingRegistrationRepository
	otp         *OTPService
	tokens      *TokenService
	notifier    NotificationSender
	cfg         *config.Config
	asyncRunner AsyncRunner
	now         func() time.Time
}

func NewRegistrationService(
	userRepo userRepository,
	pendingRepo pendingRegistrationRepository,
	otp *OTPService,
	tokens *TokenService,
	notifier NotificationSender,
	cfg *config.Config,
	opts ...RegistrationServiceOption,
) *RegistrationService {
	svc := &RegistrationService{
		userRepo:    userRepo,
		pendingRepo: pendingRepo,
		otp:         otp,
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

func WithRegistrationAsyncRunner(runner AsyncRunner) RegistrationServiceOption {
	return func(s *RegistrationService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func WithRegistrationClock(now func() time.Time) RegistrationServiceOption {
	return func(s *RegistrationService) {
		if now != nil {
			s.now = now
		}
	}
}

// Initiate stages the registration and emails a verification code.
// Re-registering an unverified email overwrites the staged data and
// issues a fresh code. If the email cannot be delivered the staged row
// and code are rolled back so the address is not left half-registered.
func (s *RegistrationService) Initiate(ctx context.Context, input *RegisterInput) error {
	canonicalEmail := CanonicalizeEmail(input.Email)

	existing, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.IsVerified || !s.cfg.Registration.LegacyUnverifiedMigration {
			return ErrDuplicateAccount
		}
		// Unverified row from the old signup flow that created users
		// up front. Fold it back into the staged flow.
		if err = s.userRepo.Delete(ctx, existing.ID); err != nil {
			return err
		}
		logrus.WithField("user_id", existing.ID).Info("migrated legacy unverified account into pending registration")
	}

	if err = s.cfg.Password.Policy.Validate(input.Password); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := s.now()
	pending := &entity.PendingRegistration{
		Email:          input.Email,
		CanonicalEmail: canonicalEmail,
		PasswordHash:   string(hashedPassword),
		Name:           input.Name,
		ExpiresAt:      now.Add(s.cfg.Registration.PendingTTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.Gender != "" {
		pending.Gender = sql.NullString{String: input.Gender, Valid: true}
	}
	if input.DateOfBirth != nil {
		pending.DateOfBirth = sql.NullTime{Time: *input.DateOfBirth, Valid: true}
	}

	if err = s.pendingRepo.Upsert(ctx, pending); err != nil {
		return err
	}

	code, err := s.otp.Issue(ctx, canonicalEmail)
	if err != nil {
		return err
	}

	if err = s.notifier.DeliverCode(ctx, input.Email, input.Name, code.Code); err != nil {
		logrus.WithError(err).WithField("email", canonicalEmail).Error("failed to deliver verification code")
		if discardErr := s.otp.Discard(ctx, canonicalEmail); discardErr != nil {
			logrus.WithError(discardErr).Error("failed to discard code after delivery failure")
		}
		if deleteErr := s.pendingRepo.Delete(ctx, canonicalEmail); deleteErr != nil {
			logrus.WithError(deleteErr).Error("failed to delete pending registration after delivery failure")
		}
		return ErrDeliveryFailure
	}

	return nil
}

// Verify checks the submitted code and promotes the staged registration
// to a real, verified user. The caller is signed in immediately.
func (s *RegistrationService) Verify(ctx context.Context, email, code string) (*entity.User, *TokenPair, error) {
	canonicalEmail := CanonicalizeEmail(email)

	if err := s.otp.Verify(ctx, canonicalEmail, code); err != nil {
		return nil, nil, err
	}

	pending, err := s.pendingRepo.FindActive(ctx, canonicalEmail, s.now())
	if err != nil {
		return nil, nil, err
	}

	if pending == nil {
		return s.verifyWithoutPending(ctx, canonicalEmail)
	}

	now := s.now()
	user := &entity.User{
		Email:          pending.Email,
		CanonicalEmail: pending.CanonicalEmail,
		PasswordHash:   pending.PasswordHash,
		Name:           pending.Name,
		Gender:         pending.Gender,
		DateOfBirth:    pending.DateOfBirth,
		IsVerified:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err = s.userRepo.Create(ctx, user); err != nil {
		user, err = s.recoverPromotedUser(ctx, canonicalEmail, err)
		if err != nil {
			return nil, nil, err
		}
	} else {
		s.sendWelcome(user)
	}

	if err = s.pendingRepo.Delete(ctx, canonicalEmail); err != nil {
		logrus.WithError(err).WithField("email", canonicalEmail).Error("failed to delete promoted pending registration")
	}

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// recoverPromotedUser handles a uniqueness violation during promotion:
// a concurrent verify, or a crash between the earlier insert and the
// pending-row cleanup, already created the user row. The existing row
// is the promotion result, so the verification still succeeds.
func (s *RegistrationService) recoverPromotedUser(ctx context.Context, canonicalEmail string, createErr error) (*entity.User, error) {
	if !isDuplicateEntry(createErr) {
		return nil, createErr
	}

	existing, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, createErr
	}

	if !existing.IsVerified {
		existing.IsVerified = true
		if err = s.userRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
	}

	logrus.WithField("email", canonicalEmail).Info("User already promoted, verification treated as success")
	return existing, nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// verifyWithoutPending handles a valid code arriving when no staged
// registration exists: either a legacy unverified user finishing the
// old flow, or a stale verification attempt.
func (s *RegistrationService) verifyWithoutPending(ctx context.Context, canonicalEmail string) (*entity.User, *TokenPair, error) {
	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrRegistrationNotFound
	}
	if user.IsVerified {
		return nil, nil, ErrAlreadyVerified
	}
	if !s.cfg.Registration.LegacyUnverifiedMigration {
		return nil, nil, ErrRegistrationNotFound
	}

	user.IsVerified = true
	if err = s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, err
	}

	s.sendWelcome(user)

	pair, err := s.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Resend issues a fresh code for an in-progress registration, subject
// to the cooldown.
func (s *RegistrationService) Resend(ctx context.Context, email string) error {
	canonicalEmail := CanonicalizeEmail(email)

	user, err := s.userRepo.FindByCanonicalEmail(ctx, canonicalEmail)
	if err != nil {
		return err
	}
	if user != nil && user.IsVerified {
		return ErrAlreadyVerified
	}

	pending, err := s.pendingRepo.FindActive(ctx, canonicalEmail, s.now())
	if err != nil {
		return err
	}

	var recipientEmail, recipientName string
	switch {
	case pending != nil:
		recipientEmail, recipientName = pending.Email, pending.Name
	case user != nil && s.cfg.Registration.LegacyUnverifiedMigration:
		recipientEmail, recipientName = user.Email, user.Name
	default:
		return ErrRegistrationNotFound
	}

	remaining, err := s.otp.CooldownRemaining(ctx, canonicalEmail)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return ErrResendTooSoon
	}

	code, err := s.otp.Issue(ctx, canonicalEmail)
	if err != nil {
		return err
	}

	if err = s.notifier.DeliverCode(ctx, recipientEmail, recipientName, code.Code); err != nil {
		logrus.WithError(err).WithField("email", canonicalEmail).Error("failed to deliver verification code")
		if discardErr := s.otp.Discard(ctx, canonicalEmail); discardErr != nil {
			logrus.WithError(discardErr).Error("failed to discard code after delivery failure")
		}
		return ErrDeliveryFailure
	}

	return nil
}

func (s *RegistrationService) sendWelcome(user *entity.User) {
	email, name := user.Email, user.Name
	s.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.DeliverWelcome(sendCtx, email, name); err != nil {
			logrus.WithError(err).WithField("email", email).Error("failed to deliver welcome email")
		}
	})
}
