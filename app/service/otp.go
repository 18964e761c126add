package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/fitstack/ms-go-account/app/entity"
	"github.com/fitstack/ms-go-account/config"
)

type otpCodeRepository interface {
	Replace(ctx context.Context, code *entity.OTPCode) error
	FindActive(ctx context.Context, canonicalEmail string, now time.Time) (*entity.OTPCode, error)
	MarkVerified(ctx context.Context, id uint64) (int64, error)
	IncrementAttempts(ctx context.Context, id uint64) error
	LastIssuedAt(ctx context.Context, canonicalEmail string) (time.Time, error)
	DeleteActive(ctx context.Context, canonicalEmail string) error
}

type OTPServiceOption func(*OTPService)

// OTPService issues and checks the one-time numeric codes used to prove
// ownership of an email address. At most one unverified code is live per
// canonical email at any time.
type OTPService struct {
	otpRepo otpCodeRepository
	cfg     *config.Config
	now     func() time.Time
}

func NewOTPService(otpRepo otpCodeRepository, cfg *config.Config, opts ...OTPServiceOption) *OTPService {
	svc := &OTPService{
		otpRepo: otpRepo,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithOTPClock(now func() time.Time) OTPServiceOption {
	return func(s *OTPService) {
		if now != nil {
			s.now = now
		}
	}
}

// Issue generates a fresh six-digit code for the canonical email,
// replacing any outstanding unverified code.
func (s *OTPService) Issue(ctx context.Context, canonicalEmail string) (*entity.OTPCode, error) {
	digits, err := generateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	code := &entity.OTPCode{
		CanonicalEmail: canonicalEmail,
		Code:           digits,
		ExpiresAt:      now.Add(s.cfg.OTP.TTL),
		CreatedAt:      now,
	}

	if err = s.otpRepo.Replace(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// Verify checks the submitted code against the live one. A mismatch
// counts an attempt; once the attempt budget is exhausted the code is
// consumed so it can never match afterwards. A match consumes the code.
func (s *OTPService) Verify(ctx context.Context, canonicalEmail, submitted string) error {
	code, err := s.otpRepo.FindActive(ctx, canonicalEmail, s.now())
	if err != nil {
		return err
	}
	if code == nil {
		return ErrInvalidOrExpiredCode
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(submitted)) != 1 {
		if err = s.otpRepo.IncrementAttempts(ctx, code.ID); err != nil {
			return err
		}
		if code.Attempts+1 >= s.cfg.OTP.MaxAttempts {
			if _, err = s.otpRepo.MarkVerified(ctx, code.ID); err != nil {
				return err
			}
		}
		return ErrInvalidOrExpiredCode
	}

	// The guarded update is the single-use transition: a concurrent
	// verify that already consumed the code leaves nothing to claim.
	affected, err := s.otpRepo.MarkVerified(ctx, code.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidOrExpiredCode
	}
	return nil
}

// CooldownRemaining reports how long until a new code may be issued for
// the canonical email. Zero means a code may be issued now.
func (s *OTPService) CooldownRemaining(ctx context.Context, canonicalEmail string) (time.Duration, error) {
	issued, err := s.otpRepo.LastIssuedAt(ctx, canonicalEmail)
	if err != nil {
		return 0, err
	}
	if issued.IsZero() {
		return 0, nil
	}

	remaining := s.cfg.OTP.ResendCooldown - s.now().Sub(issued)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Discard drops any live code for the canonical email.
func (s *OTPService) Discard(ctx context.Context, canonicalEmail string) error {
	return s.otpRepo.DeleteActive(ctx, canonicalEmail)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
