package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type expiredPendingDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type expiredOTPDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type expiredRefreshTokenDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type SweeperOption func(*Sweeper)

// Sweeper removes expired pending registrations, spent or expired
// codes, and expired refresh tokens. Expired rows are already inert,
// so sweeping is cleanup, not enforcement.
type Sweeper struct {
	pendingRepo expiredPendingDeleter
	otpRepo     expiredOTPDeleter
	refreshRepo expiredRefreshTokenDeleter
	now         func() time.Time
}

func NewSweeper(
	pendingRepo expiredPendingDeleter,
	otpRepo expiredOTPDeleter,
	refreshRepo expiredRefreshTokenDeleter,
	opts ...SweeperOption,
) *Sweeper {
	s := &Sweeper{
		pendingRepo: pendingRepo,
		otpRepo:     otpRepo,
		refreshRepo: refreshRepo,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()

	pendingRemoved, err := s.pendingRepo.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	codesRemoved, err := s.otpRepo.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	tokensRemoved, err := s.refreshRepo.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"pending_registrations": pendingRemoved,
		"otp_codes":             codesRemoved,
		"refresh_tokens":        tokensRemoved,
	}).Info("sweep completed")

	return nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				logrus.WithError(err).Error("sweep failed")
			}
		}
	}
}
