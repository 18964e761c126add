package service_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/fitstack/ms-go-account/app/service"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOTPService_Issue_SixDigitCode(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectExec(deleteUnverifiedOTPQuery).
		WithArgs("user@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertOTPQuery).
		WithArgs("user@example.com", sqlmock.AnyArg(), 0, false, testNow.Add(5*time.Minute), testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	code, err := env.otp.Issue(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !regexp.MustCompile(`^\d{6}$`).MatchString(code.Code) {
		t.Fatalf("expected six-digit code, got %q", code.Code)
	}
	if !code.ExpiresAt.Equal(testNow.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", code.ExpiresAt)
	}
}

func TestOTPService_Verify_ConsumesCodeOnce(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	email := "user@example.com"

	mock.ExpectQuery(findActiveOTPQuery).
		WithArgs(email, testNow).
		WillReturnRows(sqlmock.NewRows(otpColumns).AddRow(
			uint64(9), email, "123456", 0, false, testNow.Add(time.Minute), testNow.Add(-time.Minute)))
	mock.ExpectExec(markOTPVerifiedQuery).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := env.otp.Verify(context.Background(), email, "123456"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOTPService_Verify_LosesClaimRace(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	email := "user@example.com"

	// The code was read as unverified, but another verify consumed it
	// before this caller's guarded update ran: zero rows claimed.
	mock.ExpectQuery(findActiveOTPQuery).
		WithArgs(email, testNow).
		WillReturnRows(sqlmock.NewRows(otpColumns).AddRow(
			uint64(9), email, "123456", 0, false, testNow.Add(time.Minute), testNow.Add(-time.Minute)))
	mock.ExpectExec(markOTPVerifiedQuery).
		WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := env.otp.Verify(context.Background(), email, "123456")
	if !errors.Is(err, service.ErrInvalidOrExpiredCode) {
		t.Fatalf("expected ErrInvalidOrExpiredCode, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOTPService_CooldownRemaining_NeverIssued(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(lastIssuedOTPQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Time{}))

	remaining, err := env.otp.CooldownRemaining(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("cooldown check failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no cooldown, got %v", remaining)
	}
}

func TestOTPService_CooldownRemaining_Boundary(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	// Issued exactly one cooldown ago: a new code is allowed.
	mock.ExpectQuery(lastIssuedOTPQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow.Add(-env.cfg.OTP.ResendCooldown)))

	remaining, err := env.otp.CooldownRemaining(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("cooldown check failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no cooldown at the boundary, got %v", remaining)
	}
}

func TestOTPService_CooldownRemaining_Active(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(lastIssuedOTPQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(testNow.Add(-15 * time.Second)))

	remaining, err := env.otp.CooldownRemaining(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("cooldown check failed: %v", err)
	}
	if remaining != 45*time.Second {
		t.Fatalf("expected 45s remaining, got %v", remaining)
	}
}
