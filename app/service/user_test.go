package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fitstack/ms-go-account/app/service"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestUserService_Login_Success(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	hash := hashPassword(t, "password")

	mock.ExpectQuery(findUserByCanonicalEmailQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(verifiedUserRow(1, "user@example.com", hash)...))
	mock.ExpectExec(insertRefreshTokenQuery).
		WithArgs(uint64(1), sqlmock.AnyArg(), testNow.Add(30*24*time.Hour), testNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := env.users.Login(context.Background(), "user@example.com", "password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.RequiresVerification {
		t.Fatal("verified user should not require verification")
	}
	if result.Tokens == nil || result.Tokens.AccessToken == "" {
		t.Fatal("expected a token pair")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	hash := hashPassword(t, "password")

	mock.ExpectQuery(findUserByCanonicalEmailQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(verifiedUserRow(1, "user@example.com", hash)...))

	_, err := env.users.Login(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByCanonicalEmailQuery).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectQuery(findActivePendingQuery).
		WithArgs("nobody@example.com", testNow).
		WillReturnRows(sqlmock.NewRows(pendingColumns))

	_, err := env.users.Login(context.Background(), "nobody@example.com", "password")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUserService_Login_PendingRegistrationRequiresVerification(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	hash := hashPassword(t, "password")

	mock.ExpectQuery(findUserByCanonicalEmailQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectQuery(findActivePendingQuery).
		WithArgs("user@example.com", testNow).
		WillReturnRows(sqlmock.NewRows(pendingColumns).AddRow(
			uint64(3), "user@example.com", "user@example.com", hash, "Alex", nil, nil,
			testNow.Add(time.Hour), testNow.Add(-time.Hour), testNow.Add(-time.Hour)))

	result, err := env.users.Login(context.Background(), "user@example.com", "password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !result.RequiresVerification {
		t.Fatal("expected RequiresVerification for a pending registration")
	}
	if result.Tokens != nil {
		t.Fatal("no tokens should be issued before verification")
	}
	if result.User == nil || result.User.Email != "user@example.com" || result.User.Name != "Alex" {
		t.Fatalf("expected the staged identity on the result, got %+v", result.User)
	}
}

func TestUserService_Login_LegacyUnverifiedUserRequiresVerification(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	hash := hashPassword(t, "password")

	mock.ExpectQuery(findUserByCanonicalEmailQuery).
		WithArgs("legacy@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(unverifiedUserRow(42, "legacy@example.com", hash)...))

	result, err := env.users.Login(context.Background(), "legacy@example.com", "password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !result.RequiresVerification {
		t.Fatal("expected RequiresVerification for an unverified user")
	}
	if result.User == nil || result.User.Email != "legacy@example.com" {
		t.Fatalf("expected the unverified identity on the result, got %+v", result.User)
	}
}

func TestUserService_ChangePassword_RevokesSessions(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	hash := hashPassword(t, "oldpassword")

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(verifiedUserRow(1, "user@example.com", hash)...))
	mock.ExpectQuery(latestBodyMetricQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "weight_kg", "height_cm", "recorded_at"}))
	mock.ExpectExec(updateUserQuery).
		WithArgs("user@example.com", "user@example.com", sqlmock.AnyArg(), "Alex",
			sqlmock.AnyArg(), sqlmock.AnyArg(), true, false,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteRefreshByUserQuery).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := env.users.ChangePassword(context.Background(), 1, "oldpassword", "newpassword"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserService_ChangePassword_WrongOldPassword(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	hash := hashPassword(t, "oldpassword")

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(verifiedUserRow(1, "user@example.com", hash)...))
	mock.ExpectQuery(latestBodyMetricQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "weight_kg", "height_cm", "recorded_at"}))

	err := env.users.ChangePassword(context.Background(), 1, "wrong", "newpassword")
	if !errors.Is(err, service.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestUserService_RequestPasswordReset_UnknownEmailSilent(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByCanonicalEmailQuery).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns))

	if err := env.users.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.notifier.resetsSent) != 0 {
		t.Fatal("no reset email should be sent for unknown address")
	}
}

func TestUserService_RequestPasswordReset_SendsToken(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByCanonicalEmailQuery).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(verifiedUserRow(1, "user@example.com", "hash")...))
	mock.ExpectExec(updateUserQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := env.users.RequestPasswordReset(context.Background(), "user@example.com"); err != nil {
		t.Fatalf("request reset failed: %v", err)
	}
	if len(env.notifier.resetsSent) != 1 || env.notifier.resetsSent[0] == "" {
		t.Fatalf("expected a reset token to be sent, got %v", env.notifier.resetsSent)
	}
}

func TestUserService_ResetPassword_ExpiredToken(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByResetTokenQuery).
		WithArgs("stale-token").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			uint64(1), "user@example.com", "user@example.com", "hash", "Alex",
			nil, nil, true, false, "stale-token", testNow.Add(-time.Minute),
			testNow.Add(-time.Hour), testNow.Add(-time.Hour)))

	err := env.users.ResetPassword(context.Background(), "stale-token", "newpassword")
	if !errors.Is(err, service.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestUserService_ResetPassword_Success(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByResetTokenQuery).
		WithArgs("reset-token").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
			uint64(1), "user@example.com", "user@example.com", "hash", "Alex",
			nil, nil, true, false, "reset-token", testNow.Add(30*time.Minute),
			testNow.Add(-time.Hour), testNow.Add(-time.Hour)))
	mock.ExpectExec(updateUserQuery).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteRefreshByUserQuery).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := env.users.ResetPassword(context.Background(), "reset-token", "newpassword"); err != nil {
		t.Fatalf("reset password failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserService_RecordBodyMetric(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(verifiedUserRow(1, "user@example.com", "hash")...))
	mock.ExpectQuery(latestBodyMetricQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "weight_kg", "height_cm", "recorded_at"}))
	mock.ExpectExec(insertBodyMetricQuery).
		WithArgs(uint64(1), 81.5, 180.0, testNow).
		WillReturnResult(sqlmock.NewResult(5, 1))

	metric, err := env.users.RecordBodyMetric(context.Background(), 1, 81.5, 180.0)
	if err != nil {
		t.Fatalf("record metric failed: %v", err)
	}
	if metric.ID != 5 {
		t.Fatalf("expected metric ID 5, got %d", metric.ID)
	}
}

func TestUserService_DeleteAccount_Cascades(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(verifiedUserRow(1, "user@example.com", "hash")...))
	mock.ExpectQuery(latestBodyMetricQuery).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "weight_kg", "height_cm", "recorded_at"}))
	mock.ExpectExec(deleteRefreshByUserQuery).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(deleteBodyMetricsByUserQuery).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(deleteUserQuery).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := env.users.DeleteAccount(context.Background(), 1); err != nil {
		t.Fatalf("delete account failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserService_Profile_NotFound(t *testing.T) {
	env, mock, cleanup := newTestEnv(t)
	defer cleanup()

	mock.ExpectQuery(findUserByIDQuery).
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := env.users.Profile(context.Background(), 99)
	if !errors.Is(err, service.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
