package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPasswordPolicyValidate(t *testing.T) {
	policy := PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSpecial:   true,
	}

	if err := policy.Validate("short"); err == nil {
		t.Fatalf("expected error for short password")
	}
	if err := policy.Validate("lowercase1!"); err == nil {
		t.Fatalf("expected error for missing uppercase")
	}
	if err := policy.Validate("UPPERCASE1!"); err == nil {
		t.Fatalf("expected error for missing lowercase")
	}
	if err := policy.Validate("NoNumber!"); err == nil {
		t.Fatalf("expected error for missing number")
	}
	if err := policy.Validate("NoSpecial1"); err == nil {
		t.Fatalf("expected error for missing special")
	}
	if err := policy.Validate("GoodPass1!"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	if got := getEnv("TEST_STRING", "default"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
	if got := getEnv("MISSING_STRING", "default"); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}

	t.Setenv("TEST_DURATION", "90s")
	if got := getDurationEnv("TEST_DURATION", 5*time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	t.Setenv("TEST_DURATION", "30")
	if got := getDurationEnv("TEST_DURATION", 5*time.Minute); got != 30*time.Minute {
		t.Fatalf("expected 30m, got %v", got)
	}
	t.Setenv("TEST_DURATION", "invalid")
	if got := getDurationEnv("TEST_DURATION", 5*time.Minute); got != 5*time.Minute {
		t.Fatalf("expected default duration, got %v", got)
	}

	t.Setenv("TEST_BOOL", "true")
	if got := getBoolEnv("TEST_BOOL", false); got != true {
		t.Fatalf("expected true, got %v", got)
	}
	t.Setenv("TEST_BOOL", "invalid")
	if got := getBoolEnv("TEST_BOOL", true); got != true {
		t.Fatalf("expected default bool, got %v", got)
	}

	t.Setenv("TEST_INT", "42")
	if got := getIntEnv("TEST_INT", 5); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "invalid")
	if got := getIntEnv("TEST_INT", 5); got != 5 {
		t.Fatalf("expected default int, got %d", got)
	}
}

func TestLoadRequiresAccessSecret(t *testing.T) {
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origDir)
	})

	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("MYSQL_DSN", "")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error when JWT_ACCESS_SECRET is missing")
	}
}

func TestLoadRejectsEqualSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "same-secret")
	t.Setenv("JWT_REFRESH_SECRET", "same-secret")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(db:3306)/account?parseTime=true")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error when access and refresh secrets match")
	}
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("MYSQL_DSN", "")
	if cfg, err := Load(); err == nil || cfg != nil {
		t.Fatalf("expected error when MYSQL_DSN is missing")
	}
}

func TestLoadSuccess(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(db:3306)/account?parseTime=true")
	t.Setenv("HTTP_PORT", "8081")
	t.Setenv("ACCESS_TOKEN_TTL", "20")
	t.Setenv("REFRESH_TOKEN_TTL", "168h")
	t.Setenv("OTP_TTL", "10m")
	t.Setenv("OTP_RESEND_COOLDOWN", "90s")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("PENDING_REGISTRATION_TTL", "48h")
	t.Setenv("RESET_TOKEN_TTL", "30")
	t.Setenv("LEGACY_UNVERIFIED_MIGRATION", "false")
	t.Setenv("PASSWORD_MIN_LENGTH", "10")
	t.Setenv("PASSWORD_REQUIRE_UPPERCASE", "false")
	t.Setenv("PASSWORD_REQUIRE_LOWERCASE", "true")
	t.Setenv("PASSWORD_REQUIRE_NUMBER", "false")
	t.Setenv("PASSWORD_REQUIRE_SPECIAL", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != "8081" {
		t.Fatalf("unexpected port: %s", cfg.HTTPPort)
	}
	if cfg.MySQLDSN != "user:pass@tcp(db:3306)/account?parseTime=true" {
		t.Fatalf("unexpected mysql dsn: %s", cfg.MySQLDSN)
	}
	if cfg.JWT.AccessTokenTTL != 20*time.Minute || cfg.JWT.RefreshTokenTTL != 168*time.Hour {
		t.Fatalf("unexpected jwt ttl: %v %v", cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	}
	if cfg.OTP.TTL != 10*time.Minute || cfg.OTP.ResendCooldown != 90*time.Second || cfg.OTP.MaxAttempts != 3 {
		t.Fatalf("unexpected otp config: %+v", cfg.OTP)
	}
	if cfg.Registration.PendingTTL != 48*time.Hour || cfg.Registration.ResetTokenTTL != 30*time.Minute {
		t.Fatalf("unexpected registration ttl: %+v", cfg.Registration)
	}
	if cfg.Registration.LegacyUnverifiedMigration {
		t.Fatalf("expected legacy migration to be disabled")
	}
	if cfg.Password.Policy.MinLength != 10 ||
		cfg.Password.Policy.RequireUppercase != false ||
		cfg.Password.Policy.RequireLowercase != true ||
		cfg.Password.Policy.RequireNumber != false ||
		cfg.Password.Policy.RequireSpecial != false {
		t.Fatalf("unexpected password policy: %+v", cfg.Password.Policy)
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		MySQLDSN: "user:pass@tcp(localhost:3306)/account?parseTime=true",
	}
	got := cfg.DSN()
	if got != cfg.MySQLDSN {
		t.Fatalf("expected %q, got %q", cfg.MySQLDSN, got)
	}
}

func TestLoadUsesDefaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/account?parseTime=true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort == "" || cfg.MySQLDSN == "" {
		t.Fatalf("expected defaults to be populated")
	}
	if cfg.JWT.AccessTokenTTL != time.Hour || cfg.JWT.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected default jwt ttl: %v %v", cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	}
	if cfg.OTP.TTL != 5*time.Minute || cfg.OTP.ResendCooldown != time.Minute || cfg.OTP.MaxAttempts != 5 {
		t.Fatalf("unexpected default otp config: %+v", cfg.OTP)
	}
	if !cfg.Registration.LegacyUnverifiedMigration {
		t.Fatalf("expected legacy migration enabled by default")
	}
}

func TestLoadRespectsEnvFileLocation(t *testing.T) {
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origDir)
	})

	envPath := filepath.Join(tmp, ".env")
	contents := "JWT_ACCESS_SECRET=envfile-access\nJWT_REFRESH_SECRET=envfile-refresh\nMYSQL_DSN=user:pass@tcp(localhost:3306)/account?parseTime=true\nHTTP_PORT=9099\n"
	if err := os.WriteFile(envPath, []byte(contents), 0600); err != nil {
		t.Fatalf("write .env failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.JWT.AccessSecret != "envfile-access" || cfg.HTTPPort != "9099" {
		t.Fatalf("expected env file values, got %s %s", cfg.JWT.AccessSecret, cfg.HTTPPort)
	}
}
