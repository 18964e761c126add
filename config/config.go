package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost      string
	HTTPPort      string
	MySQLDSN      string
	Log           LogConfig
	JWT           JWTConfig
	OTP           OTPConfig
	Registration  RegistrationConfig
	SMTP          SMTPConfig
	Password      PasswordConfig
	SweepInterval time.Duration
}

type LogConfig struct {
	Level      string
	JSONFormat bool
}

// JWTConfig carries a separate secret per token class so a leaked
// access secret cannot forge refresh tokens, and vice versa.
type JWTConfig struct {
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type OTPConfig struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
}

type RegistrationConfig struct {
	PendingTTL    time.Duration
	ResetTokenTTL time.Duration
	// LegacyUnverifiedMigration enables the one-time shim for accounts
	// created unverified by the pre-staging signup flow.
	LegacyUnverifiedMigration bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type PasswordConfig struct {
	Policy PasswordPolicy
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	accessSecret := os.Getenv("JWT_ACCESS_SECRET")
	if accessSecret == "" {
		return nil, errors.New("JWT_ACCESS_SECRET environment variable is required")
	}

	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		return nil, errors.New("JWT_REFRESH_SECRET environment variable is required")
	}

	if accessSecret == refreshSecret {
		return nil, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTPHost: getEnv("HTTP_HOST", ""),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		MySQLDSN: mysqlDSN,
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			JSONFormat: getBoolEnv("LOG_JSON", false),
		},
		JWT: JWTConfig{
			AccessSecret:    accessSecret,
			RefreshSecret:   refreshSecret,
			AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", time.Hour),
			RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		},
		OTP: OTPConfig{
			TTL:            getDurationEnv("OTP_TTL", 5*time.Minute),
			ResendCooldown: getDurationEnv("OTP_RESEND_COOLDOWN", time.Minute),
			MaxAttempts:    getIntEnv("OTP_MAX_ATTEMPTS", 5),
		},
		Registration: RegistrationConfig{
			PendingTTL:                getDurationEnv("PENDING_REGISTRATION_TTL", 24*time.Hour),
			ResetTokenTTL:             getDurationEnv("RESET_TOKEN_TTL", time.Hour),
			LegacyUnverifiedMigration: getBoolEnv("LEGACY_UNVERIFIED_MIGRATION", true),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getIntEnv("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@fitstack.app"),
		},
		Password:      loadPasswordPolicy(),
		SweepInterval: getDurationEnv("SWEEP_INTERVAL", time.Hour),
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv accepts Go duration strings ("90s", "24h") and, for
// compatibility with older deployments, bare integers meaning minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordConfig {
	return PasswordConfig{
		Policy: PasswordPolicy{
			MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", true),
			RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", true),
			RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", true),
			RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", true),
		},
	}
}
