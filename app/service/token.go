package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fitstack/ms-go-account/app/entity"
	"github.com/fitstack/ms-go-account/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UserID  uint64 `json:"user_id"`
	Email   string `json:"email"`
	Premium bool   `json:"premium"`
	TokenID string `json:"token_id,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type refreshTokenRepository interface {
	Create(ctx context.Context, token *entity.RefreshToken) error
	FindValidByToken(ctx context.Context, token string, now time.Time) (*entity.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteByUserID(ctx context.Context, userID uint64) error
}

type userFinder interface {
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
}

type TokenServiceOption func(*TokenService)

// TokenService mints and checks the two token classes. Access tokens
// are stateless JWTs; refresh tokens are JWTs whose liveness is the
// presence of their row in refresh_tokens, so deleting the row revokes
// the token regardless of its embedded expiry.
type TokenService struct {
	refreshRepo refreshTokenRepository
	userRepo    userFinder
	cfg         *config.Config
	now         func() time.Time
}

func NewTokenService(refreshRepo refreshTokenRepository, userRepo userFinder, cfg *config.Config, opts ...TokenServiceOption) *TokenService {
	svc := &TokenService{
		refreshRepo: refreshRepo,
		userRepo:    userRepo,
		cfg:         cfg,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// IssuePair mints an access token and a refresh token for the user and
// persists the refresh token.
func (s *TokenService) IssuePair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh exchanges a live refresh token for a fresh access token. The
// refresh token itself is left untouched and stays usable until it
// expires or is revoked.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		return nil, err
	}

	stored, err := s.refreshRepo.FindValidByToken(ctx, refreshToken, s.now())
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenTTL.Seconds()),
	}, nil
}

// Revoke drops the refresh token's row. Revoking a token that is
// already gone is not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	_, err := s.refreshRepo.DeleteByToken(ctx, refreshToken)
	return err
}

// RevokeAllForUser ends every session the user holds.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return s.refreshRepo.DeleteByUserID(ctx, userID)
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(tokenString string) (*Claims, error) {
	return s.parseToken(tokenString, s.cfg.JWT.AccessSecret)
}

func (s *TokenService) parseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *TokenService) generateAccessToken(user *entity.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Premium: user.IsPremium,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.AccessSecret))
}

func (s *TokenService) generateRefreshToken(ctx context.Context, user *entity.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:  user.ID,
		Email:   user.Email,
		TokenID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.RefreshSecret))
	if err != nil {
		return "", err
	}

	refreshToken := &entity.RefreshToken{
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshTokenTTL),
		CreatedAt: now,
	}

	if err = s.refreshRepo.Create(ctx, refreshToken); err != nil {
		return "", err
	}

	return tokenString, nil
}
