package controller

import (
	"context"
	"errors"
	"net/http"

	httpdto "github.com/fitstack/ms-go-account/app/dto/http"
	"github.com/fitstack/ms-go-account/app/entity"
	"github.com/fitstack/ms-go-account/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type registrationService interface {
	Initiate(ctx context.Context, input *service.RegisterInput) error
	Verify(ctx context.Context, email, code string) (*entity.User, *service.TokenPair, error)
	Resend(ctx context.Context, email string) error
}

type loginService interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type sessionTokenService interface {
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
}

type AuthController struct {
	registration registrationService
	users        loginService
	tokens       sessionTokenService
}

func NewAuthController(registration registrationService, users loginService, tokens sessionTokenService) *AuthController {
	return &AuthController{
		registration: registration,
		users:        users,
		tokens:       tokens,
	}
}

func (c *AuthController) Register(ctx echo.Context) error {
	req := new(httpdto.RegisterRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Register validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	dob, err := req.ParsedDateOfBirth()
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "date_of_birth must be in YYYY-MM-DD format"})
	}

	logrus.WithField("email", req.Email).Info("Register request received")
	err = c.registration.Initiate(ctx.Request().Context(), &service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Gender:      req.Gender,
		DateOfBirth: dob,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateAccount) {
			logrus.WithField("email", req.Email).Warn("Register failed: account already exists")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "account already exists"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			logrus.WithField("email", req.Email).Warn("Register failed: weak password")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		if errors.Is(err, service.ErrDeliveryFailure) {
			logrus.WithField("email", req.Email).Error("Register failed: code delivery failure")
			return ctx.JSON(http.StatusBadGateway, httpdto.ErrorResponse{Error: "verification email could not be delivered"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Registration staged, verification code sent")
	return ctx.JSON(http.StatusAccepted, &httpdto.RegisterResponse{
		Email:   req.Email,
		Message: "verification code sent, please check your email",
	})
}

func (c *AuthController) VerifyCode(ctx echo.Context) error {
	req := new(httpdto.VerifyCodeRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind verify code request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Verify code validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Verify code request received")
	user, pair, err := c.registration.Verify(ctx.Request().Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredCode) {
			logrus.WithField("email", req.Email).Warn("Verify code failed: invalid or expired code")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid or expired verification code"})
		}
		if errors.Is(err, service.ErrAlreadyVerified) {
			logrus.WithField("email", req.Email).Warn("Verify code failed: already verified")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "account is already verified"})
		}
		if errors.Is(err, service.ErrRegistrationNotFound) {
			logrus.WithField("email", req.Email).Warn("Verify code failed: no registration in progress")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "no registration in progress for this email"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Verify code failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("Account verified and created")

	return ctx.JSON(http.StatusCreated, &httpdto.VerifyCodeResponse{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (c *AuthController) ResendCode(ctx echo.Context) error {
	req := new(httpdto.ResendCodeRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind resend code request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Resend code validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Resend code request received")
	if err := c.registration.Resend(ctx.Request().Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrResendTooSoon) {
			logrus.WithField("email", req.Email).Warn("Resend code failed: cooldown active")
			return ctx.JSON(http.StatusTooManyRequests, httpdto.ErrorResponse{Error: "a code was sent recently, please wait before requesting another"})
		}
		if errors.Is(err, service.ErrAlreadyVerified) {
			logrus.WithField("email", req.Email).Warn("Resend code failed: already verified")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "account is already verified"})
		}
		if errors.Is(err, service.ErrRegistrationNotFound) {
			logrus.WithField("email", req.Email).Warn("Resend code failed: no registration in progress")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "no registration in progress for this email"})
		}
		if errors.Is(err, service.ErrDeliveryFailure) {
			logrus.WithField("email", req.Email).Error("Resend code failed: delivery failure")
			return ctx.JSON(http.StatusBadGateway, httpdto.ErrorResponse{Error: "verification email could not be delivered"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Resend code failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("email", req.Email).Info("Verification code resent")
	return ctx.JSON(http.StatusOK, &httpdto.ResendCodeResponse{Message: "verification code sent"})
}

func (c *AuthController) Login(ctx echo.Context) error {
	req := new(httpdto.LoginRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Login validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Login request received")
	result, err := c.users.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("email", req.Email).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid credentials"})
		}
		logrus.WithError(err).WithField("email", req.Email).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	if result.RequiresVerification {
		logrus.WithField("email", req.Email).Info("Login deferred: email not verified")
		return ctx.JSON(http.StatusForbidden, &httpdto.LoginResponse{
			RequiresVerification: true,
			Email:                result.User.Email,
			Name:                 result.User.Name,
			Message:              "email not verified, please complete verification",
		})
	}

	logrus.WithField("email", req.Email).Info("Login successful")
	return ctx.JSON(http.StatusOK, &httpdto.LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresIn:    result.Tokens.ExpiresIn,
	})
}

func (c *AuthController) RefreshToken(ctx echo.Context) error {
	req := new(httpdto.RefreshTokenRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind refresh token request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Refresh token validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.Info("Refresh token request received")
	pair, err := c.tokens.Refresh(ctx.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrTokenExpired) {
			logrus.Warn("Refresh token failed: invalid or expired token")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid or expired refresh token"})
		}
		logrus.WithError(err).Error("Refresh token failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Refresh token successful")
	return ctx.JSON(http.StatusOK, &httpdto.RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (c *AuthController) Logout(ctx echo.Context) error {
	req := new(httpdto.LogoutRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind logout request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Logout validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.Info("Logout request received")
	if err := c.tokens.Revoke(ctx.Request().Context(), req.RefreshToken); err != nil {
		logrus.WithError(err).Error("Logout failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Logout successful")
	return ctx.JSON(http.StatusOK, &httpdto.LogoutResponse{Message: "logged out successfully"})
}

func (c *AuthController) RequestPasswordReset(ctx echo.Context) error {
	req := new(httpdto.RequestPasswordResetRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind request password reset")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Request password reset validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.WithField("email", req.Email).Info("Password reset requested")
	if err := c.users.RequestPasswordReset(ctx.Request().Context(), req.Email); err != nil {
		logrus.WithError(err).WithField("email", req.Email).Error("Request password reset failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	// Same response whether or not the email is registered.
	return ctx.JSON(http.StatusOK, &httpdto.RequestPasswordResetResponse{
		Message: "if the email is registered, a reset link has been sent",
	})
}

func (c *AuthController) ResetPassword(ctx echo.Context) error {
	req := new(httpdto.ResetPasswordRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind reset password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Reset password validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	logrus.Info("Reset password request received")
	if err := c.users.ResetPassword(ctx.Request().Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			logrus.Warn("Reset password failed: invalid token")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid token"})
		}
		if errors.Is(err, service.ErrTokenExpired) {
			logrus.Warn("Reset password failed: token expired")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "token has expired"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			logrus.Warn("Reset password failed: weak password")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).Error("Reset password failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Password reset successful")
	return ctx.JSON(http.StatusOK, &httpdto.ResetPasswordResponse{Message: "password reset successfully"})
}
