package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	httpdto "github.com/fitstack/ms-go-account/app/dto/http"
	"github.com/fitstack/ms-go-account/app/entity"
	"github.com/fitstack/ms-go-account/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type accountService interface {
	Profile(ctx context.Context, userID uint64) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID uint64, input *service.ProfileInput) (*entity.User, error)
	RecordBodyMetric(ctx context.Context, userID uint64, weightKG, heightCM float64) (*entity.BodyMetric, error)
	ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID uint64) error
}

type AccountController struct {
	accounts accountService
}

func NewAccountController(accounts accountService) *AccountController {
	return &AccountController{accounts: accounts}
}

func (c *AccountController) GetProfile(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Get profile failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	user, err := c.accounts.Profile(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Get profile failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Get profile failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, profileResponse(user))
}

func (c *AccountController) UpdateProfile(ctx echo.Context) error {
	req := new(httpdto.UpdateProfileRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind update profile request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Update profile validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Update profile failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	dob, err := req.ParsedDateOfBirth()
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "date_of_birth must be in YYYY-MM-DD format"})
	}

	logrus.WithField("user_id", userID).Info("Update profile request received")
	user, err := c.accounts.UpdateProfile(ctx.Request().Context(), userID, &service.ProfileInput{
		Name:        req.Name,
		Gender:      req.Gender,
		DateOfBirth: dob,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Update profile failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Update profile failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Profile updated")
	return ctx.JSON(http.StatusOK, profileResponse(user))
}

func (c *AccountController) RecordBodyMetric(ctx echo.Context) error {
	req := new(httpdto.RecordBodyMetricRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind body metric request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Body metric validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Record body metric failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	metric, err := c.accounts.RecordBodyMetric(ctx.Request().Context(), userID, req.WeightKG, req.HeightCM)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Record body metric failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Record body metric failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Body metric recorded")
	return ctx.JSON(http.StatusCreated, &httpdto.BodyMetricResponse{
		ID:         metric.ID,
		WeightKG:   metric.WeightKG,
		HeightCM:   metric.HeightCM,
		RecordedAt: metric.RecordedAt.Format(time.RFC3339),
	})
}

func (c *AccountController) ChangePassword(ctx echo.Context) error {
	req := new(httpdto.ChangePasswordRequest)
	if err := ctx.Bind(req); err != nil {
		logrus.WithError(err).Debug("Failed to bind change password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		logrus.Debug("Change password validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Change password failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	logrus.WithField("user_id", userID).Info("Change password request received")
	err := c.accounts.ChangePassword(ctx.Request().Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Change password failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrPasswordMismatch) {
			logrus.WithField("user_id", userID).Warn("Change password failed: old password mismatch")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "old password is incorrect"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			logrus.WithField("user_id", userID).Warn("Change password failed: weak password")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Change password failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Password changed")
	return ctx.JSON(http.StatusOK, &httpdto.ChangePasswordResponse{Message: "password changed successfully"})
}

func (c *AccountController) DeleteAccount(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Delete account failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	logrus.WithField("user_id", userID).Info("Delete account request received")
	if err := c.accounts.DeleteAccount(ctx.Request().Context(), userID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Delete account failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Delete account failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Account deleted")
	return ctx.JSON(http.StatusOK, &httpdto.DeleteAccountResponse{Message: "account deleted"})
}

func profileResponse(user *entity.User) *httpdto.ProfileResponse {
	resp := &httpdto.ProfileResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsPremium: user.IsPremium,
	}
	if user.Gender.Valid {
		resp.Gender = user.Gender.String
	}
	if user.DateOfBirth.Valid {
		resp.DateOfBirth = user.DateOfBirth.Time.Format("2006-01-02")
	}
	if user.LatestMetric != nil {
		resp.LatestMetric = &httpdto.BodyMetricResponse{
			ID:         user.LatestMetric.ID,
			WeightKG:   user.LatestMetric.WeightKG,
			HeightCM:   user.LatestMetric.HeightCM,
			RecordedAt: user.LatestMetric.RecordedAt.Format(time.RFC3339),
		}
	}
	return resp
}
