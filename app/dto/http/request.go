package http

import (
	"errors"
	"strings"
	"time"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.Gender != "" && r.Gender != "male" && r.Gender != "female" && r.Gender != "other" {
		return errors.New("gender must be one of: male, female, other")
	}
	if r.DateOfBirth != "" {
		if _, err := r.ParsedDateOfBirth(); err != nil {
			return errors.New("date_of_birth must be in YYYY-MM-DD format")
		}
	}
	return nil
}

func (r *RegisterRequest) ParsedDateOfBirth() (*time.Time, error) {
	if r.DateOfBirth == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", r.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *VerifyCodeRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Code == "" {
		return errors.New("code is required")
	}
	return nil
}

type ResendCodeRequest struct {
	Email string `json:"email"`
}

func (r *ResendCodeRequest) Validate() error {
	return validateEmail(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshTokenRequest) Validate() error {
	if r.RefreshToken == "" {
		return errors.New("refresh_token is required")
	}
	return nil
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *LogoutRequest) Validate() error {
	if r.RefreshToken == "" {
		return errors.New("refresh_token is required")
	}
	return nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.OldPassword == "" {
		return errors.New("old_password is required")
	}
	if r.NewPassword == "" {
		return errors.New("new_password is required")
	}
	return nil
}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

func (r *RequestPasswordResetRequest) Validate() error {
	return validateEmail(r.Email)
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (r *ResetPasswordRequest) Validate() error {
	if r.Token == "" {
		return errors.New("token is required")
	}
	if r.NewPassword == "" {
		return errors.New("new_password is required")
	}
	return nil
}

type UpdateProfileRequest struct {
	Name        *string `json:"name,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if r.Gender != nil && *r.Gender != "" && *r.Gender != "male" && *r.Gender != "female" && *r.Gender != "other" {
		return errors.New("gender must be one of: male, female, other")
	}
	if r.DateOfBirth != nil && *r.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", *r.DateOfBirth); err != nil {
			return errors.New("date_of_birth must be in YYYY-MM-DD format")
		}
	}
	return nil
}

func (r *UpdateProfileRequest) ParsedDateOfBirth() (*time.Time, error) {
	if r.DateOfBirth == nil || *r.DateOfBirth == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *r.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type RecordBodyMetricRequest struct {
	WeightKG float64 `json:"weight_kg"`
	HeightCM float64 `json:"height_cm"`
}

func (r *RecordBodyMetricRequest) Validate() error {
	if r.WeightKG <= 0 || r.WeightKG > 500 {
		return errors.New("weight_kg must be between 0 and 500")
	}
	if r.HeightCM <= 0 || r.HeightCM > 300 {
		return errors.New("height_cm must be between 0 and 300")
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return errors.New("email is invalid")
	}
	return nil
}
