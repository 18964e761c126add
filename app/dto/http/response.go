package http

type RegisterResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type VerifyCodeResponse struct {
	UserID       uint64 `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type ResendCodeResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	AccessToken          string `json:"access_token,omitempty"`
	RefreshToken         string `json:"refresh_token,omitempty"`
	ExpiresIn            int64  `json:"expires_in,omitempty"`
	RequiresVerification bool   `json:"requires_verification,omitempty"`
	Email                string `json:"email,omitempty"`
	Name                 string `json:"name,omitempty"`
	Message              string `json:"message,omitempty"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

type ChangePasswordResponse struct {
	Message string `json:"message"`
}

type RequestPasswordResetResponse struct {
	Message string `json:"message"`
}

type ResetPasswordResponse struct {
	Message string `json:"message"`
}

type BodyMetricResponse struct {
	ID         uint64  `json:"id"`
	WeightKG   float64 `json:"weight_kg"`
	HeightCM   float64 `json:"height_cm"`
	RecordedAt string  `json:"recorded_at"`
}

type ProfileResponse struct {
	ID           uint64              `json:"id"`
	Email        string              `json:"email"`
	Name         string              `json:"name"`
	Gender       string              `json:"gender,omitempty"`
	DateOfBirth  string              `json:"date_of_birth,omitempty"`
	IsPremium    bool                `json:"is_premium"`
	LatestMetric *BodyMetricResponse `json:"latest_metric,omitempty"`
}

type DeleteAccountResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
