package service

import "errors"

var (
	ErrDuplicateAccount     = errors.New("account already exists")
	ErrDeliveryFailure      = errors.New("verification email could not be delivered")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrResendTooSoon        = errors.New("a code was sent recently, please wait before requesting another")
	ErrAlreadyVerified      = errors.New("account is already verified")
	ErrRegistrationNotFound = errors.New("no registration in progress for this email")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrUserNotFound         = errors.New("user not found")
	ErrPasswordMismatch     = errors.New("old password is incorrect")
	ErrWeakPassword         = errors.New("password does not meet policy requirements")
)
