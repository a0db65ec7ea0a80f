package service

import "errors"

var (
	// validation-error
	ErrInvalidEmail        = errors.New("invalid email")
	ErrInvalidOTPFormat    = errors.New("invalid otp format")
	ErrMissingDetails      = errors.New("missing details")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrInvalidImage        = errors.New("invalid image")
	ErrMessageInvalidInput = errors.New("message invalid input")
	ErrInvalidID           = errors.New("invalid id")

	// not-found
	ErrOTPNotFound     = errors.New("otp expired or not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")

	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrOTPInvalid = errors.New("invalid otp")
	ErrOTPExpired = errors.New("otp expired")

	// token-invalid; las variantes concretas lo envuelven.
	ErrTokenInvalid = errors.New("token invalid")

	// conflict
	ErrAccountExists = errors.New("account already exists")

	// dependency-failure
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrOTPStoreFailure    = errors.New("otp store unavailable")
	ErrAssetUploadFailure = errors.New("asset upload failed")

	ErrServiceNotConfigured = errors.New("service not configured")
)
