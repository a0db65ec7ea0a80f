package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quickchat/internal/service"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// El orden importa: las variantes concretas van antes que sus padres.
var errorTable = []errorMapping{
	{service.ErrMissingDetails, http.StatusBadRequest, "Missing Details"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "Invalid email"},
	{service.ErrInvalidOTPFormat, http.StatusBadRequest, "Invalid OTP format"},
	{service.ErrInvalidPassword, http.StatusBadRequest, "Invalid password"},
	{service.ErrInvalidImage, http.StatusBadRequest, "Invalid image"},
	{service.ErrMessageInvalidInput, http.StatusBadRequest, "Message text or image required"},
	{service.ErrInvalidID, http.StatusBadRequest, "Invalid id"},

	{service.ErrOTPInvalid, http.StatusBadRequest, "Invalid OTP"},
	{service.ErrOTPExpired, http.StatusBadRequest, "OTP expired"},

	{service.ErrVerificationEmailMismatch, http.StatusBadRequest, "Email mismatch"},
	{service.ErrVerificationTokenInvalid, http.StatusBadRequest, "Invalid or expired verification token"},
	{service.ErrTokenInvalid, http.StatusBadRequest, "Invalid token"},

	{service.ErrOTPNotFound, http.StatusNotFound, "OTP expired or not found"},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrMessageNotFound, http.StatusNotFound, "Message not found"},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},

	{service.ErrAccountExists, http.StatusConflict, "Account already exists"},

	{service.ErrEmailSendFailure, http.StatusServiceUnavailable, "Could not send OTP email"},
	{service.ErrOTPStoreFailure, http.StatusServiceUnavailable, "OTP store unavailable"},
	{service.ErrAssetUploadFailure, http.StatusServiceUnavailable, "Image upload failed"},
}

func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.message
		}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge, "Request body too large"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// respondError escribe el sobre {success:false, message} y loguea los 5xx.
func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err), zap.Int("status", status))
	} else {
		logger.Debug(op+" rejected", zap.Error(err), zap.Int("status", status))
	}
	fail(c, status, message)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// bindError distingue un body demasiado grande de un JSON invalido.
func bindError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		fail(c, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	logger.Warn("invalid "+op+" request", zap.Error(err))
	fail(c, http.StatusBadRequest, "Invalid request")
}
