package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quickchat/internal/service"
)

// UserHandler mantiene dependencias para los endpoints de /api/auth.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

// SendOTP maneja POST /api/auth/send-otp.
func (h *UserHandler) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "send otp", err)
		return
	}

	emailAddr, err := h.userServ.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, "send otp", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"email":   emailAddr,
		"message": "Otp Sent successfully",
	})
}

// VerifyOTP maneja POST /api/auth/verify-otp.
func (h *UserHandler) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "verify otp", err)
		return
	}

	token, err := h.userServ.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, h.logger, "verify otp", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "Email verified successfully",
		"verificationToken": token,
	})
}

// Signup maneja POST /api/auth/signup.
func (h *UserHandler) Signup(c *gin.Context) {
	var req struct {
		FullName          string `json:"fullName"`
		Email             string `json:"email"`
		Password          string `json:"password"`
		Bio               string `json:"bio"`
		VerificationToken string `json:"verificationToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "signup", err)
		return
	}

	res, err := h.userServ.Signup(c.Request.Context(), service.SignupInput{
		FullName:          req.FullName,
		Email:             req.Email,
		Password:          req.Password,
		Bio:               req.Bio,
		VerificationToken: req.VerificationToken,
	})
	if err != nil {
		respondError(c, h.logger, "signup", err)
		return
	}

	h.logger.Info("account created", zap.String("user_id", res.User.ID))
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"userData": res.User,
		"token":    res.Token,
		"message":  "Account created successfully",
	})
}

// Login maneja POST /api/auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "login", err)
		return
	}

	res, err := h.userServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"userData": res.User,
		"token":    res.Token,
		"message":  "Login successful",
	})
}

// CheckAuth maneja GET /api/auth/check.
func (h *UserHandler) CheckAuth(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "jwt must be provided")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// UpdateProfile maneja PUT /api/auth/update-profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "jwt must be provided")
		return
	}

	var req struct {
		ProfilePic string `json:"profilePic"`
		Bio        string `json:"bio"`
		FullName   string `json:"fullName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "update profile", err)
		return
	}

	updated, err := h.userServ.UpdateProfile(c.Request.Context(), user.ID, service.ProfileInput{
		FullName:   req.FullName,
		Bio:        req.Bio,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		respondError(c, h.logger, "update profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": updated})
}
