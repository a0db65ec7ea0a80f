package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"quickchat/internal/domain"
	"quickchat/internal/repository"
	"quickchat/internal/storage"
)

const passwordCost = 10

// SessionIssuer emite el session token de un usuario autenticado.
type SessionIssuer interface {
	GenerateSessionToken(user domain.User) (string, error)
}

// UserService orquesta request-otp, verify-otp, signup, login y perfil.
// No guarda estado entre pasos: el verification token es lo que viaja.
type UserService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	ledger   *OTPLedger
	verifier *VerificationTokenIssuer
	sessions SessionIssuer
	assets   storage.AssetUploader
	now      func() time.Time
}

func NewUserService(
	logger *zap.Logger,
	users repository.UserRepository,
	ledger *OTPLedger,
	verifier *VerificationTokenIssuer,
	sessions SessionIssuer,
	assets storage.AssetUploader,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if assets == nil {
		assets = storage.NewDisabledUploader()
	}
	return &UserService{
		logger:   logger,
		users:    users,
		ledger:   ledger,
		verifier: verifier,
		sessions: sessions,
		assets:   assets,
		now:      time.Now,
	}
}

// AuthResult es el usuario autenticado junto a su session token.
type AuthResult struct {
	User  domain.User
	Token string
}

type SignupInput struct {
	FullName          string
	Email             string
	Password          string
	Bio               string
	VerificationToken string
}

type ProfileInput struct {
	FullName   string
	Bio        string
	ProfilePic string
}

// RequestOTP emite un codigo para el email. No consulta el Credential Store,
// asi que la respuesta no revela si la cuenta existe.
func (s *UserService) RequestOTP(ctx context.Context, emailAddr string) (string, error) {
	if s.ledger == nil {
		return "", ErrServiceNotConfigured
	}
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return "", ErrInvalidEmail
	}
	if _, err := s.ledger.Issue(ctx, emailAddr); err != nil {
		return "", err
	}
	return emailAddr, nil
}

// VerifyOTP consume el codigo y devuelve un verification token para signup.
func (s *UserService) VerifyOTP(ctx context.Context, emailAddr, code string) (string, error) {
	if s.ledger == nil || s.verifier == nil {
		return "", ErrServiceNotConfigured
	}
	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" || code == "" {
		return "", ErrMissingDetails
	}
	if !isValidEmail(emailAddr) {
		return "", ErrInvalidEmail
	}
	if !isValidOTPCode(code) {
		return "", ErrInvalidOTPFormat
	}

	if err := s.ledger.Verify(ctx, emailAddr, code); err != nil {
		return "", err
	}
	return s.verifier.Issue(emailAddr)
}

func (s *UserService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	if s.users == nil || s.verifier == nil || s.sessions == nil {
		return AuthResult{}, ErrServiceNotConfigured
	}

	fullName := strings.TrimSpace(input.FullName)
	emailAddr := normalizeEmail(input.Email)
	bio := strings.TrimSpace(input.Bio)
	token := strings.TrimSpace(input.VerificationToken)
	if fullName == "" || emailAddr == "" || strings.TrimSpace(input.Password) == "" || bio == "" || token == "" {
		return AuthResult{}, ErrMissingDetails
	}
	if !isValidEmail(emailAddr) {
		return AuthResult{}, ErrInvalidEmail
	}

	if err := s.verifier.Validate(token, emailAddr); err != nil {
		return AuthResult{}, err
	}

	_, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		return AuthResult{}, ErrAccountExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), passwordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return AuthResult{}, ErrInvalidPassword
		}
		return AuthResult{}, err
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        emailAddr,
		PasswordHash: string(hash),
		Bio:          bio,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, ErrAccountExists
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	return s.authenticated(user)
}

// Login trata igual "no existe el usuario" y "password incorrecto".
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (AuthResult, error) {
	if s.users == nil || s.sessions == nil {
		return AuthResult{}, ErrServiceNotConfigured
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || strings.TrimSpace(password) == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Igualamos el costo con el caso de password incorrecto.
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(password))
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.authenticated(user)
}

// CurrentUser devuelve el snapshot actual del usuario autenticado.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, ErrServiceNotConfigured
	}
	user, err := s.users.GetByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (domain.User, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return domain.User{}, ErrMissingDetails
	}
	user.FullName = fullName
	user.Bio = strings.TrimSpace(input.Bio)

	if pic := strings.TrimSpace(input.ProfilePic); pic != "" {
		url, err := s.assets.Upload(ctx, "profiles", pic)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidAsset) {
				return domain.User{}, ErrInvalidImage
			}
			s.logger.Warn("profile picture upload failed", zap.Error(err), zap.String("user_id", user.ID))
			return domain.User{}, fmt.Errorf("%w: %w", ErrAssetUploadFailure, err)
		}
		user.ProfilePicURL = url
	}
	user.UpdatedAt = s.now().UTC()

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return updated, nil
}

func (s *UserService) authenticated(user domain.User) (AuthResult, error) {
	token, err := s.sessions.GenerateSessionToken(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue session token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

func dummyPasswordHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("quickchat-unknown-user"), passwordCost)
	})
	return dummyHash
}
