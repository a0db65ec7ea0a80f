package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	verificationPurpose    = "email_verification"
	defaultVerificationTTL = 10 * time.Minute
)

var (
	ErrVerificationTokenInvalid  = fmt.Errorf("%w: invalid or expired verification token", ErrTokenInvalid)
	ErrVerificationEmailMismatch = fmt.Errorf("%w: email mismatch", ErrTokenInvalid)
)

// VerificationClaims afirma que un email completo la verificacion OTP.
type VerificationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// VerificationTokenIssuer puentea verify-otp y signup sin estado en el servidor.
type VerificationTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewVerificationTokenIssuer(secret string, ttl time.Duration) *VerificationTokenIssuer {
	if ttl <= 0 {
		ttl = defaultVerificationTTL
	}
	return &VerificationTokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "quickchat",
		now:    time.Now,
	}
}

func (v *VerificationTokenIssuer) Issue(email string) (string, error) {
	email = normalizeEmail(email)
	if len(v.secret) == 0 || email == "" {
		return "", ErrVerificationTokenInvalid
	}
	now := v.now().UTC()
	claims := VerificationClaims{
		Email:   email,
		Purpose: verificationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Validate devuelve ErrVerificationTokenInvalid si la firma, la expiracion o
// el proposito fallan, y ErrVerificationEmailMismatch si el email no coincide.
func (v *VerificationTokenIssuer) Validate(token, expectedEmail string) error {
	if len(v.secret) == 0 || strings.TrimSpace(token) == "" {
		return ErrVerificationTokenInvalid
	}
	var claims VerificationClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || claims.Purpose != verificationPurpose {
		return ErrVerificationTokenInvalid
	}
	if claims.Email != normalizeEmail(expectedEmail) {
		return ErrVerificationEmailMismatch
	}
	return nil
}
