package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"quickchat/internal/domain"
	"quickchat/internal/email"
)

const defaultOTPTTL = 5 * time.Minute

// El store conserva el registro un rato mas que la ventana de validez para
// que Verify pueda distinguir un codigo vencido de uno inexistente.
const otpSweepMargin = time.Minute

// OTPLedger emite y verifica codigos OTP de un solo uso.
type OTPLedger struct {
	logger *zap.Logger
	store  OTPStore
	sender email.Sender
	ttl    time.Duration
	now    func() time.Time
}

func NewOTPLedger(logger *zap.Logger, store OTPStore, sender email.Sender, ttl time.Duration) *OTPLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryOTPStore()
	}
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPLedger{
		logger: logger,
		store:  store,
		sender: sender,
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL devuelve la ventana de validez de un codigo.
func (l *OTPLedger) TTL() time.Duration {
	return l.ttl
}

// Issue reemplaza los codigos previos del email por uno nuevo y lo envia.
func (l *OTPLedger) Issue(ctx context.Context, emailAddr string) (string, error) {
	if err := l.store.DeleteAll(ctx, emailAddr); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOTPStoreFailure, err)
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", err
	}

	rec := domain.OTPRecord{
		Email:    emailAddr,
		Code:     code,
		IssuedAt: l.now().UTC(),
	}
	if err := l.store.Save(ctx, rec, l.ttl+otpSweepMargin); err != nil {
		return "", fmt.Errorf("%w: %w", ErrOTPStoreFailure, err)
	}

	if l.sender == nil {
		return "", ErrEmailSendFailure
	}
	if err := l.sender.SendVerificationOTP(ctx, emailAddr, code, rec.IssuedAt.Add(l.ttl)); err != nil {
		l.logger.Warn("send verification otp failed", zap.Error(err), zap.String("email", emailAddr))
		return "", fmt.Errorf("%w: %w", ErrEmailSendFailure, err)
	}
	return code, nil
}

// Verify devuelve nil si el par (email, code) es valido y vigente. Los
// errores posibles son ErrOTPNotFound, ErrOTPInvalid, ErrOTPExpired o
// ErrOTPStoreFailure.
func (l *OTPLedger) Verify(ctx context.Context, emailAddr, code string) error {
	records, err := l.store.List(ctx, emailAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOTPStoreFailure, err)
	}
	if len(records) == 0 {
		return ErrOTPNotFound
	}

	var (
		match domain.OTPRecord
		found bool
	)
	for _, rec := range records {
		if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
			continue
		}
		if !found || rec.IssuedAt.After(match.IssuedAt) {
			match = rec
			found = true
		}
	}
	if !found {
		return ErrOTPInvalid
	}

	// La expiracion del store puede ir atrasada; se revisa la edad aca tambien.
	if match.Age(l.now()) > l.ttl {
		if err := l.store.Delete(ctx, emailAddr, match.Code); err != nil {
			l.logger.Warn("delete expired otp failed", zap.Error(err), zap.String("email", emailAddr))
		}
		return ErrOTPExpired
	}

	if err := l.store.DeleteAll(ctx, emailAddr); err != nil {
		return fmt.Errorf("%w: %w", ErrOTPStoreFailure, err)
	}
	return nil
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
