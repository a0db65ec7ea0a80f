package service

import (
	"errors"
	"testing"
	"time"

	"quickchat/internal/domain"
)

func TestVerificationToken_IssueValidate(t *testing.T) {
	v := NewVerificationTokenIssuer("secret", 10*time.Minute)
	token, err := v.Issue(" User@Example.com ")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := v.Validate(token, "user@example.com"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := v.Validate(token, "USER@example.com"); err != nil {
		t.Fatalf("validate should normalize expected email: %v", err)
	}
}

func TestVerificationToken_EmailMismatch(t *testing.T) {
	v := NewVerificationTokenIssuer("secret", 10*time.Minute)
	token, _ := v.Issue("a@x.com")

	err := v.Validate(token, "b@x.com")
	if !errors.Is(err, ErrVerificationEmailMismatch) {
		t.Fatalf("expected ErrVerificationEmailMismatch, got %v", err)
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("mismatch should be a token-invalid error")
	}
}

func TestVerificationToken_Expired(t *testing.T) {
	v := NewVerificationTokenIssuer("secret", 10*time.Minute)
	base := time.Now()
	v.now = func() time.Time { return base }
	token, _ := v.Issue("a@x.com")

	v.now = func() time.Time { return base.Add(11 * time.Minute) }
	if err := v.Validate(token, "a@x.com"); !errors.Is(err, ErrVerificationTokenInvalid) {
		t.Fatalf("expected ErrVerificationTokenInvalid, got %v", err)
	}
}

func TestVerificationToken_WrongSecret(t *testing.T) {
	token, _ := NewVerificationTokenIssuer("secret", time.Minute).Issue("a@x.com")
	other := NewVerificationTokenIssuer("other", time.Minute)
	if err := other.Validate(token, "a@x.com"); !errors.Is(err, ErrVerificationTokenInvalid) {
		t.Fatalf("expected ErrVerificationTokenInvalid, got %v", err)
	}
}

func TestVerificationToken_RejectsSessionToken(t *testing.T) {
	sessions := NewJWTService("secret", time.Hour)
	token, err := sessions.GenerateSessionToken(domain.User{ID: "a@x.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	v := NewVerificationTokenIssuer("secret", time.Minute)
	if err := v.Validate(token, "a@x.com"); !errors.Is(err, ErrVerificationTokenInvalid) {
		t.Fatalf("expected ErrVerificationTokenInvalid, got %v", err)
	}
}

func TestVerificationToken_Garbage(t *testing.T) {
	v := NewVerificationTokenIssuer("secret", time.Minute)
	for _, token := range []string{"", "   ", "not.a.jwt"} {
		if err := v.Validate(token, "a@x.com"); !errors.Is(err, ErrVerificationTokenInvalid) {
			t.Fatalf("token %q: expected ErrVerificationTokenInvalid, got %v", token, err)
		}
	}
}
