package service

import "testing"

func TestIsValidEmail(t *testing.T) {
	cases := map[string]bool{
		"a@x.com":          true,
		"user@example.com": true,
		"":                 false,
		"not-an-email":     false,
		"a@":               false,
		"a b@x.com":        false,
	}
	for in, want := range cases {
		if got := isValidEmail(in); got != want {
			t.Fatalf("isValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsValidOTPCode(t *testing.T) {
	cases := map[string]bool{
		"123456":  true,
		"000000":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"-12345":  false,
		"12.345":  false,
		"":        false,
	}
	for in, want := range cases {
		if got := isValidOTPCode(in); got != want {
			t.Fatalf("isValidOTPCode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestIsValidID(t *testing.T) {
	cases := map[string]bool{
		"5d1e8a44-2b7f-4f0c-8a9e-3c4d5e6f7a22": true,
		"":                                     false,
		"abc":                                  false,
		"5d1e8a44-2b7f-4f0c-8a9e":              false,
	}
	for in, want := range cases {
		if got := isValidID(in); got != want {
			t.Fatalf("isValidID(%q) = %v, want %v", in, got, want)
		}
	}
}
