package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// isValidID valida los ids de usuario y mensaje, que en la base son UUID.
func isValidID(id string) bool {
	return validate.Var(id, "required,uuid") == nil
}

func isValidOTPCode(code string) bool {
	return validate.Var(code, "required,number,len=6") == nil
}
