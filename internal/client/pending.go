package client

import "strings"

// PendingSignup vive solo del lado del cliente entre el formulario y la
// verificacion OTP; se envia recien en el signup final.
type PendingSignup struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p PendingSignup) complete() bool {
	return strings.TrimSpace(p.FullName) != "" &&
		strings.TrimSpace(p.Email) != "" &&
		p.Password != ""
}
