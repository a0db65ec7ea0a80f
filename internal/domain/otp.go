package domain

import "time"

// OTPRecord es un codigo de verificacion emitido para un email.
type OTPRecord struct {
	Email    string    `json:"email"`
	Code     string    `json:"otp"`
	IssuedAt time.Time `json:"createdAt"`
}

// Age devuelve la antiguedad del registro respecto de now.
func (r OTPRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.IssuedAt)
}
