package client

import (
	"errors"
	"fmt"
)

// APIError es una respuesta {success:false, message} del servidor o una
// falla local equivalente.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

var (
	ErrNotAuthenticated = &APIError{Message: "Not authenticated"}
	ErrNoPendingSignup  = &APIError{Message: "No signup data. Restart process."}
	ErrNotVerified      = &APIError{Message: "Email not verified"}
)

// IsUnauthorized indica si err es un 401 del servidor.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 401
}
