package domain

import "time"

// User es el registro de credenciales y perfil. El id viaja como "_id" para
// mantener el contrato del cliente web.
type User struct {
	ID            string    `json:"_id"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Bio           string    `json:"bio"`
	ProfilePicURL string    `json:"profilePic"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
