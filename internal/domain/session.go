package domain

// PresenceEntry asocia un usuario con la conexion realtime vigente.
type PresenceEntry struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}
