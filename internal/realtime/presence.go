package realtime

import (
	"sort"
	"sync"

	"quickchat/internal/domain"
)

// Presence mapea cada usuario a su conexion vigente (la ultima gana).
type Presence struct {
	mu    sync.RWMutex
	conns map[string]string
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[string]string)}
}

// SetOnline registra connID como la conexion vigente de userID y devuelve
// el conjunto de usuarios online resultante.
func (p *Presence) SetOnline(userID, connID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[userID] = connID
	return p.onlineLocked()
}

// ClearIfCurrent quita a userID solo si connID sigue siendo su conexion
// vigente. El bool indica si hubo cambio.
func (p *Presence) ClearIfCurrent(userID, connID string) ([]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	current, ok := p.conns[userID]
	if !ok || current != connID {
		return p.onlineLocked(), false
	}
	delete(p.conns, userID)
	return p.onlineLocked(), true
}

func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.onlineLocked()
}

func (p *Presence) ConnectionFor(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	connID, ok := p.conns[userID]
	return connID, ok
}

func (p *Presence) Entries() []domain.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.PresenceEntry, 0, len(p.conns))
	for userID, connID := range p.conns {
		out = append(out, domain.PresenceEntry{UserID: userID, ConnectionID: connID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (p *Presence) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns = make(map[string]string)
}

func (p *Presence) onlineLocked() []string {
	out := make([]string, 0, len(p.conns))
	for userID := range p.conns {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}
