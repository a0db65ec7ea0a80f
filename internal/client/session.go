package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"

	"quickchat/internal/domain"
	"quickchat/internal/realtime"
)

const eventNewMessage = "newMessage"

// SocketDialer abre el canal realtime; DialSocket es la implementacion real.
type SocketDialer func(ctx context.Context, baseURL, userID, token string, onFrame func(realtime.Frame)) (*Socket, error)

// Session guarda el token, el usuario autenticado, la vista de presencia y
// el socket. Cada cambio de identidad reconecta o cierra el socket.
type Session struct {
	logger *zap.Logger
	api    *API
	tokens TokenStore
	dial   SocketDialer

	mu          sync.RWMutex
	token       string
	authUser    *domain.User
	onlineUsers []string
	socket      *Socket
	// epoch cambia con cada identidad; los frames de un socket anterior se descartan.
	epoch uint64

	pending           *PendingSignup
	verificationToken string

	onMessage func(domain.Message)
}

func NewSession(logger *zap.Logger, api *API, tokens TokenStore) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	return &Session{
		logger: logger,
		api:    api,
		tokens: tokens,
		dial:   DialSocket,
	}
}

// OnMessage registra el callback para eventos newMessage.
func (s *Session) OnMessage(fn func(domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = fn
}

func (s *Session) API() *API {
	return s.api
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) AuthUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.authUser == nil {
		return domain.User{}, false
	}
	return *s.authUser, true
}

// OnlineUsers refleja el ultimo getOnlineUsers recibido.
func (s *Session) OnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.onlineUsers))
	copy(out, s.onlineUsers)
	return out
}

func (s *Session) IsOnline(userID string) bool {
	for _, id := range s.OnlineUsers() {
		if id == userID {
			return true
		}
	}
	return false
}

// CheckAuth restaura la sesion desde el TokenStore. Un 401 descarta el token.
func (s *Session) CheckAuth(ctx context.Context) (domain.User, error) {
	token := s.Token()
	if token == "" {
		stored, err := s.tokens.Load()
		if err != nil {
			return domain.User{}, &APIError{Message: err.Error()}
		}
		token = stored
	}
	if token == "" {
		return domain.User{}, ErrNotAuthenticated
	}

	user, err := s.api.CheckAuth(ctx, token)
	if err != nil {
		if IsUnauthorized(err) {
			s.clearIdentity()
		}
		return domain.User{}, err
	}
	s.setIdentity(ctx, user, token)
	return user, nil
}

func (s *Session) Login(ctx context.Context, email, password string) (domain.User, error) {
	res, err := s.api.Login(ctx, strings.ToLower(strings.TrimSpace(email)), password)
	if err != nil {
		return domain.User{}, err
	}
	s.setIdentity(ctx, res.UserData, res.Token)
	return res.UserData, nil
}

// BeginSignup guarda los datos del formulario hasta completar la verificacion.
func (s *Session) BeginSignup(fullName, email, password string) error {
	pending := PendingSignup{
		FullName: strings.TrimSpace(fullName),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}
	if !pending.complete() {
		return &APIError{Message: "Missing Details"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &pending
	s.verificationToken = ""
	return nil
}

func (s *Session) PendingSignup() (PendingSignup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return PendingSignup{}, false
	}
	return *s.pending, true
}

// AbandonSignup descarta los datos pendientes y el verification token.
func (s *Session) AbandonSignup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.verificationToken = ""
}

// SendOTP pide un codigo para el email del signup pendiente.
func (s *Session) SendOTP(ctx context.Context) error {
	pending, ok := s.PendingSignup()
	if !ok {
		return ErrNoPendingSignup
	}
	_, err := s.api.SendOTP(ctx, pending.Email)
	return err
}

func (s *Session) VerifyOTP(ctx context.Context, otp string) error {
	pending, ok := s.PendingSignup()
	if !ok {
		return ErrNoPendingSignup
	}
	token, err := s.api.VerifyOTP(ctx, pending.Email, strings.TrimSpace(otp))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.verificationToken = token
	s.mu.Unlock()
	return nil
}

// CompleteSignup crea la cuenta con el signup pendiente y el bio.
func (s *Session) CompleteSignup(ctx context.Context, bio string) (domain.User, error) {
	s.mu.RLock()
	pending := s.pending
	vtoken := s.verificationToken
	s.mu.RUnlock()
	if pending == nil {
		return domain.User{}, ErrNoPendingSignup
	}
	if vtoken == "" {
		return domain.User{}, ErrNotVerified
	}
	if strings.TrimSpace(bio) == "" {
		return domain.User{}, &APIError{Message: "Bio required"}
	}

	res, err := s.api.Signup(ctx, *pending, strings.TrimSpace(bio), vtoken)
	if err != nil {
		return domain.User{}, err
	}
	s.AbandonSignup()
	s.setIdentity(ctx, res.UserData, res.Token)
	return res.UserData, nil
}

func (s *Session) UpdateProfile(ctx context.Context, update ProfileUpdate) (domain.User, error) {
	token := s.Token()
	if token == "" {
		return domain.User{}, ErrNotAuthenticated
	}
	user, err := s.api.UpdateProfile(ctx, token, update)
	if err != nil {
		return domain.User{}, err
	}
	s.mu.Lock()
	s.authUser = &user
	s.mu.Unlock()
	return user, nil
}

// Logout descarta el token y cierra el canal realtime.
func (s *Session) Logout() {
	s.clearIdentity()
}

// Close cierra el socket sin olvidar el token persistido.
func (s *Session) Close() {
	s.mu.Lock()
	sock := s.socket
	s.socket = nil
	s.epoch++
	s.mu.Unlock()
	if sock != nil {
		sock.Close()
	}
}

func (s *Session) setIdentity(ctx context.Context, user domain.User, token string) {
	if err := s.tokens.Save(token); err != nil {
		s.logger.Warn("persist session token failed", zap.Error(err))
	}

	s.mu.Lock()
	s.token = token
	s.authUser = &user
	old := s.socket
	if old != nil && old.UserID() == user.ID {
		s.mu.Unlock()
		return
	}
	s.socket = nil
	s.onlineUsers = nil
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	s.connect(ctx, user.ID, token, epoch)
}

func (s *Session) connect(ctx context.Context, userID, token string, epoch uint64) {
	onFrame := func(frame realtime.Frame) { s.handleFrame(epoch, frame) }
	sock, err := s.dial(ctx, s.api.BaseURL(), userID, token, onFrame)
	if err != nil {
		// la sesion HTTP sigue valida aunque el canal realtime no conecte
		s.logger.Warn("realtime connect failed", zap.Error(err), zap.String("user_id", userID))
		return
	}

	s.mu.Lock()
	if s.epoch != epoch || s.socket != nil {
		s.mu.Unlock()
		sock.Close()
		return
	}
	s.socket = sock
	s.mu.Unlock()
}

func (s *Session) clearIdentity() {
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn("clear session token failed", zap.Error(err))
	}
	s.mu.Lock()
	s.token = ""
	s.authUser = nil
	s.onlineUsers = nil
	sock := s.socket
	s.socket = nil
	s.epoch++
	s.mu.Unlock()
	if sock != nil {
		sock.Close()
	}
}

func (s *Session) currentEpoch(epoch uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch == epoch
}

func (s *Session) handleFrame(epoch uint64, frame realtime.Frame) {
	if !s.currentEpoch(epoch) {
		return
	}
	switch frame.Type {
	case realtime.EventOnlineUsers:
		var ids []string
		if err := json.Unmarshal(frame.Payload, &ids); err != nil {
			s.logger.Warn("decode online users failed", zap.Error(err))
			return
		}
		s.mu.Lock()
		if s.epoch == epoch {
			s.onlineUsers = ids
		}
		s.mu.Unlock()
	case eventNewMessage:
		var msg domain.Message
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			s.logger.Warn("decode new message failed", zap.Error(err))
			return
		}
		s.mu.RLock()
		fn := s.onMessage
		s.mu.RUnlock()
		if fn != nil {
			fn(msg)
		}
	}
}
