package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"quickchat/internal/domain"
	"quickchat/internal/realtime"
	"quickchat/internal/repository"
	"quickchat/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByID[user.ID]; !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	m.usersByID[user.ID] = user
	return user, nil
}

func (m *mockUserRepo) ListExcept(_ context.Context, id string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for uid, u := range m.usersByID {
		if uid != id {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockMessageRepo struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (m *mockMessageRepo) Create(_ context.Context, message domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, message)
	return nil
}

func (m *mockMessageRepo) ListConversation(_ context.Context, a, b string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Message{}
	for _, msg := range m.msgs {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) MarkConversationSeen(_ context.Context, senderID, receiverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.msgs {
		if m.msgs[i].SenderID == senderID && m.msgs[i].ReceiverID == receiverID {
			m.msgs[i].Seen = true
		}
	}
	return nil
}

func (m *mockMessageRepo) MarkSeen(_ context.Context, id, receiverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.msgs {
		if m.msgs[i].ID == id && m.msgs[i].ReceiverID == receiverID {
			m.msgs[i].Seen = true
			return true, nil
		}
	}
	return false, nil
}

func (m *mockMessageRepo) CountUnseenBySender(_ context.Context, receiverID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, msg := range m.msgs {
		if msg.ReceiverID == receiverID && !msg.Seen {
			out[msg.SenderID]++
		}
	}
	return out, nil
}

type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (s *captureSender) SendVerificationOTP(_ context.Context, to, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[to] = code
	return nil
}

func (s *captureSender) code(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[to]
}

type apiFixture struct {
	router   *gin.Engine
	users    *mockUserRepo
	messages *mockMessageRepo
	sender   *captureSender
	jwt      *service.JWTService
	verifier *service.VerificationTokenIssuer
	hub      *realtime.Hub
}

func newAPIFixture(t *testing.T, requireToken bool) apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	users := newMockUserRepo()
	messages := &mockMessageRepo{}
	sender := &captureSender{}
	jwtSvc := service.NewJWTService("secret", time.Hour)
	verifier := service.NewVerificationTokenIssuer("secret", 10*time.Minute)
	ledger := service.NewOTPLedger(logger, service.NewMemoryOTPStore(), sender, 5*time.Minute)

	hub := realtime.NewHub(logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	userSvc := service.NewUserService(logger, users, ledger, verifier, jwtSvc, nil)
	msgSvc := service.NewMessageService(logger, messages, users, nil, hub)

	router := NewRouter(
		logger,
		RouterOptions{MaxBodyBytes: DefaultMaxBodyBytes, CORSOrigin: "*"},
		NewUserHandler(logger, userSvc),
		NewMessageHandler(logger, msgSvc),
		NewSocketHandler(logger, hub, jwtSvc, requireToken),
		JWTAuthMiddleware(jwtSvc, userSvc),
	)
	return apiFixture{
		router:   router,
		users:    users,
		messages: messages,
		sender:   sender,
		jwt:      jwtSvc,
		verifier: verifier,
		hub:      hub,
	}
}

const (
	aliceID = "0b7c6f0e-6f43-4c3e-9d2a-1f6a0c2b7a11"
	bobID   = "5d1e8a44-2b7f-4f0c-8a9e-3c4d5e6f7a22"
	msgID   = "c3a1e2f4-7b6d-4e5f-9a0b-2c3d4e5f6a44"
)

// seedUser crea un usuario directo en el repo y devuelve su session token.
func (f apiFixture) seedUser(t *testing.T, id, email string) string {
	t.Helper()
	user := domain.User{ID: id, Email: email, FullName: id, Bio: "bio"}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := f.jwt.GenerateSessionToken(user)
	if err != nil {
		t.Fatalf("session token: %v", err)
	}
	return token
}

func performRequest(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var payload []byte
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	default:
		payload, _ = json.Marshal(v)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}
