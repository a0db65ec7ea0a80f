package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quickchat/internal/domain"
	"quickchat/internal/realtime"
)

type fakeServer struct {
	*httptest.Server

	mu          sync.Mutex
	connected   []string
	conns       map[string]*websocket.Conn
	connectedCh chan string
	leftCh      chan string
}

var fakeUsers = map[string]domain.User{
	"tok-u1": {ID: "u1", FullName: "Ada", Email: "a@x.com", Bio: "hi"},
	"tok-u2": {ID: "u2", FullName: "Bob", Email: "b@x.com", Bio: "yo"},
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		conns:       map[string]*websocket.Conn{},
		connectedCh: make(chan string, 16),
		leftCh:      make(chan string, 16),
	}
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["email"] == "a@x.com" && req["password"] == "pw" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "userData": fakeUsers["tok-u1"], "token": "tok-u1", "message": "Login successful"})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
	})
	mux.HandleFunc("/api/auth/check", func(w http.ResponseWriter, r *http.Request) {
		user, ok := fakeUsers[r.Header.Get("token")]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
	})
	mux.HandleFunc("/api/auth/send-otp", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "email": req["email"], "message": "Otp Sent successfully"})
	})
	mux.HandleFunc("/api/auth/verify-otp", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["otp"] != "123456" || req["email"] != "b@x.com" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid OTP"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "verificationToken": "vt-b", "message": "Email verified successfully"})
	})
	mux.HandleFunc("/api/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["verificationToken"] != "vt-b" || req["email"] != "b@x.com" || req["fullName"] == "" || req["password"] == "" || req["bio"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Missing Details"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "userData": fakeUsers["tok-u2"], "token": "tok-u2", "message": "Account created successfully"})
	})
	mux.HandleFunc("/api/auth/update-profile", func(w http.ResponseWriter, r *http.Request) {
		user, ok := fakeUsers[r.Header.Get("token")]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "jwt must be provided"})
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		user.FullName = req["fullName"]
		user.Bio = req["bio"]
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
	})
	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.connected = append(fs.connected, userID)
		fs.conns[userID] = conn
		online := append([]string(nil), fs.connected...)
		fs.mu.Unlock()
		fs.connectedCh <- userID

		payload, _ := json.Marshal(online)
		_ = conn.WriteJSON(realtime.Frame{Type: realtime.EventOnlineUsers, Payload: payload, Timestamp: time.Now()})
		go func() {
			defer conn.Close()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					fs.leftCh <- userID
					return
				}
			}
		}()
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) push(t *testing.T, userID string, frame realtime.Frame) {
	t.Helper()
	fs.mu.Lock()
	conn := fs.conns[userID]
	fs.mu.Unlock()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteJSON(frame))
}

func waitFor(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
		return ""
	}
}

func newTestSession(fs *fakeServer, store TokenStore) *Session {
	return NewSession(zap.NewNop(), NewAPI(fs.URL, nil), store)
}

func TestSession_LoginConnectsSocket(t *testing.T) {
	fs := newFakeServer(t)
	store := NewMemoryTokenStore()
	s := newTestSession(fs, store)
	defer s.Close()

	user, err := s.Login(context.Background(), " A@x.com ", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "u1", waitFor(t, fs.connectedCh))

	saved, _ := store.Load()
	require.Equal(t, "tok-u1", saved)
	require.Equal(t, "tok-u1", s.Token())

	require.Eventually(t, func() bool { return s.IsOnline("u1") }, 2*time.Second, 10*time.Millisecond)
}

func TestSession_LoginFailureIsValue(t *testing.T) {
	fs := newFakeServer(t)
	s := newTestSession(fs, nil)

	_, err := s.Login(context.Background(), "a@x.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid credentials", apiErr.Message)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, ok := s.AuthUser()
	require.False(t, ok)
	require.Empty(t, fs.connectedCh)
}

func TestSession_SignupSwitchesIdentity(t *testing.T) {
	fs := newFakeServer(t)
	s := newTestSession(fs, nil)
	defer s.Close()
	ctx := context.Background()

	_, err := s.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", waitFor(t, fs.connectedCh))

	_, err = s.CompleteSignup(ctx, "bio")
	require.ErrorIs(t, err, ErrNoPendingSignup)

	require.NoError(t, s.BeginSignup("Bob", "B@x.com", "pw2"))
	_, err = s.CompleteSignup(ctx, "bio")
	require.ErrorIs(t, err, ErrNotVerified)

	require.NoError(t, s.SendOTP(ctx))
	err = s.VerifyOTP(ctx, "000000")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid OTP", apiErr.Message)

	require.NoError(t, s.VerifyOTP(ctx, "123456"))
	user, err := s.CompleteSignup(ctx, "yo")
	require.NoError(t, err)
	require.Equal(t, "u2", user.ID)

	// el socket de u1 se cierra y se abre uno para u2
	require.Equal(t, "u1", waitFor(t, fs.leftCh))
	require.Equal(t, "u2", waitFor(t, fs.connectedCh))
	require.Equal(t, "tok-u2", s.Token())

	_, pending := s.PendingSignup()
	require.False(t, pending)
}

func TestSession_LogoutClosesSocket(t *testing.T) {
	fs := newFakeServer(t)
	store := NewMemoryTokenStore()
	s := newTestSession(fs, store)

	_, err := s.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	waitFor(t, fs.connectedCh)
	require.Eventually(t, func() bool { return len(s.OnlineUsers()) > 0 }, 2*time.Second, 10*time.Millisecond)

	s.Logout()
	require.Equal(t, "u1", waitFor(t, fs.leftCh))
	require.Empty(t, s.Token())
	require.Empty(t, s.OnlineUsers())
	saved, _ := store.Load()
	require.Empty(t, saved)
	_, ok := s.AuthUser()
	require.False(t, ok)
}

func TestSession_LogoutIgnoresLateFrames(t *testing.T) {
	fs := newFakeServer(t)
	s := newTestSession(fs, nil)

	var (
		mu      sync.Mutex
		onFrame func(realtime.Frame)
	)
	s.dial = func(ctx context.Context, baseURL, userID, token string, fn func(realtime.Frame)) (*Socket, error) {
		mu.Lock()
		onFrame = fn
		mu.Unlock()
		return DialSocket(ctx, baseURL, userID, token, fn)
	}

	_, err := s.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	waitFor(t, fs.connectedCh)
	require.Eventually(t, func() bool { return s.IsOnline("u1") }, 2*time.Second, 10*time.Millisecond)

	s.Logout()
	waitFor(t, fs.leftCh)

	// un getOnlineUsers del socket viejo que llega tarde no repuebla la vista
	mu.Lock()
	late := onFrame
	mu.Unlock()
	late(realtime.Frame{Type: realtime.EventOnlineUsers, Payload: json.RawMessage(`["u1","u2"]`)})
	require.Empty(t, s.OnlineUsers())

	received := 0
	s.OnMessage(func(domain.Message) { received++ })
	late(realtime.Frame{Type: "newMessage", Payload: json.RawMessage(`{"_id":"m1","text":"hola"}`)})
	require.Zero(t, received)
}

func TestSession_CheckAuthRestoresFromFile(t *testing.T) {
	fs := newFakeServer(t)
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, store.Save("tok-u2"))

	s := newTestSession(fs, store)
	defer s.Close()
	user, err := s.CheckAuth(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u2", user.ID)
	require.Equal(t, "u2", waitFor(t, fs.connectedCh))

	// misma identidad: no reconecta
	_, err = s.CheckAuth(context.Background())
	require.NoError(t, err)
	require.Empty(t, fs.connectedCh)
}

func TestSession_CheckAuthStaleTokenIsCleared(t *testing.T) {
	fs := newFakeServer(t)
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, store.Save("tok-old"))

	s := newTestSession(fs, store)
	_, err := s.CheckAuth(context.Background())
	require.True(t, IsUnauthorized(err))

	saved, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, saved)

	_, err = s.CheckAuth(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSession_NewMessageCallbackAndPresence(t *testing.T) {
	fs := newFakeServer(t)
	s := newTestSession(fs, nil)
	defer s.Close()

	received := make(chan domain.Message, 1)
	s.OnMessage(func(m domain.Message) { received <- m })

	_, err := s.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	waitFor(t, fs.connectedCh)

	payload, _ := json.Marshal(domain.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Text: "hola"})
	fs.push(t, "u1", realtime.Frame{Type: "newMessage", Payload: payload, Timestamp: time.Now()})
	select {
	case m := <-received:
		require.Equal(t, "hola", m.Text)
	case <-time.After(2 * time.Second):
		t.Fatalf("no message delivered")
	}

	online, _ := json.Marshal([]string{"u1", "u2"})
	fs.push(t, "u1", realtime.Frame{Type: realtime.EventOnlineUsers, Payload: online, Timestamp: time.Now()})
	require.Eventually(t, func() bool { return s.IsOnline("u2") }, 2*time.Second, 10*time.Millisecond)
}

func TestSession_UpdateProfile(t *testing.T) {
	fs := newFakeServer(t)
	s := newTestSession(fs, nil)
	defer s.Close()

	_, err := s.UpdateProfile(context.Background(), ProfileUpdate{FullName: "X"})
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = s.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	user, err := s.UpdateProfile(context.Background(), ProfileUpdate{FullName: "Ada L", Bio: "new"})
	require.NoError(t, err)
	require.Equal(t, "Ada L", user.FullName)

	current, ok := s.AuthUser()
	require.True(t, ok)
	require.Equal(t, "new", current.Bio)
}

func TestSocketURL(t *testing.T) {
	got, err := socketURL("https://chat.example.com/", "u1", "tok")
	require.NoError(t, err)
	require.Equal(t, "wss://chat.example.com/socket?token=tok&userId=u1", got)

	got, err = socketURL("http://localhost:5000", "u1", "")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:5000/socket?userId=u1", got)
}

func TestImageDataURI(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	uri, err := ImageDataURI(png)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))
	_, err = ImageDataURI(txt)
	require.Error(t, err)
}
