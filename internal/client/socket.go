package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quickchat/internal/realtime"
)

// Socket es la conexion realtime de un usuario.
type Socket struct {
	conn      *websocket.Conn
	userID    string
	done      chan struct{}
	closeOnce sync.Once
}

// DialSocket conecta a /socket con userId (y token si hay) y entrega cada
// frame recibido a onFrame hasta que la conexion se cierre.
func DialSocket(ctx context.Context, baseURL, userID, token string, onFrame func(realtime.Frame)) (*Socket, error) {
	wsURL, err := socketURL(baseURL, userID, token)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	s := &Socket{conn: conn, userID: userID, done: make(chan struct{})}
	go s.readLoop(onFrame)
	return s, nil
}

func socketURL(baseURL, userID, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket"
	q := url.Values{}
	q.Set("userId", userID)
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Socket) UserID() string {
	return s.userID
}

// Done se cierra cuando la conexion termina por cualquier motivo.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

func (s *Socket) readLoop(onFrame func(realtime.Frame)) {
	defer close(s.done)
	for {
		var frame realtime.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			return
		}
		if onFrame != nil {
			onFrame(frame)
		}
	}
}

// Close envia un close frame y espera que termine el loop de lectura.
func (s *Socket) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
		}
		s.conn.Close()
	})
}
