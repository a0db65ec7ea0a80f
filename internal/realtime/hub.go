package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type delivery struct {
	userID string
	frame  []byte
	reply  chan bool
}

// Hub serializa conexiones, desconexiones y entregas en un unico loop.
// Cada mutacion de presencia se sigue de exactamente un broadcast de
// getOnlineUsers calculado sobre el estado resultante.
type Hub struct {
	logger   *zap.Logger
	presence *Presence

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	// solo el loop de Run toca clients
	clients map[string]*Client
	done    chan struct{}
	now     func() time.Time

	onBroadcast func(online []string)
}

func NewHub(logger *zap.Logger, presence *Presence) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if presence == nil {
		presence = NewPresence()
	}
	return &Hub{
		logger:     logger,
		presence:   presence,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery),
		clients:    make(map[string]*Client),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

func (h *Hub) Presence() *Presence {
	return h.presence
}

// Online devuelve los usuarios con una conexion vigente.
func (h *Hub) Online() []string {
	return h.presence.Online()
}

// Run procesa eventos hasta que ctx se cancele; al salir cierra todos los
// clientes y vacia la presencia.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			h.presence.reset()
			h.logger.Info("realtime hub stopped")
			return

		case c := <-h.register:
			h.clients[c.id] = c
			online := h.presence.SetOnline(c.userID, c.id)
			h.logger.Debug("client connected", zap.String("user_id", c.userID), zap.String("conn_id", c.id))
			h.broadcastOnline(online)

		case c := <-h.unregister:
			h.remove(c)

		case d := <-h.deliver:
			d.reply <- h.deliverLocal(d)
		}
	}
}

// SendToUser entrega un evento a la conexion vigente de userID. Devuelve
// false si el usuario no esta online o el hub ya se detuvo.
func (h *Hub) SendToUser(userID string, event string, payload any) bool {
	frame, err := encodeFrame(event, payload, h.now())
	if err != nil {
		h.logger.Warn("encode realtime frame failed", zap.Error(err), zap.String("event", event))
		return false
	}
	d := delivery{userID: userID, frame: frame, reply: make(chan bool, 1)}
	select {
	case h.deliver <- d:
	case <-h.done:
		return false
	}
	return <-d.reply
}

func (h *Hub) deliverLocal(d delivery) bool {
	connID, ok := h.presence.ConnectionFor(d.userID)
	if !ok {
		return false
	}
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	if !c.enqueue(d.frame) {
		h.logger.Warn("client send buffer full, dropping", zap.String("user_id", c.userID))
		h.remove(c)
		return false
	}
	return true
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	online, changed := h.presence.ClearIfCurrent(c.userID, c.id)
	h.logger.Debug("client disconnected",
		zap.String("user_id", c.userID),
		zap.String("conn_id", c.id),
		zap.Bool("was_current", changed),
	)
	if changed {
		h.broadcastOnline(online)
	}
}

func (h *Hub) broadcastOnline(online []string) {
	if h.onBroadcast != nil {
		h.onBroadcast(online)
	}
	frame, err := encodeFrame(EventOnlineUsers, online, h.now())
	if err != nil {
		h.logger.Error("encode online users failed", zap.Error(err))
		return
	}
	var dropped []*Client
	for _, c := range h.clients {
		if !c.enqueue(frame) {
			dropped = append(dropped, c)
		}
	}
	for _, c := range dropped {
		h.logger.Warn("client send buffer full, dropping", zap.String("user_id", c.userID))
		h.remove(c)
	}
}

func (h *Hub) enter(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
