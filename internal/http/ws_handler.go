package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quickchat/internal/realtime"
	"quickchat/internal/service"
)

// SocketHandler atiende el handshake del canal realtime.
type SocketHandler struct {
	logger       *zap.Logger
	hub          *realtime.Hub
	jwtSvc       *service.JWTService
	requireToken bool
}

func NewSocketHandler(logger *zap.Logger, hub *realtime.Hub, jwtSvc *service.JWTService, requireToken bool) *SocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketHandler{
		logger:       logger,
		hub:          hub,
		jwtSvc:       jwtSvc,
		requireToken: requireToken,
	}
}

// Connect maneja GET /socket?userId=. Con requireToken el session token
// (query token o header) debe pertenecer a userId.
func (h *SocketHandler) Connect(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		fail(c, http.StatusBadRequest, "userId required")
		return
	}

	if h.requireToken {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = sessionTokenFromRequest(c.Request)
		}
		if h.jwtSvc == nil || token == "" {
			fail(c, http.StatusUnauthorized, "jwt must be provided")
			return
		}
		claims, err := h.jwtSvc.ParseSessionToken(token)
		if err != nil || claims.UserID != userID {
			h.logger.Warn("realtime handshake rejected", zap.String("user_id", userID), zap.Error(err))
			fail(c, http.StatusUnauthorized, "Invalid token")
			return
		}
	}

	realtime.ServeWs(h.hub, c.Writer, c.Request, userID)
}
