package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"quickchat/internal/service"
)

// MessageHandler expone la mensajeria uno a uno bajo /api/messages.
type MessageHandler struct {
	logger  *zap.Logger
	msgServ *service.MessageService
}

func NewMessageHandler(logger *zap.Logger, msgServ *service.MessageService) *MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageHandler{logger: logger, msgServ: msgServ}
}

// SidebarUsers maneja GET /api/messages/users.
func (h *MessageHandler) SidebarUsers(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "jwt must be provided")
		return
	}

	users, unseen, err := h.msgServ.Contacts(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, "list contacts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"users":          users,
		"unseenMessages": unseen,
	})
}

// Conversation maneja GET /api/messages/:id.
func (h *MessageHandler) Conversation(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "jwt must be provided")
		return
	}

	msgs, err := h.msgServ.Conversation(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get conversation", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

// MarkSeen maneja PUT /api/messages/mark/:id.
func (h *MessageHandler) MarkSeen(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "jwt must be provided")
		return
	}

	if err := h.msgServ.MarkSeen(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, h.logger, "mark message seen", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Send maneja POST /api/messages/send/:id.
func (h *MessageHandler) Send(c *gin.Context) {
	user, ok := GetAuthUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "jwt must be provided")
		return
	}

	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.logger, "send message", err)
		return
	}

	msg, err := h.msgServ.Send(c.Request.Context(), user.ID, c.Param("id"), service.SendInput{
		Text:  req.Text,
		Image: req.Image,
	})
	if err != nil {
		respondError(c, h.logger, "send message", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "newMessage": msg})
}
