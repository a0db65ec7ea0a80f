package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"quickchat/internal/domain"
	"quickchat/internal/repository"
	"quickchat/internal/storage"
)

const EventNewMessage = "newMessage"

// Notifier entrega eventos realtime a la conexion vigente de un usuario.
type Notifier interface {
	SendToUser(userID string, event string, payload any) bool
}

// MessageService encapsula la mensajeria uno a uno.
type MessageService struct {
	logger   *zap.Logger
	messages repository.MessageRepository
	users    repository.UserRepository
	assets   storage.AssetUploader
	notifier Notifier
	now      func() time.Time
}

func NewMessageService(
	logger *zap.Logger,
	messages repository.MessageRepository,
	users repository.UserRepository,
	assets storage.AssetUploader,
	notifier Notifier,
) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if assets == nil {
		assets = storage.NewDisabledUploader()
	}
	return &MessageService{
		logger:   logger,
		messages: messages,
		users:    users,
		assets:   assets,
		notifier: notifier,
		now:      time.Now,
	}
}

type SendInput struct {
	Text  string
	Image string
}

// Contacts devuelve los demas usuarios y los mensajes no vistos por remitente.
func (s *MessageService) Contacts(ctx context.Context, userID string) ([]domain.User, map[string]int, error) {
	if s == nil || s.messages == nil || s.users == nil {
		return nil, nil, ErrServiceNotConfigured
	}
	users, err := s.users.ListExcept(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list users: %w", err)
	}
	counts, err := s.messages.CountUnseenBySender(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("count unseen: %w", err)
	}
	return users, counts, nil
}

// Conversation lista los mensajes entre ambos usuarios y marca como vistos
// los recibidos por userID.
func (s *MessageService) Conversation(ctx context.Context, userID, otherID string) ([]domain.Message, error) {
	if s == nil || s.messages == nil {
		return nil, ErrServiceNotConfigured
	}
	otherID = strings.TrimSpace(otherID)
	if !isValidID(otherID) {
		return nil, ErrInvalidID
	}
	msgs, err := s.messages.ListConversation(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkConversationSeen(ctx, otherID, userID); err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].SenderID == otherID && msgs[i].ReceiverID == userID {
			msgs[i].Seen = true
		}
	}
	return msgs, nil
}

func (s *MessageService) MarkSeen(ctx context.Context, userID, messageID string) error {
	if s == nil || s.messages == nil {
		return ErrServiceNotConfigured
	}
	messageID = strings.TrimSpace(messageID)
	if !isValidID(messageID) {
		return ErrInvalidID
	}
	ok, err := s.messages.MarkSeen(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMessageNotFound
	}
	return nil
}

func (s *MessageService) Send(ctx context.Context, senderID, receiverID string, input SendInput) (domain.Message, error) {
	if s == nil || s.messages == nil || s.users == nil {
		return domain.Message{}, ErrServiceNotConfigured
	}

	receiverID = strings.TrimSpace(receiverID)
	text := strings.TrimSpace(input.Text)
	image := strings.TrimSpace(input.Image)
	if !isValidID(receiverID) {
		return domain.Message{}, ErrInvalidID
	}
	if text == "" && image == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}

	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, ErrUserNotFound
		}
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	}
	if image != "" {
		url, err := s.assets.Upload(ctx, "messages", image)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidAsset) {
				return domain.Message{}, ErrInvalidImage
			}
			s.logger.Warn("message image upload failed", zap.Error(err), zap.String("sender_id", senderID))
			return domain.Message{}, fmt.Errorf("%w: %w", ErrAssetUploadFailure, err)
		}
		msg.Image = url
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return domain.Message{}, err
	}

	if s.notifier != nil && !s.notifier.SendToUser(receiverID, EventNewMessage, msg) {
		s.logger.Debug("receiver offline", zap.String("receiver_id", receiverID))
	}
	return msg, nil
}
