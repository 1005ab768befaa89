package services

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/murmurapp/murmur-backend/internal/apperr"
	"github.com/murmurapp/murmur-backend/internal/models"
	"github.com/murmurapp/murmur-backend/internal/store"
)

const (
	MinMessageLength = 10
	MaxMessageLength = 500
)

// Notifier publishes inbox events for connected owners. Delivery does not
// fail when notification does.
type Notifier interface {
	NotifyMessage(ctx context.Context, ownerID primitive.ObjectID, msg models.Message)
}

// MessagingService owns the delivery path, the acceptance gate and the
// owner's inbox.
type MessagingService struct {
	store    store.UserStore
	notifier Notifier
	now      func() time.Time
}

func NewMessagingService(s store.UserStore, notifier Notifier) *MessagingService {
	return &MessagingService{store: s, notifier: notifier, now: time.Now}
}

// Deliver appends an anonymous message to the recipient's inbox. Checks run
// in order: recipient existence, acceptance gate, content length. The append
// itself is a single atomic array push at the store.
func (s *MessagingService) Deliver(ctx context.Context, username, content string) error {
	user, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.E(apperr.NotFound, "User not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to look up recipient", err)
	}

	if !user.IsAcceptingMessages {
		return apperr.E(apperr.NotAccepting, "User is not accepting messages")
	}

	// Bounds count characters, not bytes; multibyte content is measured in
	// runes.
	length := utf8.RuneCountInString(content)
	if length < MinMessageLength {
		return apperr.E(apperr.InvalidInput, "Message must be at least 10 characters long")
	}
	if length > MaxMessageLength {
		return apperr.E(apperr.InvalidInput, "Message must be less than 500 characters long")
	}

	msg := models.Message{
		ID:        primitive.NewObjectID(),
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMessage(ctx, user.ID, msg); err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Error sending message", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMessage(ctx, user.ID, msg)
	}
	return nil
}

// AcceptanceStatus reads the owner's acceptance flag.
func (s *MessagingService) AcceptanceStatus(ctx context.Context, ownerID primitive.ObjectID) (bool, error) {
	user, err := s.store.FindByID(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return false, apperr.E(apperr.NotFound, "User not found")
	}
	if err != nil {
		return false, apperr.Wrap(apperr.PersistenceFailure, "Error fetching message acceptance status", err)
	}
	return user.IsAcceptingMessages, nil
}

// SetAcceptance writes the owner's acceptance flag and returns the stored
// value. This is the only mutation path for the flag.
func (s *MessagingService) SetAcceptance(ctx context.Context, ownerID primitive.ObjectID, accepting bool) (bool, error) {
	stored, err := s.store.SetAcceptingMessages(ctx, ownerID, accepting)
	if errors.Is(err, store.ErrNotFound) {
		return false, apperr.E(apperr.NotFound, "User not found")
	}
	if err != nil {
		return false, apperr.Wrap(apperr.PersistenceFailure, "Error updating message acceptance status", err)
	}
	return stored, nil
}

// Inbox returns the owner's messages newest-first. No messages is a success.
func (s *MessagingService) Inbox(ctx context.Context, ownerID primitive.ObjectID) ([]models.Message, error) {
	msgs, err := s.store.MessagesNewestFirst(ctx, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, "Error in get messages", err)
	}
	return msgs, nil
}

// DeleteMessage removes one message by id, scoped to the authenticated
// owner: an id belonging to another account yields NotFound, never a silent
// cross-account delete.
func (s *MessagingService) DeleteMessage(ctx context.Context, ownerID primitive.ObjectID, messageID string) error {
	msgID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return apperr.E(apperr.NotFound, "Message not found or already deleted")
	}

	removed, err := s.store.RemoveMessage(ctx, ownerID, msgID)
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Error deleting message", err)
	}
	if !removed {
		return apperr.E(apperr.NotFound, "Message not found or already deleted")
	}

	log.Printf("message %s deleted by owner %s", messageID, ownerID.Hex())
	return nil
}
