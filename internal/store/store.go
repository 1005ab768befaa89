// Package store persists Account documents. The Mongo implementation is the
// production one; Memory backs service and handler tests.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/murmurapp/murmur-backend/internal/models"
)

// ErrNotFound is returned when no account (or message) matches the lookup.
var ErrNotFound = errors.New("store: not found")

// UserStore is the persistence surface the account and messaging services
// depend on. Mutations on a single account must be atomic at the store:
// AppendMessage and RemoveMessage are array operators, not read-modify-write.
type UserStore interface {
	// FindByUsername matches the username exactly (case-sensitive).
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// FindByUsernameOrEmail is the registration uniqueness probe.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	// FindByIdentifier matches either username or email (sign-in).
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	// FindVerifiedByUsername only considers verified accounts
	// (availability check).
	FindVerifiedByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	Insert(ctx context.Context, user *models.User) error
	// Replace overwrites an existing (stale, unverified) account in place.
	Replace(ctx context.Context, id primitive.ObjectID, user *models.User) error

	// MarkVerified flips is_verified to true.
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	// SetAcceptingMessages persists the acceptance flag and returns the
	// stored value.
	SetAcceptingMessages(ctx context.Context, id primitive.ObjectID, accepting bool) (bool, error)

	AppendMessage(ctx context.Context, ownerID primitive.ObjectID, msg models.Message) error
	// RemoveMessage pulls one message scoped by the owner id; removed is
	// false when the id does not belong to that owner.
	RemoveMessage(ctx context.Context, ownerID, messageID primitive.ObjectID) (removed bool, err error)
	// MessagesNewestFirst returns the owner's messages ordered newest-first
	// by created_at. An account with no messages yields an empty slice.
	MessagesNewestFirst(ctx context.Context, ownerID primitive.ObjectID) ([]models.Message, error)
}
