package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// SessionService stores opaque session tokens in Redis. A token resolves to
// the owning account id; each account holds at most one live session.
type SessionService struct {
	rdb *redis.Client
}

func NewSessionService(rdb *redis.Client) *SessionService {
	return &SessionService{rdb: rdb}
}

// Create creates a new session for a user. Any existing session for the same
// user is invalidated first so the 7-day timer resets from this login.
func (s *SessionService) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	s.InvalidateUser(ctx, userID)

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	sessionToken := base64.URLEncoding.EncodeToString(tokenBytes)

	sessionKey := SessionKeyPrefix + sessionToken
	userSessionKey := UserSessionKeyPrefix + userID.Hex()

	if err := s.rdb.Set(ctx, sessionKey, userID.Hex(), SessionDuration).Err(); err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, userSessionKey, sessionToken, SessionDuration).Err(); err != nil {
		return "", err
	}

	return sessionToken, nil
}

// Validate checks a session token and returns the account id it belongs to.
func (s *SessionService) Validate(ctx context.Context, sessionToken string) (primitive.ObjectID, bool, error) {
	if sessionToken == "" {
		return primitive.NilObjectID, false, nil
	}

	userIDHex, err := s.rdb.Get(ctx, SessionKeyPrefix+sessionToken).Result()
	if err == redis.Nil {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, err
	}

	userID, err := primitive.ObjectIDFromHex(userIDHex)
	if err != nil {
		return primitive.NilObjectID, false, err
	}

	return userID, true, nil
}

// Invalidate removes a session.
func (s *SessionService) Invalidate(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	sessionKey := SessionKeyPrefix + sessionToken

	userIDHex, err := s.rdb.Get(ctx, sessionKey).Result()
	if err == nil && userIDHex != "" {
		s.rdb.Del(ctx, UserSessionKeyPrefix+userIDHex)
	}

	return s.rdb.Del(ctx, sessionKey).Err()
}

// InvalidateUser invalidates the user's current session (login replacement,
// password changes).
func (s *SessionService) InvalidateUser(ctx context.Context, userID primitive.ObjectID) error {
	userSessionKey := UserSessionKeyPrefix + userID.Hex()

	sessionToken, err := s.rdb.Get(ctx, userSessionKey).Result()
	if err == nil && sessionToken != "" {
		s.rdb.Del(ctx, SessionKeyPrefix+sessionToken)
	}

	return s.rdb.Del(ctx, userSessionKey).Err()
}
