package store

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/murmurapp/murmur-backend/internal/models"
)

// Memory is an in-memory UserStore used by tests. Mutations hold a single
// mutex, mirroring the per-document atomicity the Mongo operators give us.
type Memory struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[primitive.ObjectID]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Messages = append([]models.Message(nil), u.Messages...)
	return &c
}

func (s *Memory) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *models.User) bool { return u.Username == username })
}

func (s *Memory) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *models.User) bool { return u.Username == username || u.Email == email })
}

func (s *Memory) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *models.User) bool { return u.Username == identifier || u.Email == identifier })
}

func (s *Memory) FindVerifiedByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(func(u *models.User) bool { return u.Username == username && u.IsVerified })
}

func (s *Memory) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Memory) Insert(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Memory) Replace(_ context.Context, id primitive.ObjectID, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	user.ID = id
	s.users[id] = cloneUser(user)
	return nil
}

func (s *Memory) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.IsVerified = true
	return nil
}

func (s *Memory) SetAcceptingMessages(_ context.Context, id primitive.ObjectID, accepting bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, ErrNotFound
	}
	u.IsAcceptingMessages = accepting
	return u.IsAcceptingMessages, nil
}

func (s *Memory) AppendMessage(_ context.Context, ownerID primitive.ObjectID, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ownerID]
	if !ok {
		return ErrNotFound
	}
	u.Messages = append(u.Messages, msg)
	return nil
}

func (s *Memory) RemoveMessage(_ context.Context, ownerID, messageID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ownerID]
	if !ok {
		return false, nil
	}
	for i, m := range u.Messages {
		if m.ID == messageID {
			u.Messages = append(u.Messages[:i], u.Messages[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) MessagesNewestFirst(_ context.Context, ownerID primitive.ObjectID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ownerID]
	if !ok {
		return []models.Message{}, nil
	}
	msgs := make([]models.Message, 0, len(u.Messages))
	msgs = append(msgs, u.Messages...)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	return msgs, nil
}
