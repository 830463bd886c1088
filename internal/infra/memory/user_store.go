package memory

import (
	"context"
	"strings"
	"sync"

	"quizforge-service/internal/domain"
)

// UserStore is an in-memory implementation of auth.UserStore for tests and
// dev runs without a database.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User // keyed by lowercased email
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) Create(_ context.Context, user domain.User) error {
	key := strings.ToLower(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return domain.ErrEmailTaken
	}
	s.users[key] = user
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}
