package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/utils"
)

// MemoryStore keeps users and refresh tokens in process.  It is used when
// no database is configured and satisfies both UserStore and TokenStore.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
	tokens map[string]model.RefreshToken
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  map[uint64]model.User{},
		tokens: map[string]model.RefreshToken{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Create(_ context.Context, email, displayName, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	m.nextID++
	now := m.now()
	m.users[m.nextID] = model.User{
		ID:           m.nextID,
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return m.nextID, nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *MemoryStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = model.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: m.now()}
	return nil
}

func (m *MemoryStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || m.now().After(t.ExpiresAt) {
		return 0, repository.ErrTokenInvalid
	}
	return t.UserID, nil
}

func (m *MemoryStore) RevokeByHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeLocked(func(t model.RefreshToken) bool { return t.TokenHash == tokenHash })
	return nil
}

func (m *MemoryStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeLocked(func(t model.RefreshToken) bool { return t.UserID == userID })
	return nil
}

func (m *MemoryStore) revokeLocked(match func(model.RefreshToken) bool) {
	now := m.now()
	for k, t := range m.tokens {
		if t.RevokedAt == nil && match(t) {
			t.RevokedAt = &now
			m.tokens[k] = t
		}
	}
}
