package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/domain"
	"github.com/fjod/go_cart/storefront-service/internal/payment"
	r "github.com/fjod/go_cart/storefront-service/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockSessionRepository implements r.SessionRepository in memory
type MockSessionRepository struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	InsertErr error
	FindErr   error
	DeleteErr error
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{sessions: make(map[string]*domain.Session)}
}

func (m *MockSessionRepository) InsertSession(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if _, ok := m.sessions[session.SessionID]; ok {
		return r.ErrDuplicateSession
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *MockSessionRepository) FindSession(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, r.ErrSessionNotFound
	}
	return s, nil
}

func (m *MockSessionRepository) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.sessions[sessionID]; !ok {
		return r.ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *MockSessionRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MockSessionRepository) Has(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// MockOrderRepository implements r.OrderRepository in memory, unique on session id
type MockOrderRepository struct {
	mu        sync.Mutex
	bySession map[string]*domain.Order
	CreateErr error
	ListErr   error
	ListCalls int
	// AfterList runs once the listing snapshot is taken, before it is returned.
	AfterList func()
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{bySession: make(map[string]*domain.Order)}
}

func (m *MockOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.bySession[order.SessionID]; ok {
		return r.ErrDuplicateSession
	}
	m.bySession[order.SessionID] = order
	return nil
}

func (m *MockOrderRepository) GetOrderBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.bySession[sessionID]
	if !ok {
		return nil, r.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	orders := make([]*domain.Order, 0)
	for _, o := range m.bySession {
		if o.User.UserID == userID {
			orders = append(orders, o)
		}
	}
	if hook := m.AfterList; hook != nil {
		m.mu.Unlock()
		hook()
		m.mu.Lock()
	}
	return orders, nil
}

func (m *MockOrderRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bySession)
}

func (m *MockOrderRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCalls
}

// MockGateway implements payment.Gateway and captures requests
type MockGateway struct {
	mu       sync.Mutex
	Requests []payment.SessionRequest
	Session  *payment.Session
	Err      error
}

func (m *MockGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

// MockPublisher implements publisher.Publisher
type MockPublisher struct {
	mu        sync.Mutex
	Published []*domain.Order
	Err       error
}

func (m *MockPublisher) PublishOrderPlaced(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, order)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}

// MockOrderCache implements cache.OrderCache with the same version semantics as Redis
type MockOrderCache struct {
	mu          sync.Mutex
	entries     map[string][]*domain.Order
	versions    map[string]int64
	Invalidated []string
	StaleSets   int
	GetErr      error
}

func NewMockOrderCache() *MockOrderCache {
	return &MockOrderCache{
		entries:  make(map[string][]*domain.Order),
		versions: make(map[string]int64),
	}
}

func (m *MockOrderCache) Get(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	orders, ok := m.entries[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return orders, nil
}

func (m *MockOrderCache) Version(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versions[userID], nil
}

func (m *MockOrderCache) Set(_ context.Context, userID string, version int64, orders []*domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[userID] != version {
		m.StaleSets++
		return cache.ErrStaleVersion
	}
	m.entries[userID] = orders
	return nil
}

func (m *MockOrderCache) Invalidate(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[userID]++
	delete(m.entries, userID)
	m.Invalidated = append(m.Invalidated, userID)
	return nil
}

func (m *MockOrderCache) Has(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[userID]
	return ok
}

func (m *MockOrderCache) StaleSetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StaleSets
}

// MockUserRepository implements r.UserRepository in memory
type MockUserRepository struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	CreateErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return r.ErrDuplicateEmail
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, r.ErrUserNotFound
}

func (m *MockUserRepository) GetUserByToken(_ context.Context, token string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		for _, t := range u.Tokens {
			if t == token {
				cp := *u
				return &cp, nil
			}
		}
	}
	return nil, r.ErrUserNotFound
}

func (m *MockUserRepository) AddToken(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return r.ErrUserNotFound
	}
	u.Tokens = append(u.Tokens, token)
	return nil
}

func (m *MockUserRepository) RemoveToken(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return r.ErrUserNotFound
	}
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
	return nil
}

func (m *MockUserRepository) SetResetCode(_ context.Context, userID, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return r.ErrUserNotFound
	}
	u.ResetCode = code
	u.ResetCodeExpiresAt = expiresAt
	u.ResetAttempts = 0
	return nil
}

func (m *MockUserRepository) ConsumeResetAttempt(_ context.Context, userID string, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.ResetAttempts >= maxAttempts {
		return r.ErrResetLocked
	}
	u.ResetAttempts++
	return nil
}

func (m *MockUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return r.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetCode = ""
	u.ResetCodeExpiresAt = time.Time{}
	u.ResetAttempts = 0
	return nil
}

func (m *MockUserRepository) Get(userID string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.users[userID]
	return &cp
}
