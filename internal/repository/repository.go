package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/domain"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrDuplicateSession  = errors.New("session id already exists")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrUnknownOrderStore = errors.New("unknown order store backend")
	ErrResetLocked       = errors.New("reset code attempts exhausted")
)

// SessionRepository stores pending checkouts. Records disappear on their own once
// domain.SessionRetention has elapsed.
type SessionRepository interface {
	InsertSession(ctx context.Context, session *domain.Session) error
	FindSession(ctx context.Context, sessionID string) (*domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// OrderRepository stores completed purchases. CreateOrder returns ErrDuplicateSession
// when an order for the same checkout session already exists.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByToken(ctx context.Context, token string) (*domain.User, error)
	AddToken(ctx context.Context, userID, token string) error
	RemoveToken(ctx context.Context, userID, token string) error
	// SetResetCode stores a fresh code and restores the attempt budget.
	SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	// ConsumeResetAttempt spends one guess against the current code, or returns
	// ErrResetLocked once maxAttempts have been spent.
	ConsumeResetAttempt(ctx context.Context, userID string, maxAttempts int) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}
