package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionRetention is how long a pending checkout survives before the store evicts it.
const SessionRetention = time.Hour

// Purchaser is the identity snapshot taken at checkout time.
type Purchaser struct {
	Email  string `json:"email" bson:"email"`
	UserID string `json:"userId" bson:"user_id"`
}

// Session represents a pending checkout between cart submission and payment callback.
type Session struct {
	SessionID string
	Cart      Cart
	Total     decimal.Decimal
	User      Purchaser
	CreatedAt time.Time
}

func NewSession(cart Cart, user Purchaser, now time.Time) *Session {
	items := make(Cart, len(cart))
	copy(items, cart)

	return &Session{
		SessionID: uuid.NewString(),
		Cart:      items,
		Total:     items.Total(),
		User:      user,
		CreatedAt: now,
	}
}

func (s *Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(SessionRetention)
}
