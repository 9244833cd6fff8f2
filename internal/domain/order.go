package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderProduct struct {
	Quantity int64    `json:"quantity" bson:"quantity"`
	Product  CartItem `json:"product" bson:"product"`
}

type Order struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	User      Purchaser       `json:"user"`
	Products  []OrderProduct  `json:"products"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewOrderFromSession materializes the durable order for a completed checkout.
func NewOrderFromSession(s *Session, now time.Time) *Order {
	products := make([]OrderProduct, len(s.Cart))
	for i, item := range s.Cart {
		products[i] = OrderProduct{
			Quantity: item.Amount,
			Product:  item,
		}
	}

	return &Order{
		ID:        uuid.NewString(),
		SessionID: s.SessionID,
		User:      s.User,
		Products:  products,
		Total:     s.Total,
		CreatedAt: now,
	}
}
