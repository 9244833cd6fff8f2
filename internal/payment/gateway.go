package payment

import (
	"context"
	"errors"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

type LineItem struct {
	Name       string
	UnitAmount int64 // minor units
	Quantity   int64
}

type SessionRequest struct {
	Currency   string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
}

// Session is the processor's hosted payment page.
type Session struct {
	ID  string
	URL string
}

// Gateway creates hosted payment sessions with an external processor.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}
