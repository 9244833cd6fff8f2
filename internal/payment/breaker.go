package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears failure counts while closed; zero never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// BreakerGateway fails fast once the wrapped gateway keeps erroring.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[*Session]
}

func NewBreakerGateway(next Gateway, settings BreakerSettings, logger *slog.Logger) *BreakerGateway {
	threshold := settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
		// a cancelled caller says nothing about the processor's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerGateway{next: next, cb: cb}
}

func (b *BreakerGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	s, err := b.cb.Execute(func() (*Session, error) {
		return b.next.CreateSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrGatewayUnavailable
	}
	return s, err
}

func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}
