package service

import (
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/metrics"
	"github.com/fjod/go_cart/storefront-service/internal/payment"
	"github.com/fjod/go_cart/storefront-service/internal/publisher"
	r "github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/fjod/go_cart/storefront-service/internal/signing"
)

const successCallbackPath = "/api/users/checkout/success"

type CheckoutConfig struct {
	Currency      string
	PublicBaseURL string
	CancelURL     string
}

type CheckoutDeps struct {
	Sessions  r.SessionRepository
	Orders    r.OrderRepository
	Gateway   payment.Gateway
	Signer    *signing.Signer
	Publisher publisher.Publisher
	Cache     cache.OrderCache
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

type CheckoutService struct {
	sessions  r.SessionRepository
	orders    r.OrderRepository
	gateway   payment.Gateway
	signer    *signing.Signer
	publisher publisher.Publisher
	cache     cache.OrderCache
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       CheckoutConfig
	now       func() time.Time
}

func NewCheckoutService(deps CheckoutDeps, cfg CheckoutConfig) *CheckoutService {
	pub := deps.Publisher
	if pub == nil {
		pub = publisher.NopPublisher{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CheckoutService{
		sessions:  deps.Sessions,
		orders:    deps.Orders,
		gateway:   deps.Gateway,
		signer:    deps.Signer,
		publisher: pub,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}
