package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/config"
	api "github.com/fjod/go_cart/storefront-service/internal/http"
	"github.com/fjod/go_cart/storefront-service/internal/metrics"
	"github.com/fjod/go_cart/storefront-service/internal/payment"
	"github.com/fjod/go_cart/storefront-service/internal/publisher"
	"github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/fjod/go_cart/storefront-service/internal/service"
	"github.com/fjod/go_cart/storefront-service/internal/signing"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type app struct {
	handler http.Handler
	logger  *slog.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func (a *app) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// close releases resources in reverse acquisition order.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Error("failed to close resource", "resource", c.name, "error", err)
		}
	}
}

func wireApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	a.onClose("mongo", func(ctx context.Context) error { return mongoDB.Client().Disconnect(ctx) })
	logger.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	sessions := repository.NewMongoSessionRepository(mongoDB)
	users := repository.NewMongoUserRepository(mongoDB)
	indexed := []repository.IndexCreator{sessions, users}

	var orders repository.OrderRepository
	switch cfg.OrderStore {
	case config.OrderStoreMongo:
		mongoOrders := repository.NewMongoOrderRepository(mongoDB)
		indexed = append(indexed, mongoOrders)
		orders = mongoOrders
	case config.OrderStorePostgres:
		creds := postgresCredentials(cfg)
		pgOrders, err := repository.NewPostgresOrderRepository(creds)
		if err != nil {
			return nil, err
		}
		a.onClose("postgres", func(context.Context) error { return pgOrders.Close() })
		if err := pgOrders.RunMigrations(creds); err != nil {
			return nil, err
		}
		orders = pgOrders
	default:
		return nil, fmt.Errorf("%w: %q", repository.ErrUnknownOrderStore, cfg.OrderStore)
	}

	if err := repository.CreateAllIndexes(ctx, indexed...); err != nil {
		return nil, err
	}

	var orderCache cache.OrderCache
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.onClose("redis", func(context.Context) error { return redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		orderCache = cache.NewRedisCache(redisClient)
		logger.Info("redis order cache enabled", "addr", cfg.Redis.Addr)
	}

	var pub publisher.Publisher = publisher.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub := publisher.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		a.onClose("kafka", func(context.Context) error { return kafkaPub.Close() })
		pub = kafkaPub
		logger.Info("order events enabled", "topic", cfg.Kafka.Topic)
	}

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	gateway := payment.NewBreakerGateway(
		payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.APIURL, httpClient),
		payment.BreakerSettings{
			Name:                "stripe",
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		},
		logger,
	)

	m := metrics.New()

	checkoutSvc := service.NewCheckoutService(service.CheckoutDeps{
		Sessions:  sessions,
		Orders:    orders,
		Gateway:   gateway,
		Signer:    signing.NewSigner(cfg.Checkout.CallbackSecret),
		Publisher: pub,
		Cache:     orderCache,
		Metrics:   m,
		Logger:    logger,
	}, service.CheckoutConfig{
		Currency:      cfg.Stripe.Currency,
		PublicBaseURL: cfg.Checkout.PublicBaseURL,
		CancelURL:     cfg.Checkout.CancelURL,
	})
	orderSvc := service.NewOrderService(orders, orderCache, logger)
	userSvc := service.NewUserService(users, logger)

	a.handler = api.NewRouter(
		api.RouterConfig{
			RequestTimeout:     cfg.HTTP.RequestTimeout,
			MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
		},
		api.Handlers{
			Users:    api.NewUsersHandler(userSvc, cfg.HTTP.RequestTimeout),
			Checkout: api.NewCheckoutHandler(checkoutSvc, cfg.HTTP.RequestTimeout, cfg.Checkout.SuccessRedirectURL),
			Orders:   api.NewOrdersHandler(orderSvc, cfg.HTTP.RequestTimeout),
		},
		userSvc,
		m,
		logger,
	)

	return a, nil
}
