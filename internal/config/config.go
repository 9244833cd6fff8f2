package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "STOREFRONT"

	OrderStoreMongo    = "mongo"
	OrderStorePostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel   string         `mapstructure:"log_level"`
	HTTP       HTTPConfig     `mapstructure:"http"`
	Mongo      MongoConfig    `mapstructure:"mongo"`
	OrderStore string         `mapstructure:"order_store"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	Redis      RedisConfig    `mapstructure:"redis"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
	Stripe     StripeConfig   `mapstructure:"stripe"`
	Checkout   CheckoutConfig `mapstructure:"checkout"`
	Breaker    BreakerConfig  `mapstructure:"breaker"`
}

type HTTPConfig struct {
	Port               string        `mapstructure:"port"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbname"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Currency  string `mapstructure:"currency"`
	// APIURL overrides the processor endpoint, e.g. stripe-mock.
	APIURL string `mapstructure:"api_url"`
}

type CheckoutConfig struct {
	PublicBaseURL      string `mapstructure:"public_base_url"`
	SuccessRedirectURL string `mapstructure:"success_redirect_url"`
	CancelURL          string `mapstructure:"cancel_url"`
	CallbackSecret     string `mapstructure:"callback_secret"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_request_body_size", 1<<20)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "storefront")

	v.SetDefault("order_store", OrderStoreMongo)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "storefront")
	v.SetDefault("postgres.migrations_path", "internal/repository/migrations")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "order-events")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.currency", "inr")
	v.SetDefault("stripe.api_url", "")

	v.SetDefault("checkout.public_base_url", "http://localhost:8080")
	v.SetDefault("checkout.success_redirect_url", "http://localhost:3000/order")
	v.SetDefault("checkout.cancel_url", "http://localhost:3000/cart")
	v.SetDefault("checkout.callback_secret", "")

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.consecutive_failures", 5)
}

// Load reads defaults, then the optional config file, then STOREFRONT_* environment
// variables. An empty path looks for storefront.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	return &cfg, nil
}

// Validate checks what serve needs; migrate only needs the Postgres block.
func (c *Config) Validate() error {
	var problems []string

	if c.Stripe.SecretKey == "" {
		problems = append(problems, "stripe.secret_key is required")
	}
	if c.Checkout.CallbackSecret == "" {
		problems = append(problems, "checkout.callback_secret is required")
	}
	if c.Checkout.PublicBaseURL == "" {
		problems = append(problems, "checkout.public_base_url is required")
	}
	if c.Checkout.SuccessRedirectURL == "" {
		problems = append(problems, "checkout.success_redirect_url is required")
	}
	if c.Stripe.Currency == "" {
		problems = append(problems, "stripe.currency is required")
	}
	switch c.OrderStore {
	case OrderStoreMongo, OrderStorePostgres:
	default:
		problems = append(problems, fmt.Sprintf("order_store must be %q or %q", OrderStoreMongo, OrderStorePostgres))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
