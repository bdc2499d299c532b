package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	Log         Log
	HTTP        HTTPServer
	GRPC        GRPCServer
	Mongo       Mongo       `envPrefix:"MONGO_"`
	Redis       Redis       `envPrefix:"REDIS_"`
	Postgres    Postgres    `envPrefix:"POSTGRES_"`
	Catalog     Catalog     `envPrefix:"CATALOG_"`
	Kafka       Kafka       `envPrefix:"KAFKA_"`
	Stripe      Stripe      `envPrefix:"STRIPE_"`
	Fulfillment Fulfillment `envPrefix:"FULFILLMENT_"`
	Auth        Auth        `envPrefix:"AUTH_"`
	Bundle      Bundle      `envPrefix:"BUNDLE_"`
	Storefront  Storefront  `envPrefix:"STOREFRONT_"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Port               string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout     time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout    time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxRequestBodySize int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
}

// GRPCServer hosts the health and reflection services only.
type GRPCServer struct {
	Port string `env:"GRPC_PORT" envDefault:"50051"`
}

type Mongo struct {
	URI      string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"DB" envDefault:"storefront"`
}

type Redis struct {
	Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	CartTTL  time.Duration `env:"CART_TTL" envDefault:"30m"`
}

type Postgres struct {
	Host           string `env:"HOST" envDefault:"localhost"`
	Port           int    `env:"PORT" envDefault:"5432"`
	User           string `env:"USER" envDefault:"postgres"`
	Password       string `env:"PASSWORD" envDefault:"postgres"`
	DBName         string `env:"DB" envDefault:"storefront"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"internal/orders/migrations"`
}

type Catalog struct {
	DBPath         string `env:"DB_PATH" envDefault:"catalog.db"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"internal/catalog/migrations"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"CHECKOUT_TOPIC" envDefault:"checkout-completed"`
	GroupID string   `env:"GROUP_ID" envDefault:"storefront-cart-consumer"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"gbp"`
}

type Fulfillment struct {
	BaseURL       string        `env:"BASE_URL" envDefault:"http://localhost:8081/printful"`
	Token         string        `env:"TOKEN"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
	QuoteCacheTTL time.Duration `env:"QUOTE_CACHE_TTL" envDefault:"5m"`
}

type Auth struct {
	JWTSecret  string `env:"JWT_SECRET"`
	AdminToken string `env:"ADMIN_TOKEN"`
}

type Bundle struct {
	MarkupFactor       float64 `env:"MARKUP_FACTOR" envDefault:"1.2"`
	RefreshConcurrency int     `env:"REFRESH_CONCURRENCY" envDefault:"4"`
}

type Storefront struct {
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:5173"`

	// order tracking requests allowed per minute per client
	TrackPerMinute int `env:"TRACK_PER_MINUTE" envDefault:"10"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads an optional .env file and parses the environment into Config.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine outside development
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Bundle.MarkupFactor <= 0 {
		return fmt.Errorf("%w: BUNDLE_MARKUP_FACTOR must be positive", ErrInvalidConfig)
	}
	if c.Bundle.RefreshConcurrency < 1 {
		return fmt.Errorf("%w: BUNDLE_REFRESH_CONCURRENCY must be at least 1", ErrInvalidConfig)
	}
	if c.Storefront.TrackPerMinute < 1 {
		return fmt.Errorf("%w: STOREFRONT_TRACK_PER_MINUTE must be at least 1", ErrInvalidConfig)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: KAFKA_BROKERS is empty", ErrInvalidConfig)
	}
	return nil
}
