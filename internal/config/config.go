package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/Shopify/sarama"
	"github.com/billix/billix/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Webhook    WebhookConfig
	RateLimit  RateLimitConfig
	Scheduler  SchedulerConfig
	Payment    PaymentConfig
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address     string `validate:"required"`
	CORSOrigins []string
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// ClickHouseConfig configures the optional columnar event mirror. When
// Enabled is false the relational store is authoritative for aggregation.
type ClickHouseConfig struct {
	Enabled  bool
	Address  string
	TLS      bool
	Username string
	Password string
	Database string
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	ConsumerGroup string
	Topic         string
	ClientID      string

	UseSASL       bool
	SASLMechanism sarama.SASLMechanism
	SASLUser      string
	SASLPassword  string
}

type AuthConfig struct {
	// PortalJWTSecret signs customer portal tokens (12h lifetime)
	PortalJWTSecret string
	// AllowDefaultTenant lets unauthenticated requests fall back to the
	// default organization. Never enable in production.
	AllowDefaultTenant bool
}

type WebhookConfig struct {
	Enabled        bool
	Topic          string `validate:"required"`
	PubSub         types.PubSubType
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

type RateLimitConfig struct {
	// EventsPerMinute is the default per-tenant ingestion budget
	EventsPerMinute int
}

type SchedulerConfig struct {
	Interval time.Duration
	Workers  int
}

// PaymentConfig points collection attempts at an external charge API.
// An empty URL leaves automated collection disabled; payment requests
// still open but every attempt fails until a provider is configured.
type PaymentConfig struct {
	ProviderURL string
	APIKey      string
	Timeout     time.Duration
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// .env is optional and only used for local development
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/billix")

	v.SetEnvPrefix("BILLIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.topic", "webhooks")
	v.SetDefault("webhook.pubsub", types.MemoryPubSub)
	v.SetDefault("webhook.maxretries", 5)
	v.SetDefault("webhook.initialbackoff", 2*time.Second)
	v.SetDefault("webhook.maxbackoff", 30*time.Minute)
	v.SetDefault("webhook.timeout", 15*time.Second)
	v.SetDefault("ratelimit.eventsperminute", 1000)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("postgres.connmaxlifetimeminutes", 60)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("payment.timeout", 10*time.Second)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Webhook: WebhookConfig{
			Enabled:        true,
			Topic:          "webhooks",
			PubSub:         types.MemoryPubSub,
			MaxRetries:     5,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     30 * time.Minute,
			Timeout:        15 * time.Second,
		},
		RateLimit: RateLimitConfig{EventsPerMinute: 1000},
		Scheduler: SchedulerConfig{Interval: time.Minute, Workers: 4},
	}
}

func (c ClickHouseConfig) GetClientOptions() *clickhouse.Options {
	options := &clickhouse.Options{
		Addr: []string{c.Address},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}
	if c.TLS {
		options.TLS = &tls.Config{}
	}
	return options
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
