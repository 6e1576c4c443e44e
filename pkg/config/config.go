package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	Marketplace  MarketplaceConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LIBRIO_APP_ENV" required:"true"`
	Port         string `envconfig:"LIBRIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LIBRIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIBRIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LIBRIO_DB_DSN"`
	Driver string `envconfig:"LIBRIO_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LIBRIO_DB_HOST"`
	Port     int    `envconfig:"LIBRIO_DB_PORT" default:"5432"`
	User     string `envconfig:"LIBRIO_DB_USER"`
	Password string `envconfig:"LIBRIO_DB_PASSWORD"`
	Name     string `envconfig:"LIBRIO_DB_NAME"`
	SSLMode  string `envconfig:"LIBRIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIBRIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIBRIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIBRIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIBRIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIBRIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LIBRIO_REDIS_ADDR"`
	Password     string        `envconfig:"LIBRIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIBRIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIBRIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIBRIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIBRIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIBRIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIBRIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LIBRIO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LIBRIO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LIBRIO_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LIBRIO_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig carries the payment provider credentials. It is injected into
// the gateway client at construction so tests can point it at a fake provider.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"LIBRIO_GATEWAY_BASE_URL" required:"true"`
	APIKey        string        `envconfig:"LIBRIO_GATEWAY_API_KEY" required:"true"`
	SiteID        string        `envconfig:"LIBRIO_GATEWAY_SITE_ID" required:"true"`
	NotifyURL     string        `envconfig:"LIBRIO_GATEWAY_NOTIFY_URL" required:"true"`
	ReturnURL     string        `envconfig:"LIBRIO_GATEWAY_RETURN_URL" required:"true"`
	Timeout       time.Duration `envconfig:"LIBRIO_GATEWAY_TIMEOUT" default:"15s"`
	VerifyRetries int           `envconfig:"LIBRIO_GATEWAY_VERIFY_RETRIES" default:"2"`
}

type MarketplaceConfig struct {
	Currency          string `envconfig:"LIBRIO_CURRENCY" default:"XAF"`
	CommissionPercent string `envconfig:"LIBRIO_COMMISSION_PERCENT" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LIBRIO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LIBRIO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LIBRIO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"LIBRIO_PUBSUB_ORDERS_TOPIC" default:"librio-order-events"`
	OrdersSubscription string `envconfig:"LIBRIO_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LIBRIO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LIBRIO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LIBRIO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"LIBRIO_DB_HOST": db.Host,
		"LIBRIO_DB_USER": db.User,
		"LIBRIO_DB_NAME": db.Name,
	}
	for _, envVar := range []string{"LIBRIO_DB_HOST", "LIBRIO_DB_USER", "LIBRIO_DB_NAME"} {
		if values[envVar] == "" {
			missing = append(missing, envVar)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either LIBRIO_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
