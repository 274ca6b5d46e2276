package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Tracking     TrackingConfig
	Dispatch     DispatchConfig
	Refunds      RefundsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"PLATTERLY_APP_ENV" required:"true"`
	Port         string `envconfig:"PLATTERLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PLATTERLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLATTERLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PLATTERLY_DB_DSN"`
	Driver string `envconfig:"PLATTERLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PLATTERLY_DB_HOST"`
	LegacyPort     int    `envconfig:"PLATTERLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PLATTERLY_DB_USER"`
	LegacyPassword string `envconfig:"PLATTERLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"PLATTERLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"PLATTERLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PLATTERLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLATTERLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLATTERLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLATTERLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PLATTERLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PLATTERLY_REDIS_ADDR"`
	Password     string        `envconfig:"PLATTERLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLATTERLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLATTERLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLATTERLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLATTERLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLATTERLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLATTERLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PLATTERLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PLATTERLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PLATTERLY_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// GatewayConfig holds payment gateway credentials and behavior knobs.
type GatewayConfig struct {
	BaseURL        string        `envconfig:"PLATTERLY_GATEWAY_BASE_URL" required:"true"`
	MerchantID     string        `envconfig:"PLATTERLY_GATEWAY_MERCHANT_ID" required:"true"`
	WebhookSecret  string        `envconfig:"PLATTERLY_GATEWAY_WEBHOOK_SECRET" required:"true"`
	ClientID       string        `envconfig:"PLATTERLY_GATEWAY_CLIENT_ID"`
	ClientSecret   string        `envconfig:"PLATTERLY_GATEWAY_CLIENT_SECRET"`
	RequestTimeout time.Duration `envconfig:"PLATTERLY_GATEWAY_REQUEST_TIMEOUT" default:"15s"`
}

type TrackingConfig struct {
	BaseURL string `envconfig:"PLATTERLY_TRACKING_BASE_URL" default:"https://track.platterly.in"`
}

type DispatchConfig struct {
	SignalTimeout time.Duration `envconfig:"PLATTERLY_DISPATCH_SIGNAL_TIMEOUT" default:"2m"`
}

type RefundsConfig struct {
	Window time.Duration `envconfig:"PLATTERLY_REFUND_WINDOW" default:"168h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PLATTERLY_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"PLATTERLY_PUBSUB_NOTIFICATION_TOPIC" default:"pl-notification-events"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PLATTERLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PLATTERLY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
