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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Steadfast    SteadfastConfig
	Console      ConsoleConfig
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
	Env          string `envconfig:"ORBITCART_APP_ENV" required:"true"`
	Port         string `envconfig:"ORBITCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORBITCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORBITCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORBITCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORBITCART_DB_DSN"`
	Driver string `envconfig:"ORBITCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORBITCART_DB_HOST"`
	LegacyPort     int    `envconfig:"ORBITCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORBITCART_DB_USER"`
	LegacyPassword string `envconfig:"ORBITCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORBITCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORBITCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORBITCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORBITCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORBITCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORBITCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORBITCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORBITCART_REDIS_ADDR"`
	Password     string        `envconfig:"ORBITCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORBITCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORBITCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORBITCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORBITCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORBITCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORBITCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORBITCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORBITCART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ORBITCART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	DispatchLockTTL      time.Duration `envconfig:"ORBITCART_EVENTING_DISPATCH_LOCK_TTL" default:"30s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORBITCART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ORBITCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORBITCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"ORBITCART_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"ORBITCART_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"ORBITCART_PUBSUB_NOTIFICATION_TOPIC" default:"oc-notification-events"`
	NotificationSubscription string `envconfig:"ORBITCART_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ORBITCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ORBITCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ORBITCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SteadfastConfig struct {
	APIKey    string        `envconfig:"ORBITCART_STEADFAST_API_KEY"`
	SecretKey string        `envconfig:"ORBITCART_STEADFAST_SECRET_KEY"`
	BaseURL   string        `envconfig:"ORBITCART_STEADFAST_BASE_URL" default:"https://portal.packzy.com/api/v1"`
	Timeout   time.Duration `envconfig:"ORBITCART_STEADFAST_TIMEOUT" default:"10s"`
}

// Configured reports whether courier credentials are present. Dispatch
// refuses to run without them.
func (s SteadfastConfig) Configured() bool {
	return s.APIKey != "" && s.SecretKey != ""
}

type ConsoleConfig struct {
	AdminBaseURL string `envconfig:"ORBITCART_CONSOLE_ADMIN_BASE_URL" default:"http://localhost:3000"`
	CORSOrigins  string `envconfig:"ORBITCART_CONSOLE_CORS_ORIGINS" default:"*"`
}

// Origins splits the configured CORS origin list.
func (c ConsoleConfig) Origins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
