package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Paystack     PaystackConfig
	Fees         FeesConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Fees.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NAIJAMALL_APP_ENV" required:"true"`
	Port         string `envconfig:"NAIJAMALL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NAIJAMALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NAIJAMALL_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"NAIJAMALL_LOG_FORMAT" default:"json"`

	CORSOrigins      []string `envconfig:"NAIJAMALL_CORS_ORIGINS" default:"http://localhost:3000"`
	PaymentRateLimit int      `envconfig:"NAIJAMALL_PAYMENT_RATE_LIMIT" default:"10"` // per user per minute, 0 disables
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NAIJAMALL_SERVICE_KIND" default:"api"`
	// MetricsAddr is where background workers expose /metrics. Empty disables the listener.
	MetricsAddr string `envconfig:"NAIJAMALL_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"NAIJAMALL_DB_DSN"`
	Driver string `envconfig:"NAIJAMALL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NAIJAMALL_DB_HOST"`
	LegacyPort     int    `envconfig:"NAIJAMALL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NAIJAMALL_DB_USER"`
	LegacyPassword string `envconfig:"NAIJAMALL_DB_PASSWORD"`
	LegacyName     string `envconfig:"NAIJAMALL_DB_NAME"`
	LegacySSLMode  string `envconfig:"NAIJAMALL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NAIJAMALL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NAIJAMALL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NAIJAMALL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NAIJAMALL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"NAIJAMALL_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NAIJAMALL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NAIJAMALL_REDIS_ADDR"`
	Password     string        `envconfig:"NAIJAMALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"NAIJAMALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NAIJAMALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NAIJAMALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NAIJAMALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NAIJAMALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NAIJAMALL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies access tokens minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"NAIJAMALL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NAIJAMALL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NAIJAMALL_JWT_EXPIRATION_MINUTES" default:"60"`
	// Audience is checked only when set.
	Audience string        `envconfig:"NAIJAMALL_JWT_AUDIENCE"`
	Leeway   time.Duration `envconfig:"NAIJAMALL_JWT_LEEWAY" default:"30s"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"NAIJAMALL_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL     string        `envconfig:"NAIJAMALL_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string        `envconfig:"NAIJAMALL_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"NAIJAMALL_PAYSTACK_TIMEOUT" default:"15s"`
}

type FeesConfig struct {
	FlatDeliveryFee string `envconfig:"NAIJAMALL_FEES_FLAT_DELIVERY" default:"1000"`
}

// DeliveryFee returns the configured flat delivery fee. Load rejects values that do not parse.
func (f FeesConfig) DeliveryFee() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(f.FlatDeliveryFee))
	if err != nil {
		return decimal.Zero
	}
	return fee
}

func (f FeesConfig) validate() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(f.FlatDeliveryFee))
	if err != nil {
		return fmt.Errorf("%s must be a decimal amount: %w", EnvFeesFlatDelivery, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvFeesFlatDelivery)
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NAIJAMALL_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NAIJAMALL_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"NAIJAMALL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"NAIJAMALL_PUBSUB_ORDERS_TOPIC" default:"naijamall-order-events"`
	PaymentsTopic string `envconfig:"NAIJAMALL_PUBSUB_PAYMENTS_TOPIC" default:"naijamall-payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NAIJAMALL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NAIJAMALL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NAIJAMALL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"NAIJAMALL_CRON_INTERVAL" default:"5m"`
	PaymentReconcileAfter time.Duration `envconfig:"NAIJAMALL_CRON_PAYMENT_RECONCILE_AFTER" default:"30m"`
	StaleEscrowAfter      time.Duration `envconfig:"NAIJAMALL_CRON_STALE_ESCROW_AFTER" default:"168h"`
	OutboxRetention       time.Duration `envconfig:"NAIJAMALL_CRON_OUTBOX_RETENTION" default:"720h"`
	DeadLetterWindow      time.Duration `envconfig:"NAIJAMALL_CRON_DEAD_LETTER_WINDOW" default:"24h"`
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
