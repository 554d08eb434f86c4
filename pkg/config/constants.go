package config

const EnvPrefix = "NAIJAMALL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "NAIJAMALL_APP_ENV"
	EnvPort     = "NAIJAMALL_APP_PORT"
	EnvLogLevel = "NAIJAMALL_LOG_LEVEL"

	EnvDBDSN  = "NAIJAMALL_DB_DSN"
	EnvDBHost = "NAIJAMALL_DB_HOST"
	EnvDBUser = "NAIJAMALL_DB_USER"
	EnvDBName = "NAIJAMALL_DB_NAME"
	EnvDBPort = "NAIJAMALL_DB_PORT"

	EnvRedisURL = "NAIJAMALL_REDIS_URL"

	EnvJWTSecret = "NAIJAMALL_JWT_SECRET"
	EnvJWTIssuer = "NAIJAMALL_JWT_ISSUER"

	EnvPaystackSecretKey   = "NAIJAMALL_PAYSTACK_SECRET_KEY"
	EnvPaystackBaseURL     = "NAIJAMALL_PAYSTACK_BASE_URL"
	EnvPaystackCallbackURL = "NAIJAMALL_PAYSTACK_CALLBACK_URL"
	EnvPaystackTimeout     = "NAIJAMALL_PAYSTACK_TIMEOUT"

	EnvFeesFlatDelivery = "NAIJAMALL_FEES_FLAT_DELIVERY"

	EnvGCPProjectID = "NAIJAMALL_GCP_PROJECT_ID"

	EnvCronInterval = "NAIJAMALL_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
