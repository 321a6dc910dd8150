package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "ORBITCART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv = "ORBITCART_APP_ENV"
	EnvPort   = "ORBITCART_APP_PORT"

	EnvDBDSN  = "ORBITCART_DB_DSN"
	EnvDBHost = "ORBITCART_DB_HOST"
	EnvDBUser = "ORBITCART_DB_USER"
	EnvDBName = "ORBITCART_DB_NAME"

	EnvRedisURL = "ORBITCART_REDIS_URL"

	EnvGCPProjectID = "ORBITCART_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic      = "ORBITCART_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub        = "ORBITCART_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubNotificationSub  = "ORBITCART_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubNotificationTopc = "ORBITCART_PUBSUB_NOTIFICATION_TOPIC"

	EnvSteadfastAPIKey    = "ORBITCART_STEADFAST_API_KEY"
	EnvSteadfastSecretKey = "ORBITCART_STEADFAST_SECRET_KEY"
	EnvSteadfastBaseURL   = "ORBITCART_STEADFAST_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
