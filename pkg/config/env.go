package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

const (
	EnvAppEnv      = "STOREFRONT_APP_ENV"
	EnvLogLevel    = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat   = "STOREFRONT_LOG_FORMAT"
	EnvAPIBaseURL  = "STOREFRONT_API_BASE_URL"
	EnvAPITimeout  = "STOREFRONT_API_TIMEOUT"
	EnvStoreDriver = "STOREFRONT_STORE_DRIVER"
	EnvStorePath   = "STOREFRONT_STORE_PATH"
	EnvStoreDSN    = "STOREFRONT_STORE_DSN"
	EnvStoreNS     = "STOREFRONT_STORE_NAMESPACE"
	EnvRedisURL    = "STOREFRONT_REDIS_URL"
	EnvRedisAddr   = "STOREFRONT_REDIS_ADDR"
	EnvMetricsOn   = "STOREFRONT_METRICS_ENABLED"
)
