package config

const (
	EnvPrefix    = "SWEETSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:sweetshop.db?cache=shared&_foreign_keys=1"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

const (
	EnvAppEnv    = "SWEETSHOP_APP_ENV"
	EnvPort      = "SWEETSHOP_APP_PORT"
	EnvDBDSN     = "SWEETSHOP_DB_DSN"
	EnvDBHost    = "SWEETSHOP_DB_HOST"
	EnvDBUser    = "SWEETSHOP_DB_USER"
	EnvDBName    = "SWEETSHOP_DB_NAME"
	EnvRedisURL  = "SWEETSHOP_REDIS_URL"
	EnvJWTSecret = "SWEETSHOP_JWT_SECRET"
	EnvUseSQLite = "SWEETSHOP_USE_SQLITE"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
