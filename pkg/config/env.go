package config

const (
	EnvPrefix = "WEDPLAN"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "WEDPLAN_APP_ENV"
	EnvPort     = "WEDPLAN_APP_PORT"
	EnvLogLevel = "WEDPLAN_LOG_LEVEL"

	EnvDBDSN    = "WEDPLAN_DB_DSN"
	EnvDBDriver = "WEDPLAN_DB_DRIVER"
	EnvDBHost   = "WEDPLAN_DB_HOST"
	EnvDBUser   = "WEDPLAN_DB_USER"
	EnvDBName   = "WEDPLAN_DB_NAME"

	EnvRedisURL  = "WEDPLAN_REDIS_URL"
	EnvRedisAddr = "WEDPLAN_REDIS_ADDR"

	EnvJWTSecret  = "WEDPLAN_JWT_SECRET"
	EnvJWTIssuer  = "WEDPLAN_JWT_ISSUER"
	EnvJWTExpMins = "WEDPLAN_JWT_EXPIRATION_MINUTES"

	EnvAuthLoginURL = "WEDPLAN_AUTH_LOGIN_URL"

	EnvCORSAllowedOrigins = "WEDPLAN_CORS_ALLOWED_ORIGINS"

	EnvBackendBaseURL = "WEDPLAN_BACKEND_BASE_URL"
	EnvBackendTimeout = "WEDPLAN_BACKEND_TIMEOUT"

	EnvActionLogDriver     = "WEDPLAN_ACTION_LOG_DRIVER"
	EnvActionLogMaxEntries = "WEDPLAN_ACTION_LOG_MAX_ENTRIES"
	EnvActionLogTTL        = "WEDPLAN_ACTION_LOG_TTL"

	EnvReplayFailurePolicy = "WEDPLAN_REPLAY_FAILURE_POLICY"
	EnvReplayGuard         = "WEDPLAN_REPLAY_GUARD"
	EnvReplayLockTTL       = "WEDPLAN_REPLAY_LOCK_TTL"
	EnvReplayTimeout       = "WEDPLAN_REPLAY_TIMEOUT"

	EnvPlanningCategories = "WEDPLAN_PLANNING_CATEGORIES"

	EnvCronInterval = "WEDPLAN_CRON_INTERVAL"

	EnvUseSQLite   = "WEDPLAN_USE_SQLITE"
	EnvAutoMigrate = "WEDPLAN_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
