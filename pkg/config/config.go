package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Auth         AuthConfig
	CORS         CORSConfig
	Backend      BackendConfig
	ActionLog    ActionLogConfig
	Replay       ReplayConfig
	Planning     PlanningConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	if !c.ActionLog.validDriver() {
		err = multierr.Append(err, fmt.Errorf("%s must be one of redis, sql, memory", EnvActionLogDriver))
	}
	if !c.Replay.validPolicy() {
		err = multierr.Append(err, fmt.Errorf("%s must be drop or retain", EnvReplayFailurePolicy))
	}
	if !c.Replay.validGuard() {
		err = multierr.Append(err, fmt.Errorf("%s must be local or redis", EnvReplayGuard))
	}
	if c.NeedsRedis() && c.Redis.URL == "" && c.Redis.Address == "" {
		err = multierr.Append(err, fmt.Errorf("either %s or %s is required for the redis action log or replay guard", EnvRedisURL, EnvRedisAddr))
	}
	if c.Replay.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvReplayTimeout))
	} else if strings.EqualFold(c.Replay.Guard, ReplayGuardRedis) && c.Replay.Timeout >= c.Replay.LockTTL {
		err = multierr.Append(err, fmt.Errorf("%s must be shorter than %s", EnvReplayTimeout, EnvReplayLockTTL))
	}
	if c.Backend.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvBackendTimeout))
	}
	if len(c.Planning.Categories) == 0 {
		err = multierr.Append(err, fmt.Errorf("%s must list at least one category", EnvPlanningCategories))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NeedsRedis reports whether any configured component stores state in Redis.
func (c *Config) NeedsRedis() bool {
	return strings.EqualFold(c.ActionLog.Driver, ActionLogDriverRedis) ||
		strings.EqualFold(c.Replay.Guard, ReplayGuardRedis)
}

type AppConfig struct {
	Env          string `envconfig:"WEDPLAN_APP_ENV" required:"true"`
	Port         string `envconfig:"WEDPLAN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WEDPLAN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WEDPLAN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"WEDPLAN_DB_DSN"`
	Driver string `envconfig:"WEDPLAN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WEDPLAN_DB_HOST"`
	LegacyPort     int    `envconfig:"WEDPLAN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WEDPLAN_DB_USER"`
	LegacyPassword string `envconfig:"WEDPLAN_DB_PASSWORD"`
	LegacyName     string `envconfig:"WEDPLAN_DB_NAME"`
	LegacySSLMode  string `envconfig:"WEDPLAN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WEDPLAN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WEDPLAN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WEDPLAN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WEDPLAN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"WEDPLAN_REDIS_URL"`
	Address      string        `envconfig:"WEDPLAN_REDIS_ADDR"`
	Password     string        `envconfig:"WEDPLAN_REDIS_PASSWORD"`
	DB           int           `envconfig:"WEDPLAN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WEDPLAN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WEDPLAN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WEDPLAN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WEDPLAN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WEDPLAN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret used to verify identity tokens issued
// by the phone/OTP provider.
type JWTConfig struct {
	Secret            string `envconfig:"WEDPLAN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WEDPLAN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WEDPLAN_JWT_EXPIRATION_MINUTES" default:"60"`
}

type AuthConfig struct {
	LoginURL     string `envconfig:"WEDPLAN_AUTH_LOGIN_URL" default:"/login"`
	ReturnPath   string `envconfig:"WEDPLAN_AUTH_RETURN_PATH" default:"/cart"`
	DeviceCookie string `envconfig:"WEDPLAN_AUTH_DEVICE_COOKIE" default:"wp_device"`
}

type BackendConfig struct {
	// BaseURL is empty when the BFF talks to the in-process cart service.
	BaseURL string        `envconfig:"WEDPLAN_BACKEND_BASE_URL"`
	Timeout time.Duration `envconfig:"WEDPLAN_BACKEND_TIMEOUT" default:"10s"`
}

// IsRemote reports whether cart mutations go over HTTP.
func (b BackendConfig) IsRemote() bool {
	return strings.TrimSpace(b.BaseURL) != ""
}

const (
	ActionLogDriverRedis  = "redis"
	ActionLogDriverSQL    = "sql"
	ActionLogDriverMemory = "memory"
)

type ActionLogConfig struct {
	Driver     string        `envconfig:"WEDPLAN_ACTION_LOG_DRIVER" default:"redis"`
	MaxEntries int           `envconfig:"WEDPLAN_ACTION_LOG_MAX_ENTRIES" default:"50"`
	TTL        time.Duration `envconfig:"WEDPLAN_ACTION_LOG_TTL" default:"720h"`
}

func (a ActionLogConfig) validDriver() bool {
	switch strings.ToLower(a.Driver) {
	case ActionLogDriverRedis, ActionLogDriverSQL, ActionLogDriverMemory:
		return true
	}
	return false
}

const (
	FailurePolicyDrop   = "drop"
	FailurePolicyRetain = "retain"

	ReplayGuardLocal = "local"
	ReplayGuardRedis = "redis"
)

type ReplayConfig struct {
	FailurePolicy string        `envconfig:"WEDPLAN_REPLAY_FAILURE_POLICY" default:"drop"`
	Guard         string        `envconfig:"WEDPLAN_REPLAY_GUARD" default:"local"`
	LockTTL       time.Duration `envconfig:"WEDPLAN_REPLAY_LOCK_TTL" default:"2m"`
	// Timeout caps one whole replay. It must stay below LockTTL so the redis
	// guard cannot expire while its holder is still applying actions.
	Timeout time.Duration `envconfig:"WEDPLAN_REPLAY_TIMEOUT" default:"90s"`
}

// RetainFailed reports whether failed replays are written back to the log.
func (r ReplayConfig) RetainFailed() bool {
	return strings.EqualFold(r.FailurePolicy, FailurePolicyRetain)
}

func (r ReplayConfig) validPolicy() bool {
	return strings.EqualFold(r.FailurePolicy, FailurePolicyDrop) || r.RetainFailed()
}

func (r ReplayConfig) validGuard() bool {
	return strings.EqualFold(r.Guard, ReplayGuardLocal) || strings.EqualFold(r.Guard, ReplayGuardRedis)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"WEDPLAN_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type PlanningConfig struct {
	Categories []string `envconfig:"WEDPLAN_PLANNING_CATEGORIES" default:"venue,catering,photography,decoration,makeup,entertainment"`
}

// CronConfig drives the cron worker, which purges expired SQL action log
// entries.
type CronConfig struct {
	Interval time.Duration `envconfig:"WEDPLAN_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"WEDPLAN_CRON_LOCK_TTL" default:"2h"`
	Grace    time.Duration `envconfig:"WEDPLAN_CRON_RETENTION_GRACE" default:"0s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WEDPLAN_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WEDPLAN_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:weddingplanner.db?_foreign_keys=on"
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
