package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	Identity      IdentityConfig
	Points        PointsConfig
	Attendance    AttendanceConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.IsSQLite() {
		if !cfg.App.IsDev() {
			return nil, fmt.Errorf("%s=sqlite is only supported with %s=%s", EnvDBDriver, EnvAppEnv, AppEnvDev)
		}
		if cfg.DB.DSN == "" {
			return nil, fmt.Errorf("%s is required for sqlite", EnvDBDSN)
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Identity.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Points.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LUDI_APP_ENV" required:"true"`
	Port         string `envconfig:"LUDI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUDI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUDI_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"LUDI_LOG_FORMAT" default:"json"`
	CORSOrigins  string `envconfig:"LUDI_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the configured CORS origins list.
func (a AppConfig) AllowedOrigins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"LUDI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LUDI_DB_DSN"`
	Driver string `envconfig:"LUDI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUDI_DB_HOST"`
	LegacyPort     int    `envconfig:"LUDI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUDI_DB_USER"`
	LegacyPassword string `envconfig:"LUDI_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUDI_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUDI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUDI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUDI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUDI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUDI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"LUDI_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUDI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LUDI_REDIS_ADDR"`
	Password     string        `envconfig:"LUDI_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUDI_REDIS_DB" default:"0"`
	KeyPrefix    string        `envconfig:"LUDI_REDIS_KEY_PREFIX" default:"ludi"`
	PoolSize     int           `envconfig:"LUDI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUDI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUDI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUDI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUDI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LUDI_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LUDI_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LUDI_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LUDI_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LUDI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LUDI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LUDI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LUDI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LUDI_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"LUDI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"LUDI_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"LUDI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"LUDI_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"LUDI_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"LUDI_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

// RateLimitConfig drives the global per-IP limiter mounted on the API router.
type RateLimitConfig struct {
	Enabled bool   `envconfig:"LUDI_RATE_LIMIT_ENABLED" default:"true"`
	Rate    string `envconfig:"LUDI_RATE_LIMIT_RATE" default:"300-M"`
}

// IdentityConfig selects and configures the identity provider adapter.
type IdentityConfig struct {
	Provider string `envconfig:"LUDI_IDENTITY_PROVIDER" default:"local"`

	FirebaseProjectID       string        `envconfig:"LUDI_FIREBASE_PROJECT_ID"`
	FirebaseCredentialsJSON string        `envconfig:"LUDI_FIREBASE_CREDENTIALS_JSON"`
	FirebaseCredentialsFile string        `envconfig:"LUDI_FIREBASE_CREDENTIALS_FILE"`
	FirebaseAPIKey          string        `envconfig:"LUDI_FIREBASE_API_KEY"`
	FirebaseHTTPTimeout     time.Duration `envconfig:"LUDI_FIREBASE_HTTP_TIMEOUT" default:"10s"`

	LocalTokenTTL time.Duration `envconfig:"LUDI_IDENTITY_LOCAL_TOKEN_TTL" default:"1h"`
}

// IsFirebase reports whether Firebase Authentication backs identities.
func (i IdentityConfig) IsFirebase() bool {
	return strings.EqualFold(strings.TrimSpace(i.Provider), IdentityProviderFirebase)
}

func (i IdentityConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(i.Provider)) {
	case IdentityProviderLocal:
		return nil
	case IdentityProviderFirebase:
		if i.FirebaseProjectID == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvFirebaseProjectID, EnvIdentityProvider, IdentityProviderFirebase)
		}
		if i.FirebaseAPIKey == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvFirebaseAPIKey, EnvIdentityProvider, IdentityProviderFirebase)
		}
		return nil
	default:
		return fmt.Errorf("unsupported identity provider %q", i.Provider)
	}
}

// PointsConfig controls the point ledger allowance.
type PointsConfig struct {
	DailyLimit  int           `envconfig:"LUDI_POINTS_DAILY_LIMIT" default:"50"`
	Timezone    string        `envconfig:"LUDI_POINTS_TIMEZONE" default:"Asia/Tokyo"`
	SendLockTTL time.Duration `envconfig:"LUDI_POINTS_SEND_LOCK_TTL" default:"10s"`
}

// Location resolves the timezone that defines calendar-day boundaries.
func (p PointsConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(p.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvPointsTimezone, name, err)
	}
	return loc, nil
}

type AttendanceConfig struct {
	MaxShift time.Duration `envconfig:"LUDI_ATTENDANCE_MAX_SHIFT" default:"16h"`
}

type CronConfig struct {
	Interval               time.Duration `envconfig:"LUDI_CRON_INTERVAL" default:"1h"`
	LockTTL                time.Duration `envconfig:"LUDI_CRON_LOCK_TTL" default:"10m"`
	NotificationReadTTL    time.Duration `envconfig:"LUDI_CRON_NOTIFICATION_READ_TTL" default:"720h"`
	NotificationMaxAge     time.Duration `envconfig:"LUDI_CRON_NOTIFICATION_MAX_AGE" default:"2160h"`
	ReconciliationAuditOff bool          `envconfig:"LUDI_CRON_RECONCILIATION_AUDIT_OFF" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUDI_AUTO_MIGRATE" default:"false"`
	PointsLock  bool `envconfig:"LUDI_FEATURE_POINTS_REDIS_LOCK" default:"true"`
}

// IsSQLite reports whether the single-process local driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
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
