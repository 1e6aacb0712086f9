package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	IdentityProviderLocal    = "local"
	IdentityProviderFirebase = "firebase"
)

const (
	EnvAppEnv   = "LUDI_APP_ENV"
	EnvPort     = "LUDI_APP_PORT"
	EnvLogLevel = "LUDI_LOG_LEVEL"

	EnvDBDSN    = "LUDI_DB_DSN"
	EnvDBDriver = "LUDI_DB_DRIVER"
	EnvDBHost   = "LUDI_DB_HOST"
	EnvDBUser   = "LUDI_DB_USER"
	EnvDBName   = "LUDI_DB_NAME"

	EnvRedisURL = "LUDI_REDIS_URL"

	EnvJWTSecret              = "LUDI_JWT_SECRET"
	EnvJWTIssuer              = "LUDI_JWT_ISSUER"
	EnvJWTExpMins             = "LUDI_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "LUDI_REFRESH_TOKEN_TTL_MINUTES"

	EnvIdentityProvider  = "LUDI_IDENTITY_PROVIDER"
	EnvFirebaseProjectID = "LUDI_FIREBASE_PROJECT_ID"
	EnvFirebaseAPIKey    = "LUDI_FIREBASE_API_KEY"

	EnvPointsDailyLimit = "LUDI_POINTS_DAILY_LIMIT"
	EnvPointsTimezone   = "LUDI_POINTS_TIMEZONE"

	EnvAttendanceMaxShift = "LUDI_ATTENDANCE_MAX_SHIFT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
