package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultSessionDurationMin = "DEFAULT_SESSION_DURATION_MIN"
	EnvMaxSessionsPerSeries      = "MAX_SESSIONS_PER_SERIES"

	EnvTutorLockTTL           = "TUTOR_LOCK_TTL"
	EnvTutorLockWaitTimeout   = "TUTOR_LOCK_WAIT_TIMEOUT"
	EnvTutorLockRetryInterval = "TUTOR_LOCK_RETRY_INTERVAL"

	EnvSlotCacheTTL = "SLOT_CACHE_TTL"
)
