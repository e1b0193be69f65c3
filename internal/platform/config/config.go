package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort      string
	JWTKey       []byte
	JWTExp       time.Duration
	CookieSecure bool

	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSslMode     string
	DBConnStr     string
	DBAutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MailQueueName        string
	SubmissionLockPrefix string
	SubmissionLockTTL    time.Duration

	BlobBackend    string // "s3" or "minio"
	BlobBucket     string
	S3Region       string
	S3Endpoint     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	ExecutorURL     string
	ExecutorAPIKey  string
	ExecutorAPIHost string
	ExecutorTimeout time.Duration

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	MailFrom      string
	MailFromName  string
	PublicBaseURL string

	VerificationTokenTTL time.Duration

	CORSAllowedOrigins []string

	LogLevel slog.Level
	LogJSON  bool
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:      getEnv("API_PORT", "8080"),
		JWTKey:       []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:       time.Duration(getEnvAsInt("JWT_EXPIRATION_MINUTES", 30)) * time.Minute,
		CookieSecure: getEnvAsBool("COOKIE_SECURE", false),

		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "bytepit"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "bytepit"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		MailQueueName:        getEnv("MAIL_QUEUE_NAME", "mail_jobs_queue"),
		SubmissionLockPrefix: getEnv("SUBMISSION_LOCK_PREFIX", "submission_lock:"),
		SubmissionLockTTL:    time.Duration(getEnvAsInt("SUBMISSION_LOCK_TTL_SECONDS", 120)) * time.Second,

		BlobBackend:    getEnv("BLOB_BACKEND", "s3"),
		BlobBucket:     getEnv("BLOB_BUCKET", "bytepit-tests"),
		S3Region:       getEnv("S3_REGION", "eu-central-1"),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),

		ExecutorURL:     getEnv("EXECUTOR_URL", "https://onecompiler-apis.p.rapidapi.com/api/v1/run"),
		ExecutorAPIKey:  getEnv("EXECUTOR_API_KEY", ""),
		ExecutorAPIHost: getEnv("EXECUTOR_API_HOST", "onecompiler-apis.p.rapidapi.com"),
		ExecutorTimeout: time.Duration(getEnvAsInt("EXECUTOR_TIMEOUT_SECONDS", 30)) * time.Second,

		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		MailFrom:      getEnv("MAIL_FROM", "noreply@bytepit.local"),
		MailFromName:  getEnv("MAIL_FROM_NAME", "BytePit"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),

		VerificationTokenTTL: time.Duration(getEnvAsInt("VERIFICATION_TOKEN_TTL_HOURS", 24)) * time.Hour,

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		LogLevel: getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo),
		LogJSON:  getEnvAsBool("LOG_JSON", false),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

// MigrationURL is the connection string in the form golang-migrate's pgx/v5 driver expects.
func (c *Config) MigrationURL() string {
	return "pgx5://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsLogLevel(key string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv(key, ""))); err != nil {
		return fallback
	}
	return level
}
