package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (tokens issued by the identity provider)
	JWTSecret       string
	JWTAccessExpiry time.Duration
	JWKSURL         string

	// Admin
	AdminEmails       string
	AdminUserIDs      string
	AdminEmail        string
	AdminPasswordHash string

	// Server
	Port          string
	CORSOrigins   string
	PublicBaseURL string

	// Object storage
	StorageDir         string
	StorageBucket      string
	ImageVerifyContent bool

	// Change feed
	ChangeFeed       string
	RedisAddr        string
	RedisPassword    string
	RealtimeChannel  string
	RealtimeDebounce time.Duration

	// Logging and error tracking
	LogRetentionDays int
	SentryDSN        string
	AppEnv           string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "water_reports"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: parseDuration(getEnv("JWT_ACCESS_EXPIRY", "1h"), time.Hour),
		JWKSURL:         getEnv("JWKS_URL", ""),

		AdminEmails:       getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs:      getEnv("ADMIN_USER_IDS", ""),
		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "*"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		StorageDir:         getEnv("STORAGE_DIR", "data/images"),
		StorageBucket:      getEnv("STORAGE_BUCKET", "report-images"),
		ImageVerifyContent: parseBool(getEnv("IMAGE_VERIFY_CONTENT", "true")),

		ChangeFeed:       getEnv("CHANGE_FEED", "local"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RealtimeChannel:  getEnv("REALTIME_CHANNEL", "report_changes"),
		RealtimeDebounce: parseDuration(getEnv("REALTIME_DEBOUNCE", "250ms"), 250*time.Millisecond),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		AppEnv:           getEnv("APP_ENV", "production"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// URL returns the DSN in URL form, as expected by pgx.Connect.
func (c *Config) URL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword +
		"@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName +
		"?sslmode=" + c.DBSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
