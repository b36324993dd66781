package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string
	PublicURL   string

	MySQLDSN string

	MongoURI string
	MongoDB  string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret      string
	GoogleClientID string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool

	SentryDSN   string
	SwaggerHost string

	ViewTimeout time.Duration
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:3000"),

		MySQLDSN: getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/medcircle?charset=utf8mb4&parseTime=True&loc=Local"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:  getEnv("MONGO_DB", "medcircle"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:      getEnv("JWT_SECRET", "change-me"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "medcircle"),
		MinioSSL:       os.Getenv("MINIO_SSL") == "1",

		SentryDSN:   os.Getenv("SENTRY_DSN"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),

		ViewTimeout: getEnvDuration("VIEW_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
