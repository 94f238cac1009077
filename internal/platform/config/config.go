package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	LogLevel string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SandboxBaseURL          string
	SandboxCompileTimeoutMs int
	SandboxRequestGraceMs   int
	DefaultTimeLimitSeconds int
	RuntimeCacheTTLSeconds  int
	ExecutionConcurrency    int

	SubmitLockTTLSeconds int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:  getEnv("API_PORT", "8080"),
		JWTKey:   []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:   time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "gauntlet_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SandboxBaseURL:          getEnv("SANDBOX_BASE_URL", "http://localhost:2000"),
		SandboxCompileTimeoutMs: getEnvAsInt("SANDBOX_COMPILE_TIMEOUT_MS", 10000),
		SandboxRequestGraceMs:   getEnvAsInt("SANDBOX_REQUEST_GRACE_MS", 2000),
		DefaultTimeLimitSeconds: getEnvAsInt("DEFAULT_TIME_LIMIT_SECONDS", 5),
		RuntimeCacheTTLSeconds:  getEnvAsInt("RUNTIME_CACHE_TTL_SECONDS", 60),
		ExecutionConcurrency:    getEnvAsInt("EXECUTION_CONCURRENCY", 1),

		SubmitLockTTLSeconds: getEnvAsInt("SUBMIT_LOCK_TTL_SECONDS", 120),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
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
