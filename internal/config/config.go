// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   string
	Environment  string
	LogLevel     string
	JWTSecretKey string

	// Storage
	DBDriver    string // "sqlite" or "postgres"
	SQLitePath  string
	DatabaseURL string

	// Optional read cache for single-chat loads
	RedisAddr     string
	RedisPassword string
	ChatCacheTTL  time.Duration

	// Inference
	OpenAIAPIKey  string
	OpenAIBaseURL string
	ChatModel     string

	RecapLimit int

	// Sign-in policy, evaluated when a session token is issued
	AllowedEmails       []string
	AllowedEmailDomains []string

	TurnRateLimit  int
	TurnRateWindow time.Duration
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if !IsProduction(env) {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		Environment:         env,
		LogLevel:            getEnv("LOG_LEVEL", "INFO"),
		JWTSecretKey:        getEnv("JWT_SECRET_KEY", ""),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath:          getEnv("SQLITE_PATH", "chatsync.db"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		ChatCacheTTL:        time.Duration(getEnvAsInt("CHAT_CACHE_TTL_SECONDS", 300)) * time.Second,
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
		ChatModel:           getEnv("CHAT_MODEL", "gpt-4o-mini"),
		RecapLimit:          getEnvAsInt("RECAP_LIMIT", 3),
		AllowedEmails:       getEnvAsList("ALLOWED_EMAILS"),
		AllowedEmailDomains: getEnvAsList("ALLOWED_EMAIL_DOMAINS"),
		TurnRateLimit:       getEnvAsInt("TURN_RATE_LIMIT", 30),
		TurnRateWindow:      time.Duration(getEnvAsInt("TURN_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}

// Validate reports missing or inconsistent settings. Secrets are only required in production.
func (c *Config) Validate() error {
	var missing []string

	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}

	if IsProduction(c.Environment) {
		if c.JWTSecretKey == "" {
			missing = append(missing, "JWT_SECRET_KEY")
		}
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.RecapLimit <= 0 {
		return fmt.Errorf("RECAP_LIMIT must be positive")
	}
	return nil
}

// DevJWTSecret signs tokens outside production when JWT_SECRET_KEY is unset.
const DevJWTSecret = "development-only-secret"

// SigningSecret returns the key used to sign and verify session tokens.
// The second result reports whether the development fallback was used.
func (c *Config) SigningSecret() (string, bool) {
	if c.JWTSecretKey != "" || IsProduction(c.Environment) {
		return c.JWTSecretKey, false
	}
	return DevJWTSecret, true
}

// IsProduction reports whether env names the production environment.
func IsProduction(env string) bool {
	return strings.EqualFold(env, "production")
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

// getEnvAsList splits a comma-separated env var, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
