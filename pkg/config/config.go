package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Supabase/hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Telegram TelegramConfig

	Session SessionConfig

	Debug DebugAuthConfig

	// RedisAddr enables the redis-backed rate limiter when non-empty.
	RedisAddr     string
	RedisPassword string

	// RateLimitRPM is the per-client request budget per minute window.
	RateLimitRPM int

	// WebAppAllowedOrigins is a comma-separated allowlist of origins allowed to
	// call the API from the mini-app frontend. Example:
	//   https://shop.yourapp.com,http://localhost:5173
	WebAppAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type TelegramConfig struct {
	// BotToken is the shared secret the initData signing key is derived from.
	BotToken string

	// AuthTTLSeconds bounds how old an initData auth_date may be (default 24h).
	AuthTTLSeconds int64

	// AdminIDs is the allow-list of Telegram user ids granted the admin role.
	// Role is recomputed from this list on every authentication, so edits take
	// effect on the next login without touching stored users.
	AdminIDs []string
}

type SessionConfig struct {
	// JWTSecret signs the short-lived session tokens minted by /v1/auth/token.
	JWTSecret string

	// TokenTTLSeconds is the session token lifetime (default 1h).
	TokenTTLSeconds int64
}

// DebugAuthConfig gates the canned-identity bypass used by integration tests.
// The bypass is dead whenever AppEnv == "prod", regardless of these values.
type DebugAuthConfig struct {
	Enabled bool
	Secret  string
	AsAdmin bool
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "minishop"),
			User:     env("DB_USER", "minishop"),
			Password: env("DB_PASSWORD", "minishop"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Telegram: TelegramConfig{
			BotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
			AuthTTLSeconds: envInt64("AUTH_TTL_SECONDS", 86400),
			AdminIDs:       envList("ADMIN_TELEGRAM_IDS", ""),
		},
		Session: SessionConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			TokenTTLSeconds: envInt64("SESSION_TOKEN_TTL_SECONDS", 3600),
		},
		Debug: DebugAuthConfig{
			Enabled: envBool("DEBUG_AUTH_ENABLED"),
			Secret:  os.Getenv("DEBUG_AUTH_SECRET"),
			AsAdmin: envBool("DEBUG_AUTH_ADMIN"),
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RateLimitRPM:  int(envInt64("RATE_LIMIT_RPM", 120)),

		WebAppAllowedOrigins: envList("WEBAPP_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),
	}
}

// IsAdminID reports whether the given Telegram id is on the admin allow-list.
func (c TelegramConfig) IsAdminID(telegramID string) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	}
	return false
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			s := v[start:i]
			start = i + 1
			// trim spaces
			for len(s) > 0 && (s[0] == ' ' || s[0] == '\t' || s[0] == '\n' || s[0] == '\r') {
				s = s[1:]
			}
			for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
				s = s[:len(s)-1]
			}
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
