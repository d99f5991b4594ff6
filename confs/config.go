package confs

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds the runtime settings of the list server.
type Config struct {
	Port           int
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	StoreDriver    string

	// Optional generative backend for item suggestions.
	GeminiAPIKey string
	GeminiModel  string
}

// LoadConfig loads environment variables from a .env file if present
// and builds the Config from them.
func LoadConfig() (*Config, error) {
	// Load .env if it exists; ignore error if file not found
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not load .env", "error", err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment.
func FromEnv() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	port := 3536
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		port = p
	}

	ttl := time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q", v)
		}
		ttl = d
	}

	driver := strings.ToLower(envOr("STORE_DRIVER", StoreDriverPostgres))
	if driver != StoreDriverPostgres && driver != StoreDriverMemory {
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}

	origins := splitOrigins(envOr("CORS_ORIGINS", "http://localhost:3000"))
	if len(origins) == 0 {
		return nil, fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}

	return &Config{
		Port:           port,
		JWTSecret:      secret,
		TokenTTL:       ttl,
		AllowedOrigins: origins,
		StoreDriver:    driver,
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    envOr("GEMINI_MODEL", "gemini-1.5-flash"),
	}, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// splitOrigins parses a comma-separated origin list, dropping blanks and
// trailing slashes.
func splitOrigins(raw string) []string {
	var origins []string
	for _, p := range strings.Split(raw, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
