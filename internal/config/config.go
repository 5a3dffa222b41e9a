package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"diamond_tma/internal/logger"
	"diamond_tma/internal/service"
	"diamond_tma/internal/telegram"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Env         string
	AppPort     string
	DatabaseURL string

	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
	Log       LogConfig

	AllowedOrigin string
	// TrustedProxies lists the proxy IPs/CIDRs whose X-Forwarded-For is
	// believed. Empty means the client IP is the TCP peer.
	TrustedProxies []string
}

type AuthConfig struct {
	BotToken   string
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
	// InitDataMaxAge is the strict server-side freshness window.
	InitDataMaxAge time.Duration

	// Dev-only: accept unsigned payloads and issue tokens for the mock user.
	MockEnabled    bool
	MockTelegramID int64
	MockFirstName  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	APILimit   int
	APIWindow  time.Duration
	AuthLimit  int
	AuthWindow time.Duration
}

type EventsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level string
	JSON  bool
}

// IsProduction reports whether the process runs with the production posture.
func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// Load reads config from .env and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from getenv and validates it.
func Parse(getenv func(string) string) (*Config, error) {
	env := strings.ToLower(getenv("APP_ENV"))
	if env == "" {
		env = EnvProduction
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := &Config{
		Env:         env,
		AppPort:     port,
		DatabaseURL: getenv("DATABASE_URL"),
		Auth: AuthConfig{
			BotToken:       getenv("BOT_TOKEN"),
			JWTSecret:      getenv("JWT_SECRET"),
			JWTIssuer:      stringOr(getenv("JWT_ISSUER"), service.DefaultIssuer),
			SessionTTL:     durationOr(getenv("SESSION_TTL"), service.DefaultSessionTTL),
			InitDataMaxAge: durationOr(getenv("INIT_DATA_MAX_AGE"), telegram.DefaultInitDataMaxAge),
			MockEnabled:    getenv("AUTH_MOCK_ENABLED") == "true",
			MockTelegramID: int64Or(getenv("AUTH_MOCK_TELEGRAM_ID"), 1),
			MockFirstName:  stringOr(getenv("AUTH_MOCK_FIRST_NAME"), "Developer"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR"),
			Password: getenv("REDIS_PASSWORD"),
			DB:       intOr(getenv("REDIS_DB"), 0),
		},
		RateLimit: RateLimitConfig{
			APILimit:   intOr(getenv("API_RATE_LIMIT"), 60),
			APIWindow:  secondsOr(getenv("API_RATE_WINDOW_SECONDS"), time.Minute),
			AuthLimit:  intOr(getenv("AUTH_RATE_LIMIT"), 5),
			AuthWindow: secondsOr(getenv("AUTH_RATE_WINDOW_SECONDS"), time.Minute),
		},
		Events: EventsConfig{
			Enabled: getenv("EVENTS_ENABLED") != "false",
		},
		Log: LogConfig{
			Level: stringOr(getenv("LOG_LEVEL"), "info"),
			JSON:  getenv("LOG_JSON") == "true",
		},
		AllowedOrigin:  getenv("ALLOWED_ORIGIN"),
		TrustedProxies: splitList(getenv("TRUSTED_PROXIES")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting the auth flow cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Env != EnvProduction && c.Env != EnvDevelopment {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvProduction, EnvDevelopment, c.Env))
	}
	if c.Auth.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is not set"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if c.Auth.JWTSecret != "" && c.Auth.JWTSecret == c.Auth.BotToken {
		errs = append(errs, errors.New("JWT_SECRET must differ from BOT_TOKEN"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Auth.InitDataMaxAge <= 0 {
		errs = append(errs, errors.New("INIT_DATA_MAX_AGE must be positive"))
	}
	if c.Auth.MockEnabled && c.IsProduction() {
		errs = append(errs, errors.New("AUTH_MOCK_ENABLED is not allowed when APP_ENV=production"))
	}
	if c.DatabaseURL == "" && c.IsProduction() {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}

	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %q is neither an IP nor a CIDR", p))
			}
		}
	}

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) int {
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return n
	}
	return def
}

func int64Or(v string, def int64) int64 {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
		return n
	}
	return def
}

func secondsOr(v string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func durationOr(v string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
