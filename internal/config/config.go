package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/isdelr/intake-api/internal/mailer"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	AppEnv       string
	LogLevel     string
	StoreBackend string
	MongoURI     string
	MongoDB      string
	DatabasePath string

	JWTSecret string
	TokenTTL  time.Duration

	SchedulingBaseURL     string
	SchedulingAccessToken string
	SchedulingTimeout     time.Duration
	WebhookSigningKey     string
	MeetingTimezone       *time.Location

	SMTP mailer.SMTPConfig

	CORSOrigins     []string
	ResetTokenSweep string
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Load reads an optional .env file and then the environment, applying defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	var errs []error

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		errs = append(errs, fmt.Errorf("PORT: %w", err))
	}
	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TOKEN_TTL: %w", err))
	}
	schedulingTimeout, err := time.ParseDuration(getEnv("SCHEDULING_TIMEOUT", "10s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULING_TIMEOUT: %w", err))
	}
	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))
	if err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: %w", err))
	}
	tz, err := time.LoadLocation(getEnv("MEETING_TIMEZONE", "UTC"))
	if err != nil {
		errs = append(errs, fmt.Errorf("MEETING_TIMEZONE: %w", err))
	}

	cfg := &Config{
		ServerPort:   port,
		AppEnv:       getEnv("APP_ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendMongo)),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "intake"),
		DatabasePath: getEnv("DATABASE_PATH", "./intake.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  tokenTTL,

		SchedulingBaseURL:     strings.TrimSuffix(getEnv("SCHEDULING_BASE_URL", "https://api.calendly.com"), "/"),
		SchedulingAccessToken: getEnv("SCHEDULING_ACCESS_TOKEN", os.Getenv("CALENDLY_ACCESS_TOKEN")),
		SchedulingTimeout:     schedulingTimeout,
		WebhookSigningKey:     os.Getenv("WEBHOOK_SIGNING_KEY"),
		MeetingTimezone:       tz,

		SMTP: mailer.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
		},

		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		ResetTokenSweep: getEnv("RESET_TOKEN_SWEEP", "@every 15m"),
		RateLimitRPS:    rps,
		RateLimitBurst:  burst,
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.StoreBackend != BackendMongo && cfg.StoreBackend != BackendSQLite {
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMongo, BackendSQLite, cfg.StoreBackend))
	}
	if u, err := url.Parse(cfg.SchedulingBaseURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errs = append(errs, fmt.Errorf("SCHEDULING_BASE_URL must be an absolute http(s) url, got %q", cfg.SchedulingBaseURL))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether human-readable logs and relaxed defaults apply.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
