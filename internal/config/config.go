package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "PaymentVault"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultProviderWait   = 30 * time.Second
	defaultWebhookWait    = 10 * time.Second
	defaultVerifyAttempts = 5
	defaultVerifyWindow   = time.Hour
	defaultAccountSep     = "#"
)

// Config captures application runtime configuration loaded from environment
// variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Payout provider (B2C).
	ProviderBaseURL    string
	ProviderAPIKey     string
	ProviderShortCode  string
	ProviderTimeout    time.Duration
	ResultCallbackURL  string
	TimeoutCallbackURL string
	TopupCallbackURL   string

	// Paybill collection validation.
	PaybillShortCode string
	PaybillUsername  string
	PaybillPassword  string
	PaybillSecretKey string
	PaybillAccount   string
	AccountSeparator string

	// Verify-with-provider budget per top-up.
	VerifyMaxAttempts int
	VerifyWindow      time.Duration

	// Shared key for operator endpoints (partner onboarding, manual
	// adjustments).
	AdminAPIKey string

	// Downstream origin webhook.
	OriginWebhookURL      string
	OriginWebhookTimeout  time.Duration
	OriginWebhookInsecure bool
}

// Load reads configuration values from the environment and populates a
// Config instance. Database and Redis URLs are required outside development.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,

		ProviderBaseURL:    os.Getenv("PROVIDER_BASE_URL"),
		ProviderAPIKey:     os.Getenv("PROVIDER_API_KEY"),
		ProviderShortCode:  os.Getenv("PROVIDER_SHORT_CODE"),
		ProviderTimeout:    defaultProviderWait,
		ResultCallbackURL:  os.Getenv("RESULT_CALLBACK_URL"),
		TimeoutCallbackURL: os.Getenv("TIMEOUT_CALLBACK_URL"),
		TopupCallbackURL:   os.Getenv("TOPUP_CALLBACK_URL"),

		PaybillShortCode: os.Getenv("PAYBILL_SHORT_CODE"),
		PaybillUsername:  os.Getenv("PAYBILL_USERNAME"),
		PaybillPassword:  os.Getenv("PAYBILL_PASSWORD"),
		PaybillSecretKey: os.Getenv("PAYBILL_SECRET_KEY"),
		PaybillAccount:   os.Getenv("PAYBILL_ACCOUNT_NUMBER"),
		AccountSeparator: getEnv("ACCOUNT_SEPARATOR", defaultAccountSep),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		VerifyMaxAttempts: defaultVerifyAttempts,
		VerifyWindow:      defaultVerifyWindow,

		OriginWebhookURL:      os.Getenv("ORIGIN_WEBHOOK_URL"),
		OriginWebhookTimeout:  defaultWebhookWait,
		OriginWebhookInsecure: getEnv("ORIGIN_WEBHOOK_INSECURE", "false") == "true",
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ProviderTimeout, err = durationEnv("PROVIDER_TIMEOUT", cfg.ProviderTimeout); err != nil {
		return Config{}, err
	}
	if cfg.OriginWebhookTimeout, err = durationEnv("ORIGIN_WEBHOOK_TIMEOUT", cfg.OriginWebhookTimeout); err != nil {
		return Config{}, err
	}
	if cfg.VerifyWindow, err = durationEnv("VERIFY_ATTEMPT_WINDOW", cfg.VerifyWindow); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("VERIFY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VERIFY_MAX_ATTEMPTS: %w", err)
		}
		cfg.VerifyMaxAttempts = n
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.PaybillSecretKey == "" {
			return Config{}, fmt.Errorf("PAYBILL_SECRET_KEY must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.AdminAPIKey == "" {
			return Config{}, fmt.Errorf("ADMIN_API_KEY must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	env := strings.ToLower(c.AppEnv)
	return env == "development" || env == "dev" || env == "local"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
