package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	SMTP     SMTPConfig
	Storage  StorageConfig
	AI       AIConfig
	Tokens   TokenConfig
}

type AppConfig struct {
	Name    string
	BaseURL string // used to build recovery / access links
}

type DatabaseConfig struct {
	URL string
	// ServiceRoleURL connects with a role that bypasses row level security.
	// Only the privileged handle uses it.
	ServiceRoleURL string
	AutoMigrate    bool
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

type SMTPConfig struct {
	Host       string
	Port       int // 587 for STARTTLS, 465 with UseSSL
	Username   string
	Password   string
	From       string
	FromName   string
	UseSSL     bool
	RequireTLS bool
}

type StorageConfig struct {
	URL        string // e.g. https://<project>.supabase.co/storage/v1
	ServiceKey string
	Bucket     string
}

type AIConfig struct {
	Provider string // gemini | openai
	APIKey   string
	Model    string
}

type TokenConfig struct {
	DefaultInitial      int64
	GenerationCost      int64
	LowBalanceThreshold int64
	RecoveryLinkTTL     time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:  getEnvWithDefault("APP_ENV", "development"),
		Port: getEnvWithDefault("PORT", "8080"),
		App: AppConfig{
			Name:    getEnvWithDefault("APP_NAME", "LuxScaler"),
			BaseURL: strings.TrimRight(getEnvWithDefault("APP_BASE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			URL:            os.Getenv("POSTGRES_URL"),
			ServiceRoleURL: os.Getenv("POSTGRES_SERVICE_ROLE_URL"),
			AutoMigrate:    getBool("DB_AUTO_MIGRATE", false),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  getDuration("JWT_TTL", time.Hour),
		},
		Stripe: StripeConfig{
			SecretKey:        os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:    os.Getenv("STRIPE_WEBHOOK_SECRET"),
			WebhookTolerance: getDuration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute),
		},
		SMTP: SMTPConfig{
			Host:       getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
			Port:       getInt("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       os.Getenv("SMTP_FROM"),
			FromName:   getEnvWithDefault("SMTP_FROM_NAME", "LuxScaler"),
			UseSSL:     getBool("SMTP_USE_SSL", false),
			RequireTLS: getBool("SMTP_REQUIRE_TLS", true),
		},
		Storage: StorageConfig{
			URL:        strings.TrimRight(os.Getenv("STORAGE_URL"), "/"),
			ServiceKey: os.Getenv("STORAGE_SERVICE_KEY"),
			Bucket:     getEnvWithDefault("STORAGE_BUCKET", "generations"),
		},
		AI: AIConfig{
			Provider: strings.ToLower(getEnvWithDefault("AI_PROVIDER", "gemini")),
		},
		Tokens: TokenConfig{
			DefaultInitial:      int64(getInt("DEFAULT_INITIAL_TOKENS", 500)),
			GenerationCost:      int64(getInt("GENERATION_TOKEN_COST", 10)),
			LowBalanceThreshold: int64(getInt("LOW_BALANCE_THRESHOLD", 50)),
			RecoveryLinkTTL:     getDuration("RECOVERY_LINK_TTL", 24*time.Hour),
		},
	}

	switch cfg.AI.Provider {
	case "openai":
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.AI.Model = getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini")
	case "gemini":
		cfg.AI.APIKey = os.Getenv("GEMINI_API_KEY")
		cfg.AI.Model = getEnvWithDefault("GEMINI_MODEL", "gemini-2.0-flash")
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q, use 'openai' or 'gemini'", cfg.AI.Provider)
	}

	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}
	if cfg.Database.ServiceRoleURL == "" {
		cfg.Database.ServiceRoleURL = cfg.Database.URL
	}

	return cfg, nil
}

// Validate reports every missing secret at once.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"POSTGRES_URL":          c.Database.URL,
		"JWT_SECRET":            c.Auth.JWTSecret,
		"STRIPE_WEBHOOK_SECRET": c.Stripe.WebhookSecret,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if c.Tokens.GenerationCost <= 0 {
		errs = append(errs, errors.New("GENERATION_TOKEN_COST must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
