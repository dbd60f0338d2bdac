package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Herd     HerdConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
	Sweep    SweepConfig
	WhatsApp WhatsAppConfig
	Sheets   SheetsConfig
	LogLevel string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// HerdConfig tunes the reconciliation engine.
type HerdConfig struct {
	OwnerID          string
	BatchSize        int
	DailyWriteQuota  int
	MetricsNamespace string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// RedisConfig enables the shared quota counter when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SweepConfig holds the nightly verification settings.
type SweepConfig struct {
	CronSchedule  string
	Timezone      string
	ToleranceDays int
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	RecipientID   string
}

// Enabled reports whether sweep notifications can be sent.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.RecipientID != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the metrics export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when the environment is set directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "herd"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Sweep: SweepConfig{
			CronSchedule: getenvWithDefault("SWEEP_CRON_SCHEDULE", "0 3 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			RecipientID:   os.Getenv("WHATSAPP_RECIPIENT_ID"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Herd: HerdConfig{
			OwnerID:          os.Getenv("HERD_OWNER_ID"),
			MetricsNamespace: getenvWithDefault("HERD_METRICS_NAMESPACE", "herd"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.Herd.BatchSize, err = getenvInt("HERD_BATCH_SIZE", 499); err != nil {
		return nil, err
	}
	if cfg.Herd.DailyWriteQuota, err = getenvInt("HERD_DAILY_WRITE_QUOTA", 20000); err != nil {
		return nil, err
	}
	if cfg.Sweep.ToleranceDays, err = getenvInt("HERD_SWEEP_TOLERANCE_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Herd.OwnerID == "" {
		return errors.New("HERD_OWNER_ID must be provided")
	}
	if c.Herd.BatchSize < 1 || c.Herd.BatchSize > 499 {
		return fmt.Errorf("HERD_BATCH_SIZE must be between 1 and 499, got %d", c.Herd.BatchSize)
	}
	if c.Herd.DailyWriteQuota <= 0 {
		return errors.New("HERD_DAILY_WRITE_QUOTA must be positive")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Sweep.CronSchedule == "" {
		return errors.New("SWEEP_CRON_SCHEDULE must be provided")
	}
	if c.Sweep.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if c.Sweep.ToleranceDays < 0 {
		return errors.New("HERD_SWEEP_TOLERANCE_DAYS must not be negative")
	}

	if c.WhatsApp.AccessToken != "" {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be set together")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
