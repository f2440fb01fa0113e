package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string `env:"DATABASE_PATH,default=data/coach.db"`
	PolicyPath   string `env:"POLICY_PATH"`

	LLMProvider  string `env:"LLM_PROVIDER,default=groq"`
	GroqAPIKey   string `env:"GROQ_API_KEY"`
	GroqModel    string `env:"GROQ_MODEL,default=llama-3.3-70b-versatile"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL,default=gemini-1.5-flash"`

	SnapshotSealSecret string `env:"SNAPSHOT_SEAL_SECRET"`

	// Telegram Config
	TelegramBotToken       string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramWebhookURL     string `env:"TELEGRAM_WEBHOOK_URL"`
	TelegramAllowedUserIDs string `env:"TELEGRAM_ALLOWED_USER_IDS"`
	AdminTelegramID        int64  `env:"ADMIN_TELEGRAM_ID"`
}

// NewFromEnv creates a new Config object from environment variables. A .env
// file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("CONFIG: No .env file loaded: %v", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	switch cfg.LLMProvider {
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}

	if _, err := cfg.AllowedUserIDs(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireTelegram checks the keys only the bot needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	ids, _ := c.AllowedUserIDs()
	if len(ids) == 0 {
		return fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS environment variable not set")
	}
	return nil
}

// AllowedUserIDs parses the comma separated Telegram allow-list.
func (c *Config) AllowedUserIDs() ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(c.TelegramAllowedUserIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS entry %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
