package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN,required,notEmpty"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	DeveloperID           string   `env:"DEVELOPER_ID"`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandRegisterRPS    float64  `env:"COMMAND_REGISTER_RPS" envDefault:"5"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	WebhookName      string `env:"WEBHOOK_NAME" envDefault:"Grinch"`
	WebhookAvatarURL string `env:"WEBHOOK_AVATAR_URL"`
}

// Load reads .env files (when present) and parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[INFO] No .env file found, falling back to system environment variables")
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.CommandRegisterRPS <= 0 {
		return nil, fmt.Errorf("COMMAND_REGISTER_RPS must be positive, got %v", cfg.CommandRegisterRPS)
	}
	return &cfg, nil
}

// IsDeveloper reports whether userID is the configured developer.
func IsDeveloper(cfg *Config, userID string) bool {
	return cfg != nil && cfg.DeveloperID != "" && cfg.DeveloperID == userID
}
