// Package config loads the runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the sync core.
type Config struct {
	// IMAP endpoint and credentials.
	IMAPHost     string `env:"IMAP_HOST"`
	IMAPPort     int    `env:"IMAP_PORT" envDefault:"993"`
	IMAPUsername string `env:"IMAP_USERNAME"`
	IMAPPassword string `env:"IMAP_PASSWORD"`

	// SMTP endpoint. Credentials default to the IMAP ones.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"465"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	// Address is the mailbox owner, used as default From.
	Address string `env:"MAIL_ADDRESS"`

	ConnTimeout time.Duration `env:"CONN_TIMEOUT" envDefault:"30s"`

	// AttachPath locates the attachment blob store.
	AttachPath string `env:"ATTACH_PATH" envDefault:"/data/attachments.db"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Preferred remote paths of the special folders. Empty means detect
	// by folder name.
	TrashPath  string `env:"FOLDER_TRASH"`
	DraftsPath string `env:"FOLDER_DRAFTS"`
	SentPath   string `env:"FOLDER_SENT"`
	SpamPath   string `env:"FOLDER_SPAM"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is merged in first, without overriding real variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.SMTPUsername == "" {
		cfg.SMTPUsername = cfg.IMAPUsername
	}
	if cfg.SMTPPassword == "" {
		cfg.SMTPPassword = cfg.IMAPPassword
	}
	if cfg.Address == "" {
		cfg.Address = cfg.IMAPUsername
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields no default can supply.
func (c *Config) Validate() error {
	switch {
	case c.IMAPHost == "":
		return fmt.Errorf("IMAP_HOST is required")
	case c.IMAPUsername == "":
		return fmt.Errorf("IMAP_USERNAME is required")
	case c.IMAPPassword == "":
		return fmt.Errorf("IMAP_PASSWORD is required")
	case c.SMTPHost == "":
		return fmt.Errorf("SMTP_HOST is required")
	case c.ConnTimeout <= 0:
		return fmt.Errorf("CONN_TIMEOUT must be positive")
	}
	return nil
}
