package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	ChannelSecret string `env:"CHANNEL_SECRET,required"`
	ChannelToken  string `env:"CHANNEL_ACCESS_TOKEN,required"`
	DatabaseURL   string `env:"DATABASE_URL,required"`

	// Messaging platform endpoints (overridable for staging)
	APIBaseURL  string `env:"PLATFORM_API_URL" envDefault:"https://api.line.me/v2/bot"`
	DataBaseURL string `env:"PLATFORM_DATA_URL" envDefault:"https://api-data.line.me/v2/bot"`

	// Push quota
	PushMonthlyLimit int64 `env:"PUSH_MONTHLY_LIMIT" envDefault:"500"`
	QuotaWarnPercent int   `env:"QUOTA_WARN_PERCENT" envDefault:"80"`

	// Dialog sessions
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// Attachments
	AttachmentDir string `env:"ATTACHMENT_DIR" envDefault:"/var/lib/deskbot/attachments"`

	// Server
	Port int `env:"PORT" envDefault:"3000"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
