package config

import (
	"batch-runner/internal/batch/catalog"
	"batch-runner/pkg/config"
)

// Batch holds batch-engine specific configuration, including the job catalog.
type Batch struct {
	Jobs            []catalog.Job `mapstructure:"jobs"`
	CommandBuilder  string        `mapstructure:"command_builder"`
	ScriptExtension string        `mapstructure:"script_extension"`
	ExecuteRateRPS  float64       `mapstructure:"execute_rate_rps"`
	ExecuteBurst    int           `mapstructure:"execute_burst"`
}

// Alerting holds the failure alerting configuration.
type Alerting struct {
	Enabled          bool   `mapstructure:"enabled"`
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   int64  `mapstructure:"telegram_chat_id"`
}

// Events holds the execution event stream configuration.
type Events struct {
	Enabled      bool  `mapstructure:"enabled"`
	StreamMaxLen int64 `mapstructure:"stream_max_len"`
}

// Config holds the full configuration for the batch service.
type Config struct {
	App      config.App      `mapstructure:"app"`
	Logger   config.Logger   `mapstructure:"logger"`
	Database config.Database `mapstructure:"database"`
	Redis    config.Redis    `mapstructure:"redis"`
	API      config.API      `mapstructure:"api"`
	Batch    Batch           `mapstructure:"batch"`
	Events   Events          `mapstructure:"events"`
	Alerting Alerting        `mapstructure:"alerting"`
}

// Load loads the batch service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
