// Package config provides YAML-based configuration loading for Pantry.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Pantry configuration, loaded from pantry.yaml.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Database  DatabaseConfig `yaml:"database"`
	Notify    NotifyConfig   `yaml:"notify"`
	Reminders ReminderConfig `yaml:"reminders"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds connection settings. Driver is "sqlite" (Path) or
// "mysql" (Host/Port/Name/User).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
}

// NotifyConfig holds chat notification settings. Empty tokens disable the
// corresponding adapter.
type NotifyConfig struct {
	SlackBotToken    string `yaml:"slack_bot_token"`
	SlackChannel     string `yaml:"slack_channel"`
	DiscordBotToken  string `yaml:"discord_bot_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// ReminderConfig holds cron expressions for the reminder loop.
type ReminderConfig struct {
	DigestCron    string `yaml:"digest_cron"`
	UrgencyCron   string `yaml:"urgency_cron"`
	LookaheadDays int    `yaml:"lookahead_days"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "pantry.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "pantry"
		}
	}
	if c.Reminders.DigestCron == "" {
		c.Reminders.DigestCron = "0 8 * * *"
	}
	if c.Reminders.UrgencyCron == "" {
		c.Reminders.UrgencyCron = "*/30 * * * *"
	}
	if c.Reminders.LookaheadDays == 0 {
		c.Reminders.LookaheadDays = 3
	}
}

// validate checks required fields and value ranges.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Notify.SlackBotToken != "" && c.Notify.SlackChannel == "" {
		return fmt.Errorf("config: slack_channel is required when slack_bot_token is set")
	}
	if c.Notify.DiscordBotToken != "" && c.Notify.DiscordChannelID == "" {
		return fmt.Errorf("config: discord_channel_id is required when discord_bot_token is set")
	}
	if strings.Count(c.Reminders.DigestCron, " ") != 4 {
		return fmt.Errorf("config: digest_cron %q is not a 5-field cron expression", c.Reminders.DigestCron)
	}
	if strings.Count(c.Reminders.UrgencyCron, " ") != 4 {
		return fmt.Errorf("config: urgency_cron %q is not a 5-field cron expression", c.Reminders.UrgencyCron)
	}
	return nil
}
