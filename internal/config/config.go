// Package config provides YAML-based configuration loading for AyuSetu.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level AyuSetu configuration, loaded from setu.yaml.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Users    []UserConfig   `yaml:"users"`
}

// DatabaseConfig holds connection settings for the MySQL batch store.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// AlertsConfig holds recall alert channel settings.
type AlertsConfig struct {
	DigestCron string        `yaml:"digest_cron"` // 5-field cron expression, empty disables the digest
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack recall alert channel.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig configures the Discord recall alert channel.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// UserConfig declares a stakeholder seeded into the user_roles directory.
type UserConfig struct {
	ID   string `yaml:"id"`
	Role string `yaml:"role"` // farmer, aggregator, processor, manufacturer, distributor
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

// validRoles lists the supply-chain roles a seeded user may hold.
var validRoles = map[string]bool{
	"farmer":       true,
	"aggregator":   true,
	"processor":    true,
	"manufacturer": true,
	"distributor":  true,
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "ayusetu"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var problems []string

	if c.Alerts.Slack.BotToken != "" && c.Alerts.Slack.ChannelID == "" {
		problems = append(problems, "alerts.slack.channel_id is required when a bot token is set")
	}
	if c.Alerts.Discord.BotToken != "" && c.Alerts.Discord.ChannelID == "" {
		problems = append(problems, "alerts.discord.channel_id is required when a bot token is set")
	}

	seen := make(map[string]bool)
	for i, u := range c.Users {
		if u.ID == "" {
			problems = append(problems, fmt.Sprintf("users[%d].id is required", i))
			continue
		}
		if seen[u.ID] {
			problems = append(problems, fmt.Sprintf("duplicate user %q", u.ID))
		}
		seen[u.ID] = true
		if !validRoles[u.Role] {
			problems = append(problems, fmt.Sprintf("user %q has unknown role %q", u.ID, u.Role))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}
