// Package config loads cricwatch settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultURL is the match page polled when none is configured.
const DefaultURL = "https://www.cricbuzz.com/live-cricket-scores/112469/nz-vs-ind-final-icc-champions-trophy-2025"

type Config struct {
	Discord DiscordConfig `mapstructure:"discord" validate:"-"`
	Source  SourceConfig  `mapstructure:"source"`
	Poll    PollConfig    `mapstructure:"poll"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Status  StatusConfig  `mapstructure:"status"`
	State   StateConfig   `mapstructure:"state"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type DiscordConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Token      string   `mapstructure:"token" validate:"required_if=Enabled true"`
	ChannelIDs []string `mapstructure:"channel_ids" validate:"required_if=Enabled true,dive,snowflake"`
}

type SourceConfig struct {
	URL  string `mapstructure:"url" validate:"required,url"`
	Team string `mapstructure:"team" validate:"required,teamcode"`
}

type PollConfig struct {
	MinInterval  time.Duration `mapstructure:"min_interval" validate:"gt=0"`
	FailureDelay time.Duration `mapstructure:"failure_delay" validate:"gt=0"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1"`
	Backoff      time.Duration `mapstructure:"backoff" validate:"gte=0"`
}

type TrackerConfig struct {
	KeyPrefix  int `mapstructure:"key_prefix" validate:"min=1"`
	MaxKeys    int `mapstructure:"max_keys" validate:"min=1"`
	RetainKeys int `mapstructure:"retain_keys" validate:"min=0,ltefield=MaxKeys"`
}

type StatusConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type StateConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.enabled", false)
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.channel_ids", []string{})
	v.SetDefault("source.url", DefaultURL)
	v.SetDefault("source.team", "NZ")
	v.SetDefault("poll.min_interval", 3*time.Second)
	v.SetDefault("poll.failure_delay", 5*time.Second)
	v.SetDefault("poll.fetch_timeout", 10*time.Second)
	v.SetDefault("poll.max_attempts", 3)
	v.SetDefault("poll.backoff", 2*time.Second)
	v.SetDefault("tracker.key_prefix", 50)
	v.SetDefault("tracker.max_keys", 1000)
	v.SetDefault("tracker.retain_keys", 500)
	v.SetDefault("status.addr", "")
	v.SetDefault("state.path", "")
	v.SetDefault("logging.level", "info")
}

// New returns a viper instance with defaults and CRICWATCH_ env binding.
// Callers may bind flags to it before passing it to Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CRICWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configPath, or d.yaml from the working directory or ./configs
// when configPath is empty. A missing default file is not an error. An
// invalid discord section only disables notifications.
func Load(v *viper.Viper, configPath string, logger *zap.Logger) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("d")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		logger.Info("no config file found, using defaults with Discord disabled")
	} else {
		logger.Info("loaded config", zap.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.Discord.Enabled {
		if err := cfg.Discord.Validate(); err != nil {
			logger.Warn("Discord configuration is invalid, notifications disabled",
				zap.String("error", Redact(err.Error())),
			)
			cfg.Discord.Enabled = false
		}
	}

	logger.Debug("effective config",
		zap.Bool("discord_enabled", cfg.Discord.Enabled),
		zap.String("discord_token", MaskToken(cfg.Discord.Token)),
		zap.Int("channels", len(cfg.Discord.ChannelIDs)),
		zap.String("url", cfg.Source.URL),
		zap.String("team", cfg.Source.Team),
	)
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Source.Team = strings.ToUpper(strings.TrimSpace(c.Source.Team))
	c.Source.URL = strings.TrimSpace(c.Source.URL)
	c.Discord.Token = strings.TrimSpace(c.Discord.Token)
	c.Discord.ChannelIDs = splitList(c.Discord.ChannelIDs)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
