package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Generator       GeneratorConfig       `toml:"generator"`
	Accounts        []AccountConfig       `toml:"accounts"`
	Feeds           []FeedConfig          `toml:"feeds"`
	Oracle          OracleConfig          `toml:"oracle"`
	Personalization PersonalizationConfig `toml:"personalization"`
	Cache           CacheConfig           `toml:"cache"`
	Voice           VoiceConfig           `toml:"voice"`
	Storage         StorageConfig         `toml:"storage"`
	Discord         DiscordConfig         `toml:"discord"`
	Server          ServerConfig          `toml:"server"`
}

type GeneratorConfig struct {
	Name            string `toml:"name"`
	OutputDir       string `toml:"output_dir"`
	LookbackHours   int    `toml:"lookback_hours"`
	DurationMinutes int    `toml:"duration_minutes"`
	SegmentMinutes  int    `toml:"segment_minutes"`
	Quick           bool   `toml:"quick"`
	Segmented       bool   `toml:"segmented"`
	Interval        string `toml:"interval"`
	RunOnce         bool   `toml:"run_once"`
}

type AccountConfig struct {
	Address    string `toml:"address"`
	Password   string `toml:"password"`
	IMAPServer string `toml:"imap_server"`
	IMAPPort   int    `toml:"imap_port"`
	Folder     string `toml:"folder"`
}

type FeedConfig struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	MaxItems int    `toml:"max_items"`
	FullText bool   `toml:"full_text"`
}

type OracleConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	FilterModel    string `toml:"filter_model"`
	MaxConcurrency int    `toml:"max_concurrency"`
	Timeout        string `toml:"timeout"`
}

type PersonalizationConfig struct {
	UserName   string   `toml:"user_name"`
	UserRole   string   `toml:"user_role"`
	Interests  []string `toml:"interests"`
	FilterMode string   `toml:"filter_mode"`
}

type CacheConfig struct {
	Enabled   bool   `toml:"enabled"`
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	Staleness string `toml:"staleness"`
}

type VoiceConfig struct {
	APIKey  string `toml:"api_key"`
	VoiceID string `toml:"voice_id"`
	Timeout string `toml:"timeout"`
}

type StorageConfig struct {
	DBPath    string `toml:"db_path"`
	UploadDir string `toml:"upload_dir"`
	BaseURL   string `toml:"base_url"`
}

type DiscordConfig struct {
	Enabled   bool   `toml:"enabled"`
	Token     string `toml:"token"`
	ChannelID string `toml:"channel_id"`
}

type ServerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Port     string `toml:"port"`
	FeedSize int    `toml:"feed_size"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Generator.Name == "" {
		config.Generator.Name = "briefcast"
	}
	if config.Generator.OutputDir == "" {
		config.Generator.OutputDir = "output"
	}
	if config.Generator.LookbackHours == 0 {
		config.Generator.LookbackHours = 24
	}
	if config.Generator.DurationMinutes == 0 {
		config.Generator.DurationMinutes = 10
	}
	if config.Generator.SegmentMinutes == 0 {
		config.Generator.SegmentMinutes = 2
	}
	if config.Generator.Interval == "" {
		config.Generator.Interval = "24h"
	}
	if _, err := time.ParseDuration(config.Generator.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}

	if len(config.Accounts) == 0 && len(config.Feeds) == 0 {
		return fmt.Errorf("at least one account or feed must be configured")
	}

	for i := range config.Accounts {
		account := &config.Accounts[i]
		if account.Address == "" {
			return fmt.Errorf("account %d: address is required", i)
		}
		if account.Password == "" {
			return fmt.Errorf("account %s: password is required", account.Address)
		}
		if account.IMAPServer == "" {
			account.IMAPServer = "imap.gmail.com"
		}
		if account.IMAPPort == 0 {
			account.IMAPPort = 993
		}
		if account.Folder == "" {
			account.Folder = "INBOX"
		}
	}

	for i := range config.Feeds {
		feed := &config.Feeds[i]
		if feed.URL == "" {
			return fmt.Errorf("feed %d: url is required", i)
		}
		if feed.Name == "" {
			feed.Name = feed.URL
		}
		if feed.MaxItems == 0 {
			feed.MaxItems = 50
		}
	}

	if config.Oracle.Provider == "" {
		config.Oracle.Provider = "anthropic"
	}
	switch config.Oracle.Provider {
	case "anthropic":
		if config.Oracle.APIKey == "" {
			return fmt.Errorf("oracle api_key is required for anthropic provider")
		}
		if config.Oracle.Model == "" {
			config.Oracle.Model = "claude-3-opus-20240229"
		}
		if config.Oracle.FilterModel == "" {
			config.Oracle.FilterModel = "claude-3-haiku-20240307"
		}
	case "ollama":
		if config.Oracle.Model == "" {
			return fmt.Errorf("oracle model is required for ollama provider")
		}
		if config.Oracle.FilterModel == "" {
			config.Oracle.FilterModel = config.Oracle.Model
		}
	default:
		return fmt.Errorf("unsupported oracle provider: %s", config.Oracle.Provider)
	}
	if config.Oracle.MaxConcurrency == 0 {
		config.Oracle.MaxConcurrency = 10
	}
	if config.Oracle.Timeout == "" {
		config.Oracle.Timeout = "60s"
	}
	if _, err := time.ParseDuration(config.Oracle.Timeout); err != nil {
		return fmt.Errorf("invalid oracle timeout: %w", err)
	}

	if config.Personalization.UserName == "" {
		config.Personalization.UserName = "User"
	}
	if config.Personalization.UserRole == "" {
		config.Personalization.UserRole = "professional"
	}
	if mode := config.Personalization.FilterMode; mode != "" && mode != "smart" && mode != "simple" {
		return fmt.Errorf("unsupported filter_mode: %s", mode)
	}

	if config.Cache.Backend == "" {
		config.Cache.Backend = "file"
	}
	if config.Cache.Backend != "file" && config.Cache.Backend != "redis" {
		return fmt.Errorf("unsupported cache backend: %s", config.Cache.Backend)
	}
	if config.Cache.Staleness == "" {
		config.Cache.Staleness = "1h"
	}
	if _, err := time.ParseDuration(config.Cache.Staleness); err != nil {
		return fmt.Errorf("invalid cache staleness: %w", err)
	}
	if config.Cache.Backend == "redis" && config.Cache.RedisAddr == "" {
		config.Cache.RedisAddr = "localhost:6379"
	}

	if config.Voice.APIKey == "" {
		return fmt.Errorf("voice api_key is required")
	}
	if config.Voice.Timeout == "" {
		config.Voice.Timeout = "120s"
	}
	if _, err := time.ParseDuration(config.Voice.Timeout); err != nil {
		return fmt.Errorf("invalid voice timeout: %w", err)
	}

	if config.Storage.DBPath == "" {
		config.Storage.DBPath = "./briefcast.db"
	}
	if config.Storage.UploadDir == "" {
		config.Storage.UploadDir = "uploads"
	}

	if config.Discord.Enabled {
		if config.Discord.Token == "" {
			return fmt.Errorf("discord token is required when discord is enabled")
		}
		if config.Discord.ChannelID == "" {
			return fmt.Errorf("discord channel_id is required when discord is enabled")
		}
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.FeedSize == 0 {
		config.Server.FeedSize = 50
	}

	return nil
}

// Lookback returns the configured lookback window as a duration.
func (g GeneratorConfig) Lookback() time.Duration {
	return time.Duration(g.LookbackHours) * time.Hour
}

// StalenessDuration returns the parsed staleness threshold. Validation has
// already checked the format.
func (c CacheConfig) StalenessDuration() time.Duration {
	d, _ := time.ParseDuration(c.Staleness)
	return d
}

func (o OracleConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(o.Timeout)
	return d
}

func (v VoiceConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(v.Timeout)
	return d
}
