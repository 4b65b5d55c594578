// Package config loads engine configuration from an optional YAML file and
// STOCKSYNC_-prefixed environment variables. Environment values override the
// file; defaults cover everything else.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full engine configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	MongoDB    MongoConfig      `mapstructure:"mongodb"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	Adapters   AdaptersConfig   `mapstructure:"adapters"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// RedisConfig enables distributed per-key locking when Addr is set; empty
// Addr falls back to in-process striped locks, which is correct for a single
// instance.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
}

type SyncConfig struct {
	WorkersPerMarketplace int           `mapstructure:"workers_per_marketplace"`
	QueueSize             int           `mapstructure:"queue_size"`
	MaxAttempts           int           `mapstructure:"max_attempts"`
	PushTimeout           time.Duration `mapstructure:"push_timeout"`
	InitialBackoff        time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff            time.Duration `mapstructure:"max_backoff"`
	ResyncInterval        time.Duration `mapstructure:"resync_interval"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type AdaptersConfig struct {
	Ozon         OzonConfig         `mapstructure:"ozon"`
	Wildberries  WildberriesConfig  `mapstructure:"wildberries"`
	YandexMarket YandexMarketConfig `mapstructure:"yandex_market"`
	LocalSite    LocalSiteConfig    `mapstructure:"local_site"`
}

type OzonConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	ClientID string `mapstructure:"client_id"`
	APIKey   string `mapstructure:"api_key"`
}

type WildberriesConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type YandexMarketConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	CampaignID string `mapstructure:"campaign_id"`
}

type LocalSiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. configPath may be empty, in which case only
// defaults and environment variables apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STOCKSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "stocksync")

	// Every key viper should read from the environment needs a default,
	// otherwise AutomaticEnv never sees it during Unmarshal.
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "stocksync")

	v.SetDefault("sync.workers_per_marketplace", 4)
	v.SetDefault("sync.queue_size", 4096)
	v.SetDefault("sync.max_attempts", 5)
	v.SetDefault("sync.push_timeout", 30*time.Second)
	v.SetDefault("sync.initial_backoff", 500*time.Millisecond)
	v.SetDefault("sync.max_backoff", 30*time.Second)
	v.SetDefault("sync.resync_interval", 15*time.Minute)

	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)

	v.SetDefault("adapters.ozon.base_url", "https://api-seller.ozon.ru")
	v.SetDefault("adapters.ozon.client_id", "")
	v.SetDefault("adapters.ozon.api_key", "")
	v.SetDefault("adapters.wildberries.base_url", "https://marketplace-api.wildberries.ru")
	v.SetDefault("adapters.wildberries.token", "")
	v.SetDefault("adapters.yandex_market.base_url", "https://api.partner.market.yandex.ru")
	v.SetDefault("adapters.yandex_market.api_key", "")
	v.SetDefault("adapters.yandex_market.campaign_id", "")
	v.SetDefault("adapters.local_site.base_url", "")
	v.SetDefault("adapters.local_site.token", "")

	v.SetDefault("log.level", "info")
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.MongoDB.URI == "" {
		return fmt.Errorf("mongodb uri must not be empty")
	}
	if c.Sync.WorkersPerMarketplace <= 0 {
		return fmt.Errorf("workers per marketplace must be positive")
	}
	if c.Sync.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	return nil
}
