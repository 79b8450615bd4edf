package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Store backends accepted by the event collector.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// EventCollectorCLI holds command-line arguments of the event collector.
type EventCollectorCLI struct {
	Config        string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host          string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port          int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Store         string `kong:"help='Event store backend: redis|memory (overrides config).',env='STORE'"`
	RedisAddr     string `kong:"help='Redis address (overrides config).',env='REDIS_ADDR'"`
	RedisPassword string `kong:"help='Redis password (overrides config).',env='REDIS_PASSWORD'"`
	RedisDB       int    `kong:"help='Redis database number (overrides config).',env='REDIS_DB'"`
	LogLevel      string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// EventCollectorConfig is the top-level event collector configuration.
type EventCollectorConfig struct {
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Redis   RedisConfig   `toml:"redis"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`

	filePath string
}

// StoreConfig selects the event store backend and its retention.
type StoreConfig struct {
	Backend   string `toml:"backend"`
	MaxEvents int64  `toml:"max_events"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	Key            string `toml:"key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PoolSize       int    `toml:"pool_size"`
}

// LoadEventCollector reads the collector config the same way Load does for the proxy.
func LoadEventCollector(cli *EventCollectorCLI) (*EventCollectorConfig, error) {
	var cfg EventCollectorConfig
	path, err := readConfig(cli.Config, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (c *EventCollectorConfig) applyCLI(cli *EventCollectorCLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Store != "" {
		c.Store.Backend = cli.Store
	}
	if cli.RedisAddr != "" {
		c.Redis.Addr = cli.RedisAddr
	}
	if cli.RedisPassword != "" {
		c.Redis.Password = cli.RedisPassword
	}
	if cli.RedisDB != 0 {
		c.Redis.DB = cli.RedisDB
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *EventCollectorConfig) validate() error {
	if err := validatePort("server.port", c.Server.Port); err != nil {
		return err
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}

	switch strings.ToLower(c.Store.Backend) {
	case StoreRedis, StoreMemory, "":
	default:
		return fmt.Errorf("store.backend must be one of: redis, memory; got %q", c.Store.Backend)
	}
	if c.Store.MaxEvents < 0 {
		return fmt.Errorf("store.max_events must be non-negative; got %d", c.Store.MaxEvents)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be non-negative; got %d", c.Redis.DB)
	}
	if c.Redis.TimeoutSeconds < 0 {
		return fmt.Errorf("redis.timeout_seconds must be non-negative; got %d", c.Redis.TimeoutSeconds)
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be non-negative; got %d", c.Redis.PoolSize)
	}

	if err := c.Log.validate(); err != nil {
		return err
	}

	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/mcp", "/context", "/healthz"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}
	return nil
}

func (c *EventCollectorConfig) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1024 * 1024 // 1 MB
	}
	c.Store.Backend = strings.ToLower(c.Store.Backend)
	if c.Store.Backend == "" {
		c.Store.Backend = StoreRedis
	}
	if c.Store.MaxEvents == 0 {
		c.Store.MaxEvents = 1000
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "events:add_to_cart"
	}
	if c.Redis.TimeoutSeconds == 0 {
		c.Redis.TimeoutSeconds = 3
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	c.Log.setDefaults()
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *EventCollectorConfig) WarnPermissions(logger *slog.Logger) {
	warnPermissions(c.filePath, logger)
}
