// Package config handles TOML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/frontend-proxy/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config        string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host          string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port          int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	AdminPort     int    `kong:"help='Admin listen port (overrides config).',env='ADMIN_PORT'"`
	UpstreamURL   string `kong:"help='Upstream origin base URL (overrides config).',env='UPSTREAM_URL'"`
	CollectorHost string `kong:"help='Event collector host (overrides config).',env='TOOLBOX_SERVICE_HOST'"`
	CollectorPort int    `kong:"help='Event collector port (overrides config).',env='TOOLBOX_SERVICE_PORT'"`
	LogLevel      string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level proxy configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Admin     AdminConfig     `toml:"admin"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Collector CollectorConfig `toml:"collector"`
	Intercept InterceptConfig `toml:"intercept"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default"; TOML cannot distinguish 0 from unset
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// AdminConfig holds the listener serving health, status and metrics.
type AdminConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// UpstreamConfig holds upstream origin connection settings.
type UpstreamConfig struct {
	BaseURL         string `toml:"base_url"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	IdleConnections int    `toml:"idle_connections"`
}

// CollectorConfig locates the event collector that receives cart events.
type CollectorConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// InterceptConfig describes which requests produce cart events.
type InterceptConfig struct {
	CartPath      string `toml:"cart_path"`
	SessionCookie string `toml:"session_cookie"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, applies CLI overrides and fills defaults.
// An explicit path (via --config or CONFIG_PATH) must exist. Without one, it
// searches /etc/frontend-proxy/config.toml then configs/config.toml and falls
// back to built-in defaults when neither exists.
func Load(cli *CLI) (*Config, error) {
	var cfg Config
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

	if cfg.Server.Addr() == cfg.Admin.Addr() {
		return nil, fmt.Errorf("config: validate: admin listener %s collides with server listener", cfg.Admin.Addr())
	}
	return &cfg, nil
}

// readConfig decodes the config file into v and returns the path it used.
// It returns an empty path when no file was given and none was found.
func readConfig(explicit string, v any) (string, error) {
	path := explicit
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	return path, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.AdminPort != 0 {
		c.Admin.Port = cli.AdminPort
	}
	if cli.UpstreamURL != "" {
		c.Upstream.BaseURL = cli.UpstreamURL
	}
	if cli.CollectorHost != "" {
		c.Collector.Host = cli.CollectorHost
	}
	if cli.CollectorPort != 0 {
		c.Collector.Port = cli.CollectorPort
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	if c.Upstream.BaseURL != "" {
		if err := validateHTTPURL("upstream.base_url", c.Upstream.BaseURL); err != nil {
			return err
		}
	}

	for name, port := range map[string]int{
		"server.port":    c.Server.Port,
		"admin.port":     c.Admin.Port,
		"collector.port": c.Collector.Port,
	} {
		if err := validatePort(name, port); err != nil {
			return err
		}
	}

	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}
	if c.Collector.TimeoutMS < 0 {
		return fmt.Errorf("collector.timeout_ms must be non-negative; got %d", c.Collector.TimeoutMS)
	}
	if strings.ContainsAny(c.Collector.Host, "/:?#") {
		return fmt.Errorf("collector.host must be a bare host name; got %q", c.Collector.Host)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	if p := c.Intercept.CartPath; p != "" && p[0] != '/' {
		return fmt.Errorf("intercept.cart_path must start with '/'; got %q", p)
	}

	if err := c.Log.validate(); err != nil {
		return err
	}

	// Metrics share the admin listener with the health routes.
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range []string{"/healthz", "/proxy/status"} {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func (l LogConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text", "":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", l.Format)
	}
	return nil
}

func (l *LogConfig) setDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "json"
	}
}

func validatePort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s must be 0–65535; got %d", name, port)
	}
	return nil
}

func validateHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https; got %q", name, raw)
	}
	if u.Host == "" {
		return errors.New(name + " must include a host")
	}
	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields, zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 10 * 1024 * 1024 // 10 MB
	}
	if c.Admin.Host == "" {
		c.Admin.Host = c.Server.Host
	}
	if c.Admin.Port == 0 {
		c.Admin.Port = 9090
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "http://frontend-real:8080"
	}
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Collector.Host == "" {
		c.Collector.Host = "mcp-toolbox-service"
	}
	if c.Collector.Port == 0 {
		c.Collector.Port = 8080
	}
	if c.Collector.TimeoutMS == 0 {
		c.Collector.TimeoutMS = 1000
	}
	if c.Intercept.CartPath == "" {
		c.Intercept.CartPath = "/cart"
	}
	if c.Intercept.SessionCookie == "" {
		c.Intercept.SessionCookie = "session_id"
	}
	c.Log.setDefaults()
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Addr returns the admin listen address as host:port.
func (c *AdminConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL composes the collector base URL from host and port.
func (c *CollectorConfig) BaseURL() string {
	return "http://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WarnPermissions logs a warning if the config file is readable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	warnPermissions(c.filePath, logger)
}

func warnPermissions(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", path,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
