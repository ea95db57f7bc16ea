// Package config loads configuration from an optional YAML file and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dashboard server configuration.
type Config struct {
	// Server
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	// TLS (optional, if both set the server uses HTTPS)
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`

	// Auth
	Username       string        `yaml:"dashboard_user"`
	Password       string        `yaml:"dashboard_pass"`
	PasswordBcrypt string        `yaml:"dashboard_pass_bcrypt"`
	SecretKey      string        `yaml:"dashboard_secret_key"`
	SessionTTL     time.Duration `yaml:"session_ttl"`

	// Base directory the project table is resolved against
	ProjectRoot string `yaml:"project_root"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		ListenAddr:  ":5000",
		MetricsAddr: ":9090",
		LogLevel:    "info",
		LogFormat:   "json",
		Username:    "dragon",
		Password:    "dragon123",
		SessionTTL:  24 * time.Hour,
		ProjectRoot: "/home/dragon",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = envOr("LISTEN_ADDR", cfg.ListenAddr)
	cfg.MetricsAddr = envOrEmpty("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)
	cfg.LogFile = envOr("LOG_FILE", cfg.LogFile)
	cfg.TLSCertFile = envOr("TLS_CERT_FILE", cfg.TLSCertFile)
	cfg.TLSKeyFile = envOr("TLS_KEY_FILE", cfg.TLSKeyFile)
	cfg.Username = envOr("DASHBOARD_USER", cfg.Username)
	cfg.Password = envOr("DASHBOARD_PASS", cfg.Password)
	cfg.PasswordBcrypt = envOr("DASHBOARD_PASS_BCRYPT", cfg.PasswordBcrypt)
	cfg.SecretKey = envOr("DASHBOARD_SECRET_KEY", cfg.SecretKey)
	cfg.ProjectRoot = envOr("PROJECT_ROOT", cfg.ProjectRoot)

	ttl, err := envDuration("SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = ttl

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are usable.
func (c *Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("DASHBOARD_USER must not be empty")
	}
	if c.Password == "" && c.PasswordBcrypt == "" {
		return fmt.Errorf("DASHBOARD_PASS or DASHBOARD_PASS_BCRYPT is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.ProjectRoot == "" {
		return fmt.Errorf("PROJECT_ROOT must not be empty")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// UseTLS reports whether both TLS files are configured.
func (c *Config) UseTLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOrEmpty is like envOr but lets an explicitly empty variable clear the value.
func envOrEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err == nil {
		return d, nil
	}
	// Bare integers are seconds
	secs, convErr := strconv.Atoi(v)
	if convErr != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return time.Duration(secs) * time.Second, nil
}
