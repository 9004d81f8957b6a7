package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of the bot process.
type Config struct {
	// ListenAddress is the HTTP address serving the webhook and OAuth callback.
	ListenAddress string `yaml:"listen_addr"`
	// HealthAddress is the gRPC health-check address; empty disables it.
	HealthAddress string `yaml:"health_addr,omitempty"`
	// Timeout bounds every outbound call to the dispatch and Messenger APIs.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level,omitempty"`
	// LogFile enables a rotating log file next to stdout output.
	LogFile string `yaml:"log_file,omitempty"`
	// Dispatch describes the emergency-dispatch API and its OAuth client.
	Dispatch Dispatch `yaml:"dispatch"`
	// Messenger describes the messaging platform the bot talks through.
	Messenger Messenger `yaml:"messenger"`
}

// Dispatch holds the dispatch API endpoints and OAuth client credentials.
type Dispatch struct {
	APIURL          string `yaml:"api_url"`
	TokenURL        string `yaml:"token_url"`
	AuthorizeURL    string `yaml:"authorize_url"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret,omitempty"`
	Audience        string `yaml:"audience,omitempty"`
	Scope           string `yaml:"scope,omitempty"`
	RedirectURL     string `yaml:"redirect_url"`
	RefreshSchedule string `yaml:"refresh_schedule,omitempty"`
}

// Messenger holds the Graph API endpoint and page credentials.
type Messenger struct {
	GraphURL        string `yaml:"graph_url"`
	PageAccessToken string `yaml:"page_access_token,omitempty"`
	VerifyToken     string `yaml:"verify_token,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "alarm-dispatch-settings.yaml"

	// DefaultEnvFilename is the optional file holding secret overrides.
	DefaultEnvFilename = ".env"

	// DefaultListenAddress is used when listen_addr is empty.
	DefaultListenAddress = ":1337"

	// DefaultGraphURL is the Messenger Graph API base.
	DefaultGraphURL = "https://graph.facebook.com/v2.6"

	// DefaultTimeout is the default duration for outbound calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables overriding secrets from the YAML file.
const (
	EnvClientSecret    = "DISPATCH_CLIENT_SECRET"
	EnvPageAccessToken = "PAGE_ACCESS_TOKEN"
	EnvVerifyToken     = "VERIFY_TOKEN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errClientIDRequired is returned when the OAuth client id is missing.
	errClientIDRequired = errors.New("dispatch client id must be provided")
	// errVerifyTokenRequired is returned when the webhook verify token is missing.
	errVerifyTokenRequired = errors.New("messenger verify token must be provided")
)

// Load reads configuration from the provided path, overlays secrets from the
// environment and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	// A missing .env file is normal outside development.
	_ = godotenv.Load(DefaultEnvFilename) //nolint:errcheck // Optional file.

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Settings may carry secrets.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.HealthAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.HealthAddress); err != nil {
			return fmt.Errorf("invalid health address: %w", err)
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Messenger.GraphURL == "" {
		cfg.Messenger.GraphURL = DefaultGraphURL
	}

	if cfg.Dispatch.ClientID == "" {
		return errClientIDRequired
	}

	if cfg.Messenger.VerifyToken == "" {
		return errVerifyTokenRequired
	}

	if cfg.Dispatch.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Dispatch.RefreshSchedule); err != nil {
			return fmt.Errorf("invalid dispatch refresh_schedule: %w", err)
		}
	}

	endpoints := map[string]string{
		"dispatch api_url":       cfg.Dispatch.APIURL,
		"dispatch token_url":     cfg.Dispatch.TokenURL,
		"dispatch authorize_url": cfg.Dispatch.AuthorizeURL,
		"dispatch redirect_url":  cfg.Dispatch.RedirectURL,
		"messenger graph_url":    cfg.Messenger.GraphURL,
	}

	for name, raw := range endpoints {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

// applyEnv overrides secrets with non-empty environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvClientSecret); v != "" {
		cfg.Dispatch.ClientSecret = v
	}

	if v := os.Getenv(EnvPageAccessToken); v != "" {
		cfg.Messenger.PageAccessToken = v
	}

	if v := os.Getenv(EnvVerifyToken); v != "" {
		cfg.Messenger.VerifyToken = v
	}
}

// Template returns settings with defaults and placeholder dispatch endpoints.
func Template() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		Timeout:       DefaultTimeout,
		LogLevel:      "info",
		Dispatch: Dispatch{
			APIURL:          "https://api.dispatch.example.com",
			TokenURL:        "https://login.dispatch.example.com/oauth/token",
			AuthorizeURL:    "https://login.dispatch.example.com/authorize",
			ClientID:        "your-client-id",
			Scope:           "openid offline_access",
			RedirectURL:     "https://bot.example.com/oauth/callback",
			RefreshSchedule: "0 * * * *",
		},
		Messenger: Messenger{
			GraphURL:    DefaultGraphURL,
			VerifyToken: "change-me",
		},
	}
}
