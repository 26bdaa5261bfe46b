package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-dashboard-go/internal/user/repo"
)

// Config holds the dashboard settings. Values come from an optional YAML
// file first, then environment variables override them.
type Config struct {
	APIURL          string  `yaml:"api_url" json:"api_url"`
	APIToken        string  `yaml:"api_token" json:"api_token"`
	APITimeout      string  `yaml:"api_timeout" json:"api_timeout"`
	RateLimit       float64 `yaml:"api_rate_limit" json:"api_rate_limit"`
	Burst           int     `yaml:"api_burst" json:"api_burst"`
	PageSize        int     `yaml:"page_size" json:"page_size"`
	Mode            string  `yaml:"mode" json:"mode"`
	RefreshInterval int     `yaml:"refresh_interval" json:"refresh_interval"`
	AutoRefresh     bool    `yaml:"auto_refresh" json:"auto_refresh"`
	HTTPAddr        string  `yaml:"http_addr" json:"http_addr"`
}

func Default() *Config {
	return &Config{
		APIURL:          userrepo.DefaultBaseURL,
		APITimeout:      "10s",
		PageSize:        user.DefaultPageSize,
		Mode:            user.ModeIncremental.String(),
		RefreshInterval: user.DefaultRefreshInterval,
		HTTPAddr:        "0.0.0.0:8432",
	}
}

// Load reads DASHBOARD_CONFIG (when set), applies the environment and validates.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		fromFile, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fromFile
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from USERS_* and HTTP_ADDR variables.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("USERS_API_URL", &c.APIURL)
	str("USERS_API_TOKEN", &c.APIToken)
	str("USERS_API_TIMEOUT", &c.APITimeout)
	str("USERS_MODE", &c.Mode)
	str("HTTP_ADDR", &c.HTTPAddr)
	if err := num("USERS_API_BURST", &c.Burst); err != nil {
		return err
	}
	if err := num("USERS_PAGE_SIZE", &c.PageSize); err != nil {
		return err
	}
	if err := num("USERS_REFRESH_INTERVAL", &c.RefreshInterval); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("USERS_API_RATE_LIMIT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("USERS_API_RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	if v := strings.TrimSpace(os.Getenv("USERS_AUTO_REFRESH")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USERS_AUTO_REFRESH: %w", err)
		}
		c.AutoRefresh = b
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := user.ParseMode(c.Mode); err != nil {
		return err
	}
	if !user.ValidInterval(c.RefreshInterval) {
		return fmt.Errorf("refresh_interval %d: %w", c.RefreshInterval, user.ErrInvalidInterval)
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", c.PageSize)
	}
	if c.RateLimit < 0 || c.Burst < 0 {
		return fmt.Errorf("api_rate_limit and api_burst must not be negative")
	}
	return nil
}

// Timeout parses APITimeout; empty means the repo default.
func (c *Config) Timeout() (time.Duration, error) {
	if c.APITimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.APITimeout)
	if err != nil {
		return 0, fmt.Errorf("api_timeout: %w", err)
	}
	return d, nil
}

// ListMode returns the parsed start mode.
func (c *Config) ListMode() user.Mode {
	m, err := user.ParseMode(c.Mode)
	if err != nil {
		return user.ModeIncremental
	}
	return m
}

// RepoConfig converts the API settings for the Fetch Client.
func (c *Config) RepoConfig() userrepo.Config {
	timeout, _ := c.Timeout()
	return userrepo.Config{
		BaseURL:   c.APIURL,
		Timeout:   timeout,
		RateLimit: c.RateLimit,
		Burst:     c.Burst,
	}
}

// ListOptions converts the list settings for the Orchestrator.
func (c *Config) ListOptions() user.Options {
	return user.Options{
		PageSize:        c.PageSize,
		RefreshInterval: c.RefreshInterval,
		AutoRefresh:     c.AutoRefresh,
	}
}

// NewRemote builds the Fetch Client, attaching the bearer token when one is
// configured.
func (c *Config) NewRemote(logger *zap.SugaredLogger) (*userrepo.UserRepo, error) {
	rc := c.RepoConfig()
	ts, err := auth.TokenSource(c.APIToken, time.Now())
	if err != nil {
		return nil, err
	}
	var client *http.Client
	if ts != nil {
		timeout := rc.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = auth.WrapClient(&http.Client{Timeout: timeout}, ts)
	}
	return userrepo.NewUserRepo(rc, client, logger), nil
}
