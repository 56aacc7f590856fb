package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Gateways  map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Browser   BrowserConfig             `json:"browser" yaml:"browser"`
	Security  SecurityConfig            `json:"security" yaml:"security"`
	Logging   LoggingConfig             `json:"logging" yaml:"logging"`
	Store     StoreConfig               `json:"store" yaml:"store"`
}

type AppConfig struct {
	Name      string `json:"name" yaml:"name"`
	Workspace string `json:"workspace" yaml:"workspace"`
	Prompts   string `json:"prompts" yaml:"prompts"`
}

type GatewayConfig struct {
	Token        string  `json:"token" yaml:"token"`
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	AllowedChats []int64 `json:"allowed_chats,omitempty" yaml:"allowed_chats,omitempty"`
}

type ProviderConfig struct {
	APIKey      string   `json:"api_key" yaml:"api_key"`
	Model       string   `json:"model" yaml:"model"`
	BaseURL     string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	// Temperature is nil when unset so an explicit 0 is kept.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

type BrowserConfig struct {
	Driver     string `json:"driver" yaml:"driver"` // chromedp or playwright
	Headless   bool   `json:"headless" yaml:"headless"`
	WindowSize string `json:"window_size" yaml:"window_size"`
	UserAgent  string `json:"user_agent" yaml:"user_agent"`
	Timeout    int    `json:"timeout" yaml:"timeout"` // seconds
}

type SecurityConfig struct {
	RequireConfirmation bool     `json:"require_confirmation" yaml:"require_confirmation"`
	SafeDomains         []string `json:"safe_domains" yaml:"safe_domains"`
	ConfirmVerbs        []string `json:"confirm_verbs,omitempty" yaml:"confirm_verbs,omitempty"`
	BlockedCommands     []string `json:"blocked_commands" yaml:"blocked_commands"`
	BlockedArguments    []string `json:"blocked_arguments,omitempty" yaml:"blocked_arguments,omitempty"`
}

type LoggingConfig struct {
	SaveScreenshotsOnError bool   `json:"save_screenshots_on_error" yaml:"save_screenshots_on_error"`
	ScreenshotDir          string `json:"screenshot_dir" yaml:"screenshot_dir"`
	LogFile                string `json:"log_file" yaml:"log_file"`
	MaxSizeMB              int    `json:"max_size_mb" yaml:"max_size_mb"`
	// LLMLogFile receives every planner prompt and response. Empty disables it.
	LLMLogFile string `json:"llm_log_file,omitempty" yaml:"llm_log_file,omitempty"`
}

// MaxSize is the rotation threshold in bytes.
func (l LoggingConfig) MaxSize() int64 {
	if l.MaxSizeMB <= 0 {
		return 10 * 1024 * 1024
	}
	return int64(l.MaxSizeMB) * 1024 * 1024
}

type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Float returns a pointer to v, for optional numeric settings.
func Float(v float64) *float64 { return &v }

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "seif",
			Workspace: ".",
			Prompts:   "./prompts",
		},
		Gateways: map[string]GatewayConfig{},
		Providers: map[string]ProviderConfig{
			"ollama": {
				Model:       "mistral",
				Enabled:     true,
				Temperature: Float(0.7),
				MaxTokens:   1000,
			},
		},
		Browser: BrowserConfig{
			Driver:     "chromedp",
			Headless:   false,
			WindowSize: "1920,1080",
			UserAgent:  DefaultUserAgent,
			Timeout:    10,
		},
		Security: SecurityConfig{
			RequireConfirmation: true,
			SafeDomains:         []string{"google.com", "github.com", "stackoverflow.com"},
			BlockedCommands:     []string{},
		},
		Logging: LoggingConfig{
			SaveScreenshotsOnError: true,
			ScreenshotDir:          ".",
			LogFile:                "agent_execution.log",
			MaxSizeMB:              10,
		},
		Store: StoreConfig{
			Path: "seif.db",
		},
	}
}

// LoadConfig reads path on top of Default. A missing file is not an error.
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the engine cannot run without.
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case "", "chromedp", "playwright":
	default:
		return fmt.Errorf("unknown browser driver %q (want chromedp or playwright)", c.Browser.Driver)
	}
	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser timeout must not be negative")
	}
	if _, _, err := c.Browser.Window(); err != nil {
		return err
	}
	return nil
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	// Deterministic preference when several are enabled.
	for _, name := range []string{"openai", "openrouter", "ollama"} {
		if p, ok := c.Providers[name]; ok && p.Enabled {
			return name, p
		}
	}
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled && tg.Token != "" {
		return tg, true
	}
	return GatewayConfig{}, false
}

// ActionTimeout is the per-operation browser timeout.
func (b BrowserConfig) ActionTimeout() time.Duration {
	if b.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.Timeout) * time.Second
}

// Window parses WindowSize ("1920,1080" or "1920x1080").
func (b BrowserConfig) Window() (int, int, error) {
	if b.WindowSize == "" {
		return 1920, 1080, nil
	}
	var w, h int
	size := strings.ReplaceAll(strings.ToLower(b.WindowSize), "x", ",")
	if _, err := fmt.Sscanf(size, "%d,%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid window_size %q", b.WindowSize)
	}
	return w, h, nil
}
