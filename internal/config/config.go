// Package config loads the application configuration. Two layers exist:
// config.yaml for the machine-shaped settings (browser, model, store) and
// settings.cfg, the flat file the operator edits between runs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the yaml application configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	AI      AIConfig      `yaml:"ai"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

type BrowserConfig struct {
	// Headless is off by default: the identification page needs a camera
	// and a human in front of it.
	Headless bool `yaml:"headless"`
	// BinPath overrides the browser binary; empty lets the launcher find
	// one.
	BinPath string `yaml:"bin_path"`
	// DebuggerURL attaches to an already running browser instead of
	// launching one.
	DebuggerURL         string `yaml:"debugger_url"`
	StartURL            string `yaml:"start_url"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	OperationTimeoutMs  int    `yaml:"operation_timeout_ms"`
}

type AIConfig struct {
	// Provider selects the model backend: "deepseek" or "gemini".
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	DeepSeekAPIKey   string  `yaml:"deepseek_api_key"`
	DeepSeekBaseURL  string  `yaml:"deepseek_base_url"`
	GeminiAPIKey     string  `yaml:"gemini_api_key"`
	Temperature      float32 `yaml:"temperature"`
	RequestTimeoutMs int     `yaml:"request_timeout_ms"`
	MaxRetries       int     `yaml:"max_retries"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	// RunLogDir is where the per-test event trails are written.
	RunLogDir string `yaml:"run_log_dir"`
}

// DefaultConfig returns the configuration used when config.yaml is absent.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:            false,
			StartURL:            "https://lms.synergy.ru/schedule",
			NavigationTimeoutMs: 30000,
			OperationTimeoutMs:  10000,
		},
		AI: AIConfig{
			Provider:         "deepseek",
			Model:            "deepseek-chat",
			DeepSeekBaseURL:  "https://api.deepseek.com/v1",
			Temperature:      0.8,
			RequestTimeoutMs: 60000,
			MaxRetries:       3,
		},
		Store: StoreConfig{
			Path: "data/answers.db",
		},
		Logging: LoggingConfig{
			Level:     "info",
			RunLogDir: "errors",
		},
	}
}

// Load reads the yaml configuration, falling back to defaults when the
// file does not exist. Environment variables override the API keys so
// they never have to live on disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		c.AI.DeepSeekAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("SFS_DB_PATH"); v != "" {
		c.Store.Path = v
	}
}

func (c *Config) GetNavigationTimeout() time.Duration {
	return time.Duration(c.Browser.NavigationTimeoutMs) * time.Millisecond
}

func (c *Config) GetOperationTimeout() time.Duration {
	return time.Duration(c.Browser.OperationTimeoutMs) * time.Millisecond
}

func (c *Config) GetAIRequestTimeout() time.Duration {
	return time.Duration(c.AI.RequestTimeoutMs) * time.Millisecond
}
