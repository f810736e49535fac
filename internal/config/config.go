// Package config loads mdtranslate settings from a YAML file and the
// environment. Environment values win over the file; CLI flags are applied by
// the caller on top of both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL   = "http://localhost:8000"
	DefaultServeAddr   = ":8000"
	DefaultConcurrency = 5
	DefaultContext     = 200
	DefaultQwenURL     = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultQwenModel   = "qwen-flash"
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "qwen2.5:7b"
)

// Provider names accepted by the development backend.
const (
	ProviderMock   = "mock"
	ProviderQwen   = "qwen"
	ProviderOllama = "ollama"
)

// Config is the client and development backend configuration.
type Config struct {
	ServerURL    string `yaml:"server_url"`
	WebSocketURL string `yaml:"ws_url,omitempty"`
	Direction    string `yaml:"direction"`
	Theme        string `yaml:"theme"`
	LogFile      string `yaml:"log_file"`
	ExportDir    string `yaml:"export_dir"`
	Serve        Serve  `yaml:"serve"`

	// Path is the file the configuration was read from, empty when none existed.
	Path string `yaml:"-"`
}

// Serve configures `mdtranslate serve`.
type Serve struct {
	Addr         string `yaml:"addr"`
	DataDir      string `yaml:"data_dir"`
	Provider     string `yaml:"provider,omitempty"`
	Model        string `yaml:"model,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	APIKey       string `yaml:"api_key,omitempty"`
	Concurrency  int    `yaml:"concurrency"`
	ContextChars int    `yaml:"context_chars"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL: DefaultServerURL,
		Direction: "en2zh",
		Theme:     "dark",
		LogFile:   filepath.Join(cacheDir(), "mdtranslate.log"),
		ExportDir: ".",
		Serve: Serve{
			Addr:         DefaultServeAddr,
			DataDir:      filepath.Join(dataHome(), "mdtranslate"),
			Concurrency:  DefaultConcurrency,
			ContextChars: DefaultContext,
		},
	}
}

// DefaultPath is $MDTRANSLATE_CONFIG or <user config dir>/mdtranslate/config.yaml.
func DefaultPath() string {
	if path := envOrDefault("MDTRANSLATE_CONFIG", ""); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "mdtranslate", "config.yaml")
}

// Load reads path (DefaultPath when empty) and applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.Path = path
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv() error {
	c.ServerURL = envOrDefault("MDTRANSLATE_SERVER", c.ServerURL)
	c.WebSocketURL = envOrDefault("MDTRANSLATE_WS", c.WebSocketURL)
	c.Direction = envOrDefault("MDTRANSLATE_DIRECTION", c.Direction)
	c.LogFile = envOrDefault("MDTRANSLATE_LOG", c.LogFile)
	c.Serve.DataDir = envOrDefault("MDTRANSLATE_DATA_DIR", c.Serve.DataDir)
	c.Serve.Provider = envOrDefault("MDTRANSLATE_PROVIDER", c.Serve.Provider)

	concurrency, err := parseIntEnv("MDTRANSLATE_CONCURRENCY", c.Serve.Concurrency)
	if err != nil {
		return fmt.Errorf("parse MDTRANSLATE_CONCURRENCY: %w", err)
	}
	c.Serve.Concurrency = concurrency

	qwenKey := envOrDefault("QWEN_API_KEY", "")
	if qwenKey == "your_api_key_here" {
		qwenKey = ""
	}
	ollamaHost := envOrDefault("OLLAMA_HOST", "")

	if c.Serve.Provider == "" {
		switch {
		case qwenKey != "" || c.Serve.APIKey != "":
			c.Serve.Provider = ProviderQwen
		case ollamaHost != "":
			c.Serve.Provider = ProviderOllama
		default:
			c.Serve.Provider = ProviderMock
		}
	}

	switch c.Serve.Provider {
	case ProviderQwen:
		if qwenKey != "" {
			c.Serve.APIKey = qwenKey
		}
		c.Serve.Endpoint = envOrDefault("QWEN_API_URL", c.Serve.Endpoint)
		c.Serve.Model = envOrDefault("QWEN_MODEL_NAME", c.Serve.Model)
	case ProviderOllama:
		c.Serve.Endpoint = envOrDefault("OLLAMA_HOST", c.Serve.Endpoint)
		c.Serve.Model = envOrDefault("OLLAMA_MODEL", c.Serve.Model)
	}
	return nil
}

func (c *Config) normalize() {
	c.ServerURL = strings.TrimRight(strings.TrimSpace(c.ServerURL), "/")
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	c.WebSocketURL = strings.TrimRight(strings.TrimSpace(c.WebSocketURL), "/")
	c.Direction = strings.ToLower(strings.TrimSpace(c.Direction))
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultServeAddr
	}
	if c.Serve.Concurrency <= 0 {
		c.Serve.Concurrency = DefaultConcurrency
	}
	if c.Serve.ContextChars < 0 {
		c.Serve.ContextChars = 0
	}
	switch c.Serve.Provider {
	case ProviderQwen:
		if c.Serve.Endpoint == "" {
			c.Serve.Endpoint = DefaultQwenURL
		}
		if c.Serve.Model == "" {
			c.Serve.Model = DefaultQwenModel
		}
	case ProviderOllama:
		if c.Serve.Endpoint == "" {
			c.Serve.Endpoint = DefaultOllamaHost
		}
		if c.Serve.Model == "" {
			c.Serve.Model = DefaultOllamaModel
		}
	}
}

// Validate rejects settings the client cannot work with.
func (c Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url %q must be an http(s) URL", c.ServerURL)
	}
	if c.Direction != "en2zh" && c.Direction != "zh2en" {
		return fmt.Errorf("direction %q must be en2zh or zh2en", c.Direction)
	}
	switch c.Serve.Provider {
	case ProviderMock, ProviderQwen, ProviderOllama:
	default:
		return fmt.Errorf("serve.provider %q must be mock, qwen or ollama", c.Serve.Provider)
	}
	return nil
}

// StreamBase is the root used for WebSocket connections: ws_url when set,
// otherwise the server URL.
func (c Config) StreamBase() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	return c.ServerURL
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return os.TempDir()
	}
	return dir
}

func dataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".local", "share")
}
