// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Routing   RoutingConfig   `yaml:"routing"`
	Cache     CacheConfig     `yaml:"cache"`
	Context   ContextConfig   `yaml:"context"`
	Anaphora  AnaphoraConfig  `yaml:"anaphora"`
	Generator GeneratorConfig `yaml:"generator"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths and the cache backend selection.
type StorageConfig struct {
	// DataDir holds the cache vector index artifacts.
	DataDir string `yaml:"data_dir"`
	// CacheBackend is one of "memory", "sqlite", "redis".
	CacheBackend string      `yaml:"cache_backend"`
	SQLitePath   string      `yaml:"sqlite_path"`
	Redis        RedisConfig `yaml:"redis"`
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// RoutingConfig holds the anchor file location and classifier thresholds.
type RoutingConfig struct {
	AnchorsPath   string  `yaml:"anchors_path"`
	Accept        float64 `yaml:"accept"`
	Reject        float64 `yaml:"reject"`
	NegativeCheck float64 `yaml:"negative_check"`
	WatchAnchors  bool    `yaml:"watch_anchors"`
}

// CacheConfig tunes the semantic response cache.
type CacheConfig struct {
	HitThreshold float64 `yaml:"hit_threshold"`
	TTLHours     int     `yaml:"ttl_hours"`
	MaxSize      int     `yaml:"max_size"`
	TextIndex    bool    `yaml:"text_index"`
}

// ContextConfig bounds the compressed conversation context.
type ContextConfig struct {
	MaxTokens int `yaml:"max_tokens"`
	MaxTurns  int `yaml:"max_turns"`
}

// AnaphoraConfig tunes reference resolution.
type AnaphoraConfig struct {
	Window int `yaml:"window"`
}

// GeneratorConfig selects the language model provider. The API key is
// never read from the config file; it comes from the environment.
type GeneratorConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)
	cfg.Storage.SQLitePath = expandPath(cfg.Storage.SQLitePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Routing.AnchorsPath = expandPath(cfg.Routing.AnchorsPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints that defaults cannot fix.
func (cfg *Config) Validate() error {
	if cfg.Routing.Reject >= cfg.Routing.Accept {
		return fmt.Errorf("routing: reject threshold %.2f must be below accept %.2f", cfg.Routing.Reject, cfg.Routing.Accept)
	}
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Cache.HitThreshold <= 0 || cfg.Cache.HitThreshold > 1 {
		return fmt.Errorf("cache: hit_threshold %.2f out of (0, 1]", cfg.Cache.HitThreshold)
	}
	switch cfg.Storage.CacheBackend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("storage: unknown cache_backend %q", cfg.Storage.CacheBackend)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
