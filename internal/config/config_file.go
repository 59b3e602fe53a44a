package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	BaseURL        string  `toml:"base_url"`
	UserAgent      string  `toml:"user_agent"`
	Total          *uint32 `toml:"total"`
	PageSize       int     `toml:"page_size"`
	OverfetchRatio float64 `toml:"overfetch_ratio"`
	Sort           string  `toml:"sort"`
	Category       string  `toml:"category"`
	MinSpacing     string  `toml:"min_spacing"`
	MaxConcurrency int     `toml:"max_concurrency"`
	MaxAttempts    int     `toml:"max_attempts"`
	Backoff        string  `toml:"backoff"`
	HTTPTimeout    string  `toml:"http_timeout"`
	Sink           string  `toml:"sink"`
	OutputDir      string  `toml:"output_dir"`
	DecksFile      string  `toml:"decks_file"`
	CardsFile      string  `toml:"cards_file"`
	Cards          *bool   `toml:"cards"`
	RedisAddr      string  `toml:"redis_addr"`
	RedisTTL       string  `toml:"redis_ttl"`
	Cache          *bool   `toml:"cache"`
	MetricsAddr    string  `toml:"metrics_addr"`
	LogLevel       string  `toml:"log_level"`
	LogPretty      *bool   `toml:"log_pretty"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.deckterra/config.toml, or "" if the home
// directory cannot be resolved.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".deckterra", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("user-agent", fc.UserAgent, &cfg.UserAgent)
	s.setString("sort", fc.Sort, &cfg.Sort)
	s.setString("category", fc.Category, &cfg.Category)
	s.setString("sink", fc.Sink, &cfg.Sink)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("decks-file", fc.DecksFile, &cfg.DecksFile)
	s.setString("cards-file", fc.CardsFile, &cfg.CardsFile)
	s.setString("redis-addr", fc.RedisAddr, &cfg.RedisAddr)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setUint32("total", fc.Total, &cfg.Total)
	if fc.PageSize > 0 && !changed["page-size"] {
		cfg.PageSize = uint32(fc.PageSize)
	}
	s.setFloat("overfetch-ratio", fc.OverfetchRatio, &cfg.OverfetchRatio)
	s.setInt("max-concurrency", fc.MaxConcurrency, &cfg.MaxConcurrency)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)

	if err := s.setDuration("min-spacing", fc.MinSpacing, &cfg.MinSpacing); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("redis-ttl", fc.RedisTTL, &cfg.RedisTTL); err != nil {
		return err
	}
	if err := s.setBackoff("backoff", fc.Backoff, &cfg.Backoff); err != nil {
		return err
	}

	s.setBool("cache", fc.Cache, &cfg.Cache)
	s.setBool("cards", fc.Cards, &cfg.Cards)
	s.setBool("log-pretty", fc.LogPretty, &cfg.LogPretty)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
