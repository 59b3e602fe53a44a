package config

import "os"

// ApplyEnvConfig applies DECKTERRA_* environment variables to the Config
// struct. It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", os.Getenv("DECKTERRA_BASE_URL"), &cfg.BaseURL)
	s.setString("user-agent", os.Getenv("DECKTERRA_USER_AGENT"), &cfg.UserAgent)
	s.setString("sort", os.Getenv("DECKTERRA_SORT"), &cfg.Sort)
	s.setString("category", os.Getenv("DECKTERRA_CATEGORY"), &cfg.Category)
	s.setString("sink", os.Getenv("DECKTERRA_SINK"), &cfg.Sink)
	s.setString("output-dir", os.Getenv("DECKTERRA_OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("decks-file", os.Getenv("DECKTERRA_DECKS_FILE"), &cfg.DecksFile)
	s.setString("cards-file", os.Getenv("DECKTERRA_CARDS_FILE"), &cfg.CardsFile)
	s.setString("redis-addr", os.Getenv("DECKTERRA_REDIS_ADDR"), &cfg.RedisAddr)
	s.setString("metrics-addr", os.Getenv("DECKTERRA_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", os.Getenv("DECKTERRA_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setUint32FromString("total", os.Getenv("DECKTERRA_TOTAL"), &cfg.Total); err != nil {
		return err
	}
	if err := s.setUint32FromString("page-size", os.Getenv("DECKTERRA_PAGE_SIZE"), &cfg.PageSize); err != nil {
		return err
	}
	if err := s.setFloatFromString("overfetch-ratio", os.Getenv("DECKTERRA_OVERFETCH_RATIO"), &cfg.OverfetchRatio); err != nil {
		return err
	}
	if err := s.setIntFromString("max-concurrency", os.Getenv("DECKTERRA_MAX_CONCURRENCY"), &cfg.MaxConcurrency); err != nil {
		return err
	}
	if err := s.setIntFromString("max-attempts", os.Getenv("DECKTERRA_MAX_ATTEMPTS"), &cfg.MaxAttempts); err != nil {
		return err
	}

	if err := s.setDuration("min-spacing", os.Getenv("DECKTERRA_MIN_SPACING"), &cfg.MinSpacing); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("DECKTERRA_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("redis-ttl", os.Getenv("DECKTERRA_REDIS_TTL"), &cfg.RedisTTL); err != nil {
		return err
	}
	if err := s.setBackoff("backoff", os.Getenv("DECKTERRA_BACKOFF"), &cfg.Backoff); err != nil {
		return err
	}

	s.setBoolFromString("cache", os.Getenv("DECKTERRA_CACHE"), &cfg.Cache)
	s.setBoolFromString("cards", os.Getenv("DECKTERRA_CARDS"), &cfg.Cards)
	s.setBoolFromString("log-pretty", os.Getenv("DECKTERRA_LOG_PRETTY"), &cfg.LogPretty)

	return nil
}
