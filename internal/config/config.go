// Package config holds the CLI configuration for deckterra. Values are
// layered defaults, then the TOML file, then DECKTERRA_* environment
// variables, then flags; a flag set on the command line always wins.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akashgurava/deckterra/pkg/client"
	"github.com/akashgurava/deckterra/pkg/decks"
	"github.com/akashgurava/deckterra/pkg/logging"
	"github.com/akashgurava/deckterra/pkg/pagination"
)

// DefaultUserAgent identifies deckterra to the remote service.
const DefaultUserAgent = "deckterra/1.0 (+https://github.com/akashgurava/deckterra)"

// Sink names.
const (
	SinkFile  = "file"
	SinkRedis = "redis"
)

var validate = validator.New()

// Config holds CLI configuration for deckterra.
type Config struct {
	BaseURL   string `validate:"required,url"`
	UserAgent string `validate:"required"`

	Total          uint32
	PageSize       uint32  `validate:"gt=0"`
	OverfetchRatio float64 `validate:"gte=1,lte=10"`
	Sort           string  `validate:"oneof=recently_updated hot popularity"`
	Category       string  `validate:"oneof=COMMUNITY BUDGET FEATURED"`

	MinSpacing     time.Duration   `validate:"gte=0s"`
	MaxConcurrency int             `validate:"gte=1"`
	MaxAttempts    int             `validate:"gte=1"`
	Backoff        []time.Duration `validate:"dive,gte=0s"`
	HTTPTimeout    time.Duration   `validate:"gt=0s"`

	Sink      string `validate:"oneof=file redis"`
	OutputDir string `validate:"required_if=Sink file"`
	DecksFile string `validate:"required"`
	CardsFile string `validate:"required"`
	Cards     bool

	RedisAddr string
	RedisTTL  time.Duration `validate:"gte=0s"`
	Cache     bool

	MetricsAddr string
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogPretty   bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	lib := decks.DefaultConfig()
	return Config{
		BaseURL:        lib.BaseURL,
		UserAgent:      DefaultUserAgent,
		Total:          decks.DefaultTotalDecks,
		PageSize:       lib.PageSize,
		OverfetchRatio: lib.OverfetchRatio,
		Sort:           string(decks.DefaultSort),
		Category:       string(decks.DefaultCategory),
		MinSpacing:     lib.Batch.MinSpacing,
		MaxConcurrency: lib.Batch.MaxConcurrency,
		MaxAttempts:    lib.Retry.MaxAttempts,
		Backoff:        append([]time.Duration(nil), lib.Retry.Backoff...),
		HTTPTimeout:    30 * time.Second,
		Sink:           SinkFile,
		OutputDir:      "data",
		DecksFile:      lib.DecksFile,
		CardsFile:      lib.CardsFile,
		LogLevel:       string(logging.LevelInfo),
	}
}

// Validate normalizes enumerations and checks the configuration for errors.
func (c *Config) Validate() error {
	sort, err := decks.ParseSort(c.Sort)
	if err != nil {
		return err
	}
	c.Sort = string(sort)

	category, err := decks.ParseCategory(c.Category)
	if err != nil {
		return err
	}
	c.Category = string(category)

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "warning" {
		c.LogLevel = string(logging.LevelWarn)
	}

	if err := validate.Struct(c); err != nil {
		return describe(err)
	}

	if (c.Sink == SinkRedis || c.Cache) && c.RedisAddr == "" {
		return fmt.Errorf("redis-addr is required when the redis sink or page cache is enabled")
	}

	return nil
}

// describe turns validator errors into one line per failed field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// LibraryConfig returns the fetch tuning for decks.NewLibrary.
func (c Config) LibraryConfig() decks.Config {
	return decks.Config{
		BaseURL:        c.BaseURL,
		PageSize:       c.PageSize,
		OverfetchRatio: c.OverfetchRatio,
		Batch: pagination.Config{
			MinSpacing:     c.MinSpacing,
			MaxConcurrency: c.MaxConcurrency,
		},
		Retry: client.RetryConfig{
			MaxAttempts: c.MaxAttempts,
			Backoff:     append([]time.Duration(nil), c.Backoff...),
		},
		DecksFile: c.DecksFile,
		CardsFile: c.CardsFile,
	}
}

// ClientConfig returns the transport configuration without a cache.
func (c Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(c.UserAgent)
	cfg.Timeout = c.HTTPTimeout
	return cfg
}

// Options returns the fetch selection. Call after Validate.
func (c Config) Options() decks.Options {
	total := c.Total
	return decks.Options{
		Total:    &total,
		Sort:     decks.Sort(c.Sort),
		Category: decks.Category(c.Category),
	}
}

// LoggingConfig returns the logger setup.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

// ParseBackoff parses a comma-separated list of durations, e.g. "500ms,1s,2s".
func ParseBackoff(value string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("parse backoff %q: %w", part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setUint32 sets a uint32 from a pointer so an explicit zero still applies.
func (s *configSetter) setUint32(flag string, value *uint32, dst *uint32) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBackoff parses a duration list if not empty and flag not changed.
func (s *configSetter) setBackoff(flag, value string, dst *[]time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := ParseBackoff(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setUint32FromString parses a string to uint32. Zero is applied.
func (s *configSetter) setUint32FromString(flag, value string, dst *uint32) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	u, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = uint32(u)
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if positive.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
