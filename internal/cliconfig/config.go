// Package cliconfig loads and validates the repscrub configuration from
// defaults, a TOML config file, REPSCRUB_* environment variables, and CLI
// flags, in ascending precedence.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/repscrub/repscrub/internal/domain"
)

// Config holds the full configuration for the repscrub daemon and console.
type Config struct {
	// ResolverURL is the base URL of the profile lookup service. Required.
	ResolverURL string
	// AuthKey authenticates against the resolver, if it wants one.
	AuthKey string

	// WebhookURL receives digest pages. Required for the daemon.
	WebhookURL string

	// StateDir holds the persisted pipeline state document.
	StateDir string

	// ScoreThreshold is the classification boundary.
	ScoreThreshold int64

	DigestInterval time.Duration
	DigestTick     time.Duration
	CallDelay      time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	HTTPTimeout    time.Duration

	// PageBudget is the maximum characters per digest page.
	PageBudget int

	// FeedURL is the optional handle discovery feed. When empty the
	// daemon only serves offers arriving through other means.
	FeedURL      string
	FeedInterval time.Duration
	FeedSelector string

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: 1000,
		DigestInterval: 24 * time.Hour,
		DigestTick:     time.Minute,
		CallDelay:      2 * time.Second,
		BackoffBase:    5 * time.Second,
		BackoffMax:     10 * time.Minute,
		HTTPTimeout:    15 * time.Second,
		PageBudget:     1800,
		FeedInterval:   5 * time.Minute,
		FeedSelector:   ".handle",
		LogLevel:       "info",
		AuthKey:        os.Getenv("REPSCRUB_AUTH_KEY"),
	}
}

// Validate checks the configuration and sets derived defaults. Validation
// errors are the only fatal errors in the process: everything after
// startup is logged and absorbed.
func (c *Config) Validate() error {
	if c.ResolverURL == "" {
		return fmt.Errorf("%w: resolver-url is required", domain.ErrInvalidConfig)
	}
	c.ResolverURL = strings.TrimRight(c.ResolverURL, "/")
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)

	if c.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("%w: state-dir is required (cannot derive home: %v)", domain.ErrInvalidConfig, err)
		}
		c.StateDir = filepath.Join(home, ".repscrub")
	}

	if c.ScoreThreshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive", domain.ErrInvalidConfig)
	}
	if c.DigestInterval <= 0 {
		return fmt.Errorf("%w: digest interval must be positive", domain.ErrInvalidConfig)
	}
	if c.DigestTick <= 0 || c.DigestTick > c.DigestInterval {
		return fmt.Errorf("%w: digest tick must be positive and below the digest interval", domain.ErrInvalidConfig)
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("%w: backoff base/max out of order", domain.ErrInvalidConfig)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.PageBudget <= 0 {
		return fmt.Errorf("%w: page budget must be positive", domain.ErrInvalidConfig)
	}
	if c.FeedURL != "" && c.FeedInterval <= 0 {
		return fmt.Errorf("%w: feed interval must be positive", domain.ErrInvalidConfig)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence: a value is skipped when the corresponding flag was set
// explicitly on the command line.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from its string form, used for
// both TOML values and environment variables.
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

func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
