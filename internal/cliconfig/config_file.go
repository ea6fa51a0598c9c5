package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to keep the
// TOML friendly.
type FileConfig struct {
	ResolverURL    string `toml:"resolver_url"`
	AuthKey        string `toml:"auth_key"`
	WebhookURL     string `toml:"webhook_url"`
	StateDir       string `toml:"state_dir"`
	ScoreThreshold int64  `toml:"score_threshold"`
	DigestInterval string `toml:"digest_interval"`
	DigestTick     string `toml:"digest_tick"`
	CallDelay      string `toml:"call_delay"`
	BackoffBase    string `toml:"backoff_base"`
	BackoffMax     string `toml:"backoff_max"`
	HTTPTimeout    string `toml:"http_timeout"`
	PageBudget     int    `toml:"page_budget"`
	FeedURL        string `toml:"feed_url"`
	FeedInterval   string `toml:"feed_interval"`
	FeedSelector   string `toml:"feed_selector"`
	LogLevel       string `toml:"log_level"`
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

// DefaultConfigPath returns ~/.repscrub/config.toml when the user home
// directory is accessible, empty otherwise.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".repscrub", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values onto cfg, skipping any field whose
// flag was set explicitly.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("resolver-url", fc.ResolverURL, &cfg.ResolverURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("feed-url", fc.FeedURL, &cfg.FeedURL)
	s.setString("feed-selector", fc.FeedSelector, &cfg.FeedSelector)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt64("threshold", fc.ScoreThreshold, &cfg.ScoreThreshold)
	s.setInt("page-budget", fc.PageBudget, &cfg.PageBudget)

	if err := s.setDuration("digest-interval", fc.DigestInterval, &cfg.DigestInterval); err != nil {
		return err
	}
	if err := s.setDuration("digest-tick", fc.DigestTick, &cfg.DigestTick); err != nil {
		return err
	}
	if err := s.setDuration("call-delay", fc.CallDelay, &cfg.CallDelay); err != nil {
		return err
	}
	if err := s.setDuration("backoff-base", fc.BackoffBase, &cfg.BackoffBase); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", fc.BackoffMax, &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("feed-interval", fc.FeedInterval, &cfg.FeedInterval); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
