package cliconfig

import "os"

// ApplyEnvConfig applies configuration from REPSCRUB_* environment
// variables. It respects flags that were set explicitly (changed map) and
// returns an error when a variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("resolver-url", os.Getenv("REPSCRUB_RESOLVER_URL"), &cfg.ResolverURL)
	s.setString("auth-key", os.Getenv("REPSCRUB_AUTH_KEY"), &cfg.AuthKey)
	s.setString("webhook-url", os.Getenv("REPSCRUB_WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("state-dir", os.Getenv("REPSCRUB_STATE_DIR"), &cfg.StateDir)
	s.setString("feed-url", os.Getenv("REPSCRUB_FEED_URL"), &cfg.FeedURL)
	s.setString("feed-selector", os.Getenv("REPSCRUB_FEED_SELECTOR"), &cfg.FeedSelector)
	s.setString("log-level", os.Getenv("REPSCRUB_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setInt64FromString("threshold", os.Getenv("REPSCRUB_SCORE_THRESHOLD"), &cfg.ScoreThreshold); err != nil {
		return err
	}
	if err := s.setIntFromString("page-budget", os.Getenv("REPSCRUB_PAGE_BUDGET"), &cfg.PageBudget); err != nil {
		return err
	}

	if err := s.setDuration("digest-interval", os.Getenv("REPSCRUB_DIGEST_INTERVAL"), &cfg.DigestInterval); err != nil {
		return err
	}
	if err := s.setDuration("digest-tick", os.Getenv("REPSCRUB_DIGEST_TICK"), &cfg.DigestTick); err != nil {
		return err
	}
	if err := s.setDuration("call-delay", os.Getenv("REPSCRUB_CALL_DELAY"), &cfg.CallDelay); err != nil {
		return err
	}
	if err := s.setDuration("backoff-base", os.Getenv("REPSCRUB_BACKOFF_BASE"), &cfg.BackoffBase); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", os.Getenv("REPSCRUB_BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("REPSCRUB_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("feed-interval", os.Getenv("REPSCRUB_FEED_INTERVAL"), &cfg.FeedInterval); err != nil {
		return err
	}

	return nil
}
