package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/repscrub/repscrub/internal/adapters/feed"
	"github.com/repscrub/repscrub/internal/adapters/fs"
	httpadapter "github.com/repscrub/repscrub/internal/adapters/http"
	"github.com/repscrub/repscrub/internal/app"
	"github.com/repscrub/repscrub/internal/cliconfig"
	"github.com/repscrub/repscrub/internal/ports"
)

const longHelp = `repscrub watches a feed of handles, resolves each against a reputation
catalog, and reports low scorers to a webhook in periodic digests.

Highlights:
  - Durable local state: no handle is checked twice, even across restarts.
  - One lookup in flight at a time, with automatic rate-limit backoff.
  - Trust list with retroactive cleanup of already-flagged handles.
  - Live-tunable threshold and digest cadence via the config file.`

var exampleUsage = strings.TrimSpace(`
  repscrub --resolver-url https://api.example.net --webhook-url https://hooks.example.net/scrub
  repscrub --config $HOME/.repscrub/config.toml --threshold 1500
  repscrub console --resolver-url https://api.example.net
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// newLogger builds the console zerolog logger for the given level name.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

// resolveConfig layers file, env and flag values onto cfg, in ascending
// precedence, and validates the result.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (map[string]bool, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return nil, err
		}
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return changed, nil
}

// buildPipeline wires the adapters and the pipeline from a validated config.
func buildPipeline(cfg cliconfig.Config, log zerolog.Logger) (*app.Pipeline, ports.HTTPClient) {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	repo := fs.NewStateFileRepository(cfg.StateDir, log.With().Str("component", "state").Logger())
	store := app.NewStore(repo, log.With().Str("component", "store").Logger())
	resolver := httpadapter.NewResolver(cfg.ResolverURL, cfg.AuthKey, client, log.With().Str("component", "resolver").Logger())
	notifier := httpadapter.NewWebhookNotifier(cfg.WebhookURL, client, log.With().Str("component", "notifier").Logger())

	pipeline := app.NewPipeline(app.PipelineConfig{
		Settings: app.Settings{
			ScoreThreshold: cfg.ScoreThreshold,
			DigestInterval: cfg.DigestInterval,
			CallDelay:      cfg.CallDelay,
			PageBudget:     cfg.PageBudget,
		},
		CallTimeout: cfg.HTTPTimeout,
		DigestTick:  cfg.DigestTick,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
	}, store, resolver, notifier, log.With().Str("component", "pipeline").Logger())

	return pipeline, client
}

// runFeed polls the handle source and offers every candidate to the gate.
func runFeed(ctx context.Context, pipeline *app.Pipeline, source ports.HandleSource, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	poll := func() {
		candidates, err := source.Fetch(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("feed fetch failed")
			return
		}
		admitted := 0
		for _, raw := range candidates {
			if pipeline.Offer(raw, "feed") {
				admitted++
			}
		}
		log.Debug().Int("candidates", len(candidates)).Int("admitted", admitted).Msg("feed polled")
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

func runDaemon(cmd *cobra.Command, cfg cliconfig.Config, cfgPath string) error {
	changed, err := resolveConfig(cmd, &cfg, cfgPath)
	if err != nil {
		return err
	}
	if cfg.WebhookURL == "" {
		return fmt.Errorf("webhook-url is required for the daemon")
	}

	log := newLogger(cfg.LogLevel)

	logCfg := cfg
	if logCfg.AuthKey != "" {
		logCfg.AuthKey = "*****"
	}
	log.Info().Interface("config", logCfg).Msg("configuration")

	pipeline, client := buildPipeline(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	if cfg.FeedURL != "" {
		source := feed.NewHTTPFeed(cfg.FeedURL, cfg.FeedSelector, client, log.With().Str("component", "feed").Logger())
		wg.Add(1)
		go func() {
			defer wg.Done()
			runFeed(ctx, pipeline, source, cfg.FeedInterval, log.With().Str("component", "feed").Logger())
		}()
	} else {
		log.Warn().Msg("no feed-url configured, pipeline only drains externally offered work")
	}

	watchPath := cfgPath
	if watchPath == "" {
		watchPath = cliconfig.DefaultConfigPath()
	}
	if watchPath != "" && cliconfig.FileExists(watchPath) {
		watcher := cliconfig.NewWatcher(watchPath, cfg, changed, log.With().Str("component", "config").Logger())
		wg.Add(1)
		go func() {
			defer wg.Done()
			watcher.Run(ctx, func(next cliconfig.Config) {
				pipeline.ApplySettings(app.Settings{
					ScoreThreshold: next.ScoreThreshold,
					DigestInterval: next.DigestInterval,
					CallDelay:      next.CallDelay,
					PageBudget:     next.PageBudget,
				})
			})
		}()
	}

	err = pipeline.Run(ctx)
	wg.Wait()

	if err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "repscrub",
		Short:   "Scrub a handle feed against a reputation catalog and report low scorers",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, cfg, cfgPath)
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "path to config file (default $HOME/.repscrub/config.toml)")
	flags.StringVar(&cfg.ResolverURL, "resolver-url", cfg.ResolverURL, "base URL of the profile lookup service")
	flags.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "resolver API key")
	flags.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "webhook receiving digest pages")
	flags.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for the persisted pipeline state")
	flags.Int64Var(&cfg.ScoreThreshold, "threshold", cfg.ScoreThreshold, "scores below this flag the handle")
	flags.DurationVar(&cfg.DigestInterval, "digest-interval", cfg.DigestInterval, "cadence of batched reports")
	flags.DurationVar(&cfg.DigestTick, "digest-tick", cfg.DigestTick, "how often digest due-ness is evaluated")
	flags.DurationVar(&cfg.CallDelay, "call-delay", cfg.CallDelay, "pause between successful lookups")
	flags.DurationVar(&cfg.BackoffBase, "backoff-base", cfg.BackoffBase, "first rate-limit pause")
	flags.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "rate-limit pause cap")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "per-call HTTP timeout")
	flags.IntVar(&cfg.PageBudget, "page-budget", cfg.PageBudget, "maximum characters per digest page")
	flags.StringVar(&cfg.FeedURL, "feed-url", cfg.FeedURL, "handle discovery feed URL (optional)")
	flags.DurationVar(&cfg.FeedInterval, "feed-interval", cfg.FeedInterval, "feed poll cadence")
	flags.StringVar(&cfg.FeedSelector, "feed-selector", cfg.FeedSelector, "CSS selector for handles in HTML feeds")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(newConsoleCmd(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
