package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/repscrub/repscrub/internal/adapters/fs"
	httpadapter "github.com/repscrub/repscrub/internal/adapters/http"
	"github.com/repscrub/repscrub/internal/app"
	"github.com/repscrub/repscrub/internal/cliconfig"
	"github.com/repscrub/repscrub/internal/domain"
)

var consoleCommands = []string{
	"check", "trust", "untrust", "pending", "alltime", "trusted", "digest", "help", "quit",
}

// consoleNotifier prints digest pages to the terminal instead of the
// webhook, so a forced digest is inspectable without spamming the channel.
type consoleNotifier struct{}

func (consoleNotifier) Send(ctx context.Context, page string) error {
	fmt.Println(page)
	return nil
}

func newConsoleCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive admin console for checks and the trust list",
		Long: `Opens an interactive session against the pipeline state: synchronous
lookups, trust list edits, and inspection of the pending and all-time flags.

The console owns the state document while it runs. Do not run it
concurrently with the daemon.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := resolveConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}

			log := newLogger("warn")
			client := &http.Client{Timeout: cfg.HTTPTimeout}
			repo := fs.NewStateFileRepository(cfg.StateDir, log)
			store := app.NewStore(repo, log)
			resolver := httpadapter.NewResolver(cfg.ResolverURL, cfg.AuthKey, client, log)

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
			}, store, resolver, consoleNotifier{}, log)

			ctx := cmd.Context()
			if err := store.Load(ctx); err != nil {
				return fmt.Errorf("load state: %w", err)
			}

			console := &console{pipeline: pipeline, threshold: cfg.ScoreThreshold}
			return console.run(ctx)
		},
	}
}

type console struct {
	pipeline  *app.Pipeline
	threshold int64
	line      *liner.State
}

func consoleHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".repscrub_history")
}

func (c *console) run(ctx context.Context) error {
	c.line = liner.NewLiner()
	defer c.line.Close()

	c.line.SetCtrlCAborts(true)
	c.line.SetCompleter(func(line string) []string {
		var out []string
		for _, cmd := range consoleCommands {
			if strings.HasPrefix(cmd, strings.ToLower(line)) {
				out = append(out, cmd)
			}
		}
		return out
	})

	if f, err := os.Open(consoleHistoryFile()); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	defer c.saveHistory()

	fmt.Printf("repscrub console (threshold=%d)\n", c.threshold)
	fmt.Println("Type 'help' for available commands.")

	for {
		input, err := c.line.Prompt("repscrub> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		c.line.AppendHistory(input)

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := strings.Join(parts[1:], " ")

		switch cmd {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			c.printHelp()
		case "check":
			c.cmdCheck(ctx, args)
		case "trust":
			c.cmdTrust(ctx, args)
		case "untrust":
			c.cmdUntrust(ctx, args)
		case "pending":
			c.cmdPending()
		case "alltime":
			c.cmdAllTime()
		case "trusted":
			c.cmdTrusted()
		case "digest":
			c.pipeline.SendDigestNow(ctx)
			fmt.Println("digest flushed, pending window cleared")
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *console) saveHistory() {
	if path := consoleHistoryFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
}

func (c *console) printHelp() {
	fmt.Println(`Commands:
  check <handle>     look up a handle now (bypasses queue and backoff)
  trust <handle>     allow-list a handle, dropping its flags retroactively
  untrust <handle>   remove a handle from the allow-list
  pending            list handles awaiting the next digest
  alltime            list every handle ever flagged
  trusted            list the allow-list
  digest             force a digest now (prints pages here)
  quit               leave the console`)
}

func (c *console) cmdCheck(ctx context.Context, raw string) {
	profile, err := c.pipeline.CheckNow(ctx, raw)
	if err != nil {
		// One generic failure message: retry policy only applies to
		// the background lane.
		fmt.Printf("lookup failed for %q\n", raw)
		return
	}

	if !profile.HasScore {
		fmt.Printf("%s: no score available\n", profile.DisplayHandle)
		return
	}
	verdict := "clean"
	if profile.Score < c.threshold {
		verdict = "LOW"
	}
	fmt.Printf("%s: score %d (%s)\n", profile.DisplayHandle, profile.Score, verdict)
	for k, v := range profile.Attributes {
		fmt.Printf("  %s: %s\n", k, v)
	}
}

func (c *console) cmdTrust(ctx context.Context, raw string) {
	display, err := c.pipeline.Trust(ctx, raw)
	if err != nil {
		fmt.Println("cannot trust:", err)
		return
	}
	fmt.Printf("%s is now trusted; existing flags removed\n", display)
}

func (c *console) cmdUntrust(ctx context.Context, raw string) {
	display, err := c.pipeline.Untrust(ctx, raw)
	if err != nil {
		if errors.Is(err, domain.ErrNotTrusted) {
			fmt.Printf("%q is not on the trust list\n", raw)
			return
		}
		fmt.Println("cannot untrust:", err)
		return
	}
	fmt.Printf("%s is no longer trusted\n", display)
}

func (c *console) cmdPending() {
	entries := c.pipeline.Store().PendingSorted()
	if len(entries) == 0 {
		fmt.Println("no pending flags")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  score=%d  first=%s  last=%s\n",
			e.DisplayHandle, e.Score,
			e.FirstSeenAt.UTC().Format("2006-01-02 15:04"),
			e.LastSeenAt.UTC().Format("2006-01-02 15:04"))
	}
}

func (c *console) cmdAllTime() {
	entries := c.pipeline.Store().AllTimeSorted()
	if len(entries) == 0 {
		fmt.Println("no handles ever flagged")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  last_score=%d  first=%s  last=%s\n",
			e.DisplayHandle, e.LastKnownScore,
			e.FirstSeenAt.UTC().Format("2006-01-02 15:04"),
			e.LastSeenAt.UTC().Format("2006-01-02 15:04"))
	}
}

func (c *console) cmdTrusted() {
	entries := c.pipeline.Store().TrustedSorted()
	if len(entries) == 0 {
		fmt.Println("trust list is empty")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  added=%s\n", e.DisplayHandle, e.AddedAt.UTC().Format("2006-01-02 15:04"))
	}
}
