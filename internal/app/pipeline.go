package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/repscrub/repscrub/internal/domain"
	"github.com/repscrub/repscrub/internal/ports"
)

// Settings are the live-tunable knobs of a running pipeline. They can be
// swapped at runtime via ApplySettings (the config watcher uses this when
// the config file changes on disk).
type Settings struct {
	// ScoreThreshold is the classification boundary: a resolved score
	// below it flags the handle.
	ScoreThreshold int64

	// DigestInterval is the wall-clock cadence of batched reports.
	DigestInterval time.Duration

	// CallDelay is the pause after every successfully completed resolver
	// attempt, throttling steady-state call volume independent of
	// rate-limit backoff.
	CallDelay time.Duration

	// PageBudget is the maximum characters per digest page.
	PageBudget int
}

// PipelineConfig contains the fixed configuration of a pipeline instance.
type PipelineConfig struct {
	Settings Settings

	// CallTimeout bounds every resolver call so a hung remote cannot
	// stall the lane. Mandatory; a timeout is handled like any other
	// transient failure.
	CallTimeout time.Duration

	// DigestTick is how often due-ness is evaluated. Much smaller than
	// Settings.DigestInterval.
	DigestTick time.Duration

	// BackoffBase and BackoffMax bound the rate-limit pause.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// Pipeline wires the store, the work queue, the sequential worker, the
// backoff controller, the classifier and the digest scheduler together.
// Multiple independent instances can coexist; nothing here is ambient.
type Pipeline struct {
	cfg      PipelineConfig
	store    *Store
	queue    *workQueue
	backoff  *backoffController
	resolver ports.Resolver
	notifier ports.Notifier
	log      zerolog.Logger

	// now is swappable for tests.
	now func() time.Time

	settingsMu sync.RWMutex
	settings   Settings
}

// NewPipeline creates a pipeline. The store must be Loaded before Run.
func NewPipeline(
	cfg PipelineConfig,
	store *Store,
	resolver ports.Resolver,
	notifier ports.Notifier,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		store:    store,
		queue:    newWorkQueue(),
		backoff:  newBackoffController(cfg.BackoffBase, cfg.BackoffMax),
		resolver: resolver,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		settings: cfg.Settings,
	}
}

// Settings returns the current live settings.
func (p *Pipeline) Settings() Settings {
	p.settingsMu.RLock()
	defer p.settingsMu.RUnlock()
	return p.settings
}

// ApplySettings swaps the live settings. Takes effect from the next
// classification, delay, or digest evaluation.
func (p *Pipeline) ApplySettings(s Settings) {
	p.settingsMu.Lock()
	p.settings = s
	p.settingsMu.Unlock()

	p.log.Info().
		Int64("threshold", s.ScoreThreshold).
		Dur("digest_interval", s.DigestInterval).
		Dur("call_delay", s.CallDelay).
		Msg("settings applied")
}

// Store exposes the state store for the trust commands and the console.
func (p *Pipeline) Store() *Store {
	return p.store
}

// Run starts the worker lane and the digest ticker and blocks until ctx is
// canceled. State is loaded first; a load failure is fatal, unlike every
// error after startup.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.store.Load(ctx); err != nil {
		return err
	}

	checked, pending, allTime, trusted := p.store.Stats()
	p.log.Info().
		Int("checked", checked).
		Int("pending", pending).
		Int("all_time", allTime).
		Int("trusted", trusted).
		Msg("state loaded")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.runWorker(ctx)
	}()
	go func() {
		defer wg.Done()
		p.runDigestTicker(ctx)
	}()
	wg.Wait()

	return ctx.Err()
}

// Offer is the sole admission control for background lookups: canonicalize,
// reject empty keys, trusted keys, already-checked keys, and keys with an
// outstanding attempt. Returns whether new work was enqueued.
func (p *Pipeline) Offer(rawHandle, notifyContext string) bool {
	key := domain.CanonicalKey(rawHandle)
	if key == "" {
		return false
	}
	if p.store.IsTrusted(key) {
		return false
	}
	if p.store.IsChecked(key) {
		return false
	}
	if !p.queue.offer(QueueItem{RawHandle: rawHandle, Key: key, NotifyContext: notifyContext}) {
		return false
	}

	p.log.Debug().Str("key", key).Str("source", notifyContext).Msg("handle enqueued")
	return true
}

// QueueDepth returns the number of items waiting in the lane.
func (p *Pipeline) QueueDepth() int {
	return p.queue.len()
}

// Trust adds a handle to the allow-list, retroactively dropping its flags.
func (p *Pipeline) Trust(ctx context.Context, rawHandle string) (string, error) {
	display, err := p.store.Trust(ctx, rawHandle, p.now())
	if err != nil {
		return "", err
	}
	p.log.Info().Str("handle", display).Msg("handle trusted")
	return display, nil
}

// Untrust removes a handle from the allow-list. Prior flags stay gone.
func (p *Pipeline) Untrust(ctx context.Context, rawHandle string) (string, error) {
	display, err := p.store.Untrust(ctx, rawHandle)
	if err != nil {
		return "", err
	}
	p.log.Info().Str("handle", display).Msg("handle untrusted")
	return display, nil
}

// CheckNow is the synchronous lookup path for interactive use. It bypasses
// the queue, the dedup gate and the backoff state entirely: interactive
// checks must not be throttled by background pushback, and they mutate
// nothing.
func (p *Pipeline) CheckNow(ctx context.Context, rawHandle string) (domain.Profile, error) {
	if domain.CanonicalKey(rawHandle) == "" {
		return domain.Profile{}, domain.ErrEmptyHandle
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()
	return p.resolver.Resolve(cctx, rawHandle)
}

// sleepCtx pauses for d, returning early with the context error when ctx
// is canceled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
