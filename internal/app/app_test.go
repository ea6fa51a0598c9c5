package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/repscrub/repscrub/internal/domain"
)

// memRepo is an in-memory ports.StateRepository for tests.
type memRepo struct {
	mu      sync.Mutex
	state   domain.PipelineState
	hasData bool
	saveErr error
	saves   int
}

func (r *memRepo) Load(ctx context.Context) (domain.PipelineState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasData {
		return domain.NewPipelineState(), nil
	}
	return r.state, nil
}

func (r *memRepo) Save(ctx context.Context, state domain.PipelineState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.state = state
	r.hasData = true
	r.saves++
	return nil
}

// scriptResolver returns canned outcomes per call, in order. The last
// outcome repeats once the script runs out.
type scriptResolver struct {
	mu       sync.Mutex
	outcomes []func(raw string) (domain.Profile, error)
	calls    []string
}

func (r *scriptResolver) Resolve(ctx context.Context, raw string) (domain.Profile, error) {
	r.mu.Lock()
	idx := len(r.calls)
	r.calls = append(r.calls, raw)
	if idx >= len(r.outcomes) {
		idx = len(r.outcomes) - 1
	}
	fn := r.outcomes[idx]
	r.mu.Unlock()
	return fn(raw)
}

func (r *scriptResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func lowScore(display string, score int64) func(string) (domain.Profile, error) {
	return func(string) (domain.Profile, error) {
		return domain.Profile{DisplayHandle: display, Score: score, HasScore: true}, nil
	}
}

func rateLimited(retryAfter time.Duration) func(string) (domain.Profile, error) {
	return func(string) (domain.Profile, error) {
		return domain.Profile{}, &domain.RateLimitError{RetryAfter: retryAfter}
	}
}

// captureNotifier records every page it is handed.
type captureNotifier struct {
	mu    sync.Mutex
	pages []string
	err   error
}

func (n *captureNotifier) Send(ctx context.Context, page string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.pages = append(n.pages, page)
	return nil
}

func (n *captureNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.pages...)
}

func testConfig() PipelineConfig {
	return PipelineConfig{
		Settings: Settings{
			ScoreThreshold: 1000,
			DigestInterval: time.Hour,
			CallDelay:      0,
			PageBudget:     1800,
		},
		CallTimeout: time.Second,
		DigestTick:  time.Hour,
		BackoffBase: time.Millisecond,
		BackoffMax:  10 * time.Millisecond,
	}
}

func newTestPipeline(t *testing.T, resolver *scriptResolver) (*Pipeline, *memRepo, *captureNotifier) {
	t.Helper()
	repo := &memRepo{}
	notifier := &captureNotifier{}
	store := NewStore(repo, zerolog.Nop())
	p := NewPipeline(testConfig(), store, resolver, notifier, zerolog.Nop())
	return p, repo, notifier
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}
