package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/repscrub/repscrub/internal/domain"
)

func startPipeline(t *testing.T, p *Pipeline) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("pipeline did not stop")
		}
	})
	return cancel
}

func TestOfferIdempotentAdmission(t *testing.T) {
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		lowScore("Foo Bar", 400),
	}}
	p, _, _ := newTestPipeline(t, resolver)

	// Two raw spellings of the same key, before any attempt runs.
	if !p.Offer("Foo  Bar", "feed") {
		t.Fatal("first offer rejected")
	}
	if p.Offer("foo bar", "feed") {
		t.Error("duplicate offer admitted")
	}
	if depth := p.QueueDepth(); depth != 1 {
		t.Errorf("queue depth = %d, want 1", depth)
	}
}

func TestOfferRejectsEmptyAndTrusted(t *testing.T) {
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		lowScore("x", 0),
	}}
	p, _, _ := newTestPipeline(t, resolver)

	if p.Offer("   ", "feed") {
		t.Error("whitespace-only handle admitted")
	}

	if _, err := p.Trust(context.Background(), "Foo"); err != nil {
		t.Fatalf("Trust() error = %v", err)
	}
	if p.Offer("foo", "feed") {
		t.Error("trusted handle admitted")
	}
}

func TestNoDoubleSuccess(t *testing.T) {
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		lowScore("Foo Bar", 400),
	}}
	p, _, _ := newTestPipeline(t, resolver)
	startPipeline(t, p)

	if !p.Offer("Foo Bar", "feed") {
		t.Fatal("offer rejected")
	}
	waitFor(t, time.Second, func() bool { return p.Store().IsChecked("foo bar") })

	if p.Offer("Foo Bar", "feed") {
		t.Error("offer admitted after success")
	}
	if got := resolver.callCount(); got != 1 {
		t.Errorf("resolver calls = %d, want 1", got)
	}
}

func TestRateLimitDurability(t *testing.T) {
	// Three rate limits, then success: the key must end checked exactly
	// once and never be dropped on the way.
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		rateLimited(0),
		rateLimited(0),
		rateLimited(0),
		lowScore("Foo Bar", 400),
	}}
	p, _, _ := newTestPipeline(t, resolver)
	startPipeline(t, p)

	if !p.Offer("Foo Bar", "feed") {
		t.Fatal("offer rejected")
	}
	waitFor(t, 2*time.Second, func() bool { return p.Store().IsChecked("foo bar") })

	if got := resolver.callCount(); got != 4 {
		t.Errorf("resolver calls = %d, want 4", got)
	}
	pending := p.Store().PendingSorted()
	if len(pending) != 1 || pending[0].DisplayHandle != "Foo Bar" {
		t.Errorf("pending = %+v, want one Foo Bar entry", pending)
	}
}

func TestOtherFailureDropsWithoutChecking(t *testing.T) {
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		func(string) (domain.Profile, error) { return domain.Profile{}, domain.ErrNotFound },
	}}
	p, _, _ := newTestPipeline(t, resolver)
	startPipeline(t, p)

	if !p.Offer("ghost", "feed") {
		t.Fatal("offer rejected")
	}
	waitFor(t, time.Second, func() bool { return resolver.callCount() == 1 && p.QueueDepth() == 0 })

	// Give the worker a beat to (incorrectly) mark or requeue.
	time.Sleep(20 * time.Millisecond)
	if p.Store().IsChecked("ghost") {
		t.Error("failed lookup marked checked")
	}
	// Still eligible for rediscovery.
	if !p.Offer("ghost", "feed") {
		t.Error("re-offer after failure rejected")
	}
}

func TestClassifierScenario(t *testing.T) {
	// Threshold 1000, resolver returns 400 for "Foo Bar": pending entry
	// keyed "foo bar" with the display casing preserved, then a digest
	// includes the line and empties the window.
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		lowScore("Foo Bar", 400),
	}}
	p, _, notifier := newTestPipeline(t, resolver)
	startPipeline(t, p)

	p.Offer("foo bar", "feed")
	waitFor(t, time.Second, func() bool { return len(p.Store().PendingSorted()) == 1 })

	entry := p.Store().PendingSorted()[0]
	if entry.DisplayHandle != "Foo Bar" || entry.Score != 400 {
		t.Errorf("pending entry = %+v, want Foo Bar/400", entry)
	}

	if !p.SendDigestNow(context.Background()) {
		t.Fatal("forced digest did not run")
	}
	pages := notifier.sent()
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	if want := "Foo Bar"; !strings.Contains(pages[0], want) {
		t.Errorf("page %q does not mention %q", pages[0], want)
	}
	if got := len(p.Store().PendingSorted()); got != 0 {
		t.Errorf("pending after digest = %d, want 0", got)
	}
}

func TestTrustedHandleSkipsClassification(t *testing.T) {
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		lowScore("Foo", 0),
	}}
	p, _, _ := newTestPipeline(t, resolver)

	// Trust first, then push the item past the gate directly: this
	// simulates a handle trusted while already in flight.
	if _, err := p.Trust(context.Background(), "Foo"); err != nil {
		t.Fatalf("Trust() error = %v", err)
	}
	item := QueueItem{RawHandle: "Foo", Key: "foo", NotifyContext: "test"}
	profile, _ := resolver.Resolve(context.Background(), "Foo")
	p.classify(context.Background(), item, profile)

	if len(p.Store().PendingSorted()) != 0 {
		t.Error("trusted handle reached pending")
	}
	if len(p.Store().AllTimeSorted()) != 0 {
		t.Error("trusted handle reached all-time")
	}
}

func TestCheckNowBypassesQueueAndGate(t *testing.T) {
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		lowScore("Foo Bar", 400),
	}}
	p, _, _ := newTestPipeline(t, resolver)

	profile, err := p.CheckNow(context.Background(), "Foo Bar")
	if err != nil {
		t.Fatalf("CheckNow() error = %v", err)
	}
	if profile.Score != 400 {
		t.Errorf("Score = %d, want 400", profile.Score)
	}
	// Interactive checks mutate nothing.
	if p.Store().IsChecked("foo bar") {
		t.Error("CheckNow marked the key checked")
	}
	if len(p.Store().PendingSorted()) != 0 {
		t.Error("CheckNow wrote a pending entry")
	}
	if _, err := p.CheckNow(context.Background(), "  "); !errors.Is(err, domain.ErrEmptyHandle) {
		t.Errorf("CheckNow(empty) error = %v, want ErrEmptyHandle", err)
	}
}

func TestUnparsableScoreIsNonActionable(t *testing.T) {
	resolver := &scriptResolver{outcomes: []func(string) (domain.Profile, error){
		func(string) (domain.Profile, error) {
			return domain.Profile{DisplayHandle: "Foo"}, nil
		},
	}}
	p, _, _ := newTestPipeline(t, resolver)
	startPipeline(t, p)

	p.Offer("foo", "feed")
	waitFor(t, time.Second, func() bool { return p.Store().IsChecked("foo") })

	if len(p.Store().PendingSorted()) != 0 {
		t.Error("scoreless profile reached pending")
	}
}
