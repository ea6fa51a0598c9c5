package app

import (
	"context"
	"errors"

	"github.com/repscrub/repscrub/internal/domain"
)

// runWorker drains the queue with exactly one resolver call in flight.
// The lane is the only network consumer by design: the remote service sees
// a strictly serialized request stream.
func (p *Pipeline) runWorker(ctx context.Context) {
	for {
		item, ok := p.queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.queue.wakeCh():
				continue
			}
		}

		if err := p.processItem(ctx, item); err != nil {
			// Only context cancellation escapes processItem.
			return
		}
	}
}

// processItem runs one attempt end to end. The returned error is non-nil
// only when ctx was canceled; every resolver outcome is absorbed here.
func (p *Pipeline) processItem(ctx context.Context, item QueueItem) error {
	// A live cooldown gates every item, not just the one that tripped it.
	if d := p.backoff.wait(p.now()); d > 0 {
		p.log.Debug().Dur("remaining", d).Str("key", item.Key).Msg("lane cooling down")
		if err := sleepCtx(ctx, d); err != nil {
			return err
		}
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	profile, err := p.resolver.Resolve(cctx, item.RawHandle)
	cancel()

	if err == nil {
		p.backoff.reset()
		// Checked before classification: from here on the dedup gate
		// rejects this key for the lifetime of the state.
		p.store.MarkChecked(ctx, item.Key)
		p.queue.done(item.Key)
		p.classify(ctx, item, profile)

		return sleepCtx(ctx, p.Settings().CallDelay)
	}

	if rl, ok := domain.AsRateLimit(err); ok {
		delay := p.backoff.onRateLimited(rl.RetryAfter, p.now())
		p.log.Warn().
			Str("key", item.Key).
			Dur("cooldown", delay).
			Msg("resolver rate limited, lane paused")

		// Safe to re-offer: the key never entered the checked set.
		// Going through the full gate means a handle trusted while in
		// flight is dropped instead of retried.
		p.queue.done(item.Key)
		if !p.Offer(item.RawHandle, item.NotifyContext) {
			p.log.Debug().Str("key", item.Key).Msg("rate-limited item not re-admitted")
		}
		return ctx.Err()
	}

	if errors.Is(err, context.Canceled) {
		p.queue.done(item.Key)
		return err
	}

	// Not-found, timeout, transport or decode trouble: drop without
	// marking checked. The key stays eligible for rediscovery on a future
	// feed read, which is the natural retry path.
	p.backoff.reset()
	p.queue.done(item.Key)
	p.log.Warn().
		Err(err).
		Str("key", item.Key).
		Str("source", item.NotifyContext).
		Msg("lookup failed, dropping item")

	return ctx.Err()
}
