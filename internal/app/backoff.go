package app

import (
	"sync"
	"time"
)

// maxShift bounds the exponential doubling so the shift cannot overflow
// before the cap kicks in.
const maxShift = 16

// backoffController is the rate-limit circuit breaker. One cooldown
// deadline gates the whole lane: a single rate-limit event pauses the next
// item too, not just the offending one. There is exactly one caller of the
// remote service, so a token-less deadline is sufficient.
type backoffController struct {
	base time.Duration
	max  time.Duration

	mu          sync.Mutex
	consecutive int
	until       time.Time
}

func newBackoffController(base, max time.Duration) *backoffController {
	return &backoffController{base: base, max: max}
}

// onRateLimited computes the pause for one rate-limit signal and advances
// the cooldown deadline. The server-suggested delay wins when present,
// otherwise base * 2^consecutive; both readings are capped at max.
func (b *backoffController) onRateLimited(retryAfter time.Duration, now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := retryAfter
	if delay <= 0 {
		shift := b.consecutive
		if shift > maxShift {
			shift = maxShift
		}
		delay = b.base << uint(shift)
	}
	if delay > b.max {
		delay = b.max
	}

	b.consecutive++
	b.until = now.Add(delay)
	return delay
}

// reset clears the consecutive counter. Called on any non-rate-limited
// outcome; the cooldown deadline itself is left to expire.
func (b *backoffController) reset() {
	b.mu.Lock()
	b.consecutive = 0
	b.mu.Unlock()
}

// wait returns how long the worker must still pause before its next call,
// zero when the cooldown has elapsed.
func (b *backoffController) wait(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d := b.until.Sub(now); d > 0 {
		return d
	}
	return 0
}
