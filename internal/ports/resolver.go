package ports

import (
	"context"

	"github.com/repscrub/repscrub/internal/domain"
)

// Resolver looks up the reputation profile of a single handle on the remote
// catalog. There is no bulk variant: one call per handle.
//
// Implementations must make three outcomes distinguishable to the caller:
//
//   - success: a domain.Profile and nil error
//   - rate-limited: a *domain.RateLimitError, optionally carrying the
//     server-suggested retry delay
//   - other failure: domain.ErrNotFound, a transport error, or a decode
//     error; the worker treats all of these identically (drop, rediscover)
//
// Calls must honor ctx; a bounded per-call timeout is the caller's
// responsibility so a hung remote cannot stall the lane.
type Resolver interface {
	Resolve(ctx context.Context, rawHandle string) (domain.Profile, error)
}
