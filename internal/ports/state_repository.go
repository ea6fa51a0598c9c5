package ports

import (
	"context"

	"github.com/repscrub/repscrub/internal/domain"
)

// StateRepository persists the pipeline state aggregate for crash recovery.
type StateRepository interface {
	// Load retrieves the last saved state. A missing or unparsable
	// document degrades to an empty-but-valid state and a nil error;
	// corruption is never fatal at startup.
	Load(ctx context.Context) (domain.PipelineState, error)

	// Save rewrites the whole aggregate atomically (temp file + rename,
	// or equivalent) so a crash mid-write cannot truncate the store.
	Save(ctx context.Context, state domain.PipelineState) error
}
