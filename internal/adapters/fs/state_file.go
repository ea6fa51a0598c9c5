package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog"

	"github.com/repscrub/repscrub/internal/domain"
)

const stateFileName = "scrub-state.json"

// StateFileRepository implements ports.StateRepository with a single JSON
// document in the state directory, rewritten whole on every save.
type StateFileRepository struct {
	dir string
	log zerolog.Logger
}

// NewStateFileRepository creates a repository rooted at dir.
func NewStateFileRepository(dir string, log zerolog.Logger) *StateFileRepository {
	return &StateFileRepository{dir: dir, log: log}
}

// Path returns the full path to the state document.
func (r *StateFileRepository) Path() string {
	return filepath.Join(r.dir, stateFileName)
}

// Load reads the state document from disk. A missing or unparsable file
// degrades to an empty-but-valid state: corruption means "start over",
// never a failed startup.
func (r *StateFileRepository) Load(ctx context.Context) (domain.PipelineState, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn().Err(err).Str("path", r.Path()).Msg("state file unreadable, starting empty")
		}
		return domain.NewPipelineState(), nil
	}

	var state domain.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		r.log.Warn().Err(err).Str("path", r.Path()).Msg("state file corrupt, starting empty")
		return domain.NewPipelineState(), nil
	}

	state.Normalize()
	return state, nil
}

// Save rewrites the whole aggregate. The write goes through a temp file and
// rename so a crash mid-write leaves the previous document intact.
func (r *StateFileRepository) Save(ctx context.Context, state domain.PipelineState) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return atomic.WriteFile(r.Path(), bytes.NewReader(data))
}
