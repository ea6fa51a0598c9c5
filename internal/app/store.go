package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/repscrub/repscrub/internal/domain"
	"github.com/repscrub/repscrub/internal/ports"
)

// Store owns the pipeline state aggregate. All mutations happen under one
// mutex and rewrite the whole document through the repository before the
// lock is released, so no interleaving can observe a torn update.
//
// A failed persist is logged and swallowed: the in-memory state stays
// authoritative for the rest of the run, at the cost of possibly losing
// that one update on a crash.
type Store struct {
	mu    sync.Mutex
	state domain.PipelineState
	repo  ports.StateRepository
	log   zerolog.Logger
}

// NewStore creates a store backed by repo. Call Load before first use.
func NewStore(repo ports.StateRepository, log zerolog.Logger) *Store {
	return &Store{
		state: domain.NewPipelineState(),
		repo:  repo,
		log:   log,
	}
}

// Load replaces the in-memory aggregate with the persisted one. The
// repository degrades missing or corrupt documents to an empty state, so
// this only fails on genuine I/O trouble.
func (s *Store) Load(ctx context.Context) error {
	state, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	state.Normalize()

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// persist is called with s.mu held.
func (s *Store) persist(ctx context.Context) {
	if err := s.repo.Save(ctx, s.state); err != nil {
		s.log.Error().Err(err).Msg("state persist failed, in-memory state stays authoritative")
	}
}

// IsTrusted reports whether key is on the allow-list.
func (s *Store) IsTrusted(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.Trusted[key]
	return ok
}

// IsChecked reports whether key has completed a successful resolution.
func (s *Store) IsChecked(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Checked[key]
}

// MarkChecked records a successful resolver round trip for key. Only the
// worker calls this, and only after success; failed or rate-limited
// attempts never reach it.
func (s *Store) MarkChecked(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Checked[key] = true
	s.persist(ctx)
}

// RecordLowScore upserts the pending and all-time entries for a handle
// that classified low. Trusted keys are ignored.
func (s *Store) RecordLowScore(ctx context.Context, key, displayHandle string, score int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Trusted[key]; ok {
		return
	}

	pending, ok := s.state.Pending[key]
	if !ok {
		pending = domain.PendingEntry{FirstSeenAt: at}
	}
	pending.DisplayHandle = displayHandle
	pending.Score = score
	pending.LastSeenAt = at
	s.state.Pending[key] = pending

	allTime, ok := s.state.AllTime[key]
	if !ok {
		allTime = domain.AllTimeEntry{FirstSeenAt: at}
	}
	allTime.DisplayHandle = displayHandle
	allTime.LastKnownScore = score
	allTime.LastSeenAt = at
	s.state.AllTime[key] = allTime

	s.persist(ctx)
}

// Trust adds a handle to the allow-list and retroactively removes any
// pending and all-time entries for it. Returns the stored display handle.
func (s *Store) Trust(ctx context.Context, rawHandle string, at time.Time) (string, error) {
	key := domain.CanonicalKey(rawHandle)
	if key == "" {
		return "", domain.ErrEmptyHandle
	}
	display := strings.Join(strings.Fields(rawHandle), " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Trusted[key] = domain.TrustedEntry{DisplayHandle: display, AddedAt: at}
	delete(s.state.Pending, key)
	delete(s.state.AllTime, key)
	s.persist(ctx)

	return display, nil
}

// Untrust removes a handle from the allow-list. It does not resurrect
// previously removed flags. Returns domain.ErrNotTrusted when the handle
// was never trusted.
func (s *Store) Untrust(ctx context.Context, rawHandle string) (string, error) {
	key := domain.CanonicalKey(rawHandle)
	if key == "" {
		return "", domain.ErrEmptyHandle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.state.Trusted[key]
	if !ok {
		return "", domain.ErrNotTrusted
	}
	delete(s.state.Trusted, key)
	s.persist(ctx)

	return entry.DisplayHandle, nil
}

// LastDigestAt returns the timestamp of the last sent digest, zero if none.
func (s *Store) LastDigestAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastDigestAt
}

// DigestWindow returns a snapshot of the pending entries with
// LastSeenAt >= cutoff, excluding trusted keys, sorted ascending by
// display handle (plain ordinal compare, deterministic output).
func (s *Store) DigestWindow(cutoff time.Time) []domain.PendingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var window []domain.PendingEntry
	for key, entry := range s.state.Pending {
		if entry.LastSeenAt.Before(cutoff) {
			continue
		}
		if _, ok := s.state.Trusted[key]; ok {
			continue
		}
		window = append(window, entry)
	}

	sort.Slice(window, func(i, j int) bool {
		return window[i].DisplayHandle < window[j].DisplayHandle
	})
	return window
}

// FinishDigest clears the whole pending window and stamps the digest
// timestamp. Called after the pages went out (or were attempted); all-time
// records are untouched.
func (s *Store) FinishDigest(ctx context.Context, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Pending = make(map[string]domain.PendingEntry)
	s.state.LastDigestAt = at
	s.persist(ctx)
}

// PendingSorted returns all pending entries sorted by display handle.
func (s *Store) PendingSorted() []domain.PendingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.PendingEntry, 0, len(s.state.Pending))
	for _, entry := range s.state.Pending {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DisplayHandle < entries[j].DisplayHandle
	})
	return entries
}

// AllTimeSorted returns the audit trail sorted by display handle.
func (s *Store) AllTimeSorted() []domain.AllTimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.AllTimeEntry, 0, len(s.state.AllTime))
	for _, entry := range s.state.AllTime {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DisplayHandle < entries[j].DisplayHandle
	})
	return entries
}

// TrustedSorted returns the allow-list sorted by display handle.
func (s *Store) TrustedSorted() []domain.TrustedEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.TrustedEntry, 0, len(s.state.Trusted))
	for _, entry := range s.state.Trusted {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DisplayHandle < entries[j].DisplayHandle
	})
	return entries
}

// Stats returns the sizes of the four mappings, for status logging.
func (s *Store) Stats() (checked, pending, allTime, trusted int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Checked), len(s.state.Pending), len(s.state.AllTime), len(s.state.Trusted)
}
