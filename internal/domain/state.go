package domain

import "time"

// PendingEntry is a currently-low-scoring handle awaiting the next digest.
// It exists only for keys that are not trusted and is cleared in full when
// a digest sends.
type PendingEntry struct {
	// DisplayHandle is the handle as last rendered by the resolver.
	DisplayHandle string `json:"handle"`

	// Score is the most recent low score observed for the handle.
	Score int64 `json:"score"`

	// FirstSeenAt is when the handle first classified low.
	FirstSeenAt time.Time `json:"first_seen_at"`

	// LastSeenAt is updated every time the handle resolves low again
	// before the next digest fires.
	LastSeenAt time.Time `json:"last_seen_at"`
}

// AllTimeEntry is the audit-trail counterpart of PendingEntry. Digests never
// clear it; only a trust override removes a record retroactively.
type AllTimeEntry struct {
	DisplayHandle  string    `json:"handle"`
	LastKnownScore int64     `json:"last_known_score"`
	FirstSeenAt    time.Time `json:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

// TrustedEntry records a manual allow-list decision.
type TrustedEntry struct {
	DisplayHandle string    `json:"handle"`
	AddedAt       time.Time `json:"added_at"`
}

// PipelineState is the aggregate root persisted by the pipeline: the four
// mappings plus the last digest timestamp. It is loaded once at startup,
// mutated in memory, and rewritten whole after every mutation. All maps are
// keyed by the canonical handle key.
type PipelineState struct {
	// Checked holds every key that completed at least one successful
	// resolver round trip. A key enters this set only after success;
	// failed or rate-limited attempts never add one.
	Checked map[string]bool `json:"checked"`

	// Pending holds the current digest window.
	Pending map[string]PendingEntry `json:"pending"`

	// AllTime holds every handle ever classified low, minus trust
	// overrides.
	AllTime map[string]AllTimeEntry `json:"all_time"`

	// Trusted is the manual allow-list.
	Trusted map[string]TrustedEntry `json:"trusted"`

	// LastDigestAt is when the last digest was stamped. Zero means no
	// digest has ever fired, which the scheduler treats as "always due".
	LastDigestAt time.Time `json:"last_digest_at"`
}

// NewPipelineState returns an empty-but-valid state with all maps allocated.
func NewPipelineState() PipelineState {
	return PipelineState{
		Checked: make(map[string]bool),
		Pending: make(map[string]PendingEntry),
		AllTime: make(map[string]AllTimeEntry),
		Trusted: make(map[string]TrustedEntry),
	}
}

// Normalize allocates any nil map so a state decoded from a partial or
// legacy document is safe to mutate.
func (s *PipelineState) Normalize() {
	if s.Checked == nil {
		s.Checked = make(map[string]bool)
	}
	if s.Pending == nil {
		s.Pending = make(map[string]PendingEntry)
	}
	if s.AllTime == nil {
		s.AllTime = make(map[string]AllTimeEntry)
	}
	if s.Trusted == nil {
		s.Trusted = make(map[string]TrustedEntry)
	}
}
