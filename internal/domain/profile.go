package domain

// Profile is the result of a successful resolver round trip.
type Profile struct {
	// DisplayHandle is the handle as the remote catalog renders it,
	// preserving the original casing.
	DisplayHandle string

	// Score is the reputation value fetched from the resolver.
	// Only meaningful when HasScore is true.
	Score int64

	// HasScore reports whether the resolver returned a parsable score.
	// A profile without a score is non-actionable for classification.
	HasScore bool

	// Attributes carries any extra fields the resolver returned.
	// The pipeline does not interpret them; they are logged and passed
	// through to interactive reports.
	Attributes map[string]string
}
