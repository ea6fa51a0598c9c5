package ports

import "context"

// HandleSource discovers candidate handle strings from an external feed.
// The returned slice is an unordered stream with no uniqueness guarantee;
// deduplication is the enqueue gate's job, not the source's.
type HandleSource interface {
	Fetch(ctx context.Context) ([]string, error)
}
