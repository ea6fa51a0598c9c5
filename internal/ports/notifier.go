package ports

import "context"

// Notifier delivers one rendered digest page to the report channel.
// Idempotency is the sink's concern, not the pipeline's: digest delivery is
// at-most-once and a failed page is logged, not retried.
type Notifier interface {
	Send(ctx context.Context, page string) error
}
