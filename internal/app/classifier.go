package app

import (
	"context"
	"strings"

	"github.com/repscrub/repscrub/internal/domain"
)

// classify compares a resolved profile against the threshold and records
// low scorers. Trusted handles and profiles without a parsable score are
// non-actionable.
func (p *Pipeline) classify(ctx context.Context, item QueueItem, profile domain.Profile) {
	if p.store.IsTrusted(item.Key) {
		p.log.Debug().Str("key", item.Key).Msg("trusted handle, skipping classification")
		return
	}

	if !profile.HasScore {
		p.log.Warn().Str("key", item.Key).Msg("profile has no parsable score, ignoring")
		return
	}

	threshold := p.Settings().ScoreThreshold
	if profile.Score >= threshold {
		p.log.Debug().
			Str("key", item.Key).
			Int64("score", profile.Score).
			Msg("handle clean")
		return
	}

	display := profile.DisplayHandle
	if display == "" {
		display = strings.Join(strings.Fields(item.RawHandle), " ")
	}

	p.store.RecordLowScore(ctx, item.Key, display, profile.Score, p.now())
	p.log.Info().
		Str("handle", display).
		Int64("score", profile.Score).
		Int64("threshold", threshold).
		Str("source", item.NotifyContext).
		Msg("handle flagged")
}
