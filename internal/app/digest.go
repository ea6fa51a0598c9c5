package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/repscrub/repscrub/internal/domain"
)

// runDigestTicker evaluates digest due-ness on a wall-clock cadence,
// independent of the worker lane.
func (p *Pipeline) runDigestTicker(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.DigestTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checked, pending, allTime, trusted := p.store.Stats()
			p.log.Debug().
				Int("queue", p.queue.len()).
				Int("checked", checked).
				Int("pending", pending).
				Int("all_time", allTime).
				Int("trusted", trusted).
				Msg("pipeline status")

			p.maybeSendDigest(ctx, false)
		}
	}
}

// SendDigestNow forces a digest regardless of due-ness. Used by the
// console's digest command.
func (p *Pipeline) SendDigestNow(ctx context.Context) bool {
	return p.maybeSendDigest(ctx, true)
}

// maybeSendDigest sends the pending window when due. Due-ness is evaluated
// on wall-clock cadence regardless of content: an empty window still clears
// and stamps, so it is not re-flagged as due on the next tick.
func (p *Pipeline) maybeSendDigest(ctx context.Context, force bool) bool {
	now := p.now()
	settings := p.Settings()
	last := p.store.LastDigestAt()

	if !force && !last.IsZero() && now.Sub(last) < settings.DigestInterval {
		return false
	}

	cutoff := last
	if cutoff.IsZero() {
		cutoff = now.Add(-settings.DigestInterval)
	}

	window := p.store.DigestWindow(cutoff)
	if len(window) > 0 {
		pages := paginate(renderLines(window), settings.PageBudget)
		for i, page := range pages {
			if err := p.notifier.Send(ctx, page); err != nil {
				// At-most-once delivery: losing a render beats
				// re-sending duplicates forever.
				p.log.Error().
					Err(err).
					Int("page", i+1).
					Int("pages", len(pages)).
					Msg("digest page delivery failed")
			}
		}
		p.log.Info().
			Int("flagged", len(window)).
			Int("pages", len(pages)).
			Msg("digest sent")
	}

	p.store.FinishDigest(ctx, now)
	return true
}

// renderLines renders one digest line per flagged handle. Input is already
// sorted by the store.
func renderLines(window []domain.PendingEntry) []string {
	lines := make([]string, len(window))
	for i, entry := range window {
		lines[i] = fmt.Sprintf("- %s (score %d, last seen %s)",
			entry.DisplayHandle, entry.Score, entry.LastSeenAt.UTC().Format("2006-01-02 15:04"))
	}
	return lines
}

// paginate packs lines into pages of at most budget characters, newline
// separated. A line is never split: one longer than the budget gets a page
// of its own.
func paginate(lines []string, budget int) []string {
	var pages []string
	var page strings.Builder

	for _, line := range lines {
		if page.Len() > 0 && page.Len()+1+len(line) > budget {
			pages = append(pages, page.String())
			page.Reset()
		}
		if page.Len() > 0 {
			page.WriteByte('\n')
		}
		page.WriteString(line)
	}
	if page.Len() > 0 {
		pages = append(pages, page.String())
	}
	return pages
}
