package scraper

import (
	"context"
	"time"

	"github.com/jonathan/inventory-poster/internal/dom"
	"github.com/rs/zerolog"
)

// Loader produces a freshly loaded page for one scrape attempt.
type Loader func(ctx context.Context) (dom.Page, error)

// RetryPolicy is the re-trigger schedule for slow or partially rendered pages.
// Attempt i waits Delays[i] before loading and scraping. Attempts stop at the
// first pass that finds listing cards.
type RetryPolicy struct {
	Delays []time.Duration
}

// DefaultRetryPolicy scrapes immediately, again after 2s, and a last time after 5s more.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{0, 2 * time.Second, 5 * time.Second}}
}

// ScrapeWithRetry runs Scrape under policy. The latest successful batch wins;
// an error is returned only when no attempt produced a batch.
func (s *Scraper) ScrapeWithRetry(ctx context.Context, policy RetryPolicy, load Loader) (*Batch, error) {
	delays := policy.Delays
	if len(delays) == 0 {
		delays = []time.Duration{0}
	}

	var last *Batch
	var lastErr error
	for attempt, delay := range delays {
		if err := sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}

		page, err := load(ctx)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("page load failed")
			continue
		}

		batch, err := s.Scrape(ctx, page)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("scrape pass failed")
			continue
		}
		batch.Attempts = attempt + 1
		last = batch
		if batch.Cards > 0 {
			return batch, nil
		}
	}

	if last != nil {
		return last, nil
	}
	return nil, &ScrapeError{Source: s.source.Name, Message: "every scrape attempt failed", Cause: lastErr}
}

// HTMLLoader fetches the current markup of one page.
type HTMLLoader func(ctx context.Context) (string, error)

// ScrapeHTML scrapes pageURL under policy, loading fresh markup for every
// attempt, the first one included. With an empty source the selector set is
// detected from the first markup that loads and kept for later attempts.
func ScrapeHTML(ctx context.Context, pageURL, source string, policy RetryPolicy, load HTMLLoader, log zerolog.Logger) (*Batch, error) {
	s := New(LookupSource(source), log)
	detect := source == ""
	return s.ScrapeWithRetry(ctx, policy, func(ctx context.Context) (dom.Page, error) {
		html, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if detect {
			*s = *New(SourceForPage(pageURL, html), log)
			detect = false
			s.log.Info().Msg("selector set detected")
		}
		return dom.NewHTMLPage(html, pageURL)
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
