// Package scraper extracts listing cards from dealer inventory pages and
// normalizes them into canonical vehicles.
package scraper

import "fmt"

// ScrapeError represents a failure to read the page itself. A page without
// listing cards is not an error.
type ScrapeError struct {
	Source  string
	Message string
	Cause   error
}

func (e *ScrapeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scrape error (%s): %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("scrape error (%s): %s", e.Source, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Cause
}
