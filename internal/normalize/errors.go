// Package normalize converts raw scraped strings into typed, canonical vehicle fields.
// Every function in this package is pure: no I/O, no clocks, no globals that change.
package normalize

import "fmt"

// ValidationError reports a record or field that cannot be turned into a canonical vehicle.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
