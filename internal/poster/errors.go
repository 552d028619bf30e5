package poster

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOnTargetPage classifies a fill attempted outside the create-listing page.
	ErrNotOnTargetPage = errors.New("not on target page")
	// ErrNothingFilled is returned when no form field could be resolved or set.
	ErrNothingFilled = errors.New("no form field could be filled")
)

// TargetContextError reports that the page is not the expected create-listing
// form. Nothing on the page has been touched when it is returned.
type TargetContextError struct {
	URL      string
	Expected string
}

func (e *TargetContextError) Error() string {
	return fmt.Sprintf("page %q is not the create-listing page (expected %s): %v", e.URL, e.Expected, ErrNotOnTargetPage)
}

func (e *TargetContextError) Unwrap() error {
	return ErrNotOnTargetPage
}
