// Package dom abstracts the handful of page capabilities the scraper and the
// form filler need, so both run against a static HTML document in tests and
// against a live browser tab in production.
package dom

import (
	"context"
	"fmt"
	"strings"
)

// Element is an opaque handle to a node owned by the Page that returned it.
type Element any

// Page is the read/write surface over one loaded document.
type Page interface {
	// URL returns the current document location.
	URL(ctx context.Context) (string, error)
	// QueryAll returns every match of selector beneath root (the document when root is nil).
	QueryAll(ctx context.Context, root Element, selector string) ([]Element, error)
	// QueryFirst tries selectors in order and returns the first match of the
	// first selector that matches anything. It returns nil, nil when nothing matches.
	QueryFirst(ctx context.Context, root Element, selectors ...string) (Element, error)
	// ReadText returns the element's whitespace-collapsed text content.
	ReadText(ctx context.Context, el Element) (string, error)
	// Attr returns an attribute value and whether it is present.
	Attr(ctx context.Context, el Element, name string) (string, bool, error)
	// SetValue replaces the value of an input or textarea.
	SetValue(ctx context.Context, el Element, value string) error
}

// ForeignElementError is returned when an Element from another Page implementation is passed in.
type ForeignElementError struct {
	Got any
}

func (e *ForeignElementError) Error() string {
	return fmt.Sprintf("dom error: element of type %T does not belong to this page", e.Got)
}

// CollapseWhitespace trims text and folds internal whitespace runs into single spaces.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// AttrSelector builds an exact-match attribute selector with the value quoted.
func AttrSelector(attr, value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return fmt.Sprintf(`[%s="%s"]`, attr, value)
}

var (
	_ Page = (*HTMLPage)(nil)
	_ Page = (*BrowserPage)(nil)
)
