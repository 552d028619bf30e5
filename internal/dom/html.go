package dom

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLPage is a Page over a parsed, static HTML document. Writes mutate the
// in-memory document only.
type HTMLPage struct {
	doc *goquery.Document
	url string
}

// NewHTMLPage parses html as the document located at pageURL.
func NewHTMLPage(html, pageURL string) (*HTMLPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &HTMLPage{doc: doc, url: pageURL}, nil
}

// URL returns the location the document was loaded from.
func (p *HTMLPage) URL(_ context.Context) (string, error) {
	return p.url, nil
}

// QueryAll returns every match of selector beneath root.
func (p *HTMLPage) QueryAll(_ context.Context, root Element, selector string) ([]Element, error) {
	scope, err := p.scope(root)
	if err != nil {
		return nil, err
	}
	var out []Element
	scope.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out, nil
}

// QueryFirst returns the first match of the first selector that matches.
func (p *HTMLPage) QueryFirst(_ context.Context, root Element, selectors ...string) (Element, error) {
	scope, err := p.scope(root)
	if err != nil {
		return nil, err
	}
	for _, selector := range selectors {
		if found := scope.Find(selector); found.Length() > 0 {
			return found.First(), nil
		}
	}
	return nil, nil
}

// ReadText returns the collapsed text content of el.
func (p *HTMLPage) ReadText(_ context.Context, el Element) (string, error) {
	s, err := selection(el)
	if err != nil {
		return "", err
	}
	return CollapseWhitespace(s.Text()), nil
}

// Attr returns the named attribute of el.
func (p *HTMLPage) Attr(_ context.Context, el Element, name string) (string, bool, error) {
	s, err := selection(el)
	if err != nil {
		return "", false, err
	}
	v, ok := s.Attr(name)
	return v, ok, nil
}

// SetValue writes the value attribute, or the text content for textareas.
func (p *HTMLPage) SetValue(_ context.Context, el Element, value string) error {
	s, err := selection(el)
	if err != nil {
		return err
	}
	if goquery.NodeName(s) == "textarea" {
		s.SetText(value)
		return nil
	}
	s.SetAttr("value", value)
	return nil
}

func (p *HTMLPage) scope(root Element) (*goquery.Selection, error) {
	if root == nil {
		return p.doc.Selection, nil
	}
	return selection(root)
}

func selection(el Element) (*goquery.Selection, error) {
	s, ok := el.(*goquery.Selection)
	if !ok || s == nil {
		return nil, &ForeignElementError{Got: el}
	}
	return s, nil
}
