package dom

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// injectValueScript assigns through the native value setter so framework-managed
// inputs observe the change, then fires input and change events.
const injectValueScript = `(function(xpath, value) {
	const el = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) { return false; }
	const proto = Object.getPrototypeOf(el);
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%s, %s)`

// BrowserPage is a Page over a live chromedp tab.
type BrowserPage struct {
	tab                context.Context
	alternateInjection bool
}

// NewBrowserPage wraps a chromedp tab context. With alternateInjection, SetValue
// assigns values by script instead of typing them as key events.
func NewBrowserPage(tab context.Context, alternateInjection bool) *BrowserPage {
	return &BrowserPage{tab: tab, alternateInjection: alternateInjection}
}

// URL returns the tab's current location.
func (p *BrowserPage) URL(ctx context.Context) (string, error) {
	var location string
	if err := p.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return location, nil
}

// QueryAll returns every match of selector beneath root without waiting for matches to appear.
func (p *BrowserPage) QueryAll(ctx context.Context, root Element, selector string) ([]Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if root != nil {
		n, err := node(root)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.FromNode(n))
	}

	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}

	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

// QueryFirst returns the first match of the first selector that matches.
func (p *BrowserPage) QueryFirst(ctx context.Context, root Element, selectors ...string) (Element, error) {
	for _, selector := range selectors {
		found, err := p.QueryAll(ctx, root, selector)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found[0], nil
		}
	}
	return nil, nil
}

// ReadText returns the collapsed text content of el.
func (p *BrowserPage) ReadText(ctx context.Context, el Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := p.run(ctx, chromedp.TextContent([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return CollapseWhitespace(text), nil
}

// Attr returns the named attribute as captured when the node was queried.
func (p *BrowserPage) Attr(_ context.Context, el Element, name string) (string, bool, error) {
	n, err := node(el)
	if err != nil {
		return "", false, err
	}
	v, ok := n.Attribute(name)
	return v, ok, nil
}

// SetValue replaces the value of an input or textarea.
func (p *BrowserPage) SetValue(ctx context.Context, el Element, value string) error {
	n, err := node(el)
	if err != nil {
		return err
	}

	if p.alternateInjection {
		return p.inject(ctx, n, value)
	}

	ids := []cdp.NodeID{n.NodeID}
	err = p.run(ctx,
		chromedp.Focus(ids, chromedp.ByNodeID),
		chromedp.SetValue(ids, "", chromedp.ByNodeID),
		chromedp.SendKeys(ids, value, chromedp.ByNodeID),
	)
	if err != nil {
		return fmt.Errorf("failed to type value: %w", err)
	}
	return nil
}

func (p *BrowserPage) inject(ctx context.Context, n *cdp.Node, value string) error {
	xpath, err := json.Marshal(n.FullXPath())
	if err != nil {
		return err
	}
	quoted, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(injectValueScript, xpath, quoted), &ok)); err != nil {
		return fmt.Errorf("failed to inject value: %w", err)
	}
	if !ok {
		return fmt.Errorf("failed to inject value: node %s no longer in document", n.FullXPath())
	}
	return nil
}

func (p *BrowserPage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(p.tab, actions...)
}

func node(el Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, &ForeignElementError{Got: el}
	}
	return n, nil
}

// Attach opens a new tab in an already running browser (one the operator is
// logged in with) reachable at devtoolsURL, optionally navigating to startURL.
// The returned cancel closes the tab.
func Attach(ctx context.Context, devtoolsURL, startURL string, alternateInjection bool) (*BrowserPage, context.CancelFunc, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, devtoolsURL)
	tab, cancelTab := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	if startURL != "" {
		if err := chromedp.Run(tab, chromedp.Navigate(startURL)); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to open %s: %w", startURL, err)
		}
	}

	return NewBrowserPage(tab, alternateInjection), cancel, nil
}
