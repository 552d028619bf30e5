package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// DefaultRenderTimeout bounds one headless render.
const DefaultRenderTimeout = 45 * time.Second

// scrollScript scrolls to the bottom so lazy-loaded inventory cards and images render.
const scrollScript = `window.scrollTo(0, document.body.scrollHeight); true`

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
// Most dealer inventory pages build their listing grid client-side, so a plain
// HTTP fetch sees an empty shell. settle is the pause after the first paint.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url string, timeout, settle time.Duration, log zerolog.Logger) (string, error) {
	log.Debug().Str("url", url).Msg("starting headless browser")

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	var scrolled bool
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		chromedp.Evaluate(scrollScript, &scrolled),
		chromedp.Sleep(settle/2),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	log.Debug().Str("url", url).Int("bytes", len(html)).Msg("rendered page")
	return html, nil
}

// Render loads url either over HTTP or through the headless browser and returns the HTML.
func Render(ctx context.Context, url string, useBrowser bool, settle time.Duration, opts *Options, log zerolog.Logger) (string, error) {
	if useBrowser {
		return WithBrowser(ctx, url, DefaultRenderTimeout, settle, log)
	}
	res, err := URL(ctx, url, opts)
	if err != nil {
		return "", err
	}
	if res.HTML == "" {
		return "", &Error{URL: url, Message: fmt.Sprintf("empty body (content type %q)", res.ContentType)}
	}
	return res.HTML, nil
}
