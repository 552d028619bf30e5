package scraper

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/jonathan/inventory-poster/internal/dom"
	"github.com/jonathan/inventory-poster/internal/normalize"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/rs/zerolog"
)

// imageAttrs are checked in order; lazy loaders keep the real URL in data-* attributes.
var imageAttrs = []string{"data-src", "data-lazy-src", "data-original", "src"}

// amountPattern finds dollar amounts; when a card lists several (MSRP, discounts,
// sale price) the last one is the asking price.
var amountPattern = regexp.MustCompile(`\$\s*\d[\d,]*(?:\.\d{1,2})?`)

// Batch is the result of one scrape pass, sent to ingest as a single message.
type Batch struct {
	Source   string          `json:"source"`
	Vehicles []types.Vehicle `json:"vehicles"`
	Cards    int             `json:"-"` // listing cards found on the page
	Dropped  int             `json:"-"` // cards that failed the make/model gate
	Attempts int             `json:"-"`
}

// Scraper extracts vehicles from pages laid out like its Source.
type Scraper struct {
	source Source
	log    zerolog.Logger
}

// New creates a Scraper for one source.
func New(source Source, log zerolog.Logger) *Scraper {
	return &Scraper{
		source: source,
		log:    log.With().Str("source", source.Name).Logger(),
	}
}

// Source returns the selector set the scraper uses.
func (s *Scraper) Source() Source {
	return s.source
}

// Scrape reads every listing card on page. It only reads from the page, so
// repeated passes over an unchanged page yield equal batches.
func (s *Scraper) Scrape(ctx context.Context, page dom.Page) (*Batch, error) {
	batch := &Batch{Source: s.source.Name, Vehicles: []types.Vehicle{}}

	cards, selector, err := s.findCards(ctx, page)
	if err != nil {
		return nil, &ScrapeError{Source: s.source.Name, Message: "failed to query listing cards", Cause: err}
	}
	if len(cards) == 0 {
		s.log.Info().Msg("no listing cards on page")
		return batch, nil
	}
	batch.Cards = len(cards)

	pageURL, err := page.URL(ctx)
	if err != nil {
		return nil, &ScrapeError{Source: s.source.Name, Message: "failed to read page URL", Cause: err}
	}
	base, _ := url.Parse(pageURL)

	s.log.Debug().Str("selector", selector).Int("cards", len(cards)).Msg("matched listing cards")

	for i, card := range cards {
		raw, err := s.extract(ctx, page, card, base)
		if err != nil {
			return nil, &ScrapeError{Source: s.source.Name, Message: "failed to read listing card", Cause: err}
		}

		v, err := normalize.Record(raw)
		if err != nil {
			var vErr *normalize.ValidationError
			if errors.As(err, &vErr) {
				batch.Dropped++
				s.log.Info().Int("card", i).Str("title", raw.Title).Str("reason", vErr.Message).Msg("dropped listing card")
				continue
			}
			return nil, err
		}
		v.Source = s.source.Name
		batch.Vehicles = append(batch.Vehicles, *v)
	}

	s.log.Info().Int("vehicles", len(batch.Vehicles)).Int("dropped", batch.Dropped).Msg("scraped page")
	return batch, nil
}

// findCards returns the matches of the first card selector that matches anything.
// Results of different selectors are never merged.
func (s *Scraper) findCards(ctx context.Context, page dom.Page) ([]dom.Element, string, error) {
	for _, selector := range s.source.CardSelectors {
		cards, err := page.QueryAll(ctx, nil, selector)
		if err != nil {
			return nil, "", err
		}
		if len(cards) > 0 {
			return cards, selector, nil
		}
	}
	return nil, "", nil
}

func (s *Scraper) extract(ctx context.Context, page dom.Page, card dom.Element, base *url.URL) (types.RawListingRecord, error) {
	var raw types.RawListingRecord
	var err error

	if raw.Title, err = s.textOf(ctx, page, card, s.source.TitleSelectors, "data-title"); err != nil {
		return raw, err
	}
	if raw.PriceText, err = s.textOf(ctx, page, card, s.source.PriceSelectors, "data-price"); err != nil {
		return raw, err
	}
	if amounts := amountPattern.FindAllString(raw.PriceText, -1); len(amounts) > 1 {
		raw.PriceText = amounts[len(amounts)-1]
	}
	if raw.MileageText, err = s.textOf(ctx, page, card, s.source.MileageSelectors, "data-mileage"); err != nil {
		return raw, err
	}
	if raw.ExteriorColorText, err = s.textOf(ctx, page, card, s.source.ColorSelectors, "data-exterior-color"); err != nil {
		return raw, err
	}
	if raw.DescriptionText, err = s.textOf(ctx, page, card, s.source.DescSelectors, ""); err != nil {
		return raw, err
	}
	if raw.VINText, err = s.vinOf(ctx, page, card); err != nil {
		return raw, err
	}
	if raw.ImageURLs, err = s.imagesOf(ctx, page, card, base); err != nil {
		return raw, err
	}

	return raw, nil
}

// textOf reads the first matching sub-element, falling back to an attribute on the card.
func (s *Scraper) textOf(ctx context.Context, page dom.Page, card dom.Element, selectors []string, fallbackAttr string) (string, error) {
	el, err := page.QueryFirst(ctx, card, selectors...)
	if err != nil {
		return "", err
	}
	if el != nil {
		text, err := page.ReadText(ctx, el)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	if fallbackAttr == "" {
		return "", nil
	}
	v, _, err := page.Attr(ctx, card, fallbackAttr)
	return strings.TrimSpace(v), err
}

// vinOf takes the first VIN-shaped token in the card text, then the card's
// data-vin attribute, then a labeled VIN sub-element.
func (s *Scraper) vinOf(ctx context.Context, page dom.Page, card dom.Element) (string, error) {
	text, err := page.ReadText(ctx, card)
	if err != nil {
		return "", err
	}
	if vin := normalize.FindVIN(text); vin != "" {
		return vin, nil
	}

	if v, ok, err := page.Attr(ctx, card, "data-vin"); err != nil {
		return "", err
	} else if ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}

	labeled, err := s.textOf(ctx, page, card, s.source.VINSelectors, "")
	if err != nil {
		return "", err
	}
	if vin := normalize.FindVIN(labeled); vin != "" {
		return vin, nil
	}
	return strings.TrimSpace(strings.TrimPrefix(labeled, "VIN:")), nil
}

func (s *Scraper) imagesOf(ctx context.Context, page dom.Page, card dom.Element, base *url.URL) ([]string, error) {
	imgs, err := page.QueryAll(ctx, card, "img")
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(imgs))
	for _, img := range imgs {
		src, err := imageSource(ctx, page, img)
		if err != nil {
			return nil, err
		}
		if src == "" {
			continue
		}
		urls = append(urls, resolve(base, src))
	}
	return normalize.Images(urls), nil
}

func imageSource(ctx context.Context, page dom.Page, img dom.Element) (string, error) {
	for _, attr := range imageAttrs {
		v, ok, err := page.Attr(ctx, img, attr)
		if err != nil {
			return "", err
		}
		v = strings.TrimSpace(v)
		if ok && v != "" && !strings.HasPrefix(v, "data:") {
			return v, nil
		}
	}
	return "", nil
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
