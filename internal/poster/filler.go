// Package poster drives the marketplace create-listing form, one vehicle at a time.
//
// Image upload is not automated. The filler populates text fields only and
// leaves photos as a manual step on the open form.
package poster

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/inventory-poster/internal/config"
	"github.com/jonathan/inventory-poster/internal/dom"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/rs/zerolog"
)

// CreateListingPath must appear in the page URL before anything is filled.
const CreateListingPath = "/marketplace/create"

const (
	placeholderInputs = "input[placeholder], textarea[placeholder]"
	labelElements     = "label"
)

// SkippedField is a field that was left untouched, with the reason.
type SkippedField struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// FillReport lists what one fill populated and what it skipped.
type FillReport struct {
	VehicleID string         `json:"vehicle_id"`
	Filled    []string       `json:"filled"`
	Skipped   []SkippedField `json:"skipped"`
}

// FormFiller populates the create-listing form on one page.
type FormFiller struct {
	page     dom.Page
	origin   string
	location string
	settle   time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      zerolog.Logger
}

// NewFormFiller creates a filler for page. settle is awaited after every field that is set.
func NewFormFiller(page dom.Page, settings config.Settings, location string, settle time.Duration, log zerolog.Logger) *FormFiller {
	return &FormFiller{
		page:     page,
		origin:   settings.MarketplaceOrigin(),
		location: location,
		settle:   settle,
		sleep:    sleepContext,
		log:      log,
	}
}

// PostVehicle checks the page context and fills every field it can resolve.
// Unresolved fields are skipped; the fill fails only when nothing was filled.
func (f *FormFiller) PostVehicle(ctx context.Context, v types.Vehicle) (*FillReport, error) {
	if err := f.checkTarget(ctx); err != nil {
		return nil, err
	}

	report := &FillReport{VehicleID: v.ID.String(), Filled: []string{}, Skipped: []SkippedField{}}
	log := f.log.With().Str("vehicle_id", report.VehicleID).Logger()

	for _, field := range Fields {
		value := field.value(&v, f.location)
		if value == "" {
			report.Skipped = append(report.Skipped, SkippedField{Field: field.Name, Reason: "no value"})
			continue
		}

		el, err := f.resolve(ctx, field)
		if err != nil {
			log.Warn().Err(err).Str("field", field.Name).Msg("field lookup failed")
			report.Skipped = append(report.Skipped, SkippedField{Field: field.Name, Reason: err.Error()})
			continue
		}
		if el == nil {
			log.Info().Str("field", field.Name).Msg("field not found on page, skipping")
			report.Skipped = append(report.Skipped, SkippedField{Field: field.Name, Reason: "input not found"})
			continue
		}

		if err := f.page.SetValue(ctx, el, value); err != nil {
			log.Warn().Err(err).Str("field", field.Name).Msg("set value failed")
			report.Skipped = append(report.Skipped, SkippedField{Field: field.Name, Reason: err.Error()})
			continue
		}
		report.Filled = append(report.Filled, field.Name)

		if err := f.sleep(ctx, f.settle); err != nil {
			return report, err
		}
	}

	if len(report.Filled) == 0 {
		return report, fmt.Errorf("vehicle %s: %w", report.VehicleID, ErrNothingFilled)
	}
	log.Info().Strs("filled", report.Filled).Int("skipped", len(report.Skipped)).Msg("form filled")
	return report, nil
}

// checkTarget verifies the page is the create-listing form under the configured origin.
func (f *FormFiller) checkTarget(ctx context.Context) error {
	expected := f.origin + CreateListingPath
	current, err := f.page.URL(ctx)
	if err != nil {
		return &TargetContextError{URL: "(unavailable: " + err.Error() + ")", Expected: expected}
	}

	u, err := url.Parse(current)
	if err != nil {
		return &TargetContextError{URL: current, Expected: expected}
	}
	origin, err := url.Parse(f.origin)
	if err != nil || !strings.EqualFold(u.Host, origin.Host) || !strings.Contains(u.Path, CreateListingPath) {
		return &TargetContextError{URL: current, Expected: expected}
	}
	return nil
}

// resolve finds the input for field: placeholder first, then label by for=,
// then an input nested in the label. nil, nil means no input was found.
func (f *FormFiller) resolve(ctx context.Context, field Field) (dom.Element, error) {
	inputs, err := f.page.QueryAll(ctx, nil, placeholderInputs)
	if err != nil {
		return nil, err
	}
	for _, el := range inputs {
		placeholder, _, err := f.page.Attr(ctx, el, "placeholder")
		if err != nil {
			return nil, err
		}
		if matches(placeholder, field.Keywords) {
			return el, nil
		}
	}

	labels, err := f.page.QueryAll(ctx, nil, labelElements)
	if err != nil {
		return nil, err
	}
	for _, label := range labels {
		text, err := f.page.ReadText(ctx, label)
		if err != nil {
			return nil, err
		}
		if !matches(text, field.Keywords) {
			continue
		}

		if id, ok, err := f.page.Attr(ctx, label, "for"); err != nil {
			return nil, err
		} else if ok && id != "" {
			el, err := f.page.QueryFirst(ctx, nil, dom.AttrSelector("id", id))
			if err != nil {
				return nil, err
			}
			if el != nil {
				return el, nil
			}
		}

		el, err := f.page.QueryFirst(ctx, label, "input", "textarea")
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, nil
}

// matches reports whether text equals a keyword or contains it as a whole word.
func matches(text string, keywords []string) bool {
	text = strings.ToLower(dom.CollapseWhitespace(text))
	if text == "" {
		return false
	}
	for _, kw := range keywords {
		if text == kw {
			return true
		}
		for _, word := range strings.FieldsFunc(text, notWordRune) {
			if word == kw {
				return true
			}
		}
		if strings.Contains(kw, " ") && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func notWordRune(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
