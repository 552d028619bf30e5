package scraper

import (
	"github.com/jonathan/inventory-poster/internal/fetch"
)

// Source describes how listing cards are laid out on one family of dealer sites.
// Every selector list is tried in order; the first selector that matches wins.
type Source struct {
	Name             string
	CardSelectors    []string
	TitleSelectors   []string
	PriceSelectors   []string
	MileageSelectors []string
	VINSelectors     []string
	ColorSelectors   []string
	DescSelectors    []string
}

// commonCardSelectors cover the markup most independent dealer sites use.
var commonCardSelectors = []string{
	".vehicle-card",
	".inventory-listing",
	".vehicle-item",
	".srp-list-item",
	"li.inventory-item",
	"article.vehicle",
	"[data-vin]",
}

var genericSource = Source{
	Name:             string(fetch.PlatformGeneric),
	CardSelectors:    commonCardSelectors,
	TitleSelectors:   []string{".vehicle-title", ".title", "h2", "h3", "h4", "a[title]"},
	PriceSelectors:   []string{".price", ".vehicle-price", ".final-price", "[data-price]", ".pricing"},
	MileageSelectors: []string{".mileage", ".odometer", ".miles", "[data-mileage]"},
	VINSelectors:     []string{".vin", "[data-vin-label]", ".vehicle-vin"},
	ColorSelectors:   []string{".exterior-color", ".ext-color", ".color"},
	DescSelectors:    []string{".description", ".vehicle-description", ".highlights"},
}

var sources = map[string]Source{
	string(fetch.PlatformGeneric): genericSource,
	string(fetch.PlatformDealerOn): {
		Name:             string(fetch.PlatformDealerOn),
		CardSelectors:    append([]string{".vehicle-card.srp-vehicle-card", ".srpVehicle"}, commonCardSelectors...),
		TitleSelectors:   []string{".vehicle-title__text", ".vehicleTitle", "h2"},
		PriceSelectors:   []string{".vehiclePricingHighlightAmount", ".price-value", ".price"},
		MileageSelectors: []string{".vehicle-mileage", "[data-mileage]", ".mileage"},
		VINSelectors:     []string{".vin-value", ".vin"},
		ColorSelectors:   []string{".ext-color-value", ".exterior-color"},
		DescSelectors:    []string{".vehicle-description"},
	},
	string(fetch.PlatformDealerInspire): {
		Name:             string(fetch.PlatformDealerInspire),
		CardSelectors:    append([]string{".vehicle-card", ".result-wrap.new-vehicle", ".hit"}, commonCardSelectors...),
		TitleSelectors:   []string{".result-title", ".vehicle-title", "h3"},
		PriceSelectors:   []string{".price .value", ".pricing-item .price", ".price"},
		MileageSelectors: []string{".odometer", ".mileage"},
		VINSelectors:     []string{".vin"},
		ColorSelectors:   []string{".exterior-color", ".color"},
		DescSelectors:    []string{".description"},
	},
	string(fetch.PlatformDealerCom): {
		Name:             string(fetch.PlatformDealerCom),
		CardSelectors:    append([]string{"li.vehicle-card", ".ddc-vehicle-card", ".vehicle-card-details-container"}, commonCardSelectors...),
		TitleSelectors:   []string{".vehicle-card-title", "h2.title", "h2"},
		PriceSelectors:   []string{".price-value", ".final-price .value", ".price"},
		MileageSelectors: []string{".odometer", ".mileage"},
		VINSelectors:     []string{".vin", "li.vin"},
		ColorSelectors:   []string{".exteriorColor", ".exterior-color"},
		DescSelectors:    []string{".vehicle-card-description", ".description"},
	},
}

// LookupSource returns the selector set registered under name, or the generic set.
func LookupSource(name string) Source {
	if s, ok := sources[name]; ok {
		return s
	}
	return genericSource
}

// SourceForPage picks a selector set from the page URL and HTML.
func SourceForPage(pageURL, html string) Source {
	return LookupSource(string(fetch.DetectPlatform(pageURL, html)))
}
