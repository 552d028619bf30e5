package normalize

import (
	"strconv"
	"strings"

	"github.com/jonathan/inventory-poster/internal/types"
)

// Record turns a scraped listing card into a canonical vehicle. It returns a
// *ValidationError when the title heuristic cannot produce both make and model.
// Ownership, identity and timestamps are left for the ingest service to assign.
func Record(raw types.RawListingRecord) (*types.Vehicle, error) {
	parts, ok := ParseTitle(raw.Title)
	if !ok {
		return nil, &ValidationError{
			Field:   "title",
			Message: "could not extract year, make and model from " + strconv.Quote(raw.Title),
		}
	}

	v := &types.Vehicle{
		Year:               &parts.Year,
		Make:               parts.Make,
		Model:              parts.Model,
		VIN:                VIN(raw.VINText),
		Price:              PriceMinorUnits(raw.PriceText),
		Mileage:            Mileage(raw.MileageText),
		ExteriorColor:      StandardizeExteriorColor(raw.ExteriorColorText),
		InteriorColor:      StandardizeInteriorColor(""),
		Images:             Images(raw.ImageURLs),
		Description:        strings.TrimSpace(raw.DescriptionText),
		Status:             types.StatusAvailable,
		FacebookPostStatus: types.PostStatusDraft,
	}
	return v, nil
}

// Images drops blanks and duplicates and caps the list at types.MaxImages, keeping order.
func Images(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, min(len(urls), types.MaxImages))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == types.MaxImages {
			break
		}
	}
	return out
}
