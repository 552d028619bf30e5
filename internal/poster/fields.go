package poster

import (
	"strconv"

	"github.com/jonathan/inventory-poster/internal/types"
)

// Field is one logical input of the create-listing form. Keywords are matched
// case-insensitively against placeholders and label text.
type Field struct {
	Name     string
	Keywords []string
	value    func(v *types.Vehicle, location string) string
}

// Fields is the fill order.
var Fields = []Field{
	{Name: "title", Keywords: []string{"title"}, value: func(v *types.Vehicle, _ string) string {
		title := v.DisplayTitle()
		if v.Trim != nil && *v.Trim != "" {
			title += " " + *v.Trim
		}
		return title
	}},
	{Name: "price", Keywords: []string{"price"}, value: func(v *types.Vehicle, _ string) string {
		if v.Price == nil {
			return ""
		}
		return formatPrice(*v.Price)
	}},
	{Name: "mileage", Keywords: []string{"mileage", "odometer"}, value: func(v *types.Vehicle, _ string) string {
		if v.Mileage == nil {
			return ""
		}
		return strconv.Itoa(*v.Mileage)
	}},
	{Name: "vin", Keywords: []string{"vin", "vehicle identification number"}, value: func(v *types.Vehicle, _ string) string {
		return v.VINValue()
	}},
	{Name: "description", Keywords: []string{"description"}, value: func(v *types.Vehicle, _ string) string {
		return v.Description
	}},
	{Name: "location", Keywords: []string{"location"}, value: func(_ *types.Vehicle, location string) string {
		return location
	}},
}

// formatPrice renders minor units as whole currency units, rounding half up.
func formatPrice(cents int64) string {
	return strconv.FormatInt((cents+50)/100, 10)
}
