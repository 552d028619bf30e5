package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/inventory-poster/internal/normalize"
	"github.com/jonathan/inventory-poster/internal/types"
)

// Payload is one vehicle as it arrives over the relay. Numeric fields may be
// JSON numbers or display strings; both are re-parsed before use.
// A numeric price is already in minor units; a string price is display text.
type Payload struct {
	Year          any      `json:"year,omitempty"`
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	Trim          *string  `json:"trim,omitempty"`
	VIN           *string  `json:"vin,omitempty"`
	Price         any      `json:"price,omitempty"`
	Mileage       any      `json:"mileage,omitempty"`
	ExteriorColor string   `json:"exterior_color,omitempty"`
	InteriorColor string   `json:"interior_color,omitempty"`
	Images        []string `json:"images,omitempty"`
	Description   string   `json:"description,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// PayloadFromVehicle converts a scraped vehicle into its wire payload.
func PayloadFromVehicle(v types.Vehicle) Payload {
	p := Payload{
		Make:          v.Make,
		Model:         v.Model,
		Trim:          v.Trim,
		VIN:           v.VIN,
		ExteriorColor: string(v.ExteriorColor),
		InteriorColor: string(v.InteriorColor),
		Images:        v.Images,
		Description:   v.Description,
		Source:        v.Source,
	}
	if v.Year != nil {
		p.Year = *v.Year
	}
	if v.Price != nil {
		p.Price = *v.Price
	}
	if v.Mileage != nil {
		p.Mileage = *v.Mileage
	}
	return p
}

// coerce re-parses every field of a payload into a canonical vehicle.
// The returned vehicle has no identity, owner or timestamps yet.
func coerce(p Payload) (*types.Vehicle, error) {
	v := &types.Vehicle{
		Make:               strings.TrimSpace(p.Make),
		Model:              strings.TrimSpace(p.Model),
		Trim:               trimmed(p.Trim),
		ExteriorColor:      normalize.StandardizeExteriorColor(p.ExteriorColor),
		InteriorColor:      normalize.StandardizeInteriorColor(p.InteriorColor),
		Images:             normalize.Images(p.Images),
		Description:        strings.TrimSpace(p.Description),
		Source:             strings.TrimSpace(p.Source),
		Status:             types.StatusAvailable,
		FacebookPostStatus: types.PostStatusDraft,
	}

	if raw := trimmed(p.VIN); raw != nil {
		vin := normalize.VIN(*raw)
		if vin == nil {
			if err := normalize.ValidateVIN(*raw); err != nil {
				return nil, err
			}
			return nil, &normalize.ValidationError{Field: "vin", Message: "VIN contains characters outside the VIN alphabet"}
		}
		v.VIN = vin
	}

	year, err := number(p.Year)
	if err != nil {
		return nil, &normalize.ValidationError{Field: "year", Message: err.Error()}
	}
	if year != nil {
		y := int(math.Round(*year))
		if normalize.ValidModelYear(y) {
			v.Year = &y
		}
	}

	switch raw := p.Price.(type) {
	case string:
		v.Price = normalize.PriceMinorUnits(raw)
	default:
		n, err := number(raw)
		if err != nil {
			return nil, &normalize.ValidationError{Field: "price", Message: err.Error()}
		}
		if n != nil {
			cents := int64(math.Round(*n))
			v.Price = &cents
		}
	}

	miles, err := number(p.Mileage)
	if err != nil {
		return nil, &normalize.ValidationError{Field: "mileage", Message: err.Error()}
	}
	if miles != nil {
		m := int(math.Round(*miles))
		v.Mileage = &m
	}

	return v, nil
}

// number accepts the shapes a decoded JSON value or a Go caller may carry.
func number(raw any) (*float64, error) {
	var f float64
	switch n := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return normalize.ToNumber(n), nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", n.String())
		}
		f = parsed
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("not a finite number")
	}
	return &f, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
