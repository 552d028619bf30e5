// Package describe produces listing descriptions for vehicles that arrive without one.
package describe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/inventory-poster/internal/types"
)

// Describer writes a marketplace description for a vehicle.
type Describer interface {
	Describe(ctx context.Context, v *types.Vehicle) (string, error)
}

// TemplateDescriber renders a deterministic description from the vehicle's own fields.
type TemplateDescriber struct{}

// Describe implements Describer.
func (TemplateDescriber) Describe(_ context.Context, v *types.Vehicle) (string, error) {
	if v == nil {
		return "", fmt.Errorf("vehicle is required")
	}
	return strings.Join(facts(v), "\n"), nil
}

// facts lists the known attributes of a vehicle, one line each, title first.
func facts(v *types.Vehicle) []string {
	title := v.DisplayTitle()
	if v.Trim != nil && *v.Trim != "" {
		title += " " + *v.Trim
	}
	lines := []string{title}

	if v.Mileage != nil {
		lines = append(lines, fmt.Sprintf("Mileage: %s miles", groupThousands(int64(*v.Mileage))))
	}
	if v.ExteriorColor != "" && v.ExteriorColor != types.ColorUnknown {
		lines = append(lines, fmt.Sprintf("Exterior: %s", v.ExteriorColor))
	}
	if v.InteriorColor != "" && v.InteriorColor != types.ColorUnknown {
		lines = append(lines, fmt.Sprintf("Interior: %s", v.InteriorColor))
	}
	if d := v.Decoding; d != nil && d.Success {
		for _, kv := range [][2]string{
			{"Body", d.BodyStyle},
			{"Engine", d.Engine},
			{"Transmission", d.Transmission},
			{"Drivetrain", d.Drivetrain},
			{"Fuel", d.FuelType},
		} {
			if kv[1] != "" {
				lines = append(lines, kv[0]+": "+kv[1])
			}
		}
	}
	if vin := v.VINValue(); vin != "" {
		lines = append(lines, "VIN: "+vin)
	}
	return lines
}

func groupThousands(n int64) string {
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
