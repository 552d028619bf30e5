package normalize

import (
	"math"
	"strconv"
	"strings"
)

// maxParsedValue bounds prices and mileages. Larger values come from text
// that ran several numbers together and would overflow the integer forms.
const maxParsedValue = 1e12

// ToNumber strips every character that is not a digit or a decimal point and
// parses the remainder. A point counts only when a digit follows it, so
// "approx. 32,150" and "12,000." keep their integer value while ".5" stays
// fractional. It returns nil for empty input, input without digits, or a
// remainder that does not parse ("1.2.3").
func ToNumber(raw string) *float64 {
	var b strings.Builder
	runes := []rune(raw)
	for i, r := range runes {
		switch {
		case isDigit(r):
			b.WriteRune(r)
		case r == '.' && i+1 < len(runes) && isDigit(runes[i+1]):
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &n
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// PriceMinorUnits parses display price text ("$24,995") into cents.
func PriceMinorUnits(raw string) *int64 {
	n := ToNumber(raw)
	if n == nil || *n > maxParsedValue {
		return nil
	}
	cents := int64(math.Round(*n * 100))
	return &cents
}

// Mileage parses odometer text ("32,150 mi") into whole miles.
func Mileage(raw string) *int {
	n := ToNumber(raw)
	if n == nil || *n > maxParsedValue {
		return nil
	}
	miles := int(math.Round(*n))
	return &miles
}
