package normalize

import (
	"regexp"
	"strings"
)

// VINLength is the length of every modern (1981+) VIN.
const VINLength = 17

// vinPattern matches a 17-character VIN; I, O and Q never appear in VINs.
var vinPattern = regexp.MustCompile(`(?i)\b[A-HJ-NPR-Z0-9]{17}\b`)

// ValidateVIN checks the VIN length. It is applied before any decode request is made.
func ValidateVIN(vin string) error {
	vin = strings.TrimSpace(vin)
	if len(vin) != VINLength {
		return &ValidationError{
			Field:   "vin",
			Message: "VIN must be exactly 17 characters",
		}
	}
	return nil
}

// FindVIN returns the first VIN-shaped token in text, upper-cased, or "".
func FindVIN(text string) string {
	return strings.ToUpper(vinPattern.FindString(text))
}

// VIN normalizes a VIN candidate and returns nil unless it is a well-formed VIN.
func VIN(raw string) *string {
	candidate := strings.ToUpper(strings.TrimSpace(raw))
	if len(candidate) != VINLength || FindVIN(candidate) != candidate {
		return nil
	}
	return &candidate
}
