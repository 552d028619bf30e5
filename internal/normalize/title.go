package normalize

import (
	"strconv"
	"strings"
)

const (
	minModelYear = 1981
	maxModelYear = 2099
)

// conditionPrefixes are dealer labels that commonly precede the model year in a card title.
var conditionPrefixes = map[string]bool{
	"new":       true,
	"used":      true,
	"certified": true,
	"pre-owned": true,
	"preowned":  true,
	"cpo":       true,
}

// TitleParts is the result of splitting a listing title into year, make and model.
type TitleParts struct {
	Year  int
	Make  string
	Model string
}

// ParseTitle applies the "YEAR MAKE MODEL..." heuristic. The first token (after
// an optional condition label such as "Used") must be a model year in
// [1981, 2099], the second token is the make and the remainder is the model.
// ok is false when the heuristic cannot populate year, make and model.
func ParseTitle(title string) (TitleParts, bool) {
	tokens := strings.Fields(title)
	for len(tokens) > 0 && conditionPrefixes[strings.ToLower(tokens[0])] {
		tokens = tokens[1:]
	}
	if len(tokens) < 3 {
		return TitleParts{}, false
	}

	year, err := strconv.Atoi(tokens[0])
	if err != nil || !ValidModelYear(year) {
		return TitleParts{}, false
	}

	return TitleParts{
		Year:  year,
		Make:  tokens[1],
		Model: strings.Join(tokens[2:], " "),
	}, true
}

// ValidModelYear reports whether year falls in the accepted model-year range.
func ValidModelYear(year int) bool {
	return year >= minModelYear && year <= maxModelYear
}
