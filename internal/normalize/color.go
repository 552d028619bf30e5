package normalize

import (
	"strings"
	"unicode"

	"github.com/jonathan/inventory-poster/internal/types"
)

// colorKeyword maps a keyword to a standard color. An empty color marks an
// ambiguous finish word that defers to a base-color match.
type colorKeyword struct {
	keyword string
	color   types.StandardColor
}

// exteriorColorKeywords is scanned in order; the first keyword present in the
// input wins. Keywords match whole words, so "tan" never matches "Titan" or
// "Montana". Multi-word keywords and shades with their own vocabulary entry
// come first, then base colors, then descriptive words ("sand", "cream") that
// only decide the color when no base color is named.
var exteriorColorKeywords = []colorKeyword{
	{"metallic", ""},
	{"pearl", ""},
	{"tri coat", ""},
	{"tricoat", ""},
	{"clearcoat", ""},
	{"off white", types.ColorOffWhite},
	{"ivory", types.ColorOffWhite},
	{"charcoal", types.ColorCharcoal},
	{"gunmetal", types.ColorCharcoal},
	{"burgundy", types.ColorBurgundy},
	{"maroon", types.ColorBurgundy},
	{"beige", types.ColorBeige},
	{"champagne", types.ColorGold},
	{"black", types.ColorBlack},
	{"white", types.ColorWhite},
	{"silver", types.ColorSilver},
	{"gray", types.ColorGray},
	{"grey", types.ColorGray},
	{"blue", types.ColorBlue},
	{"red", types.ColorRed},
	{"green", types.ColorGreen},
	{"brown", types.ColorBrown},
	{"orange", types.ColorOrange},
	{"yellow", types.ColorYellow},
	{"gold", types.ColorGold},
	{"purple", types.ColorPurple},
	{"pink", types.ColorPink},
	{"tan", types.ColorTan},
	{"sand", types.ColorBeige},
	{"cream", types.ColorOffWhite},
	{"wine", types.ColorBurgundy},
	{"titanium", types.ColorSilver},
	{"platinum", types.ColorSilver},
	{"graphite", types.ColorGray},
	{"ebony", types.ColorBlack},
	{"onyx", types.ColorBlack},
	{"navy", types.ColorBlue},
	{"crimson", types.ColorRed},
	{"ruby", types.ColorRed},
	{"emerald", types.ColorGreen},
	{"bronze", types.ColorBrown},
	{"mocha", types.ColorBrown},
	{"copper", types.ColorOrange},
	{"tangerine", types.ColorOrange},
	{"violet", types.ColorPurple},
	{"plum", types.ColorPurple},
	{"rose", types.ColorPink},
}

// priorityColors is the second pass. Inputs are matched token by token against
// the dealer abbreviations of the most common base colors.
var priorityColors = []struct {
	color   types.StandardColor
	aliases []string
}{
	{types.ColorBlack, []string{"blk", "bk"}},
	{types.ColorWhite, []string{"wht", "wh"}},
	{types.ColorSilver, []string{"slv", "slvr", "sil"}},
	{types.ColorGray, []string{"gry", "gy"}},
	{types.ColorBlue, []string{"blu", "bl"}},
	{types.ColorRed, []string{"rd"}},
	{types.ColorGreen, []string{"grn", "gr"}},
}

// InteriorColor is the value every listing uses for interior color.
// Dealer pages rarely publish it reliably, so the marketplace form always gets the same answer.
const InteriorColor = types.ColorBlack

// StandardizeExteriorColor maps free-text paint names ("Pearl White Metallic",
// "BLK") onto the marketplace color vocabulary. It never fails; unrecognized
// input yields Unknown.
func StandardizeExteriorColor(raw string) types.StandardColor {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return types.ColorUnknown
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, kw := range exteriorColorKeywords {
		if kw.color == "" {
			continue
		}
		if containsWords(tokens, strings.Fields(kw.keyword)) {
			return kw.color
		}
	}

	for _, pc := range priorityColors {
		for _, tok := range tokens {
			for _, alias := range pc.aliases {
				if tok == alias {
					return pc.color
				}
			}
		}
	}

	return types.ColorUnknown
}

// containsWords reports whether words appears as a contiguous run in tokens.
func containsWords(tokens, words []string) bool {
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// StandardizeInteriorColor ignores its input and returns InteriorColor.
func StandardizeInteriorColor(_ string) types.StandardColor {
	return InteriorColor
}
