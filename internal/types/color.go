package types

// StandardColor is one value of the marketplace's fixed color vocabulary.
type StandardColor string

const (
	ColorBlack    StandardColor = "Black"
	ColorBlue     StandardColor = "Blue"
	ColorBrown    StandardColor = "Brown"
	ColorGold     StandardColor = "Gold"
	ColorGreen    StandardColor = "Green"
	ColorGray     StandardColor = "Gray"
	ColorPink     StandardColor = "Pink"
	ColorPurple   StandardColor = "Purple"
	ColorRed      StandardColor = "Red"
	ColorSilver   StandardColor = "Silver"
	ColorOrange   StandardColor = "Orange"
	ColorWhite    StandardColor = "White"
	ColorYellow   StandardColor = "Yellow"
	ColorCharcoal StandardColor = "Charcoal"
	ColorOffWhite StandardColor = "Off white"
	ColorTan      StandardColor = "Tan"
	ColorBeige    StandardColor = "Beige"
	ColorBurgundy StandardColor = "Burgundy"
	ColorUnknown  StandardColor = "Unknown"
)

// StandardColors lists the vocabulary in marketplace dropdown order, excluding Unknown.
var StandardColors = []StandardColor{
	ColorBlack, ColorBlue, ColorBrown, ColorGold, ColorGreen, ColorGray,
	ColorPink, ColorPurple, ColorRed, ColorSilver, ColorOrange, ColorWhite,
	ColorYellow, ColorCharcoal, ColorOffWhite, ColorTan, ColorBeige, ColorBurgundy,
}

// IsValid reports whether c is part of the vocabulary (Unknown included).
func (c StandardColor) IsValid() bool {
	if c == ColorUnknown {
		return true
	}
	for _, s := range StandardColors {
		if c == s {
			return true
		}
	}
	return false
}
