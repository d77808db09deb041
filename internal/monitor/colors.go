package monitor

import colorful "github.com/lucasb-eyer/go-colorful"

// ColorScheme holds the five colors generated once per session. The scheme
// is stable for the session's lifetime so a vehicle keeps its visual
// identity across order updates.
type ColorScheme struct {
	NodeStandard string `json:"nodeStandard"`
	NodeAction   string `json:"nodeAction"`
	EdgeStandard string `json:"edgeStandard"`
	EdgeAction   string `json:"edgeAction"`
	Robot        string `json:"robot"`
}

// Fixed render tints shared by every vehicle. The robot marker is always
// black so it stands out regardless of the generated scheme, and edge tints
// are uniform across the fleet.
const (
	robotNodeColor  = "#000"
	edgeActionTint  = "#1abc9c"
	edgeNeutralTint = "#bdc3c7"
)

// newColorScheme generates a fresh five-color palette.
func newColorScheme() ColorScheme {
	palette := colorful.FastHappyPalette(5)
	return ColorScheme{
		NodeStandard: palette[0].Hex(),
		NodeAction:   palette[1].Hex(),
		EdgeStandard: palette[2].Hex(),
		EdgeAction:   palette[3].Hex(),
		Robot:        palette[4].Hex(),
	}
}
