// Package colors provides the color styles of the machview output.
//
// Colors are disabled when stdout is not a terminal; fatih/color detects
// that on its own. Init overrides the detection from the --color flag.
package colors

import "github.com/fatih/color"

// Init overrides the auto-detected color setting. A nil forceColor keeps
// the detected value.
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

// -----------------------------------------------------------------------------
// Basic styles
// -----------------------------------------------------------------------------

func Bold() *color.Color  { return color.New(color.Bold) }
func Faint() *color.Color { return color.New(color.Faint) }

// -----------------------------------------------------------------------------
// Foreground colors
// -----------------------------------------------------------------------------

func Red() *color.Color     { return color.New(color.FgRed) }
func Green() *color.Color   { return color.New(color.FgGreen) }
func Yellow() *color.Color  { return color.New(color.FgYellow) }
func Blue() *color.Color    { return color.New(color.FgBlue) }
func Magenta() *color.Color { return color.New(color.FgMagenta) }
func Cyan() *color.Color    { return color.New(color.FgCyan) }

// -----------------------------------------------------------------------------
// Combinations
// -----------------------------------------------------------------------------

func BoldCyan() *color.Color     { return color.New(color.Bold, color.FgCyan) }
func BoldHiBlue() *color.Color   { return color.New(color.Bold, color.FgHiBlue) }
func BoldHiRed() *color.Color    { return color.New(color.Bold, color.FgHiRed) }
func FaintCyan() *color.Color    { return color.New(color.Faint, color.FgCyan) }
func FaintMagenta() *color.Color { return color.New(color.Faint, color.FgMagenta) }
func FaintYellow() *color.Color  { return color.New(color.Faint, color.FgYellow) }
