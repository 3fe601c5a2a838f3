package output

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme defines the colors used for different elements in the output.
type ColorScheme struct {
	Success   *color.Color
	Error     *color.Color
	Warn      *color.Color
	Key       *color.Color
	Value     *color.Color
	Muted     *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Success:   color.New(color.FgGreen),
		Error:     color.New(color.FgRed, color.Bold),
		Warn:      color.New(color.FgYellow),
		Key:       color.New(color.FgBlue),
		Value:     color.New(color.FgWhite),
		Muted:     color.New(color.FgHiBlack),
		Highlight: color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range []*color.Color{
		scheme.Success, scheme.Error, scheme.Warn, scheme.Key,
		scheme.Value, scheme.Muted, scheme.Highlight,
	} {
		c.DisableColor()
	}
	return scheme
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// UseColor decides whether output to f should be colored.
func UseColor(noColor bool, f *os.File) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(f)
}
