package widgets

import (
	"fmt"
	"strings"
)

// StripSymbols selects the glyphs for an event strip.
type StripSymbols struct {
	Empty    rune
	Onset    rune
	Playhead rune
}

// RenderStrip draws one cycle as a fixed-width strip: a marker per onset
// (positions normalized 0-1) and a playhead on top. The playhead wins when
// both land in the same cell. A negative playhead hides it.
func RenderStrip(onsets []float64, playhead float64, width int, sym StripSymbols) string {
	if width <= 0 {
		return ""
	}
	cells := make([]rune, width)
	for i := range cells {
		cells[i] = sym.Empty
	}
	for _, pos := range onsets {
		idx := int(pos * float64(width))
		if idx >= 0 && idx < width {
			cells[idx] = sym.Onset
		}
	}
	if playhead >= 0 {
		idx := int(playhead * float64(width))
		if idx >= 0 && idx < width {
			cells[idx] = sym.Playhead
		}
	}
	return string(cells)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
