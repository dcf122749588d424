package utils

import (
	"fmt"
	"strings"
)

// DefaultHighlightColor is applied when a highlight request carries no
// color or one that cannot be parsed.
const DefaultHighlightColor = "#FFFF00"

// NormalizeHighlightColor canonicalizes a user-supplied highlight color
// to uppercase #RRGGBB form. Accepted inputs are #RGB, #RRGGBB and
// #AARRGGBB (the alpha channel is dropped); anything else falls back to
// the default yellow.
func NormalizeHighlightColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return DefaultHighlightColor
	}
	hex := strings.ToUpper(strings.TrimPrefix(color, "#"))
	if !isHex(hex) {
		return DefaultHighlightColor
	}

	switch len(hex) {
	case 3:
		return fmt.Sprintf("#%c%c%c%c%c%c", hex[0], hex[0], hex[1], hex[1], hex[2], hex[2])
	case 6:
		return "#" + hex
	case 8:
		return "#" + hex[2:]
	default:
		return DefaultHighlightColor
	}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
