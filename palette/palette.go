// Package palette resolves configured color strings: CSS/SVG color names
// and #rgb, #rrggbb or #rrggbbaa hex values.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrUnknownColor is returned for strings that are neither a name nor hex.
var ErrUnknownColor = errors.New("unknown color")

// Parse resolves s. Names are case-insensitive.
func Parse(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		return parseHex(hex)
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("%w %q", ErrUnknownColor, s)
}

// Or resolves s, falling back to def when s is empty or invalid.
func Or(s string, def color.RGBA) color.RGBA {
	if s == "" {
		return def
	}
	c, err := Parse(s)
	if err != nil {
		return def
	}
	return c
}

func parseHex(hex string) (color.RGBA, error) {
	switch len(hex) {
	case 3:
		// #abc is #aabbcc
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.RGBA{}, fmt.Errorf("%w #%s", ErrUnknownColor, hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w #%s", ErrUnknownColor, hex[:len(hex)-2])
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
