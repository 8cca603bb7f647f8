package proptype

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
)

var colorFunctions = []string{"rgb(", "rgba(", "hsl(", "hsla("}

// parseColor accepts hex (#rgb, #rrggbb), CSS colour functions and W3C colour
// names. The canonical form is the trimmed, lower-cased input.
func parseColor(raw string, _ any) (any, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return nil, fmt.Errorf("%w: empty color", ErrInvalidValue)
	case strings.HasPrefix(s, "#"):
		if _, err := colorful.Hex(s); err != nil {
			return nil, fmt.Errorf("%w: %q is not a hex color", ErrInvalidValue, raw)
		}
		return s, nil
	case s == "transparent":
		return s, nil
	}
	for _, fn := range colorFunctions {
		if strings.HasPrefix(s, fn) && strings.HasSuffix(s, ")") {
			return s, nil
		}
	}
	if _, ok := tcell.ColorNames[s]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q is not a known color", ErrInvalidValue, raw)
}

// ColorHex resolves a colour value to #rrggbb. Colour functions are not
// resolved and report false.
func ColorHex(value string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(value))
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return "", false
		}
		return c.Hex(), true
	}
	if c, ok := tcell.ColorNames[s]; ok {
		return fmt.Sprintf("#%06x", c.Hex()), true
	}
	return "", false
}
