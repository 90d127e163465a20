package publisher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Notification is the payload of the Add service's periodic signal.
type Notification struct {
	Color string
}

// RGB is a color with components in [0,1).
type RGB struct {
	R, G, B float32
}

// String renders the color in the wire format "RGB(r, g, b)", each component
// in its shortest decimal form.
func (c RGB) String() string {
	var sb strings.Builder
	sb.WriteString("RGB(")
	sb.WriteString(formatComponent(c.R))
	sb.WriteString(", ")
	sb.WriteString(formatComponent(c.G))
	sb.WriteString(", ")
	sb.WriteString(formatComponent(c.B))
	sb.WriteString(")")
	return sb.String()
}

func formatComponent(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

var componentPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseColor extracts the three components from an "RGB(r, g, b)" string.
func ParseColor(s string) (RGB, error) {
	if !strings.HasPrefix(s, "RGB(") || !strings.HasSuffix(s, ")") {
		return RGB{}, fmt.Errorf("invalid RGB format: %q", s)
	}

	matches := componentPattern.FindAllString(s, -1)
	if len(matches) != 3 {
		return RGB{}, fmt.Errorf("invalid RGB format: %q has %d components", s, len(matches))
	}

	var parts [3]float32
	for i, m := range matches {
		f, err := strconv.ParseFloat(m, 32)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid RGB component %q: %w", m, err)
		}
		parts[i] = float32(f)
	}
	return RGB{R: parts[0], G: parts[1], B: parts[2]}, nil
}
