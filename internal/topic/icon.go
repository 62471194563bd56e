package topic

import (
	"encoding/json"
	"fmt"
)

// Icon is the enumerated set of topic icons understood by clients.
type Icon string

const (
	IconCircle   Icon = "circle"
	IconTriangle Icon = "triangle"
	IconBarChart Icon = "barchart"
	IconPercent  Icon = "percent"
	IconDivide   Icon = "divide"
	IconTrending Icon = "trending"
	IconVariable Icon = "variable"
	IconDecimal  Icon = "decimal"
	IconAngle    Icon = "angle"
	IconSets     Icon = "sets"
	IconRatio    Icon = "ratio"
	IconDocument Icon = "document"

	IconDefault = IconDocument
)

var iconGlyphs = map[Icon]string{
	IconCircle:   "⭕",
	IconTriangle: "📐",
	IconBarChart: "📊",
	IconPercent:  "%",
	IconDivide:   "➗",
	IconTrending: "📈",
	IconVariable: "x",
	IconDecimal:  "•",
	IconAngle:    "∠",
	IconSets:     "∩",
	IconRatio:    ":",
	IconDocument: "📄",
}

// ParseIcon resolves a tag or a display glyph to an Icon. Empty input maps to IconDefault.
func ParseIcon(raw string) (Icon, error) {
	if raw == "" {
		return IconDefault, nil
	}
	if _, ok := iconGlyphs[Icon(raw)]; ok {
		return Icon(raw), nil
	}
	for icon, glyph := range iconGlyphs {
		if glyph == raw {
			return icon, nil
		}
	}
	return "", fmt.Errorf("unknown icon %q", raw)
}

// Known reports whether the icon is in the table.
func (i Icon) Known() bool {
	_, ok := iconGlyphs[i]
	return ok
}

// Glyph returns the display glyph, falling back to the default icon's glyph.
func (i Icon) Glyph() string {
	if g, ok := iconGlyphs[i]; ok {
		return g
	}
	return iconGlyphs[IconDefault]
}

// UnmarshalJSON accepts tags and glyphs. Unknown values are kept verbatim so
// validation can report them against the icon field.
func (i *Icon) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseIcon(raw)
	if err != nil {
		*i = Icon(raw)
		return nil
	}
	*i = parsed
	return nil
}
