package render

import (
	"fmt"
	"strings"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/ooxml"
)

var defaultNormalFont = models.FontDefinition{
	Family: "Calibri",
	SizePt: 11,
	Weight: "normal",
	Color:  "#000000",
}

// buildStyles emits document defaults, Normal and Heading1..6, each
// heading based on Normal with bold forced.
func buildStyles(theme models.VisualTheme) *ooxml.WStyles {
	normal := normalFont(theme)

	styles := ooxml.NewWStyles()
	styles.DocDefaults = &ooxml.WDocDefaults{
		RunDefault: ooxml.WRPrDefault{
			RunProps: &ooxml.WRunProps{
				Fonts: &ooxml.WFonts{ASCII: normal.Family, HAnsi: normal.Family},
				Size:  &ooxml.WVal{Val: ooxml.FormatHalfPoints(normal.SizePt)},
			},
		},
	}

	styles.Styles = append(styles.Styles, ooxml.WStyle{
		Type:     "paragraph",
		StyleID:  "Normal",
		Name:     &ooxml.WVal{Val: "Normal"},
		RunProps: runProps(normal, false),
	})

	for level := 1; level <= maxHeadingLevel; level++ {
		font := headingFont(theme, level)
		styles.Styles = append(styles.Styles, ooxml.WStyle{
			Type:     "paragraph",
			StyleID:  fmt.Sprintf("Heading%d", level),
			Name:     &ooxml.WVal{Val: fmt.Sprintf("heading %d", level)},
			BasedOn:  &ooxml.WVal{Val: "Normal"},
			RunProps: runProps(font, true),
		})
	}
	return styles
}

func normalFont(theme models.VisualTheme) models.FontDefinition {
	if font, ok := theme.FontLookup("Normal"); ok {
		return fillFontDefaults(font)
	}
	return defaultNormalFont
}

// headingFont resolves heading N's font: "heading N" entry, then
// Title, then Normal, then a sized Calibri default.
func headingFont(theme models.VisualTheme, level int) models.FontDefinition {
	if font, ok := theme.FontLookup(fmt.Sprintf("heading %d", level)); ok {
		return fillFontDefaults(font)
	}
	if font, ok := theme.FontLookup("Title"); ok {
		return fillFontDefaults(font)
	}
	if font, ok := theme.FontLookup("Normal"); ok {
		return fillFontDefaults(font)
	}
	size := float64(22 - 2*level)
	if size < 14 {
		size = 14
	}
	return models.FontDefinition{Family: "Calibri", SizePt: size, Weight: "bold", Color: "#000000"}
}

func fillFontDefaults(font models.FontDefinition) models.FontDefinition {
	if font.Family == "" {
		font.Family = defaultNormalFont.Family
	}
	if font.SizePt <= 0 {
		font.SizePt = defaultNormalFont.SizePt
	}
	return font
}

// runProps builds style run properties in valid OOXML element order.
func runProps(font models.FontDefinition, forceBold bool) *ooxml.WRunProps {
	props := &ooxml.WRunProps{
		Fonts:  &ooxml.WFonts{ASCII: font.Family, HAnsi: font.Family},
		Size:   &ooxml.WVal{Val: ooxml.FormatHalfPoints(font.SizePt)},
		SizeCs: &ooxml.WVal{Val: ooxml.FormatHalfPoints(font.SizePt)},
		Color:  &ooxml.WVal{Val: NormalizeColor(font.Color)},
	}
	if forceBold || strings.EqualFold(font.Weight, "bold") {
		props.Bold = &ooxml.WEmpty{}
	}
	return props
}

// NormalizeColor maps a color string to a six-digit uppercase hex value.
// Three-digit hex expands by doubling each nibble; anything that is
// not valid hex becomes 000000.
func NormalizeColor(color string) string {
	color = strings.TrimPrefix(strings.TrimSpace(color), "#")

	if len(color) == 3 && isHex(color) {
		var sb strings.Builder
		for _, r := range color {
			sb.WriteRune(r)
			sb.WriteRune(r)
		}
		color = sb.String()
	}
	if len(color) == 6 && isHex(color) {
		return strings.ToUpper(color)
	}
	return "000000"
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
