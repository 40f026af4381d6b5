package docx

import (
	"strconv"
	"strings"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/ooxml"
)

const (
	twipsToMM = 0.01764
	defaultMarginMM = 25.4 // 1 inch
	a4WidthMM  = 210.0
	a4HeightMM = 297.0
)

// extractTheme builds the VisualTheme from the styles part and the
// body's first section properties.
func extractTheme(doc *ooxml.Document, styles *ooxml.Styles) models.VisualTheme {
	theme := models.VisualTheme{
		FontMap:     make(map[string]models.FontDefinition),
		LayoutRules: defaultLayoutRules(),
	}

	var palette []models.PaletteColor
	seen := make(map[string]bool)
	paletteNames := []string{"primary", "secondary", "accent"}

	for _, st := range styles.ParagraphStyles() {
		def := models.FontDefinition{
			Family: defaultFontFamily,
			SizePt: defaultBodyFontSize,
			Weight: "normal",
			Color:  "#000000",
		}
		if rp := st.RunProps; rp != nil {
			if rp.Fonts != nil && rp.Fonts.ASCII != "" {
				def.Family = rp.Fonts.ASCII
			}
			if rp.Size != nil {
				if pt := rp.Size.HalfPoints() / 2; pt > 0 {
					def.SizePt = pt
				}
			}
			if rp.Bold.On() {
				def.Weight = "bold"
			}
			if rp.Color != nil {
				def.Color = normalizeColor(rp.Color.Val)
			}
		}
		theme.FontMap[st.DisplayName()] = def

		// Palette: first three distinct non-default colors seen.
		if def.Color != "#000000" && !seen[def.Color] && len(palette) < len(paletteNames) {
			seen[def.Color] = true
			palette = append(palette, models.PaletteColor{
				Name:    paletteNames[len(palette)],
				HexCode: def.Color,
			})
		}
	}
	theme.ColorPalette = palette

	if sect := doc.Body.SectPr; sect != nil {
		theme.LayoutRules = layoutFromSection(sect)
	}

	return theme
}

func defaultLayoutRules() models.LayoutRules {
	return models.LayoutRules{
		PageWidthMM:  a4WidthMM,
		PageHeightMM: a4HeightMM,
		Orientation:  "portrait",
		Margins: models.Margins{
			Top:    defaultMarginMM,
			Bottom: defaultMarginMM,
			Left:   defaultMarginMM,
			Right:  defaultMarginMM,
		},
	}
}

func layoutFromSection(sect *ooxml.SectPr) models.LayoutRules {
	rules := defaultLayoutRules()

	if ps := sect.PageSize; ps != nil {
		if w := twipsAttrToMM(ps.W); w > 0 {
			rules.PageWidthMM = w
		}
		if h := twipsAttrToMM(ps.H); h > 0 {
			rules.PageHeightMM = h
		}
		if strings.EqualFold(ps.Orient, "landscape") {
			rules.Orientation = "landscape"
			if rules.PageWidthMM < rules.PageHeightMM {
				rules.PageWidthMM, rules.PageHeightMM = rules.PageHeightMM, rules.PageWidthMM
			}
		}
	}

	if pm := sect.PageMargins; pm != nil {
		if v := twipsAttrToMM(pm.Top); v > 0 {
			rules.Margins.Top = v
		}
		if v := twipsAttrToMM(pm.Bottom); v > 0 {
			rules.Margins.Bottom = v
		}
		if v := twipsAttrToMM(pm.Left); v > 0 {
			rules.Margins.Left = v
		}
		if v := twipsAttrToMM(pm.Right); v > 0 {
			rules.Margins.Right = v
		}
	}

	return rules
}

func twipsAttrToMM(attr string) float64 {
	twips, err := strconv.ParseFloat(attr, 64)
	if err != nil {
		return 0
	}
	return round2(twips * twipsToMM)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// normalizeColor maps an OOXML color value to a #RRGGBB string.
// "auto" and anything unparsable become #000000.
func normalizeColor(val string) string {
	val = strings.TrimSpace(strings.TrimPrefix(val, "#"))
	if val == "" || strings.EqualFold(val, "auto") {
		return "#000000"
	}
	if len(val) != 6 {
		return "#000000"
	}
	for _, r := range val {
		if !isHexDigit(r) {
			return "#000000"
		}
	}
	return "#" + strings.ToUpper(val)
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
