package docx

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dtce-ai/docpipe/internal/ooxml"
)

var (
	numberedRe = regexp.MustCompile(`^(\d+(\.\d+)*|[A-Z]\)|[IVXLC]+\.)\s+`)
	bulletedRe = regexp.MustCompile(`^(\-|\*|•)\s+\S+`)
	wordRe     = regexp.MustCompile(`\b\w+\b`)
)

// paragraphFeatures is the per-paragraph feature vector the heading
// model scores.
type paragraphFeatures struct {
	text          string
	wordCount     int
	endsWithColon bool
	isNumbered    bool
	isBulleted    bool
	uppercaseRatio float64

	styleID        string
	isHeadingStyle bool
	styleLevel     int // 0 when not style-derived

	bold      bool
	italic    bool
	underline bool

	fontSizePt float64
	fontFamily string
	color      string

	leftIndentTwips int
	spaceBefore     string
	spaceAfter      string

	documentIndex int
}

// styleInfo is the resolved run formatting of a paragraph style.
type styleInfo struct {
	fontSizePt float64
	fontFamily string
	color      string
	bold       bool
}

// buildStyleIndex resolves run properties per paragraph style id.
func buildStyleIndex(styles *ooxml.Styles) map[string]styleInfo {
	index := make(map[string]styleInfo)
	for _, st := range styles.ParagraphStyles() {
		info := styleInfo{}
		if rp := st.RunProps; rp != nil {
			if rp.Size != nil {
				info.fontSizePt = rp.Size.HalfPoints() / 2
			}
			if rp.Fonts != nil {
				info.fontFamily = rp.Fonts.ASCII
			}
			if rp.Color != nil {
				info.color = rp.Color.Val
			}
			info.bold = rp.Bold.On()
		}
		index[st.StyleID] = info
	}
	return index
}

// extractFeatures runs Pass 1: one feature vector per non-empty body
// paragraph.
func extractFeatures(doc *ooxml.Document, styleIndex map[string]styleInfo) []paragraphFeatures {
	var out []paragraphFeatures
	for i, p := range doc.Body.Paragraphs {
		text := strings.TrimSpace(p.PlainText())
		if text == "" {
			continue
		}

		f := paragraphFeatures{
			text:          text,
			wordCount:     len(wordRe.FindAllString(text, -1)),
			endsWithColon: strings.HasSuffix(text, ":"),
			isNumbered:    numberedRe.MatchString(text),
			isBulleted:    bulletedRe.MatchString(text),
			uppercaseRatio: uppercaseRatio(text),
			styleID:       p.StyleID(),
			fontSizePt:    defaultBodyFontSize,
			fontFamily:    defaultFontFamily,
			documentIndex: i,
		}

		f.isHeadingStyle, f.styleLevel = headingStyle(f.styleID)

		// Style formatting first, explicit run formatting overrides.
		if info, ok := styleIndex[f.styleID]; ok {
			if info.fontSizePt > 0 {
				f.fontSizePt = info.fontSizePt
			}
			if info.fontFamily != "" {
				f.fontFamily = info.fontFamily
			}
			if info.color != "" {
				f.color = info.color
			}
			f.bold = info.bold
		}

		applyRunFormatting(&f, p)

		if p.Props != nil {
			f.leftIndentTwips = p.Props.Indent.LeftTwips()
			if p.Props.Spacing != nil {
				f.spaceBefore = p.Props.Spacing.Before
				f.spaceAfter = p.Props.Spacing.After
			}
			if p.Props.NumProps != nil {
				f.isNumbered = true
			}
		}

		out = append(out, f)
	}
	return out
}

func applyRunFormatting(f *paragraphFeatures, p ooxml.Paragraph) {
	sized := false
	for _, r := range p.Runs {
		rp := r.Props
		if rp == nil {
			continue
		}
		if !sized && rp.Size != nil {
			if pt := rp.Size.HalfPoints() / 2; pt > 0 {
				f.fontSizePt = pt
				sized = true
			}
		}
		if rp.Bold.On() {
			f.bold = true
		}
		if rp.Italic.On() {
			f.italic = true
		}
		if rp.Underline != nil && !strings.EqualFold(rp.Underline.Val, "none") {
			f.underline = true
		}
		if f.fontFamily == defaultFontFamily && rp.Fonts != nil && rp.Fonts.ASCII != "" {
			f.fontFamily = rp.Fonts.ASCII
		}
		if f.color == "" && rp.Color != nil {
			f.color = rp.Color.Val
		}
	}
}

// headingStyle reports whether a style id marks a heading and which
// level its trailing digit encodes (Title counts as level 1). Levels
// clamp to [1,6].
func headingStyle(styleID string) (bool, int) {
	lower := strings.ToLower(styleID)
	switch {
	case strings.HasPrefix(lower, "title"):
		return true, 1
	case strings.HasPrefix(lower, "heading"):
		level := 0
		if n := lower[len(lower)-1]; n >= '0' && n <= '9' {
			level = int(n - '0')
		}
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return true, level
	default:
		return false, 0
	}
}

func uppercaseRatio(text string) float64 {
	var upper, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func countWords(text string) int {
	return len(wordRe.FindAllString(text, -1))
}
