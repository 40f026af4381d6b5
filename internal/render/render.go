// Package render emits OOXML documents from TemplateJSON and
// ContextJSON: style definitions, page setup, logo drawings and body
// paragraphs in section-hierarchy order.
package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/ooxml"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// mm to twips; a twip is 1/1440 inch, a millimetre 1/25.4 inch.
const twipsPerMM = 56.69

const (
	defaultLogoWidthPx  = 180
	defaultLogoHeightPx = 120
	emuPerPixel         = 9525
	maxHeadingLevel     = 6
)

// Options controls one render call. Override maps match keys
// case-insensitively.
type Options struct {
	IncludeLogos                     bool
	IncludeTemplateLogosFromStorage  bool
	EmitPlaceholderForMissingContent bool
	ContentOverrides                 map[string]string
	LogoOverrides                    map[string][]byte
}

// Renderer builds DOCX bytes. The object store is only consulted when
// IncludeTemplateLogosFromStorage is set; a nil store disables that
// path.
type Renderer struct {
	store storage.ObjectStore
}

// NewRenderer creates a renderer backed by the given object store.
func NewRenderer(store storage.ObjectStore) *Renderer {
	return &Renderer{store: store}
}

// Render produces a complete DOCX for the template and context.
func (r *Renderer) Render(ctx context.Context, template models.TemplateJSON, contextJSON models.ContextJSON, opts Options) ([]byte, error) {
	contentLookup := buildContentLookup(contextJSON, opts.ContentOverrides)

	pkg := ooxml.NewPackage()
	doc := ooxml.NewWDocument()

	imageExts, imageTargets, err := r.insertLogos(ctx, pkg, doc, template, opts)
	if err != nil {
		return nil, err
	}

	theme := template.VisualTheme
	for _, section := range template.SectionHierarchy.Sections {
		emitSection(doc, section, 1, contentLookup, opts.EmitPlaceholderForMissingContent)
	}

	if len(doc.Body.Paragraphs) == 0 {
		doc.Body.Paragraphs = append(doc.Body.Paragraphs, textParagraph(" ", "Normal"))
	}
	doc.Body.SectPr = sectionProperties(theme.LayoutRules)

	stylesData, err := ooxml.MarshalPart(buildStyles(theme))
	if err != nil {
		return nil, err
	}
	docData, err := ooxml.MarshalPart(doc)
	if err != nil {
		return nil, err
	}

	pkg.SetPart(ooxml.PartContentTypes, ooxml.ContentTypesXML(imageExts))
	pkg.SetPart(ooxml.PartRootRels, ooxml.RootRelsXML())
	pkg.SetPart(ooxml.PartDocumentRels, ooxml.DocumentRelsXML(imageTargets))
	pkg.SetPart(ooxml.PartStyles, stylesData)
	pkg.SetPart(ooxml.PartDocument, docData)

	var buf bytes.Buffer
	if err := pkg.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to package document: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderTemplateDocument produces the placeholder DOCX: every content
// slot carries its {{PlaceholderId}} token for later substitution.
func (r *Renderer) RenderTemplateDocument(ctx context.Context, template models.TemplateJSON) ([]byte, error) {
	return r.Render(ctx, template, models.ContextJSON{}, Options{
		IncludeLogos:                     true,
		IncludeTemplateLogosFromStorage:  true,
		EmitPlaceholderForMissingContent: true,
	})
}

// buildContentLookup folds content blocks and overrides into one
// lower-cased placeholder-id map; overrides win.
func buildContentLookup(contextJSON models.ContextJSON, overrides map[string]string) map[string]string {
	lookup := make(map[string]string)
	for _, block := range contextJSON.ContentBlocks {
		lookup[strings.ToLower(block.PlaceholderID)] = block.SectionSampleText
	}
	for id, text := range overrides {
		lookup[strings.ToLower(id)] = text
	}
	return lookup
}

// emitSection writes the heading paragraph plus its resolved content,
// then recurses into subsections one level deeper.
func emitSection(doc *ooxml.WDocument, section models.Section, level int, content map[string]string, emitPlaceholder bool) {
	if level > maxHeadingLevel {
		level = maxHeadingLevel
	}

	doc.Body.Paragraphs = append(doc.Body.Paragraphs,
		textParagraph(section.SectionTitle, fmt.Sprintf("Heading%d", level)))

	if text, ok := content[strings.ToLower(section.PlaceholderID)]; ok {
		for _, line := range splitLines(text) {
			doc.Body.Paragraphs = append(doc.Body.Paragraphs, textParagraph(line, "Normal"))
		}
	} else if emitPlaceholder {
		doc.Body.Paragraphs = append(doc.Body.Paragraphs,
			placeholderParagraph(section.PlaceholderID))
	}

	for _, sub := range section.SubSections {
		emitSection(doc, sub, level+1, content, emitPlaceholder)
	}
}

var (
	bulletPrefixRe = regexp.MustCompile(`^[-*•]\s+`)
	lineBreakRe    = regexp.MustCompile(`\r?\n`)
)

// splitLines splits sample text on line endings, drops empties and
// normalises bullet markers.
func splitLines(text string) []string {
	var out []string
	for _, line := range lineBreakRe.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bulletPrefixRe.MatchString(line) {
			line = "• " + bulletPrefixRe.ReplaceAllString(line, "")
		}
		out = append(out, line)
	}
	return out
}

// textParagraph builds one styled text paragraph with sanitised content.
func textParagraph(text, styleID string) ooxml.WParagraph {
	return ooxml.WParagraph{
		Props: &ooxml.WParaProps{Style: &ooxml.WVal{Val: styleID}},
		Runs: []ooxml.WRun{{
			Text: ooxml.NewWText(SanitizeText(text)),
		}},
	}
}

func placeholderParagraph(placeholderID string) ooxml.WParagraph {
	return ooxml.WParagraph{
		Props: &ooxml.WParaProps{Style: &ooxml.WVal{Val: "Normal"}},
		Runs: []ooxml.WRun{{
			Props: &ooxml.WRunProps{Italic: &ooxml.WEmpty{}},
			Text:  ooxml.NewWText(fmt.Sprintf("{{%s}}", SanitizeText(placeholderID))),
		}},
	}
}

// SanitizeText strips control characters other than TAB, LF and CR.
func SanitizeText(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, text)
}

func sectionProperties(layout models.LayoutRules) *ooxml.WSectPr {
	width := layout.PageWidthMM
	height := layout.PageHeightMM
	if width <= 0 {
		width = 210
	}
	if height <= 0 {
		height = 297
	}
	margins := layout.Margins
	if margins.Top <= 0 {
		margins = models.Margins{Top: 25.4, Bottom: 25.4, Left: 25.4, Right: 25.4}
	}

	sectPr := &ooxml.WSectPr{
		PageSize: &ooxml.WPageSize{
			W: mmToTwips(width),
			H: mmToTwips(height),
		},
		PageMargins: &ooxml.WPageMargins{
			Top:    mmToTwips(margins.Top),
			Bottom: mmToTwips(margins.Bottom),
			Left:   mmToTwips(margins.Left),
			Right:  mmToTwips(margins.Right),
		},
	}
	if strings.EqualFold(layout.Orientation, "landscape") {
		sectPr.PageSize.Orient = "landscape"
	}
	return sectPr
}

func mmToTwips(mm float64) int {
	return int(mm*twipsPerMM + 0.5)
}

// insertLogos resolves logo bytes, adds media parts and emits one
// centered drawing paragraph per logo. Returns the image extensions
// and relationship targets needed for packaging.
func (r *Renderer) insertLogos(ctx context.Context, pkg *ooxml.Package, doc *ooxml.WDocument, template models.TemplateJSON, opts Options) ([]string, map[string]string, error) {
	imageTargets := make(map[string]string)
	if !opts.IncludeLogos || len(template.LogoMap) == 0 {
		return nil, imageTargets, nil
	}

	overrides := make(map[string][]byte, len(opts.LogoOverrides))
	for id, data := range opts.LogoOverrides {
		overrides[strings.ToLower(id)] = data
	}

	logos := make([]models.LogoAsset, len(template.LogoMap))
	copy(logos, template.LogoMap)
	sort.Slice(logos, func(i, j int) bool { return logos[i].AssetID < logos[j].AssetID })

	var exts []string
	n := 0
	for _, logo := range logos {
		data, ok := overrides[strings.ToLower(logo.AssetID)]
		if !ok {
			if !opts.IncludeTemplateLogosFromStorage || r.store == nil || logo.StorageKey == "" {
				continue
			}
			stored, err := storage.ReadAll(ctx, r.store, logo.StorageKey)
			if err != nil {
				log.Warn().Err(err).Str("asset_id", logo.AssetID).Msg("Failed to load logo from storage")
				continue
			}
			data = stored
		}

		n++
		ext := DetectImageExtension(data)
		partName := fmt.Sprintf("word/media/image%d.%s", n, ext)
		relID := fmt.Sprintf("rIdImg%d", n)
		pkg.SetPart(partName, data)
		imageTargets[relID] = fmt.Sprintf("media/image%d.%s", n, ext)
		exts = append(exts, ext)

		widthPx := logo.BoundingBox.Width
		heightPx := logo.BoundingBox.Height
		if widthPx <= 0 || heightPx <= 0 {
			widthPx, heightPx = defaultLogoWidthPx, defaultLogoHeightPx
		}

		doc.Body.Paragraphs = append(doc.Body.Paragraphs, ooxml.WParagraph{
			Props: &ooxml.WParaProps{Justify: &ooxml.WVal{Val: "center"}},
			Runs: []ooxml.WRun{{
				Drawing: ooxml.NewInlineImage(n, logo.AssetID, relID,
					int64(widthPx*emuPerPixel), int64(heightPx*emuPerPixel)),
			}},
		})
	}

	return exts, imageTargets, nil
}

// DetectImageExtension sniffs the format from magic bytes, defaulting
// to png.
func DetectImageExtension(data []byte) string {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}):
		return "png"
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return "jpg"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("GIF")):
		return "gif"
	case len(data) >= 2 && data[0] == 'B' && data[1] == 'M':
		return "bmp"
	default:
		return "png"
	}
}
