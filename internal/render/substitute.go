package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/ooxml"
)

var (
	paragraphRe   = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>.*?</w:p>`)
	textRe        = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	placeholderRe = regexp.MustCompile(`^\{\{([^}]+)\}\}$`)
)

// Substitute fills a placeholder DOCX in place: paragraphs whose whole
// text is a {{PlaceholderId}} token are replaced with paragraphs built
// from the matching content override, or removed when no override
// exists. Logos whose drawing name matches a LogoOverrides key get
// their image part bytes rewritten.
func Substitute(docxBytes []byte, contentOverrides map[string]string, logoOverrides map[string][]byte) ([]byte, error) {
	pkg, err := ooxml.Open(docxBytes)
	if err != nil {
		return nil, err
	}

	content := make(map[string]string, len(contentOverrides))
	for id, text := range contentOverrides {
		content[strings.ToLower(id)] = text
	}

	docData, _ := pkg.Part(ooxml.PartDocument)
	docData = substituteParagraphs(docData, content)
	pkg.SetPart(ooxml.PartDocument, docData)

	if len(logoOverrides) > 0 {
		if err := substituteLogos(pkg, logoOverrides); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pkg.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to package document: %w", err)
	}
	return buf.Bytes(), nil
}

// substituteParagraphs rewrites the document part's XML directly so
// that untouched paragraphs keep their exact markup.
func substituteParagraphs(docData []byte, content map[string]string) []byte {
	return paragraphRe.ReplaceAllFunc(docData, func(para []byte) []byte {
		m := placeholderRe.FindStringSubmatch(paragraphText(para))
		if m == nil {
			return para
		}

		text, ok := content[strings.ToLower(strings.TrimSpace(m[1]))]
		if !ok {
			return nil
		}

		var out bytes.Buffer
		for _, line := range splitLines(text) {
			data, err := marshalInline(textParagraph(line, "Normal"))
			if err != nil {
				log.Warn().Err(err).Msg("Failed to build substitution paragraph")
				return para
			}
			out.Write(data)
		}
		return out.Bytes()
	})
}

// paragraphText concatenates and unescapes a paragraph's text nodes.
func paragraphText(para []byte) string {
	var sb strings.Builder
	for _, m := range textRe.FindAllSubmatch(para, -1) {
		sb.Write(m[1])
	}
	return xmlUnescape(sb.String())
}

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&",
)

func xmlUnescape(s string) string {
	return xmlUnescaper.Replace(s)
}

// marshalInline serialises one paragraph as a <w:p> fragment for
// splicing into an existing part.
func marshalInline(p ooxml.WParagraph) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	start := xml.StartElement{Name: xml.Name{Local: "w:p"}}
	if err := enc.EncodeElement(p, start); err != nil {
		return nil, fmt.Errorf("failed to marshal paragraph: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// substituteLogos rewrites image part bytes for drawings whose doc
// properties name or title matches an override key.
func substituteLogos(pkg *ooxml.Package, logoOverrides map[string][]byte) error {
	doc, err := pkg.Document()
	if err != nil {
		return err
	}
	rels, err := pkg.DocumentRels()
	if err != nil {
		return err
	}

	overrides := make(map[string][]byte, len(logoOverrides))
	for id, data := range logoOverrides {
		overrides[strings.ToLower(id)] = data
	}

	for _, p := range doc.Body.Paragraphs {
		for _, r := range p.Runs {
			for _, d := range r.Drawings {
				c := d.Content()
				if c == nil || c.DocPr == nil {
					continue
				}
				data, ok := overrides[strings.ToLower(c.DocPr.Name)]
				if !ok {
					data, ok = overrides[strings.ToLower(c.DocPr.Title)]
				}
				if !ok {
					continue
				}
				rel, found := rels[c.BlipEmbed()]
				if !found {
					log.Warn().Str("name", c.DocPr.Name).Msg("Logo drawing has no image relationship")
					continue
				}
				pkg.SetPart(ooxml.ResolveRelTarget(rel.Target), data)
			}
		}
	}
	return nil
}
