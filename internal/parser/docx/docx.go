// Package docx parses Office Open XML documents into a section
// hierarchy by statistical analysis of paragraph formatting, rather
// than a fixed keyword list.
package docx

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/ooxml"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// Handler parses DOCX documents. Stateless apart from per-call buffers.
type Handler struct{}

// NewHandler creates the DOCX document handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Parse downloads the document bytes, extracts the visual theme,
// detects the section hierarchy and stores embedded images.
func (h *Handler) Parse(ctx context.Context, job models.JobRequest, store storage.ObjectStore) (*models.ParseResult, error) {
	data, err := storage.ReadAll(ctx, store, job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return h.ParseBytes(ctx, data, job.JobID, store)
}

// ParseBytes parses raw DOCX bytes. Split out so the renderer round
// trip and tooling can parse without an object-store read.
func (h *Handler) ParseBytes(ctx context.Context, data []byte, jobID string, store storage.ObjectStore) (*models.ParseResult, error) {
	pkg, err := ooxml.Open(data)
	if err != nil {
		return nil, err
	}
	doc, err := pkg.Document()
	if err != nil {
		return nil, err
	}
	styles, err := pkg.Styles()
	if err != nil {
		return nil, err
	}

	theme := extractTheme(doc, styles)

	features := extractFeatures(doc, buildStyleIndex(styles))
	model := buildPatternModel(features)
	candidates := assignLevels(features, model)

	sections, contents := buildSectionTree(features, candidates)

	if len(candidates) == 0 && len(contents) == 0 {
		sections, contents = degenerateDocument(features)
	}

	logos, err := extractImages(ctx, pkg, doc, jobID, store)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("job_id", jobID).
		Int("paragraphs", len(features)).
		Int("headings", len(candidates)).
		Int("images", len(logos)).
		Msg("DOCX structure extracted")

	return &models.ParseResult{
		TemplateJSON: models.TemplateJSON{
			VisualTheme:      theme,
			SectionHierarchy: models.SectionHierarchy{Sections: sections},
			LogoMap:          logos,
		},
		ContentSections: contents,
	}, nil
}

// treeNode is a section under construction.
type treeNode struct {
	title       string
	placeholder string
	level       int
	children    []*treeNode
	content     strings.Builder
}

// buildSectionTree runs Pass 4: walk paragraphs in document order
// keeping a stack of open sections; heading candidates open sections,
// everything else accumulates into the innermost open section.
func buildSectionTree(features []paragraphFeatures, candidates []candidate) ([]models.Section, []models.ContentSection) {
	levelByFeature := make(map[int]int, len(candidates))
	for _, c := range candidates {
		levelByFeature[c.featureIndex] = c.level
	}

	var (
		roots    []*treeNode
		stack    []*treeNode
		contents []models.ContentSection
		counter  int
	)

	pop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cs, ok := contentSectionOf(top); ok {
			contents = append(contents, cs)
		}
	}

	for fi, f := range features {
		level, isHeading := levelByFeature[fi]
		if !isHeading {
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.content.Len() > 0 {
					top.content.WriteString("\n")
				}
				top.content.WriteString(f.text)
			}
			// Text before the first heading has no section slot.
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			pop()
		}

		counter++
		node := &treeNode{
			title: normalizeTitle(f.text),
			level: level,
		}
		if level == 1 {
			node.placeholder = fmt.Sprintf("placeholder_section_%d", counter)
		} else {
			node.placeholder = fmt.Sprintf("placeholder_subsection_%d", counter)
		}

		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, node)
		}
		stack = append(stack, node)
	}

	for len(stack) > 0 {
		pop()
	}

	sections := make([]models.Section, 0, len(roots))
	for _, n := range roots {
		sections = append(sections, toSection(n))
	}
	return sections, contents
}

func toSection(n *treeNode) models.Section {
	s := models.Section{
		SectionTitle:  n.title,
		PlaceholderID: n.placeholder,
	}
	for _, c := range n.children {
		s.SubSections = append(s.SubSections, toSection(c))
	}
	return s
}

func contentSectionOf(n *treeNode) (models.ContentSection, bool) {
	text := strings.TrimSpace(n.content.String())
	if text == "" {
		return models.ContentSection{}, false
	}
	return models.ContentSection{
		PlaceholderID: n.placeholder,
		SectionTitle:  n.title,
		SampleText:    text,
		WordCount:     countWords(text),
	}, true
}

// degenerateDocument synthesises a single section holding all body
// text when no structure could be detected.
func degenerateDocument(features []paragraphFeatures) ([]models.Section, []models.ContentSection) {
	const (
		title       = "Document Content"
		placeholder = "placeholder_document_content"
	)

	var sb strings.Builder
	for _, f := range features {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.text)
	}

	sections := []models.Section{{SectionTitle: title, PlaceholderID: placeholder}}
	text := strings.TrimSpace(sb.String())
	contents := []models.ContentSection{{
		PlaceholderID: placeholder,
		SectionTitle:  title,
		SampleText:    text,
		WordCount:     countWords(text),
	}}
	return sections, contents
}

// normalizeTitle trims the heading text and strips trailing
// punctuation that marks a heading but is not part of its title.
func normalizeTitle(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimRight(text, ":-–")
	return strings.TrimSpace(text)
}
