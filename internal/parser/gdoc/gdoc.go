// Package gdoc parses Google-Docs documents via their HTML export. The
// header level of h1..h4 elements is the section depth.
package gdoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/storage"
)

var (
	docIDRe   = regexp.MustCompile(`/document/d/([^/?#]+)`)
	dataURIRe = regexp.MustCompile(`^data:image/[^;]+;base64,(.+)$`)
)

// Handler parses Google-Docs documents from their export HTML.
type Handler struct {
	client *http.Client
}

// NewHandler creates the Google-Docs handler with the given HTTP
// client (injectable for tests).
func NewHandler(client *http.Client) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &Handler{client: client}
}

// Parse fetches the document's HTML export and builds the section
// hierarchy from its header elements.
func (h *Handler) Parse(ctx context.Context, job models.JobRequest, store storage.ObjectStore) (*models.ParseResult, error) {
	docID, err := extractDocID(job.DocumentURL)
	if err != nil {
		return nil, err
	}

	exportURL := fmt.Sprintf("https://docs.google.com/document/d/%s/export?format=html", docID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build export request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document export returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document HTML: %w", err)
	}

	sections, contents := buildHierarchy(doc)
	logos, err := h.extractImages(ctx, doc, job.JobID, store)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("job_id", job.JobID).
		Str("doc_id", docID).
		Int("sections", len(sections)).
		Int("images", len(logos)).
		Msg("Google Doc parsed")

	return &models.ParseResult{
		TemplateJSON: models.TemplateJSON{
			VisualTheme:      defaultTheme(),
			SectionHierarchy: models.SectionHierarchy{Sections: sections},
			LogoMap:          logos,
		},
		ContentSections: contents,
	}, nil
}

func extractDocID(documentURL string) (string, error) {
	m := docIDRe.FindStringSubmatch(documentURL)
	if m == nil {
		return "", fmt.Errorf("not a Google Docs URL: %s", documentURL)
	}
	return m[1], nil
}

type node struct {
	title       string
	placeholder string
	level       int
	children    []*node
	content     strings.Builder
}

// buildHierarchy walks body elements in order: h1..h4 open sections at
// their header level, everything else accumulates into the innermost
// open section.
func buildHierarchy(doc *goquery.Document) ([]models.Section, []models.ContentSection) {
	var (
		roots    []*node
		stack    []*node
		contents []models.ContentSection
		counter  int
	)

	pop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		text := strings.TrimSpace(top.content.String())
		if text == "" {
			return
		}
		contents = append(contents, models.ContentSection{
			PlaceholderID: top.placeholder,
			SectionTitle:  top.title,
			SampleText:    text,
			WordCount:     len(strings.Fields(text)),
		})
	}

	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		switch tag {
		case "h1", "h2", "h3", "h4":
			title := strings.TrimSpace(sel.Text())
			if title == "" {
				return
			}
			level := int(tag[1] - '0')

			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				pop()
			}

			counter++
			n := &node{title: title, level: level}
			if level == 1 {
				n.placeholder = fmt.Sprintf("placeholder_section_%d", counter)
			} else {
				n.placeholder = fmt.Sprintf("placeholder_subsection_%d", counter)
			}
			if len(stack) == 0 {
				roots = append(roots, n)
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case "p", "li", "blockquote", "pre":
			if len(stack) == 0 {
				return
			}
			text := strings.TrimSpace(sel.Text())
			if text == "" {
				return
			}
			top := stack[len(stack)-1]
			if top.content.Len() > 0 {
				top.content.WriteString("\n")
			}
			top.content.WriteString(text)
		}
	})

	for len(stack) > 0 {
		pop()
	}

	sections := make([]models.Section, 0, len(roots))
	for _, n := range roots {
		sections = append(sections, toSection(n))
	}
	return sections, contents
}

func toSection(n *node) models.Section {
	s := models.Section{
		SectionTitle:  n.title,
		PlaceholderID: n.placeholder,
	}
	for _, c := range n.children {
		s.SubSections = append(s.SubSections, toSection(c))
	}
	return s
}

// extractImages stores each <img> (including data: URIs) under
// images/{jobId}/google_{n}.png. Per-image failures are logged and the
// image skipped.
func (h *Handler) extractImages(ctx context.Context, doc *goquery.Document, jobID string, store storage.ObjectStore) ([]models.LogoAsset, error) {
	var assets []models.LogoAsset
	n := 0

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return
		}

		data, err := h.imageBytes(ctx, src)
		if err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to fetch document image")
			return
		}

		assetID := fmt.Sprintf("google_%d", n)
		key := models.ImageKey(jobID, assetID, "png")
		if err := store.Upload(ctx, key, bytes.NewReader(data), "image/png"); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to store document image")
			return
		}

		assets = append(assets, models.LogoAsset{
			AssetID:   assetID,
			AssetType: "image",
			BoundingBox: models.BoundingBox{
				Width:      100,
				Height:     100,
				PageNumber: 1,
			},
			StorageKey: key,
		})
		n++
	})

	return assets, nil
}

func (h *Handler) imageBytes(ctx context.Context, src string) ([]byte, error) {
	if m := dataURIRe.FindStringSubmatch(src); m != nil {
		data, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URI: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func defaultTheme() models.VisualTheme {
	return models.VisualTheme{
		FontMap: map[string]models.FontDefinition{
			"Normal": {Family: "Arial", SizePt: 11, Weight: "normal", Color: "#000000"},
		},
		LayoutRules: models.LayoutRules{
			PageWidthMM:  210,
			PageHeightMM: 297,
			Orientation:  "portrait",
			Margins:      models.Margins{Top: 25.4, Bottom: 25.4, Left: 25.4, Right: 25.4},
		},
	}
}
