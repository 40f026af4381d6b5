// Package pdfdoc is a shallow PDF handler over pdfcpu: one section per
// page, capped sample text, best-effort font enumeration.
package pdfdoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// maxSampleChars caps per-page sample text.
const maxSampleChars = 600

var baseFontRe = regexp.MustCompile(`/BaseFont\s*/([A-Za-z0-9+\-]+)`)

// Handler parses PDF documents.
type Handler struct {
	tempDir string
}

// NewHandler creates the PDF document handler.
func NewHandler() *Handler {
	tempDir := filepath.Join(os.TempDir(), "docpipe-pdf")
	os.MkdirAll(tempDir, 0o755)
	return &Handler{tempDir: tempDir}
}

// Parse extracts per-page text and enumerated fonts from the PDF.
func (h *Handler) Parse(ctx context.Context, job models.JobRequest, store storage.ObjectStore) (*models.ParseResult, error) {
	data, err := storage.ReadAll(ctx, store, job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	// pdfcpu operates on files.
	tempFile := filepath.Join(h.tempDir, fmt.Sprintf("parse_%s.pdf", job.JobID))
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount
	if pageCount < 1 {
		pageCount = 1
	}

	pageTexts := h.extractPageTexts(tempFile, pageCount)

	var (
		sections []models.Section
		contents []models.ContentSection
	)
	for page := 1; page <= pageCount; page++ {
		title := fmt.Sprintf("Page %d", page)
		placeholder := fmt.Sprintf("placeholder_section_%d", page)
		sections = append(sections, models.Section{
			SectionTitle:  title,
			PlaceholderID: placeholder,
		})

		text := strings.TrimSpace(pageTexts[page])
		if len(text) > maxSampleChars {
			text = text[:maxSampleChars]
		}
		if text == "" {
			continue
		}
		contents = append(contents, models.ContentSection{
			PlaceholderID: placeholder,
			SectionTitle:  title,
			SampleText:    text,
			WordCount:     len(strings.Fields(text)),
		})
	}

	theme := defaultTheme()
	for _, font := range enumerateFonts(data) {
		theme.FontMap[font] = models.FontDefinition{
			Family: font,
			SizePt: 11,
			Weight: "normal",
			Color:  "#000000",
		}
	}

	log.Info().
		Str("job_id", job.JobID).
		Int("pages", pageCount).
		Int("fonts", len(theme.FontMap)).
		Msg("PDF parsed")

	return &models.ParseResult{
		TemplateJSON: models.TemplateJSON{
			VisualTheme:      theme,
			SectionHierarchy: models.SectionHierarchy{Sections: sections},
		},
		ContentSections: contents,
	}, nil
}

// extractPageTexts extracts page content via pdfcpu. Extraction
// failures yield empty texts, not errors.
func (h *Handler) extractPageTexts(tempFile string, pageCount int) map[int]string {
	texts := make(map[int]string, pageCount)

	outDir := filepath.Join(h.tempDir, fmt.Sprintf("pages_%d", os.Getpid()))
	os.MkdirAll(outDir, 0o755)
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		log.Warn().Err(err).Msg("Failed to extract PDF content")
		return texts
	}

	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
				continue
			}
		}
		texts[pageNum] = printableText(content)
	}
	return texts
}

// printableText keeps the readable portion of a raw content stream.
func printableText(content []byte) string {
	var sb strings.Builder
	for _, r := range string(content) {
		if r == '\n' || r == ' ' || (r > 31 && r < 127) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// enumerateFonts scans the raw PDF for BaseFont declarations.
// Best-effort: subset prefixes (ABCDEF+Name) are stripped.
func enumerateFonts(data []byte) []string {
	seen := make(map[string]bool)
	var fonts []string
	for _, m := range baseFontRe.FindAllSubmatch(data, -1) {
		name := string(m[1])
		if i := strings.IndexByte(name, '+'); i == 6 {
			name = name[7:]
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		fonts = append(fonts, name)
	}
	return fonts
}

func defaultTheme() models.VisualTheme {
	return models.VisualTheme{
		FontMap: make(map[string]models.FontDefinition),
		LayoutRules: models.LayoutRules{
			PageWidthMM:  210,
			PageHeightMM: 297,
			Orientation:  "portrait",
			Margins:      models.Margins{Top: 25.4, Bottom: 25.4, Left: 25.4, Right: 25.4},
		},
	}
}
