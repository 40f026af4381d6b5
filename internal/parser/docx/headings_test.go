package docx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtce-ai/docpipe/internal/ooxml"
)

// para builds a read-side paragraph with one run of the given text,
// size in points and bold flag.
func para(text string, sizePt float64, bold bool) ooxml.Paragraph {
	props := &ooxml.RunProps{}
	if sizePt > 0 {
		props.Size = &ooxml.ValAttr{Val: ooxml.FormatHalfPoints(sizePt)}
	}
	if bold {
		props.Bold = &ooxml.Toggle{}
	}
	return ooxml.Paragraph{
		Runs: []ooxml.Run{{Props: props, Texts: []ooxml.Text{{Value: text}}}},
	}
}

func styledPara(text, styleID string) ooxml.Paragraph {
	return ooxml.Paragraph{
		Props: &ooxml.ParaProps{Style: &ooxml.ValAttr{Val: styleID}},
		Runs:  []ooxml.Run{{Texts: []ooxml.Text{{Value: text}}}},
	}
}

func detect(t *testing.T, doc *ooxml.Document) ([]paragraphFeatures, []candidate) {
	t.Helper()
	features := extractFeatures(doc, map[string]styleInfo{})
	model := buildPatternModel(features)
	return features, assignLevels(features, model)
}

const bodyText = "The quarterly report covers revenue growth operating costs and the " +
	"hiring plan for the engineering and sales organisations"

func TestFontSizeBoundaryLevels(t *testing.T) {
	doc := &ooxml.Document{Body: ooxml.Body{Paragraphs: []ooxml.Paragraph{
		para("Introduction", 18, false),
		para(bodyText, 11, false),
		para(bodyText, 11, false),
		para("Background", 14, false),
		para(bodyText, 11, false),
		para(bodyText, 11, false),
		para(bodyText, 11, false),
	}}}

	features, cands := detect(t, doc)
	require.Len(t, cands, 2)

	assert.Equal(t, "Introduction", features[cands[0].featureIndex].text)
	assert.Equal(t, 1, cands[0].level)
	assert.Equal(t, "Background", features[cands[1].featureIndex].text)
	assert.Equal(t, 2, cands[1].level)
}

func TestHeadingStyleOverridesScore(t *testing.T) {
	doc := &ooxml.Document{Body: ooxml.Body{Paragraphs: []ooxml.Paragraph{
		styledPara("Overview", "Heading1"),
		para(bodyText, 11, false),
		styledPara("Methodology", "Heading2"),
		para(bodyText, 11, false),
		styledPara("Data collection approach", "Heading3"),
		para(bodyText, 11, false),
	}}}

	features, cands := detect(t, doc)
	require.Len(t, cands, 3)

	levels := map[string]int{}
	for _, c := range cands {
		levels[features[c.featureIndex].text] = c.level
	}
	assert.Equal(t, 1, levels["Overview"])
	assert.Equal(t, 2, levels["Methodology"])
	assert.Equal(t, 3, levels["Data collection approach"])
}

func TestLoneStyledHeadingClampsToTopLevel(t *testing.T) {
	// A Heading3 with no enclosing Heading1/Heading2 cannot open three
	// levels of nesting; the level stack clamps it to the top.
	doc := &ooxml.Document{Body: ooxml.Body{Paragraphs: []ooxml.Paragraph{
		styledPara("Data retention", "Heading3"),
		para(bodyText, 11, false),
		para(bodyText, 11, false),
	}}}

	features, cands := detect(t, doc)
	require.Len(t, cands, 1)
	assert.Equal(t, "Data retention", features[cands[0].featureIndex].text)
	assert.Equal(t, 1, cands[0].level)
}

func TestBulletsAreNeverHeadings(t *testing.T) {
	doc := &ooxml.Document{Body: ooxml.Body{Paragraphs: []ooxml.Paragraph{
		para("Summary", 18, true),
		para("- short bold bullet", 18, true),
		para("* another bullet", 16, true),
		para("• third bullet", 16, true),
		para(bodyText, 11, false),
		para(bodyText, 11, false),
	}}}

	features, cands := detect(t, doc)
	require.Len(t, cands, 1)
	assert.Equal(t, "Summary", features[cands[0].featureIndex].text)
}

func TestDegenerateDocumentSynthesisesSingleSection(t *testing.T) {
	features := []paragraphFeatures{
		{text: "plain text one"},
		{text: "plain text two"},
	}
	sections, contents := degenerateDocument(features)

	require.Len(t, sections, 1)
	assert.Equal(t, "Document Content", sections[0].SectionTitle)
	assert.Equal(t, "placeholder_document_content", sections[0].PlaceholderID)
	require.Len(t, contents, 1)
	assert.Equal(t, "plain text one\nplain text two", contents[0].SampleText)
}

func TestBuildSectionTreeNesting(t *testing.T) {
	features := []paragraphFeatures{
		{text: "Top"},
		{text: "body under top"},
		{text: "Child:"},
		{text: "body under child"},
		{text: "Second Top"},
		{text: "body under second"},
	}
	cands := []candidate{
		{featureIndex: 0, level: 1},
		{featureIndex: 2, level: 2},
		{featureIndex: 4, level: 1},
	}

	sections, contents := buildSectionTree(features, cands)
	require.Len(t, sections, 2)
	assert.Equal(t, "Top", sections[0].SectionTitle)
	require.Len(t, sections[0].SubSections, 1)
	assert.Equal(t, "Child", sections[0].SubSections[0].SectionTitle)
	assert.Equal(t, "Second Top", sections[1].SectionTitle)

	byPlaceholder := map[string]string{}
	for _, c := range contents {
		byPlaceholder[c.PlaceholderID] = c.SampleText
	}
	assert.Equal(t, "body under top", byPlaceholder[sections[0].PlaceholderID])
	assert.Equal(t, "body under child", byPlaceholder[sections[0].SubSections[0].PlaceholderID])
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "Scope", normalizeTitle("  Scope:  "))
	assert.Equal(t, "Timeline", normalizeTitle("Timeline -"))
	assert.Equal(t, "Budget", normalizeTitle("Budget–"))
}
