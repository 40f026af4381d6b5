package models

import "strings"

// ParseResult is the parser's output, stored as JSON at
// parsed/{jobId}/parse-result.json.
type ParseResult struct {
	TemplateJSON    TemplateJSON     `json:"templateJson"`
	ContentSections []ContentSection `json:"contentSections"`
}

// ContentSection carries the extracted text for one section slot.
type ContentSection struct {
	PlaceholderID string `json:"placeholderId"`
	SectionTitle  string `json:"sectionTitle"`
	SampleText    string `json:"sampleText"`
	WordCount     int    `json:"wordCount"`
}

// TemplateJSON describes the document's visual theme, section hierarchy
// and embedded image assets.
type TemplateJSON struct {
	VisualTheme      VisualTheme      `json:"visualTheme"`
	SectionHierarchy SectionHierarchy `json:"sectionHierarchy"`
	LogoMap          []LogoAsset      `json:"logoMap"`
}

type SectionHierarchy struct {
	Sections []Section `json:"sections"`
}

// Section is one node of the strict section tree. PlaceholderID is the
// value key bridging a template slot to its content block.
type Section struct {
	SectionTitle  string    `json:"sectionTitle"`
	PlaceholderID string    `json:"placeholderId"`
	SubSections   []Section `json:"subSections,omitempty"`
}

type VisualTheme struct {
	ColorPalette []PaletteColor            `json:"colorPalette"`
	FontMap      map[string]FontDefinition `json:"fontMap"`
	LayoutRules  LayoutRules               `json:"layoutRules"`
}

type PaletteColor struct {
	Name    string `json:"name"`
	HexCode string `json:"hexCode"`
}

type FontDefinition struct {
	Family string  `json:"family"`
	SizePt float64 `json:"sizePt"`
	Weight string  `json:"weight"` // "normal" or "bold"
	Color  string  `json:"color"`  // hex
}

type LayoutRules struct {
	PageWidthMM  float64 `json:"pageWidth_mm"`
	PageHeightMM float64 `json:"pageHeight_mm"`
	Orientation  string  `json:"orientation"` // "portrait" or "landscape"
	Margins      Margins `json:"margins"`
}

type Margins struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// LogoAsset is one embedded image. AssetType starts as "image"; the
// analyzer reclassifies logos.
type LogoAsset struct {
	AssetID     string      `json:"assetId"`
	AssetType   string      `json:"assetType"` // "logo", "image", "watermark"
	BoundingBox BoundingBox `json:"boundingBox"`
	SecureURL   string      `json:"secureUrl,omitempty"`
	StorageKey  string      `json:"storageKey,omitempty"`
}

type BoundingBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"pageNumber"`
}

// ContextJSON captures extracted content blocks and linguistic-style
// metadata.
type ContextJSON struct {
	LinguisticStyle        LinguisticStyle   `json:"linguisticStyle"`
	ContentBlocks          []ContentBlock    `json:"contentBlocks"`
	AdministrativeMetadata map[string]string `json:"administrativeMetadata,omitempty"`
}

type LinguisticStyle struct {
	OverallFormality         string    `json:"overallFormality"`
	FormalityConfidenceScore float64   `json:"formalityConfidenceScore"`
	DominantTone             string    `json:"dominantTone"`
	ToneConfidenceScore      float64   `json:"toneConfidenceScore"`
	WritingStyleVector       []float64 `json:"writingStyleVector"`
}

type ContentBlock struct {
	PlaceholderID     string `json:"placeholderId"`
	SectionSampleText string `json:"sectionSampleText"`
	WordCount         int    `json:"wordCount"`
}

// FontLookup returns the FontMap entry for name, matching keys
// case-insensitively.
func (t VisualTheme) FontLookup(name string) (FontDefinition, bool) {
	if def, ok := t.FontMap[name]; ok {
		return def, true
	}
	for k, def := range t.FontMap {
		if strings.EqualFold(k, name) {
			return def, true
		}
	}
	return FontDefinition{}, false
}
