package ooxml

// Read-side types for word/styles.xml.

type Styles struct {
	Styles []Style `xml:"style"`
}

type Style struct {
	Type     string    `xml:"type,attr"`
	StyleID  string    `xml:"styleId,attr"`
	Name     *ValAttr  `xml:"name"`
	BasedOn  *ValAttr  `xml:"basedOn"`
	RunProps *RunProps `xml:"rPr"`
}

// ParagraphStyles returns the styles with type "paragraph".
func (s *Styles) ParagraphStyles() []Style {
	var out []Style
	for _, st := range s.Styles {
		if st.Type == "paragraph" {
			out = append(out, st)
		}
	}
	return out
}

// DisplayName returns the style's friendly name, falling back to its id.
func (s Style) DisplayName() string {
	if s.Name != nil && s.Name.Val != "" {
		return s.Name.Val
	}
	return s.StyleID
}

// Relationships is the shape of a .rels part.
type Relationships struct {
	Rels []Relationship `xml:"Relationship"`
}

type Relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// ContentTypes is the shape of [Content_Types].xml.
type ContentTypes struct {
	Defaults  []TypeDefault  `xml:"Default"`
	Overrides []TypeOverride `xml:"Override"`
}

type TypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type TypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}
