package ooxml

import (
	"strconv"
	"strings"
)

// Read-side types for word/document.xml. Element names match on local
// name only, which tolerates every namespace prefix in the wild.

type Document struct {
	Body Body `xml:"body"`
}

type Body struct {
	Paragraphs []Paragraph `xml:"p"`
	SectPr     *SectPr     `xml:"sectPr"`
}

type Paragraph struct {
	Props *ParaProps `xml:"pPr"`
	Runs  []Run      `xml:"r"`
}

type ParaProps struct {
	Style    *ValAttr   `xml:"pStyle"`
	Indent   *Indent    `xml:"ind"`
	Spacing  *Spacing   `xml:"spacing"`
	NumProps *NumProps  `xml:"numPr"`
	RunProps *RunProps  `xml:"rPr"`
}

type NumProps struct {
	NumID *ValAttr `xml:"numId"`
}

type Indent struct {
	Left  string `xml:"left,attr"`
	Start string `xml:"start,attr"`
}

// LeftTwips returns the left indent in twips (w:start is the
// ISO-strict spelling of w:left).
func (i *Indent) LeftTwips() int {
	if i == nil {
		return 0
	}
	if v, err := strconv.Atoi(i.Left); err == nil {
		return v
	}
	if v, err := strconv.Atoi(i.Start); err == nil {
		return v
	}
	return 0
}

type Spacing struct {
	Before string `xml:"before,attr"`
	After  string `xml:"after,attr"`
}

type Run struct {
	Props    *RunProps `xml:"rPr"`
	Texts    []Text    `xml:"t"`
	Drawings []Drawing `xml:"drawing"`
}

type Text struct {
	Value string `xml:",chardata"`
}

type RunProps struct {
	Fonts     *RunFonts `xml:"rFonts"`
	Bold      *Toggle   `xml:"b"`
	Italic    *Toggle   `xml:"i"`
	Underline *ValAttr  `xml:"u"`
	Size      *ValAttr  `xml:"sz"`
	Color     *ValAttr  `xml:"color"`
}

type RunFonts struct {
	ASCII string `xml:"ascii,attr"`
}

// Toggle is an OOXML boolean element: present with no w:val means true.
type Toggle struct {
	Val string `xml:"val,attr"`
}

// On reports the effective boolean value of a toggle element.
func (t *Toggle) On() bool {
	if t == nil {
		return false
	}
	switch strings.ToLower(t.Val) {
	case "", "1", "true", "on":
		return true
	default:
		return false
	}
}

type ValAttr struct {
	Val string `xml:"val,attr"`
}

// HalfPoints returns the numeric value of a half-point measure, or 0.
func (v *ValAttr) HalfPoints() float64 {
	if v == nil {
		return 0
	}
	f, err := strconv.ParseFloat(v.Val, 64)
	if err != nil {
		return 0
	}
	return f
}

type SectPr struct {
	PageSize    *PageSize    `xml:"pgSz"`
	PageMargins *PageMargins `xml:"pgMar"`
}

type PageSize struct {
	W      string `xml:"w,attr"`
	H      string `xml:"h,attr"`
	Orient string `xml:"orient,attr"`
}

type PageMargins struct {
	Top    string `xml:"top,attr"`
	Bottom string `xml:"bottom,attr"`
	Left   string `xml:"left,attr"`
	Right  string `xml:"right,attr"`
}

// Drawing carries the pieces of an inline (or anchored) image the
// pipeline cares about: extent, doc properties and the blip embed id.
type Drawing struct {
	Inline *DrawingContent `xml:"inline"`
	Anchor *DrawingContent `xml:"anchor"`
}

// Content returns whichever of inline/anchor is present.
func (d Drawing) Content() *DrawingContent {
	if d.Inline != nil {
		return d.Inline
	}
	return d.Anchor
}

type DrawingContent struct {
	Extent  *Extent   `xml:"extent"`
	DocPr   *DocPr    `xml:"docPr"`
	Graphic *AGraphic `xml:"graphic"`
}

// BlipEmbed returns the image relationship id, if any.
func (c *DrawingContent) BlipEmbed() string {
	if c == nil || c.Graphic == nil || c.Graphic.Data == nil ||
		c.Graphic.Data.Pic == nil || c.Graphic.Data.Pic.BlipFill == nil ||
		c.Graphic.Data.Pic.BlipFill.Blip == nil {
		return ""
	}
	return c.Graphic.Data.Pic.BlipFill.Blip.Embed
}

type Extent struct {
	CX string `xml:"cx,attr"`
	CY string `xml:"cy,attr"`
}

// EMU per pixel at 96 DPI.
const emuPerPixel = 9525

// Pixels converts the extent from EMU to pixels at 96 DPI.
func (e *Extent) Pixels() (w, h float64) {
	if e == nil {
		return 0, 0
	}
	cx, _ := strconv.ParseFloat(e.CX, 64)
	cy, _ := strconv.ParseFloat(e.CY, 64)
	return cx / emuPerPixel, cy / emuPerPixel
}

type DocPr struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Title string `xml:"title,attr"`
}

type AGraphic struct {
	Data *AGraphicData `xml:"graphicData"`
}

type AGraphicData struct {
	Pic *Pic `xml:"pic"`
}

type Pic struct {
	BlipFill *BlipFill `xml:"blipFill"`
}

type BlipFill struct {
	Blip *Blip `xml:"blip"`
}

type Blip struct {
	Embed string `xml:"embed,attr"`
}

// PlainText concatenates the paragraph's run texts.
func (p Paragraph) PlainText() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		for _, t := range r.Texts {
			sb.WriteString(t.Value)
		}
	}
	return sb.String()
}

// StyleID returns the paragraph style id, if any.
func (p Paragraph) StyleID() string {
	if p.Props == nil || p.Props.Style == nil {
		return ""
	}
	return p.Props.Style.Val
}
