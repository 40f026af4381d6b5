package ooxml

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
)

// Write-side types. Marshal emits the conventional w:/wp:/a:/pic:
// prefixes; the document root declares the namespaces.

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
)

type WDocument struct {
	XMLName  xml.Name `xml:"w:document"`
	XmlnsW   string   `xml:"xmlns:w,attr"`
	XmlnsR   string   `xml:"xmlns:r,attr"`
	XmlnsWP  string   `xml:"xmlns:wp,attr"`
	XmlnsA   string   `xml:"xmlns:a,attr"`
	XmlnsPic string   `xml:"xmlns:pic,attr"`
	Body     WBody    `xml:"w:body"`
}

// NewWDocument returns a document root with namespaces declared.
func NewWDocument() *WDocument {
	return &WDocument{
		XmlnsW:   nsW,
		XmlnsR:   nsR,
		XmlnsWP:  nsWP,
		XmlnsA:   nsA,
		XmlnsPic: nsPic,
	}
}

// WBody keeps paragraphs before the section properties; OOXML requires
// sectPr to be the last child of the body.
type WBody struct {
	Paragraphs []WParagraph `xml:"w:p"`
	SectPr     *WSectPr     `xml:"w:sectPr"`
}

type WParagraph struct {
	Props *WParaProps `xml:"w:pPr"`
	Runs  []WRun      `xml:"w:r"`
}

type WParaProps struct {
	Style    *WVal     `xml:"w:pStyle"`
	Justify  *WVal     `xml:"w:jc"`
	RunProps *WRunProps `xml:"w:rPr"`
}

type WRun struct {
	Props   *WRunProps `xml:"w:rPr"`
	Text    *WText     `xml:"w:t"`
	Drawing *WDrawing  `xml:"w:drawing"`
}

type WText struct {
	Space string `xml:"xml:space,attr"`
	Value string `xml:",chardata"`
}

// NewWText builds a text node with xml:space=preserve.
func NewWText(value string) *WText {
	return &WText{Space: "preserve", Value: value}
}

// WRunProps field order matters: OOXML requires rFonts, b/i/u, sz,
// szCs, color within a run's properties.
type WRunProps struct {
	Fonts     *WFonts `xml:"w:rFonts"`
	Bold      *WEmpty `xml:"w:b"`
	Italic    *WEmpty `xml:"w:i"`
	Underline *WVal   `xml:"w:u"`
	Size      *WVal   `xml:"w:sz"`
	SizeCs    *WVal   `xml:"w:szCs"`
	Color     *WVal   `xml:"w:color"`
}

type WFonts struct {
	ASCII string `xml:"w:ascii,attr"`
	HAnsi string `xml:"w:hAnsi,attr"`
}

type WEmpty struct{}

type WVal struct {
	Val string `xml:"w:val,attr"`
}

type WSectPr struct {
	PageSize    *WPageSize    `xml:"w:pgSz"`
	PageMargins *WPageMargins `xml:"w:pgMar"`
}

type WPageSize struct {
	W      int    `xml:"w:w,attr"`
	H      int    `xml:"w:h,attr"`
	Orient string `xml:"w:orient,attr,omitempty"`
}

type WPageMargins struct {
	Top    int `xml:"w:top,attr"`
	Bottom int `xml:"w:bottom,attr"`
	Left   int `xml:"w:left,attr"`
	Right  int `xml:"w:right,attr"`
}

// Drawing emission: wp:inline > a:graphic > a:graphicData > pic:pic.

type WDrawing struct {
	Inline WInline `xml:"wp:inline"`
}

type WInline struct {
	Extent  WExtent  `xml:"wp:extent"`
	DocPr   WDocPr   `xml:"wp:docPr"`
	Graphic WGraphic `xml:"a:graphic"`
}

type WExtent struct {
	CX int64 `xml:"cx,attr"`
	CY int64 `xml:"cy,attr"`
}

type WDocPr struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Title string `xml:"title,attr,omitempty"`
}

type WGraphic struct {
	Data WGraphicData `xml:"a:graphicData"`
}

type WGraphicData struct {
	URI string `xml:"uri,attr"`
	Pic WPic   `xml:"pic:pic"`
}

type WPic struct {
	NvPicPr  WNvPicPr  `xml:"pic:nvPicPr"`
	BlipFill WBlipFill `xml:"pic:blipFill"`
	SpPr     WSpPr     `xml:"pic:spPr"`
}

type WNvPicPr struct {
	CNvPr    WDocPr `xml:"pic:cNvPr"`
	CNvPicPr WEmpty `xml:"pic:cNvPicPr"`
}

type WBlipFill struct {
	Blip    WBlip  `xml:"a:blip"`
	Stretch WEmpty `xml:"a:stretch"`
}

type WBlip struct {
	Embed string `xml:"r:embed,attr"`
}

type WSpPr struct {
	Xfrm WXfrm      `xml:"a:xfrm"`
	Geom WPrstGeom  `xml:"a:prstGeom"`
}

type WXfrm struct {
	Off WOff    `xml:"a:off"`
	Ext WExtent `xml:"a:ext"`
}

type WOff struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type WPrstGeom struct {
	Prst string `xml:"prst,attr"`
}

// NewInlineImage builds a centered inline drawing for an image
// relationship, sized in EMU.
func NewInlineImage(id int, name, relID string, cx, cy int64) *WDrawing {
	return &WDrawing{
		Inline: WInline{
			Extent: WExtent{CX: cx, CY: cy},
			DocPr:  WDocPr{ID: id, Name: name, Title: name},
			Graphic: WGraphic{
				Data: WGraphicData{
					URI: nsPic,
					Pic: WPic{
						NvPicPr: WNvPicPr{
							CNvPr: WDocPr{ID: id, Name: name},
						},
						BlipFill: WBlipFill{
							Blip: WBlip{Embed: relID},
						},
						SpPr: WSpPr{
							Xfrm: WXfrm{Ext: WExtent{CX: cx, CY: cy}},
							Geom: WPrstGeom{Prst: "rect"},
						},
					},
				},
			},
		},
	}
}

// Styles part emission.

type WStyles struct {
	XMLName     xml.Name      `xml:"w:styles"`
	XmlnsW      string        `xml:"xmlns:w,attr"`
	DocDefaults *WDocDefaults `xml:"w:docDefaults"`
	Styles      []WStyle      `xml:"w:style"`
}

func NewWStyles() *WStyles {
	return &WStyles{XmlnsW: nsW}
}

type WDocDefaults struct {
	RunDefault WRPrDefault `xml:"w:rPrDefault"`
}

type WRPrDefault struct {
	RunProps *WRunProps `xml:"w:rPr"`
}

type WStyle struct {
	Type     string     `xml:"w:type,attr"`
	StyleID  string     `xml:"w:styleId,attr"`
	Name     *WVal      `xml:"w:name"`
	BasedOn  *WVal      `xml:"w:basedOn"`
	RunProps *WRunProps `xml:"w:rPr"`
}

// MarshalPart serialises a write-side root with the XML declaration.
func MarshalPart(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal part: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// Fixed packaging parts.

// ContentTypesXML builds [Content_Types].xml covering the document,
// styles and any image extensions in use.
func ContentTypesXML(imageExts []string) []byte {
	type def struct {
		XMLName     xml.Name `xml:"Default"`
		Extension   string   `xml:"Extension,attr"`
		ContentType string   `xml:"ContentType,attr"`
	}
	type override struct {
		XMLName     xml.Name `xml:"Override"`
		PartName    string   `xml:"PartName,attr"`
		ContentType string   `xml:"ContentType,attr"`
	}
	type types struct {
		XMLName   xml.Name `xml:"Types"`
		Xmlns     string   `xml:"xmlns,attr"`
		Defaults  []def
		Overrides []override
	}

	t := types{
		Xmlns: "http://schemas.openxmlformats.org/package/2006/content-types",
		Defaults: []def{
			{Extension: "rels", ContentType: "application/vnd.openxmlformats-package.relationships+xml"},
			{Extension: "xml", ContentType: "application/xml"},
		},
		Overrides: []override{
			{PartName: "/" + PartDocument, ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"},
			{PartName: "/" + PartStyles, ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"},
		},
	}
	seen := map[string]bool{}
	for _, ext := range imageExts {
		if seen[ext] {
			continue
		}
		seen[ext] = true
		ct := "image/" + ext
		if ext == "jpg" {
			ct = "image/jpeg"
		}
		t.Defaults = append(t.Defaults, def{Extension: ext, ContentType: ct})
	}

	data, _ := MarshalPart(t)
	return data
}

// RootRelsXML builds _rels/.rels pointing at the document part.
func RootRelsXML() []byte {
	data, _ := MarshalPart(relsRoot{
		Xmlns: "http://schemas.openxmlformats.org/package/2006/relationships",
		Rels: []relEntry{
			{ID: "rId1", Type: RelTypeOfficeDocument, Target: PartDocument},
		},
	})
	return data
}

// DocumentRelsXML builds word/_rels/document.xml.rels for the styles
// part plus image relationships (relID -> media target).
func DocumentRelsXML(imageTargets map[string]string) []byte {
	root := relsRoot{
		Xmlns: "http://schemas.openxmlformats.org/package/2006/relationships",
		Rels: []relEntry{
			{ID: "rIdStyles", Type: RelTypeStyles, Target: "styles.xml"},
		},
	}
	// Stable order for reproducible output.
	ids := make([]string, 0, len(imageTargets))
	for id := range imageTargets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		root.Rels = append(root.Rels, relEntry{ID: id, Type: RelTypeImage, Target: imageTargets[id]})
	}
	data, _ := MarshalPart(root)
	return data
}

type relsRoot struct {
	XMLName xml.Name   `xml:"Relationships"`
	Xmlns   string     `xml:"xmlns,attr"`
	Rels    []relEntry `xml:"Relationship"`
}

type relEntry struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// FormatHalfPoints renders a point size as an OOXML half-point string.
func FormatHalfPoints(sizePt float64) string {
	return strconv.Itoa(int(sizePt*2 + 0.5))
}
