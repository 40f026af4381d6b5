// Package ooxml reads and writes Office Open XML (WordprocessingML)
// packages. A package is a zip archive of XML parts plus media; this
// package exposes the parts the pipeline needs (document body, styles,
// relationships, images) and can rebuild a valid archive.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

// Well-known part names.
const (
	PartContentTypes = "[Content_Types].xml"
	PartRootRels     = "_rels/.rels"
	PartDocument     = "word/document.xml"
	PartStyles       = "word/styles.xml"
	PartDocumentRels = "word/_rels/document.xml.rels"
)

// Relationship types.
const (
	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelTypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// Package is an in-memory OOXML package: part name to bytes.
type Package struct {
	parts map[string][]byte
	order []string
}

// NewPackage returns an empty package.
func NewPackage() *Package {
	return &Package{parts: make(map[string][]byte)}
}

// Open reads a package from docx bytes.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}

	p := NewPackage()
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		p.SetPart(f.Name, content)
	}

	if _, ok := p.parts[PartDocument]; !ok {
		return nil, fmt.Errorf("not a WordprocessingML package: missing %s", PartDocument)
	}
	return p, nil
}

// Part returns the raw bytes of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[name]
	return data, ok
}

// SetPart stores (or replaces) a part.
func (p *Package) SetPart(name string, data []byte) {
	if _, exists := p.parts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

// PartNames returns part names in insertion order.
func (p *Package) PartNames() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Save writes the package as a zip archive.
func (p *Package) Save(w io.Writer) error {
	zw := zip.NewWriter(w)
	// Content types first, then stable order for reproducible bytes.
	names := p.PartNames()
	sort.SliceStable(names, func(i, j int) bool {
		if names[i] == PartContentTypes {
			return true
		}
		if names[j] == PartContentTypes {
			return false
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// Document parses word/document.xml.
func (p *Package) Document() (*Document, error) {
	data, ok := p.parts[PartDocument]
	if !ok {
		return nil, fmt.Errorf("missing part %s", PartDocument)
	}
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document part: %w", err)
	}
	return &doc, nil
}

// Styles parses word/styles.xml. A missing styles part yields an empty
// style set, not an error.
func (p *Package) Styles() (*Styles, error) {
	data, ok := p.parts[PartStyles]
	if !ok {
		return &Styles{}, nil
	}
	var st Styles
	if err := xml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse styles part: %w", err)
	}
	return &st, nil
}

// DocumentRels parses the document part's relationships. Targets are
// resolved relative to word/.
func (p *Package) DocumentRels() (map[string]Relationship, error) {
	rels := make(map[string]Relationship)
	data, ok := p.parts[PartDocumentRels]
	if !ok {
		return rels, nil
	}
	var parsed Relationships
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse document relationships: %w", err)
	}
	for _, r := range parsed.Rels {
		rels[r.ID] = r
	}
	return rels, nil
}

// ResolveRelTarget maps a document relationship target to a part name.
func ResolveRelTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("word", target)
}

// ImagePart is one media part of the package.
type ImagePart struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageParts returns media parts in stable name order with content
// types resolved from [Content_Types].xml (extension fallback when no
// override matches).
func (p *Package) ImageParts() ([]ImagePart, error) {
	types, err := p.contentTypes()
	if err != nil {
		return nil, err
	}

	var names []string
	for name := range p.parts {
		if strings.HasPrefix(name, "word/media/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]ImagePart, 0, len(names))
	for _, name := range names {
		ct := types.typeOf(name)
		if !strings.HasPrefix(ct, "image/") {
			continue
		}
		out = append(out, ImagePart{Name: name, ContentType: ct, Data: p.parts[name]})
	}
	return out, nil
}

func (p *Package) contentTypes() (*ContentTypes, error) {
	data, ok := p.parts[PartContentTypes]
	if !ok {
		return &ContentTypes{}, nil
	}
	var ct ContentTypes
	if err := xml.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("failed to parse content types: %w", err)
	}
	return &ct, nil
}

func (ct *ContentTypes) typeOf(partName string) string {
	for _, o := range ct.Overrides {
		if strings.TrimPrefix(o.PartName, "/") == partName {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(partName)), ".")
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	// Common image extensions when the content-types part is sparse.
	switch ext {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	}
	return ""
}

// ExtensionForContentType maps an image content type to a file
// extension, defaulting to png.
func ExtensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	default:
		return "png"
	}
}
