package gdoc

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// onePixelPNG is a 1x1 transparent PNG.
var onePixelPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

type stubTransport struct {
	responses map[string]string // URL prefix -> HTML body
}

func (t *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for prefix, body := range t.responses {
		if strings.HasPrefix(req.URL.String(), prefix) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     make(http.Header),
			}, nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
		Header:     make(http.Header),
	}, nil
}

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (s *memStore) Upload(_ context.Context, key string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = b
	return nil
}

func (s *memStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.test/" + key, nil
}

func (s *memStore) Delete(_ context.Context, key string) error { return nil }

const exportHTML = `<html><body>
<h1>First Chapter</h1>
<p>Opening paragraph.</p>
<h1>Second Chapter</h1>
<p>Another paragraph.</p>
<h2>Details</h2>
<p>Nested text.</p>
<img src="data:image/png;base64,` + "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==" + `">
</body></html>`

func TestParseBuildsHierarchyFromHeaders(t *testing.T) {
	client := &http.Client{Transport: &stubTransport{responses: map[string]string{
		"https://docs.google.com/document/d/abc123/export": exportHTML,
	}}}
	store := newMemStore()
	h := NewHandler(client)

	result, err := h.Parse(context.Background(), models.JobRequest{
		JobID:        "job-g1",
		DocumentType: models.DocumentTypeGoogleDoc,
		DocumentURL:  "https://docs.google.com/document/d/abc123/edit",
	}, store)
	require.NoError(t, err)

	sections := result.TemplateJSON.SectionHierarchy.Sections
	require.Len(t, sections, 2)
	assert.Equal(t, "First Chapter", sections[0].SectionTitle)
	assert.Empty(t, sections[0].SubSections)
	assert.Equal(t, "Second Chapter", sections[1].SectionTitle)
	require.Len(t, sections[1].SubSections, 1)
	assert.Equal(t, "Details", sections[1].SubSections[0].SectionTitle)

	texts := map[string]string{}
	for _, cs := range result.ContentSections {
		texts[cs.SectionTitle] = cs.SampleText
	}
	assert.Equal(t, "Opening paragraph.", texts["First Chapter"])
	assert.Equal(t, "Another paragraph.", texts["Second Chapter"])
	assert.Equal(t, "Nested text.", texts["Details"])

	require.Len(t, result.TemplateJSON.LogoMap, 1)
	logo := result.TemplateJSON.LogoMap[0]
	assert.Equal(t, "google_0", logo.AssetID)
	assert.Equal(t, models.ImageKey("job-g1", "google_0", "png"), logo.StorageKey)
	assert.Equal(t, onePixelPNG, store.objects[logo.StorageKey])
}

func TestParseRejectsNonGoogleURL(t *testing.T) {
	h := NewHandler(nil)
	_, err := h.Parse(context.Background(), models.JobRequest{
		JobID:       "job-g2",
		DocumentURL: "https://example.com/report.docx",
	}, newMemStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a Google Docs URL")
}

func TestExtractDocID(t *testing.T) {
	id, err := extractDocID("https://docs.google.com/document/d/1AbC-xyz_9/edit#heading=h.1")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-xyz_9", id)
}
