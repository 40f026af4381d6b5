// Package parser dispatches parsing jobs to a document handler by
// document type. Handlers are stateless apart from per-call buffers.
package parser

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/parser/docx"
	"github.com/dtce-ai/docpipe/internal/parser/gdoc"
	"github.com/dtce-ai/docpipe/internal/parser/pdfdoc"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// DocumentHandler parses one document into a ParseResult, storing any
// extracted images in the object store.
type DocumentHandler interface {
	Parse(ctx context.Context, job models.JobRequest, store storage.ObjectStore) (*models.ParseResult, error)
}

// Dispatcher is the constant lookup table over document types.
type Dispatcher struct {
	handlers map[models.DocumentType]DocumentHandler
}

// NewDispatcher builds the handler table. client is used by handlers
// that fetch remote documents.
func NewDispatcher(client *http.Client) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Dispatcher{
		handlers: map[models.DocumentType]DocumentHandler{
			models.DocumentTypeDocx:      docx.NewHandler(),
			models.DocumentTypePdf:       pdfdoc.NewHandler(),
			models.DocumentTypeGoogleDoc: gdoc.NewHandler(client),
		},
	}
}

// Resolve returns the handler for a document type.
func (d *Dispatcher) Resolve(t models.DocumentType) (DocumentHandler, error) {
	h, ok := d.handlers[t]
	if !ok {
		return nil, fmt.Errorf("unsupported document type %q", t)
	}
	return h, nil
}
