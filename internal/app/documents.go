package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// SessionMinDocuments and SessionMaxDocuments bound how many documents a
// multi-document session may group. The bounds are inclusive.
const (
	SessionMinDocuments = 2
	SessionMaxDocuments = 5
)

// DocumentRegistry tracks uploaded documents, optionally scoped to a topic,
// and owns the document selection used for session creation. Documents
// uploaded without a topic are standalone: eligible for single-document chat
// only.
type DocumentRegistry struct {
	client *Client
	logger *Logger
	bus    *Bus

	documents []Document
	// scope is the topic filter of the cached list; zero means "all
	// documents" (standalone mode).
	scope     int64
	selection []int64
}

func NewDocumentRegistry(client *Client, logger *Logger, bus *Bus) *DocumentRegistry {
	return &DocumentRegistry{client: client, logger: logger, bus: bus}
}

// ValidateUpload rejects anything that is not a PDF before any network call.
// Both the filename extension and, when provided, the content type are
// checked.
func ValidateUpload(filename, contentType string) error {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return validationErr(CodeNotPDF, "only PDF files can be uploaded")
	}
	if contentType != "" && contentType != "application/pdf" {
		return validationErr(CodeNotPDF, "only PDF files can be uploaded")
	}
	return nil
}

// Upload registers a PDF with the backend. topicID zero uploads in
// standalone mode.
func (d *DocumentRegistry) Upload(ctx context.Context, filename string, content io.Reader, topicID int64) (UploadResponse, error) {
	if err := ValidateUpload(filename, ""); err != nil {
		return UploadResponse{}, err
	}
	return d.client.Upload(ctx, filepath.Base(filename), content, topicID)
}

// ApplyUploaded notifies dependents that the document list is stale. The
// upload response does not carry a full Document, so the list is refetched
// rather than patched.
func (d *DocumentRegistry) ApplyUploaded() {
	d.bus.Publish(DocumentsChanged)
}

// Fetch lists documents; topicID zero lists all of them.
func (d *DocumentRegistry) Fetch(ctx context.Context, topicID int64) ([]Document, error) {
	return d.client.Documents(ctx, topicID)
}

func (d *DocumentRegistry) Apply(topicID int64, documents []Document) {
	d.documents = documents
	if d.scope != topicID {
		// Switching topics deterministically clears the selection; a
		// selection never spans topic scopes.
		d.selection = nil
	}
	d.scope = topicID
	// Drop selected ids that no longer exist in the refreshed list.
	kept := d.selection[:0]
	for _, id := range d.selection {
		if d.has(id) {
			kept = append(kept, id)
		}
	}
	d.selection = kept
}

func (d *DocumentRegistry) Delete(ctx context.Context, id int64) error {
	return d.client.DeleteDocument(ctx, id)
}

// ApplyDeleted removes the document from the cached view and from the
// selection. Clearing any active chat keyed to this document is the
// caller's responsibility.
func (d *DocumentRegistry) ApplyDeleted(id int64) {
	docs := d.documents[:0]
	for _, doc := range d.documents {
		if doc.ID != id {
			docs = append(docs, doc)
		}
	}
	d.documents = docs

	sel := d.selection[:0]
	for _, sid := range d.selection {
		if sid != id {
			sel = append(sel, sid)
		}
	}
	d.selection = sel
	d.bus.Publish(DocumentsChanged)
}

// Toggle flips a document in or out of the session selection. Adding past
// the session cap is rejected locally.
func (d *DocumentRegistry) Toggle(id int64) error {
	for i, sid := range d.selection {
		if sid == id {
			d.selection = append(d.selection[:i], d.selection[i+1:]...)
			return nil
		}
	}
	if len(d.selection) >= SessionMaxDocuments {
		return validationErr(CodeTooManyDocuments, "you can select up to %d documents", SessionMaxDocuments)
	}
	if !d.has(id) {
		return validationErr(CodeDuplicateDocument, "document is not in the current list")
	}
	d.selection = append(d.selection, id)
	return nil
}

func (d *DocumentRegistry) ClearSelection() { d.selection = nil }

func (d *DocumentRegistry) Selected(id int64) bool {
	for _, sid := range d.selection {
		if sid == id {
			return true
		}
	}
	return false
}

// Selection returns the selected ids in toggle order.
func (d *DocumentRegistry) Selection() []int64 {
	out := make([]int64, len(d.selection))
	copy(out, d.selection)
	return out
}

func (d *DocumentRegistry) SelectionCount() int   { return len(d.selection) }
func (d *DocumentRegistry) Documents() []Document { return d.documents }
func (d *DocumentRegistry) Scope() int64          { return d.scope }

func (d *DocumentRegistry) has(id int64) bool {
	for _, doc := range d.documents {
		if doc.ID == id {
			return true
		}
	}
	return false
}
