package app

import (
	"context"
	"strings"
	"testing"
)

func TestValidateUploadOnlyAcceptsPDF(t *testing.T) {
	if err := ValidateUpload("paper.pdf", ""); err != nil {
		t.Fatalf("pdf rejected: %v", err)
	}
	if err := ValidateUpload("Paper.PDF", "application/pdf"); err != nil {
		t.Fatalf("pdf rejected: %v", err)
	}

	for _, tc := range []struct{ name, ct string }{
		{"notes.txt", ""},
		{"paper.docx", ""},
		{"paper.pdf", "text/plain"},
	} {
		err := ValidateUpload(tc.name, tc.ct)
		ve, ok := err.(*ValidationError)
		if !ok || ve.Code != CodeNotPDF {
			t.Fatalf("%s/%s: expected not_pdf validation error, got %v", tc.name, tc.ct, err)
		}
	}
}

func TestRejectedUploadMakesNoNetworkCall(t *testing.T) {
	application, backend := newTestApp(t)

	_, err := application.Documents.Upload(context.Background(), "notes.txt", strings.NewReader("x"), 0)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if backend.requests != 0 {
		t.Fatalf("expected no network calls, got %d", backend.requests)
	}
}

func TestStandaloneUploadVisibleOnlyWithoutTopicFilter(t *testing.T) {
	application, _ := newTestApp(t)
	ctx := context.Background()

	resp, err := application.Documents.Upload(ctx, "paper.pdf", strings.NewReader("%PDF-1.4"), 0)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.Chunks <= 0 {
		t.Fatalf("expected positive chunk count, got %d", resp.Chunks)
	}

	all, err := application.Documents.Fetch(ctx, 0)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	found := false
	for _, d := range all {
		if d.ID == resp.DocumentID {
			found = true
		}
	}
	if !found {
		t.Fatalf("standalone document missing from unfiltered list")
	}

	scoped, err := application.Documents.Fetch(ctx, 5)
	if err != nil {
		t.Fatalf("fetch scoped: %v", err)
	}
	for _, d := range scoped {
		if d.ID == resp.DocumentID {
			t.Fatalf("standalone document must not appear under topic 5")
		}
	}
}

func TestToggleEnforcesSelectionCap(t *testing.T) {
	application, _ := newTestApp(t)
	docs := make([]Document, 6)
	for i := range docs {
		docs[i] = Document{ID: int64(i + 1), Filename: "d.pdf"}
	}
	application.Documents.Apply(0, docs)

	for i := 0; i < SessionMaxDocuments; i++ {
		if err := application.Documents.Toggle(int64(i + 1)); err != nil {
			t.Fatalf("toggle %d: %v", i+1, err)
		}
	}
	err := application.Documents.Toggle(6)
	ve, ok := err.(*ValidationError)
	if !ok || ve.Code != CodeTooManyDocuments {
		t.Fatalf("expected too_many_documents, got %v", err)
	}

	// Untoggling frees a slot.
	if err := application.Documents.Toggle(1); err != nil {
		t.Fatalf("untoggle: %v", err)
	}
	if err := application.Documents.Toggle(6); err != nil {
		t.Fatalf("toggle after freeing slot: %v", err)
	}
	if application.Documents.SelectionCount() != SessionMaxDocuments {
		t.Fatalf("selection count: %d", application.Documents.SelectionCount())
	}
}

func TestSwitchingTopicScopeClearsSelection(t *testing.T) {
	application, _ := newTestApp(t)
	application.Documents.Apply(1, []Document{{ID: 10}, {ID: 11}})
	_ = application.Documents.Toggle(10)
	_ = application.Documents.Toggle(11)

	application.Documents.Apply(2, []Document{{ID: 20}})
	if application.Documents.SelectionCount() != 0 {
		t.Fatalf("selection must not survive a topic switch")
	}
}

func TestApplyDeletedRemovesFromListAndSelection(t *testing.T) {
	application, _ := newTestApp(t)
	application.Documents.Apply(0, []Document{{ID: 1}, {ID: 2}})
	_ = application.Documents.Toggle(1)
	_ = application.Documents.Toggle(2)

	application.Documents.ApplyDeleted(1)

	if len(application.Documents.Documents()) != 1 {
		t.Fatalf("documents: %d", len(application.Documents.Documents()))
	}
	if application.Documents.Selected(1) {
		t.Fatalf("deleted document still selected")
	}
	if !application.Documents.Selected(2) {
		t.Fatalf("unrelated selection lost")
	}
}
