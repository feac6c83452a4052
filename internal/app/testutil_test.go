package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeBackend is a minimal in-memory stand-in for the document QA API, just
// enough surface for the store tests.
type fakeBackend struct {
	mux *http.ServeMux

	topics      []Topic
	papers      []SavedPaper
	documents   []Document
	sessions    []Session
	sessionDocs map[int64][]SessionDocument
	convs       map[string][]ConversationRecord

	searchTotal  int
	searchPapers []Paper
	answer       string
	failQuery    bool

	requests int
	nextID   int64
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		sessionDocs: make(map[int64][]SessionDocument),
		convs:       make(map[string][]ConversationRecord),
		answer:      "the answer",
		nextID:      100,
	}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /search/papers", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		writeJSON(w, SearchResponse{Papers: b.searchPapers, Total: b.searchTotal})
	})

	mux.HandleFunc("POST /papers/save", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		var req struct {
			Paper     Paper  `json:"paper"`
			TopicName string `json:"topic_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		topicID := int64(0)
		for i := range b.topics {
			if b.topics[i].Name == req.TopicName {
				topicID = b.topics[i].ID
				b.topics[i].PaperCount++
			}
		}
		if topicID == 0 {
			b.nextID++
			topicID = b.nextID
			b.topics = append(b.topics, Topic{ID: topicID, Name: req.TopicName, PaperCount: 1})
		}
		b.nextID++
		b.papers = append(b.papers, SavedPaper{ID: b.nextID, Title: req.Paper.Title, TopicID: topicID})
		writeJSON(w, SaveResponse{Message: "Paper saved successfully", PaperID: b.nextID})
	})

	mux.HandleFunc("GET /topics", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		writeJSON(w, b.topics)
	})

	mux.HandleFunc("GET /topics/{id}/papers", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		out := []SavedPaper{}
		for _, p := range b.papers {
			if p.TopicID == id {
				out = append(out, p)
			}
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("DELETE /papers/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		for i, p := range b.papers {
			if p.ID == id {
				b.papers = append(b.papers[:i], b.papers[i+1:]...)
				writeJSON(w, map[string]string{"message": "Paper deleted successfully"})
				return
			}
		}
		http.Error(w, `{"detail":"Paper not found"}`, http.StatusNotFound)
	})

	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, `{"detail":"bad form"}`, http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"detail":"missing file"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		topicID, _ := strconv.ParseInt(r.FormValue("topic_id"), 10, 64)
		b.nextID++
		doc := Document{
			ID:         b.nextID,
			Filename:   header.Filename,
			FileSize:   int64(len(data)),
			ChunkCount: 3,
			TopicID:    topicID,
		}
		b.documents = append(b.documents, doc)
		writeJSON(w, UploadResponse{
			Message:    "Document uploaded successfully",
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Chunks:     doc.ChunkCount,
		})
	})

	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		out := []Document{}
		filter, _ := strconv.ParseInt(r.URL.Query().Get("topic_id"), 10, 64)
		for _, d := range b.documents {
			if filter == 0 || d.TopicID == filter {
				out = append(out, d)
			}
		}
		writeJSON(w, out)
	})

	mux.HandleFunc("DELETE /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		for i, d := range b.documents {
			if d.ID == id {
				b.documents = append(b.documents[:i], b.documents[i+1:]...)
				writeJSON(w, map[string]string{"message": "Document deleted successfully"})
				return
			}
		}
		http.Error(w, `{"detail":"Document not found"}`, http.StatusNotFound)
	})

	mux.HandleFunc("POST /sessions/create", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		var req struct {
			Name        string  `json:"name"`
			DocumentIDs []int64 `json:"document_ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.nextID++
		b.sessions = append(b.sessions, Session{ID: b.nextID, Name: req.Name, DocumentCount: len(req.DocumentIDs)})
		for _, docID := range req.DocumentIDs {
			name := fmt.Sprintf("doc-%d.pdf", docID)
			for _, d := range b.documents {
				if d.ID == docID {
					name = d.Filename
				}
			}
			b.sessionDocs[b.nextID] = append(b.sessionDocs[b.nextID], SessionDocument{ID: docID, Filename: name})
		}
		writeJSON(w, CreateSessionResponse{
			Message:       "Session created successfully",
			SessionID:     b.nextID,
			DocumentCount: len(req.DocumentIDs),
		})
	})

	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		writeJSON(w, b.sessions)
	})

	mux.HandleFunc("GET /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		for _, s := range b.sessions {
			if s.ID == id {
				writeJSON(w, SessionDetails{ID: s.ID, Name: s.Name, Documents: b.sessionDocs[id]})
				return
			}
		}
		http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
	})

	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		for i, s := range b.sessions {
			if s.ID == id {
				b.sessions = append(b.sessions[:i], b.sessions[i+1:]...)
				writeJSON(w, map[string]string{"message": "deleted"})
				return
			}
		}
		http.Error(w, `{"detail":"Session not found"}`, http.StatusNotFound)
	})

	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		if b.failQuery {
			http.Error(w, `{"detail":"vector store unavailable"}`, http.StatusInternalServerError)
			return
		}
		var req struct {
			DocumentID int64  `json:"document_id"`
			SessionID  int64  `json:"session_id"`
			Question   string `json:"question"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		key := convKey(req.DocumentID, req.SessionID)
		b.convs[key] = append(b.convs[key], ConversationRecord{Question: req.Question, Answer: b.answer})
		writeJSON(w, QueryResponse{Answer: b.answer, Question: req.Question})
	})

	mux.HandleFunc("GET /sessions/{id}/conversations", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		writeJSON(w, b.convs[convKey(0, id)])
	})

	mux.HandleFunc("GET /conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.requests++
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		writeJSON(w, b.convs[convKey(id, 0)])
	})

	b.mux = mux
	return b
}

func convKey(docID, sessID int64) string {
	if docID != 0 {
		return fmt.Sprintf("doc:%d", docID)
	}
	return fmt.Sprintf("sess:%d", sessID)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newTestApp wires an Application against a fake backend, logging to the
// test's own log via logWriter.
func newTestApp(t *testing.T) (*Application, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.mux)
	t.Cleanup(srv.Close)

	logger := NewLogger(io.Discard)
	client := NewClient(srv.URL, 5*time.Second, logger)
	bus := NewBus()
	return &Application{
		Config:    DefaultConfig(),
		Logger:    logger,
		Client:    client,
		Bus:       bus,
		Search:    NewSearchController(client, logger, 10),
		Topics:    NewTopicStore(client, logger, bus),
		Documents: NewDocumentRegistry(client, logger, bus),
		Sessions:  NewSessionManager(client, logger, bus),
		Chat:      NewConversationEngine(client, logger),
	}, backend
}

// logBuffer collects log lines so tests can assert that failures were
// logged rather than surfaced.
type logBuffer struct {
	lines []string
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.lines = append(l.lines, string(p))
	return len(p), nil
}

func (l *logBuffer) contains(substr string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
