package app

import (
	"context"
	"strings"
)

// SessionManager creates, lists, selects, and deletes multi-document chat
// sessions. A session moves nonexistent → created → active → deleted and is
// immutable once created; there is no add/remove of documents afterwards.
type SessionManager struct {
	client *Client
	logger *Logger
	bus    *Bus

	sessions []Session
	active   int64
}

func NewSessionManager(client *Client, logger *Logger, bus *Bus) *SessionManager {
	return &SessionManager{client: client, logger: logger, bus: bus}
}

// ValidateCreate checks the creation preconditions without touching the
// network. Empty name, too few documents, and too many documents are three
// distinct conditions; duplicate ids are rejected as well.
func ValidateCreate(name string, documentIDs []int64) error {
	if strings.TrimSpace(name) == "" {
		return validationErr(CodeEmptySessionName, "session name is required")
	}
	if len(documentIDs) < SessionMinDocuments {
		return validationErr(CodeTooFewDocuments, "select at least %d documents", SessionMinDocuments)
	}
	if len(documentIDs) > SessionMaxDocuments {
		return validationErr(CodeTooManyDocuments, "you can select up to %d documents", SessionMaxDocuments)
	}
	seen := make(map[int64]bool, len(documentIDs))
	for _, id := range documentIDs {
		if seen[id] {
			return validationErr(CodeDuplicateDocument, "duplicate document in selection")
		}
		seen[id] = true
	}
	return nil
}

// Create validates locally and then asks the backend to create the session.
func (m *SessionManager) Create(ctx context.Context, name string, documentIDs []int64) (CreateSessionResponse, error) {
	if err := ValidateCreate(name, documentIDs); err != nil {
		return CreateSessionResponse{}, err
	}
	return m.client.CreateSession(ctx, strings.TrimSpace(name), documentIDs)
}

// ApplyCreated marks the session list stale. The creation selection is
// cleared by the caller via the registry; it is never reused for the next
// session.
func (m *SessionManager) ApplyCreated() {
	m.bus.Publish(SessionsChanged)
}

func (m *SessionManager) Fetch(ctx context.Context) ([]Session, error) {
	return m.client.Sessions(ctx)
}

func (m *SessionManager) Apply(sessions []Session) {
	m.sessions = sessions
	if m.active != 0 && m.byID(m.active) == nil {
		m.active = 0
	}
}

func (m *SessionManager) FetchDetails(ctx context.Context, id int64) (SessionDetails, error) {
	return m.client.SessionDetails(ctx, id)
}

func (m *SessionManager) Delete(ctx context.Context, id int64) error {
	return m.client.DeleteSession(ctx, id)
}

// ApplyDeleted removes the session from the view and clears the active
// selection if it pointed at the deleted session.
func (m *SessionManager) ApplyDeleted(id int64) {
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	if m.active == id {
		m.active = 0
	}
	m.bus.Publish(SessionsChanged)
}

// Select marks a session as the active one. Selecting id zero clears the
// selection.
func (m *SessionManager) Select(id int64) *Session {
	if id == 0 {
		m.active = 0
		return nil
	}
	s := m.byID(id)
	if s == nil {
		return nil
	}
	m.active = id
	return s
}

func (m *SessionManager) Active() *Session    { return m.byID(m.active) }
func (m *SessionManager) ActiveID() int64     { return m.active }
func (m *SessionManager) Sessions() []Session { return m.sessions }

func (m *SessionManager) byID(id int64) *Session {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return &m.sessions[i]
		}
	}
	return nil
}
