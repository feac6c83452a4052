package app

// Paper is a transient search result. It has no stable identity until it is
// saved into a topic; replacing the result set discards it.
type Paper struct {
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Abstract      string `json:"abstract"`
	Year          int    `json:"year"`
	Citations     int    `json:"citations"`
	Views         int    `json:"views"`
	PDFLink       string `json:"pdf_link,omitempty"`
	PublisherLink string `json:"publisher_link,omitempty"`
	Source        string `json:"source,omitempty"`
}

// SavedPaper is the server-side record created when a Paper is saved under a
// topic. Always belongs to exactly one topic.
type SavedPaper struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Abstract      string `json:"abstract"`
	Year          int    `json:"year"`
	Citations     int    `json:"citations"`
	Views         int    `json:"views"`
	PDFLink       string `json:"pdf_link,omitempty"`
	PublisherLink string `json:"publisher_link,omitempty"`
	TopicID       int64  `json:"topic_id"`
}

type Topic struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PaperCount int    `json:"paper_count"`
	// CreatedDate is kept as the backend's serialized form; the client never
	// does date arithmetic on it.
	CreatedDate string `json:"created_date,omitempty"`
}

type Document struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	FileSize   int64  `json:"file_size,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	UploadDate string `json:"upload_date,omitempty"`
	// TopicID is zero for standalone documents (single-document chat only).
	TopicID int64 `json:"topic_id,omitempty"`
}

type Session struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
	CreatedDate   string `json:"created_date,omitempty"`
}

// SessionDetails is the expanded session view including its member documents.
type SessionDetails struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	CreatedDate string            `json:"created_date,omitempty"`
	Documents   []SessionDocument `json:"documents"`
}

type SessionDocument struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

// ConversationRecord is one persisted question/answer pair as the backend
// stores it. The engine flattens each record into two display turns.
type ConversationRecord struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is one displayed conversation entry, strictly ordered by creation.
type Turn struct {
	ID      string
	Role    TurnRole
	Content string
}

// ChatKey addresses a persisted conversation thread: either a single
// document or a multi-document session. The two variants share the engine
// but never mix within one thread.
type ChatKey struct {
	kind keyKind
	id   int64
}

type keyKind int

const (
	keyNone keyKind = iota
	keyDocument
	keySession
)

func DocumentKey(id int64) ChatKey { return ChatKey{kind: keyDocument, id: id} }
func SessionKey(id int64) ChatKey  { return ChatKey{kind: keySession, id: id} }

func (k ChatKey) IsZero() bool         { return k.kind == keyNone }
func (k ChatKey) IsDocument() bool     { return k.kind == keyDocument }
func (k ChatKey) IsSession() bool      { return k.kind == keySession }
func (k ChatKey) ID() int64            { return k.id }
func (k ChatKey) Equal(o ChatKey) bool { return k.kind == o.kind && k.id == o.id }
