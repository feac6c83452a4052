package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// FallbackAnswer is shown in place of a raw transport error when a query
// fails. The real error goes to the log, never inline into the thread.
const FallbackAnswer = "Sorry, I encountered an error. Please try again."

// ConversationEngine replays persisted turns for the active conversation key
// and appends new ones. Single-document and multi-document chats share the
// engine; the ChatKey variant is the only difference.
//
// The engine is the sole mutator of its thread. A user turn is appended
// optimistically before the query round-trip; while that query is pending no
// second Ask is accepted for the key. Every async outcome carries the epoch
// it was issued under: Select bumps the epoch, so a response that arrives
// after the active key changed is dropped instead of landing in the wrong
// thread.
type ConversationEngine struct {
	client *Client
	logger *Logger

	key     ChatKey
	turns   []Turn
	pending bool
	epoch   uint64
}

type HistoryRequest struct {
	Key   ChatKey
	epoch uint64
}

type HistoryOutcome struct {
	Request HistoryRequest
	Records []ConversationRecord
	Err     error
}

type AskRequest struct {
	Key      ChatKey
	Question string
	epoch    uint64
}

type AskOutcome struct {
	Request AskRequest
	Answer  string
	Err     error
}

func NewConversationEngine(client *Client, logger *Logger) *ConversationEngine {
	return &ConversationEngine{client: client, logger: logger}
}

// Select switches the active key, discarding the in-memory thread. It
// returns the history request to run for the new key. Selecting the key
// that is already active is a no-op.
func (e *ConversationEngine) Select(key ChatKey) (HistoryRequest, bool) {
	if key.Equal(e.key) {
		return HistoryRequest{}, false
	}
	e.key = key
	e.turns = nil
	e.pending = false
	e.epoch++
	if key.IsZero() {
		return HistoryRequest{}, false
	}
	return HistoryRequest{Key: key, epoch: e.epoch}, true
}

// Reset clears the engine entirely; used when the active document or session
// is deleted out from under the thread.
func (e *ConversationEngine) Reset() {
	e.key = ChatKey{}
	e.turns = nil
	e.pending = false
	e.epoch++
}

// FetchHistory performs the round-trip for a request produced by Select. It
// does not mutate the engine.
func (e *ConversationEngine) FetchHistory(ctx context.Context, req HistoryRequest) HistoryOutcome {
	records, err := e.client.Conversations(ctx, req.Key)
	return HistoryOutcome{Request: req, Records: records, Err: err}
}

// ApplyHistory folds the fetched history into the thread, flattening each
// persisted pair into a user turn followed by an assistant turn. Stale
// outcomes are dropped; a failed fetch degrades to an empty thread with a
// logged diagnostic. Any turns already in the thread were appended after the
// fetch was issued (Select cleared it), so the replayed history is spliced in
// front of them instead of replacing them; a question asked while the history
// was still in flight stays visible.
func (e *ConversationEngine) ApplyHistory(out HistoryOutcome) bool {
	if out.Request.epoch != e.epoch {
		return false
	}
	if out.Err != nil {
		e.logger.Error("failed to load conversations", map[string]interface{}{
			"key":   keyFields(out.Request.Key),
			"error": out.Err.Error(),
		})
		return false
	}
	turns := make([]Turn, 0, len(out.Records)*2+len(e.turns))
	for _, rec := range out.Records {
		turns = append(turns,
			Turn{ID: uuid.NewString(), Role: RoleUser, Content: rec.Question},
			Turn{ID: uuid.NewString(), Role: RoleAssistant, Content: rec.Answer},
		)
	}
	e.turns = append(turns, e.turns...)
	return true
}

// Ask validates the question and appends the user turn optimistically, so
// the question is visible before the round-trip resolves. A second Ask while
// one is pending for this key is rejected locally.
func (e *ConversationEngine) Ask(question string) (AskRequest, error) {
	if e.key.IsZero() {
		return AskRequest{}, validationErr(CodeNoActiveChat, "select a document or session first")
	}
	if e.pending {
		return AskRequest{}, validationErr(CodeQueryPending, "wait for the current answer")
	}
	if strings.TrimSpace(question) == "" {
		return AskRequest{}, validationErr(CodeEmptyQuestion, "enter a question")
	}
	e.turns = append(e.turns, Turn{ID: uuid.NewString(), Role: RoleUser, Content: question})
	e.pending = true
	return AskRequest{Key: e.key, Question: question, epoch: e.epoch}, nil
}

// ExecuteAsk performs the query round-trip. It does not mutate the engine.
func (e *ConversationEngine) ExecuteAsk(ctx context.Context, req AskRequest) AskOutcome {
	resp, err := e.client.Query(ctx, req.Key, req.Question)
	if err != nil {
		return AskOutcome{Request: req, Err: err}
	}
	return AskOutcome{Request: req, Answer: resp.Answer}
}

// ApplyAnswer appends the assistant turn for a completed query, or the
// fixed fallback turn on failure. Outcomes issued under a superseded epoch
// are dropped so they cannot mutate another key's thread.
func (e *ConversationEngine) ApplyAnswer(out AskOutcome) bool {
	if out.Request.epoch != e.epoch {
		e.logger.Info("dropped stale answer", map[string]interface{}{
			"key": keyFields(out.Request.Key),
		})
		return false
	}
	e.pending = false
	if out.Err != nil {
		e.logger.Error("query failed", map[string]interface{}{
			"key":   keyFields(out.Request.Key),
			"error": out.Err.Error(),
		})
		e.turns = append(e.turns, Turn{ID: uuid.NewString(), Role: RoleAssistant, Content: FallbackAnswer})
		return true
	}
	e.turns = append(e.turns, Turn{ID: uuid.NewString(), Role: RoleAssistant, Content: out.Answer})
	return true
}

func (e *ConversationEngine) Key() ChatKey { return e.key }
func (e *ConversationEngine) Pending() bool { return e.pending }

// Turns returns the displayed thread in order.
func (e *ConversationEngine) Turns() []Turn { return e.turns }

func keyFields(k ChatKey) map[string]interface{} {
	switch {
	case k.IsDocument():
		return map[string]interface{}{"document_id": k.ID()}
	case k.IsSession():
		return map[string]interface{}{"session_id": k.ID()}
	default:
		return map[string]interface{}{"kind": "none"}
	}
}
