package app

import (
	"context"
	"testing"
)

func TestHistoryFlattensPairsInOrder(t *testing.T) {
	application, backend := newTestApp(t)
	backend.convs["doc:3"] = []ConversationRecord{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}

	req, ok := application.Chat.Select(DocumentKey(3))
	if !ok {
		t.Fatalf("select should trigger a history load")
	}
	if !application.Chat.ApplyHistory(application.Chat.FetchHistory(context.Background(), req)) {
		t.Fatalf("history rejected")
	}

	turns := application.Chat.Turns()
	want := []struct {
		role    TurnRole
		content string
	}{
		{RoleUser, "q1"}, {RoleAssistant, "a1"},
		{RoleUser, "q2"}, {RoleAssistant, "a2"},
	}
	if len(turns) != len(want) {
		t.Fatalf("turns: %d, want %d", len(turns), len(want))
	}
	for i, w := range want {
		if turns[i].Role != w.role || turns[i].Content != w.content {
			t.Fatalf("turn %d = %s %q, want %s %q", i, turns[i].Role, turns[i].Content, w.role, w.content)
		}
	}
}

func TestAskAppendsUserThenAssistantWithoutReordering(t *testing.T) {
	application, backend := newTestApp(t)
	backend.convs["sess:9"] = []ConversationRecord{{Question: "old q", Answer: "old a"}}
	backend.answer = "fresh answer"

	req, _ := application.Chat.Select(SessionKey(9))
	application.Chat.ApplyHistory(application.Chat.FetchHistory(context.Background(), req))

	ask, err := application.Chat.Ask("what changed?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	// The user turn is visible before the round-trip resolves.
	turns := application.Chat.Turns()
	if len(turns) != 3 || turns[2].Role != RoleUser || turns[2].Content != "what changed?" {
		t.Fatalf("optimistic user turn missing: %+v", turns)
	}
	if !application.Chat.Pending() {
		t.Fatalf("engine should be pending during the round-trip")
	}

	if !application.Chat.ApplyAnswer(application.Chat.ExecuteAsk(context.Background(), ask)) {
		t.Fatalf("answer rejected")
	}
	turns = application.Chat.Turns()
	if len(turns) != 4 {
		t.Fatalf("turns: %d", len(turns))
	}
	if turns[0].Content != "old q" || turns[1].Content != "old a" {
		t.Fatalf("prior turns reordered: %+v", turns[:2])
	}
	if turns[3].Role != RoleAssistant || turns[3].Content != "fresh answer" {
		t.Fatalf("assistant turn: %+v", turns[3])
	}
	if application.Chat.Pending() {
		t.Fatalf("pending flag should clear after the answer")
	}
}

func TestHistoryArrivingAfterAskKeepsOptimisticTurn(t *testing.T) {
	application, backend := newTestApp(t)
	backend.convs["doc:1"] = []ConversationRecord{{Question: "old q", Answer: "old a"}}
	backend.answer = "fresh answer"

	req, _ := application.Chat.Select(DocumentKey(1))
	histOut := application.Chat.FetchHistory(context.Background(), req)

	// The user asks before the history fetch lands.
	ask, err := application.Chat.Ask("my question")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !application.Chat.ApplyHistory(histOut) {
		t.Fatalf("history rejected")
	}

	turns := application.Chat.Turns()
	if len(turns) != 3 {
		t.Fatalf("turns: %d, want 3", len(turns))
	}
	if turns[0].Content != "old q" || turns[1].Content != "old a" {
		t.Fatalf("replayed history out of order: %+v", turns[:2])
	}
	if turns[2].Role != RoleUser || turns[2].Content != "my question" {
		t.Fatalf("late history erased the in-flight question: %+v", turns)
	}
	if !application.Chat.Pending() {
		t.Fatalf("applying history must not clear the pending flag")
	}

	if !application.Chat.ApplyAnswer(application.Chat.ExecuteAsk(context.Background(), ask)) {
		t.Fatalf("answer rejected")
	}
	turns = application.Chat.Turns()
	if len(turns) != 4 || turns[3].Role != RoleAssistant || turns[3].Content != "fresh answer" {
		t.Fatalf("final thread: %+v", turns)
	}
}

func TestAskRejectsEmptyQuestionLocally(t *testing.T) {
	application, backend := newTestApp(t)
	application.Chat.Select(DocumentKey(1))

	_, err := application.Chat.Ask("   \t ")
	ve, ok := err.(*ValidationError)
	if !ok || ve.Code != CodeEmptyQuestion {
		t.Fatalf("expected empty_question, got %v", err)
	}
	if len(application.Chat.Turns()) != 0 {
		t.Fatalf("rejected question must not append a turn")
	}
	if backend.requests != 0 {
		t.Fatalf("expected no network calls, got %d", backend.requests)
	}
}

func TestSecondAskWhilePendingIsRejected(t *testing.T) {
	application, _ := newTestApp(t)
	application.Chat.Select(DocumentKey(1))

	if _, err := application.Chat.Ask("first"); err != nil {
		t.Fatalf("first ask: %v", err)
	}
	_, err := application.Chat.Ask("second")
	ve, ok := err.(*ValidationError)
	if !ok || ve.Code != CodeQueryPending {
		t.Fatalf("expected query_pending, got %v", err)
	}
	if len(application.Chat.Turns()) != 1 {
		t.Fatalf("rejected ask must not append: %d turns", len(application.Chat.Turns()))
	}
}

func TestFailedAskAppendsFallbackAndLogs(t *testing.T) {
	buf := &logBuffer{}
	application, backend := newTestApp(t)
	application.Chat = NewConversationEngine(application.Client, NewLogger(buf))
	backend.failQuery = true

	application.Chat.Select(DocumentKey(1))
	ask, err := application.Chat.Ask("does this survive a failure?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !application.Chat.ApplyAnswer(application.Chat.ExecuteAsk(context.Background(), ask)) {
		t.Fatalf("failure outcome should still apply to the current key")
	}

	turns := application.Chat.Turns()
	if len(turns) != 2 {
		t.Fatalf("turns: %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[0].Content != "does this survive a failure?" {
		t.Fatalf("user question lost: %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != FallbackAnswer {
		t.Fatalf("expected literal fallback text, got %+v", turns[1])
	}
	if !buf.contains("query failed") {
		t.Fatalf("failure was not logged")
	}
}

func TestStaleAnswerCannotMutateAnotherThread(t *testing.T) {
	application, backend := newTestApp(t)
	backend.answer = "answer for A"

	application.Chat.Select(DocumentKey(1))
	ask, err := application.Chat.Ask("question for A")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	out := application.Chat.ExecuteAsk(context.Background(), ask)

	// The user switches to B while A's answer is still in flight.
	req, _ := application.Chat.Select(SessionKey(2))
	application.Chat.ApplyHistory(application.Chat.FetchHistory(context.Background(), req))

	if application.Chat.ApplyAnswer(out) {
		t.Fatalf("stale answer must be dropped after a key switch")
	}
	for _, turn := range application.Chat.Turns() {
		if turn.Content == "answer for A" || turn.Content == "question for A" {
			t.Fatalf("thread B contaminated by thread A: %+v", turn)
		}
	}
	if application.Chat.Pending() {
		t.Fatalf("key switch should have cleared the pending flag")
	}
}

func TestSwitchingKeysDiscardsThread(t *testing.T) {
	application, backend := newTestApp(t)
	backend.convs["doc:1"] = []ConversationRecord{{Question: "q", Answer: "a"}}
	backend.convs["sess:2"] = []ConversationRecord{{Question: "sq", Answer: "sa"}}

	req, _ := application.Chat.Select(DocumentKey(1))
	application.Chat.ApplyHistory(application.Chat.FetchHistory(context.Background(), req))
	if len(application.Chat.Turns()) != 2 {
		t.Fatalf("doc history: %d turns", len(application.Chat.Turns()))
	}

	req2, ok := application.Chat.Select(SessionKey(2))
	if !ok {
		t.Fatalf("switching keys should trigger a reload")
	}
	if len(application.Chat.Turns()) != 0 {
		t.Fatalf("thread must be discarded immediately on switch")
	}
	application.Chat.ApplyHistory(application.Chat.FetchHistory(context.Background(), req2))
	turns := application.Chat.Turns()
	if len(turns) != 2 || turns[0].Content != "sq" {
		t.Fatalf("histories merged across keys: %+v", turns)
	}
}

func TestSelectSameKeyIsNoop(t *testing.T) {
	application, _ := newTestApp(t)
	application.Chat.Select(DocumentKey(1))
	if _, ok := application.Chat.Select(DocumentKey(1)); ok {
		t.Fatalf("reselecting the active key should not reload")
	}
}

func TestFailedHistoryLoadDegradesToEmptyThread(t *testing.T) {
	buf := &logBuffer{}
	application, _ := newTestApp(t)
	application.Chat = NewConversationEngine(application.Client, NewLogger(buf))

	req, _ := application.Chat.Select(DocumentKey(1))
	out := HistoryOutcome{Request: req, Err: &APIError{Op: "conversations", Status: 500}}
	if application.Chat.ApplyHistory(out) {
		t.Fatalf("failed history should not apply")
	}
	if len(application.Chat.Turns()) != 0 {
		t.Fatalf("expected empty thread")
	}
	if !buf.contains("failed to load conversations") {
		t.Fatalf("failure was not logged")
	}
}
