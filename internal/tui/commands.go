package tui

import (
	"context"
	"os"
	"time"

	"paperchat/internal/app"

	tea "github.com/charmbracelet/bubbletea"
)

// Async results delivered back into the update loop. Store state is only
// mutated from Update via the Apply methods, so the staleness guards in the
// app layer see a consistent single-threaded world.

type searchDoneMsg struct{ out app.SearchOutcome }

type topicsMsg struct {
	topics []app.Topic
	err    error
}

type papersMsg struct {
	topicID int64
	papers  []app.SavedPaper
	err     error
}

type documentsMsg struct {
	topicID int64
	docs    []app.Document
	err     error
}

type sessionsMsg struct {
	sessions []app.Session
	err      error
}

type paperSavedMsg struct {
	resp app.SaveResponse
	err  error
}

type uploadedMsg struct {
	resp app.UploadResponse
	err  error
}

type paperDeletedMsg struct {
	id  int64
	err error
}

type documentDeletedMsg struct {
	id  int64
	err error
}

type sessionCreatedMsg struct {
	resp app.CreateSessionResponse
	err  error
}

type sessionDeletedMsg struct {
	id  int64
	err error
}

type historyMsg struct{ out app.HistoryOutcome }

type answerMsg struct{ out app.AskOutcome }

type spinMsg struct{}

func (m *MainModel) searchCmd(req app.SearchRequest) tea.Cmd {
	return func() tea.Msg {
		return searchDoneMsg{out: m.app.Search.Execute(context.Background(), req)}
	}
}

func (m *MainModel) topicsCmd() tea.Cmd {
	return func() tea.Msg {
		topics, err := m.app.Topics.FetchTopics(context.Background())
		return topicsMsg{topics: topics, err: err}
	}
}

func (m *MainModel) papersCmd(topicID int64) tea.Cmd {
	return func() tea.Msg {
		papers, err := m.app.Topics.FetchPapers(context.Background(), topicID)
		return papersMsg{topicID: topicID, papers: papers, err: err}
	}
}

func (m *MainModel) documentsCmd(topicID int64) tea.Cmd {
	return func() tea.Msg {
		docs, err := m.app.Documents.Fetch(context.Background(), topicID)
		return documentsMsg{topicID: topicID, docs: docs, err: err}
	}
}

func (m *MainModel) sessionsCmd() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.app.Sessions.Fetch(context.Background())
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func (m *MainModel) savePaperCmd(paper app.Paper, topicName string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.app.Topics.Save(context.Background(), paper, topicName)
		return paperSavedMsg{resp: resp, err: err}
	}
}

func (m *MainModel) uploadCmd(path string, topicID int64) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return uploadedMsg{err: err}
		}
		defer f.Close()
		resp, err := m.app.Documents.Upload(context.Background(), path, f, topicID)
		return uploadedMsg{resp: resp, err: err}
	}
}

func (m *MainModel) deletePaperCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		return paperDeletedMsg{id: id, err: m.app.Topics.Delete(context.Background(), id)}
	}
}

func (m *MainModel) deleteDocumentCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		return documentDeletedMsg{id: id, err: m.app.Documents.Delete(context.Background(), id)}
	}
}

func (m *MainModel) createSessionCmd(name string, documentIDs []int64) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.app.Sessions.Create(context.Background(), name, documentIDs)
		return sessionCreatedMsg{resp: resp, err: err}
	}
}

func (m *MainModel) deleteSessionCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		return sessionDeletedMsg{id: id, err: m.app.Sessions.Delete(context.Background(), id)}
	}
}

func (m *MainModel) historyCmd(req app.HistoryRequest) tea.Cmd {
	return func() tea.Msg {
		return historyMsg{out: m.app.Chat.FetchHistory(context.Background(), req)}
	}
}

func (m *MainModel) askCmd(req app.AskRequest) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{out: m.app.Chat.ExecuteAsk(context.Background(), req)}
	}
}

func (m *MainModel) spinTick() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(_ time.Time) tea.Msg { return spinMsg{} })
}
