package tui

import (
	"errors"
	"fmt"
	"strings"

	"paperchat/internal/app"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type page int

const (
	pageSearch page = iota
	pageLibrary
	pageChat
)

type pane int

const (
	paneTopics pane = iota
	panePapers
	paneDocuments
	paneSessions
	paneCount
)

type promptKind int

const (
	promptNone promptKind = iota
	promptTopicName
	promptSessionName
	promptUploadPath
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// MainModel is the whole TUI: three pages sharing one update loop. All store
// mutation happens here, on the loop; commands only carry outcomes back.
type MainModel struct {
	app *app.Application

	theme    Theme
	help     helpModel
	showHelp bool

	width  int
	height int
	ready  bool

	page   page
	status string

	busy       int
	spinnerPos int

	// search page
	queryInput   textinput.Model
	resultsFocus bool
	resultSel    int

	// library page
	libPane  pane
	topicSel int
	paperSel int
	docSel   int
	sessSel  int
	// topicID is the library scope; zero is "all documents".
	topicID int64

	// chat page
	chatInput   textarea.Model
	chatVP      viewport.Model
	chatFocused bool

	// modal one-line prompt (topic name, session name, upload path)
	prompt      promptKind
	promptInput textinput.Model
	promptPaper app.Paper

	dirty map[app.ChangeEvent]bool
}

// New is the entry point used by the binary.
func New(application *app.Application) tea.Model {
	return NewMainModel(application)
}

func NewMainModel(application *app.Application) *MainModel {
	qi := textinput.New()
	qi.Placeholder = "Search papers, then press Enter"
	qi.CharLimit = 300
	qi.Prompt = "/ "
	qi.Focus()

	pi := textinput.New()
	pi.CharLimit = 300
	pi.Prompt = "> "

	ta := textarea.New()
	ta.Placeholder = "Ask about the selected documents"
	ta.CharLimit = 4000
	ta.SetHeight(1)
	ta.Prompt = " "
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.Focus()

	m := &MainModel{
		app:         application,
		theme:       NewTheme(application.Config.Theme),
		help:        newHelpModel(),
		width:       100,
		height:      30,
		page:        pageSearch,
		status:      "Ready",
		queryInput:  qi,
		promptInput: pi,
		chatInput:   ta,
		chatFocused: true,
		dirty:       make(map[app.ChangeEvent]bool),
	}

	application.Bus.Subscribe(func(ev app.ChangeEvent) {
		m.dirty[ev] = true
	})

	return m
}

func (m *MainModel) Init() tea.Cmd {
	m.busy = 3
	return tea.Batch(
		textinput.Blink,
		m.topicsCmd(),
		m.documentsCmd(0),
		m.sessionsCmd(),
		m.spinTick(),
	)
}

// issue tracks a network command for the spinner and schedules the tick when
// the model goes from idle to busy.
func (m *MainModel) issue(cmd tea.Cmd) tea.Cmd {
	m.busy++
	if m.busy == 1 {
		return tea.Batch(cmd, m.spinTick())
	}
	return cmd
}

// refetchDirty turns accumulated change notifications into refetch commands.
// Called after every applied mutation so dependent panes catch up.
func (m *MainModel) refetchDirty() []tea.Cmd {
	var cmds []tea.Cmd
	if m.dirty[app.TopicsChanged] {
		delete(m.dirty, app.TopicsChanged)
		cmds = append(cmds, m.issue(m.topicsCmd()))
	}
	if m.dirty[app.PapersChanged] {
		delete(m.dirty, app.PapersChanged)
		if m.topicID != 0 {
			cmds = append(cmds, m.issue(m.papersCmd(m.topicID)))
		}
	}
	if m.dirty[app.DocumentsChanged] {
		delete(m.dirty, app.DocumentsChanged)
		cmds = append(cmds, m.issue(m.documentsCmd(m.topicID)))
	}
	if m.dirty[app.SessionsChanged] {
		delete(m.dirty, app.SessionsChanged)
		cmds = append(cmds, m.issue(m.sessionsCmd()))
	}
	return cmds
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetWidth(m.width)
		vpW, vpH := m.chatLayout()
		if !m.ready {
			m.chatVP = viewport.New(vpW, vpH)
			m.ready = true
		} else {
			m.chatVP.Width = vpW
			m.chatVP.Height = vpH
		}
		m.queryInput.Width = max(10, m.width-8)
		m.promptInput.Width = max(10, m.width-8)
		m.chatInput.SetWidth(max(10, m.width-6))
		m.updateChatViewport()
		return m, nil

	case spinMsg:
		if m.busy <= 0 && !m.app.Chat.Pending() {
			return m, nil
		}
		m.spinnerPos = (m.spinnerPos + 1) % len(spinnerFrames)
		return m, m.spinTick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if model, cmd, handled := m.handleAsync(msg); handled {
		return model, cmd
	}
	return m, nil
}

// handleAsync folds a completed network outcome into the stores. Every branch
// decrements the busy counter exactly once.
func (m *MainModel) handleAsync(msg tea.Msg) (tea.Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case searchDoneMsg:
		m.busy--
		applied := m.app.Search.Apply(msg.out)
		if msg.out.Err != nil {
			m.status = errStatus("search failed", msg.out.Err)
			return m, nil, true
		}
		if applied {
			m.resultSel = 0
			m.resultsFocus = len(m.app.Search.Papers()) > 0
			m.status = fmt.Sprintf("Page %d of %d", m.app.Search.Page(), m.app.Search.TotalPages())
		}
		return m, nil, true

	case topicsMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to load topics", msg.err)
			return m, nil, true
		}
		m.app.Topics.ApplyTopics(msg.topics)
		m.topicSel = clamp(m.topicSel, 0, len(msg.topics))
		return m, nil, true

	case papersMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to load papers", msg.err)
			return m, nil, true
		}
		m.app.Topics.ApplyPapers(msg.topicID, msg.papers)
		m.paperSel = clamp(m.paperSel, 0, len(msg.papers)-1)
		return m, nil, true

	case documentsMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to load documents", msg.err)
			return m, nil, true
		}
		m.app.Documents.Apply(msg.topicID, msg.docs)
		m.docSel = clamp(m.docSel, 0, len(msg.docs)-1)
		return m, nil, true

	case sessionsMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to load sessions", msg.err)
			return m, nil, true
		}
		m.app.Sessions.Apply(msg.sessions)
		m.sessSel = clamp(m.sessSel, 0, len(msg.sessions)-1)
		if m.app.Chat.Key().IsSession() && m.app.Sessions.ActiveID() == 0 {
			m.app.Chat.Reset()
			m.updateChatViewport()
		}
		return m, nil, true

	case paperSavedMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to save paper", msg.err)
			return m, nil, true
		}
		m.app.Topics.ApplySaved()
		m.status = msg.resp.Message
		return m, tea.Batch(m.refetchDirty()...), true

	case uploadedMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("upload failed", msg.err)
			return m, nil, true
		}
		m.app.Documents.ApplyUploaded()
		m.status = fmt.Sprintf("Uploaded %s (%d chunks)", msg.resp.Filename, msg.resp.Chunks)
		return m, tea.Batch(m.refetchDirty()...), true

	case paperDeletedMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to delete paper", msg.err)
			return m, nil, true
		}
		m.app.Topics.ApplyDeleted(msg.id)
		m.status = "Paper removed"
		return m, tea.Batch(m.refetchDirty()...), true

	case documentDeletedMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to delete document", msg.err)
			return m, nil, true
		}
		m.app.Documents.ApplyDeleted(msg.id)
		if m.app.Chat.Key().Equal(app.DocumentKey(msg.id)) {
			m.app.Chat.Reset()
			m.updateChatViewport()
		}
		m.status = "Document deleted"
		return m, tea.Batch(m.refetchDirty()...), true

	case sessionCreatedMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to create session", msg.err)
			return m, nil, true
		}
		m.app.Sessions.ApplyCreated()
		m.app.Documents.ClearSelection()
		m.status = msg.resp.Message
		return m, tea.Batch(m.refetchDirty()...), true

	case sessionDeletedMsg:
		m.busy--
		if msg.err != nil {
			m.status = errStatus("failed to delete session", msg.err)
			return m, nil, true
		}
		m.app.Sessions.ApplyDeleted(msg.id)
		if m.app.Chat.Key().Equal(app.SessionKey(msg.id)) {
			m.app.Chat.Reset()
			m.updateChatViewport()
		}
		m.status = "Session deleted"
		return m, tea.Batch(m.refetchDirty()...), true

	case historyMsg:
		m.busy--
		if !m.app.Chat.ApplyHistory(msg.out) && msg.out.Err != nil {
			m.status = errStatus("failed to load conversation history", msg.out.Err)
		}
		m.updateChatViewport()
		return m, nil, true

	case answerMsg:
		m.busy--
		m.app.Chat.ApplyAnswer(msg.out)
		m.updateChatViewport()
		return m, nil, true
	}
	return m, nil, false
}

func (m *MainModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.help.keys.Quit) {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch m.page {
	case pageSearch:
		return m.handleSearchKey(msg)
	case pageLibrary:
		return m.handleLibraryKey(msg)
	default:
		return m.handleChatKey(msg)
	}
}

func (m *MainModel) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.help.keys.Escape):
		m.prompt = promptNone
		m.promptInput.Reset()
		m.status = "Cancelled"
		return m, nil

	case key.Matches(msg, m.help.keys.Enter):
		value := strings.TrimSpace(m.promptInput.Value())
		kind := m.prompt
		m.prompt = promptNone
		m.promptInput.Reset()
		return m.submitPrompt(kind, value)
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m *MainModel) submitPrompt(kind promptKind, value string) (tea.Model, tea.Cmd) {
	switch kind {
	case promptTopicName:
		if value == "" {
			m.status = "Topic name is required"
			return m, nil
		}
		m.status = "Saving paper..."
		return m, m.issue(m.savePaperCmd(m.promptPaper, value))

	case promptSessionName:
		if err := app.ValidateCreate(value, m.app.Documents.Selection()); err != nil {
			m.status = errStatus("cannot create session", err)
			return m, nil
		}
		m.status = "Creating session..."
		return m, m.issue(m.createSessionCmd(value, m.app.Documents.Selection()))

	case promptUploadPath:
		if value == "" {
			m.status = "File path is required"
			return m, nil
		}
		if err := app.ValidateUpload(value, ""); err != nil {
			m.status = errStatus("cannot upload", err)
			return m, nil
		}
		m.status = "Uploading..."
		return m, m.issue(m.uploadCmd(value, m.topicID))
	}
	return m, nil
}

func (m *MainModel) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.resultsFocus {
		switch {
		case key.Matches(msg, m.help.keys.Enter):
			return m.beginSearch(m.queryInput.Value(), 1)
		case key.Matches(msg, m.help.keys.NextPane):
			if len(m.app.Search.Papers()) > 0 {
				m.resultsFocus = true
			}
			return m, nil
		case key.Matches(msg, m.help.keys.Escape):
			return m, nil
		}
		var cmd tea.Cmd
		m.queryInput, cmd = m.queryInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.help.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.help.keys.PageLib):
		m.page = pageLibrary
	case key.Matches(msg, m.help.keys.PageChat):
		m.page = pageChat
	case key.Matches(msg, m.help.keys.NextPane), key.Matches(msg, m.help.keys.Escape):
		m.resultsFocus = false
	case key.Matches(msg, m.help.keys.Down):
		m.resultSel = clamp(m.resultSel+1, 0, len(m.app.Search.Papers())-1)
	case key.Matches(msg, m.help.keys.Up):
		m.resultSel = clamp(m.resultSel-1, 0, len(m.app.Search.Papers())-1)
	case key.Matches(msg, m.help.keys.NextPage):
		if m.app.Search.HasNextPage() {
			return m.beginSearch(m.app.Search.Query(), m.app.Search.Page()+1)
		}
	case key.Matches(msg, m.help.keys.PrevPage):
		if m.app.Search.HasPrevPage() {
			return m.beginSearch(m.app.Search.Query(), m.app.Search.Page()-1)
		}
	case key.Matches(msg, m.help.keys.Save):
		papers := m.app.Search.Papers()
		if m.resultSel >= 0 && m.resultSel < len(papers) {
			m.promptPaper = papers[m.resultSel]
			m.prompt = promptTopicName
			m.promptInput.Placeholder = "Topic name"
			m.promptInput.Focus()
		}
	}
	return m, nil
}

func (m *MainModel) beginSearch(query string, pageNum int) (tea.Model, tea.Cmd) {
	req, err := m.app.Search.Begin(query, pageNum)
	if err != nil {
		m.status = errStatus("cannot search", err)
		return m, nil
	}
	m.status = fmt.Sprintf("Searching %q...", req.Query)
	return m, m.issue(m.searchCmd(req))
}

func (m *MainModel) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.help.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.help.keys.PageSearch):
		m.page = pageSearch
	case key.Matches(msg, m.help.keys.PageChat):
		m.page = pageChat
	case key.Matches(msg, m.help.keys.NextPane):
		m.libPane = (m.libPane + 1) % paneCount
	case key.Matches(msg, m.help.keys.Down):
		m.moveLibSel(1)
	case key.Matches(msg, m.help.keys.Up):
		m.moveLibSel(-1)
	case key.Matches(msg, m.help.keys.Enter):
		return m.openLibSel()
	case key.Matches(msg, m.help.keys.Delete):
		return m.deleteLibSel()
	case key.Matches(msg, m.help.keys.Toggle):
		if m.libPane == paneDocuments {
			docs := m.app.Documents.Documents()
			if m.docSel >= 0 && m.docSel < len(docs) {
				if err := m.app.Documents.Toggle(docs[m.docSel].ID); err != nil {
					m.status = errStatus("cannot select", err)
				} else {
					m.status = fmt.Sprintf("%d of %d documents selected",
						m.app.Documents.SelectionCount(), app.SessionMaxDocuments)
				}
			}
		}
	case key.Matches(msg, m.help.keys.Upload):
		m.prompt = promptUploadPath
		m.promptInput.Placeholder = "Path to PDF"
		m.promptInput.Focus()
	case key.Matches(msg, m.help.keys.Create):
		n := m.app.Documents.SelectionCount()
		if n < app.SessionMinDocuments || n > app.SessionMaxDocuments {
			m.status = fmt.Sprintf("Select %d to %d documents first",
				app.SessionMinDocuments, app.SessionMaxDocuments)
			return m, nil
		}
		m.prompt = promptSessionName
		m.promptInput.Placeholder = "Session name"
		m.promptInput.Focus()
	}
	return m, nil
}

func (m *MainModel) moveLibSel(delta int) {
	switch m.libPane {
	case paneTopics:
		// Row zero is the synthetic "all documents" scope.
		m.topicSel = clamp(m.topicSel+delta, 0, len(m.app.Topics.Topics()))
	case panePapers:
		m.paperSel = clamp(m.paperSel+delta, 0, len(m.app.Topics.Papers())-1)
	case paneDocuments:
		m.docSel = clamp(m.docSel+delta, 0, len(m.app.Documents.Documents())-1)
	case paneSessions:
		m.sessSel = clamp(m.sessSel+delta, 0, len(m.app.Sessions.Sessions())-1)
	}
}

// openLibSel activates the highlighted row: a topic narrows the scope, a
// document or session opens its chat.
func (m *MainModel) openLibSel() (tea.Model, tea.Cmd) {
	switch m.libPane {
	case paneTopics:
		var cmds []tea.Cmd
		if m.topicSel == 0 {
			m.topicID = 0
			m.app.Topics.ApplyPapers(0, nil)
			m.status = "All documents"
			cmds = append(cmds, m.issue(m.documentsCmd(0)))
		} else {
			topics := m.app.Topics.Topics()
			if m.topicSel-1 >= len(topics) {
				return m, nil
			}
			topic := topics[m.topicSel-1]
			m.topicID = topic.ID
			m.status = fmt.Sprintf("Topic: %s", topic.Name)
			cmds = append(cmds,
				m.issue(m.papersCmd(topic.ID)),
				m.issue(m.documentsCmd(topic.ID)),
			)
		}
		return m, tea.Batch(cmds...)

	case paneDocuments:
		docs := m.app.Documents.Documents()
		if m.docSel < 0 || m.docSel >= len(docs) {
			return m, nil
		}
		return m.openChat(app.DocumentKey(docs[m.docSel].ID))

	case paneSessions:
		sessions := m.app.Sessions.Sessions()
		if m.sessSel < 0 || m.sessSel >= len(sessions) {
			return m, nil
		}
		m.app.Sessions.Select(sessions[m.sessSel].ID)
		return m.openChat(app.SessionKey(sessions[m.sessSel].ID))
	}
	return m, nil
}

func (m *MainModel) openChat(k app.ChatKey) (tea.Model, tea.Cmd) {
	m.page = pageChat
	m.chatFocused = true
	m.chatInput.Focus()
	req, ok := m.app.Chat.Select(k)
	m.updateChatViewport()
	if !ok {
		return m, nil
	}
	m.status = "Loading conversation..."
	return m, m.issue(m.historyCmd(req))
}

func (m *MainModel) deleteLibSel() (tea.Model, tea.Cmd) {
	switch m.libPane {
	case panePapers:
		papers := m.app.Topics.Papers()
		if m.paperSel >= 0 && m.paperSel < len(papers) {
			m.status = "Deleting paper..."
			return m, m.issue(m.deletePaperCmd(papers[m.paperSel].ID))
		}
	case paneDocuments:
		docs := m.app.Documents.Documents()
		if m.docSel >= 0 && m.docSel < len(docs) {
			m.status = "Deleting document..."
			return m, m.issue(m.deleteDocumentCmd(docs[m.docSel].ID))
		}
	case paneSessions:
		sessions := m.app.Sessions.Sessions()
		if m.sessSel >= 0 && m.sessSel < len(sessions) {
			m.status = "Deleting session..."
			return m, m.issue(m.deleteSessionCmd(sessions[m.sessSel].ID))
		}
	}
	return m, nil
}

func (m *MainModel) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chatFocused {
		switch {
		case key.Matches(msg, m.help.keys.Enter):
			return m.submitQuestion()
		case key.Matches(msg, m.help.keys.Escape):
			m.chatFocused = false
			m.chatInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.chatInput, cmd = m.chatInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.help.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.help.keys.PageSearch):
		m.page = pageSearch
	case key.Matches(msg, m.help.keys.PageLib):
		m.page = pageLibrary
	case key.Matches(msg, m.help.keys.Enter):
		m.chatFocused = true
		m.chatInput.Focus()
	case key.Matches(msg, m.help.keys.Down):
		m.chatVP.LineDown(1)
	case key.Matches(msg, m.help.keys.Up):
		m.chatVP.LineUp(1)
	}
	return m, nil
}

func (m *MainModel) submitQuestion() (tea.Model, tea.Cmd) {
	req, err := m.app.Chat.Ask(m.chatInput.Value())
	if err != nil {
		m.status = errStatus("cannot ask", err)
		return m, nil
	}
	m.chatInput.Reset()
	m.status = "Waiting for answer..."
	m.updateChatViewport()
	return m, m.issue(m.askCmd(req))
}

func errStatus(prefix string, err error) string {
	var ve *app.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
