package tui

import (
	"fmt"
	"strings"

	"paperchat/internal/app"

	"github.com/charmbracelet/lipgloss"
)

func (m *MainModel) View() string {
	if m.showHelp {
		return m.help.View()
	}

	var b strings.Builder
	b.WriteString(m.renderTopBar())
	b.WriteString("\n")

	switch m.page {
	case pageSearch:
		b.WriteString(m.renderSearch())
	case pageLibrary:
		b.WriteString(m.renderLibrary())
	default:
		b.WriteString(m.renderChat())
	}

	if m.prompt != promptNone {
		b.WriteString("\n")
		b.WriteString(m.theme.InputBoxF.Width(max(20, m.width-4)).Render(m.promptInput.View()))
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.theme.Footer.Render("1 search · 2 library · 3 chat · ? help · ctrl+c quit"))
	return b.String()
}

func (m *MainModel) renderTopBar() string {
	tab := func(label string, p page) string {
		if m.page == p {
			return m.theme.TabActive.Render(label)
		}
		return m.theme.Tab.Render(label)
	}
	left := m.theme.TopBarTitle.Render("paperchat") + " " +
		tab("[1] Search", pageSearch) +
		tab("[2] Library", pageLibrary) +
		tab("[3] Chat", pageChat)
	right := m.theme.TopBar.Render(m.app.Config.BaseURL)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *MainModel) renderStatus() string {
	if m.busy > 0 || m.app.Chat.Pending() {
		return m.theme.Spinner.Render(spinnerFrames[m.spinnerPos]) + " " + m.theme.Footer.Render(m.status)
	}
	return m.theme.Footer.Render(m.status)
}

func (m *MainModel) renderSearch() string {
	var b strings.Builder

	box := m.theme.InputBox
	if !m.resultsFocus {
		box = m.theme.InputBoxF
	}
	b.WriteString(box.Width(max(20, m.width-4)).Render(m.queryInput.View()))
	b.WriteString("\n")

	papers := m.app.Search.Papers()
	if len(papers) == 0 {
		b.WriteString(m.theme.ListMeta.Render("  No results. Type a query and press Enter."))
		return b.String()
	}

	for i, p := range papers {
		cursor := "  "
		title := m.theme.ListItem.Render(p.Title)
		if m.app.Search.Important(i) {
			title = m.theme.Important.Render("★ " + p.Title)
		}
		if m.resultsFocus && i == m.resultSel {
			cursor = m.theme.Selected.Render("> ")
		}
		b.WriteString(cursor + title + "\n")
		b.WriteString("    " + m.theme.ListMeta.Render(paperMeta(p)) + "\n")
	}

	b.WriteString("\n")
	pager := fmt.Sprintf("Page %d/%d", m.app.Search.Page(), m.app.Search.TotalPages())
	if m.app.Search.HasPrevPage() {
		pager = "p ← " + pager
	}
	if m.app.Search.HasNextPage() {
		pager = pager + " → n"
	}
	b.WriteString("  " + m.theme.ListMeta.Render(pager))
	return b.String()
}

func paperMeta(p app.Paper) string {
	parts := []string{p.Authors}
	if p.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", p.Year))
	}
	parts = append(parts, fmt.Sprintf("%d citations", p.Citations))
	if p.Source != "" {
		parts = append(parts, p.Source)
	}
	if p.PDFLink != "" {
		parts = append(parts, "pdf")
	}
	return strings.Join(parts, " · ")
}

func (m *MainModel) renderLibrary() string {
	var sections []string
	sections = append(sections, m.renderTopicsPane())
	if m.topicID != 0 {
		sections = append(sections, m.renderPapersPane())
	}
	sections = append(sections, m.renderDocumentsPane(), m.renderSessionsPane())
	return strings.Join(sections, "\n")
}

func (m *MainModel) paneStyle(p pane) lipgloss.Style {
	if m.libPane == p {
		return m.theme.PaneFocused
	}
	return m.theme.Pane
}

func (m *MainModel) renderTopicsPane() string {
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render("Topics"))
	b.WriteString("\n")

	rows := []string{"All documents"}
	for _, t := range m.app.Topics.Topics() {
		rows = append(rows, fmt.Sprintf("%s (%d papers)", t.Name, t.PaperCount))
	}
	for i, row := range rows {
		cursor := "  "
		if m.libPane == paneTopics && i == m.topicSel {
			cursor = m.theme.Selected.Render("> ")
		}
		style := m.theme.ListItem
		if (i == 0 && m.topicID == 0) || (i > 0 && i-1 < len(m.app.Topics.Topics()) && m.app.Topics.Topics()[i-1].ID == m.topicID) {
			style = m.theme.Selected
		}
		b.WriteString(cursor + style.Render(row) + "\n")
	}
	return m.paneStyle(paneTopics).Width(max(20, m.width-4)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderPapersPane() string {
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render("Saved papers"))
	b.WriteString("\n")

	papers := m.app.Topics.Papers()
	if len(papers) == 0 {
		b.WriteString(m.theme.ListMeta.Render("  none"))
	}
	for i, p := range papers {
		cursor := "  "
		if m.libPane == panePapers && i == m.paperSel {
			cursor = m.theme.Selected.Render("> ")
		}
		meta := fmt.Sprintf("%s · %d", p.Authors, p.Year)
		b.WriteString(cursor + m.theme.ListItem.Render(p.Title) + " " + m.theme.ListMeta.Render(meta) + "\n")
	}
	return m.paneStyle(panePapers).Width(max(20, m.width-4)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderDocumentsPane() string {
	var b strings.Builder
	title := "Documents"
	if n := m.app.Documents.SelectionCount(); n > 0 {
		title = fmt.Sprintf("Documents (%d/%d selected)", n, app.SessionMaxDocuments)
	}
	b.WriteString(m.theme.PaneTitle.Render(title))
	b.WriteString("\n")

	docs := m.app.Documents.Documents()
	if len(docs) == 0 {
		b.WriteString(m.theme.ListMeta.Render("  none, press u to upload a PDF"))
	}
	for i, d := range docs {
		cursor := "  "
		if m.libPane == paneDocuments && i == m.docSel {
			cursor = m.theme.Selected.Render("> ")
		}
		mark := "[ ] "
		if m.app.Documents.Selected(d.ID) {
			mark = m.theme.Selected.Render("[x] ")
		}
		meta := fmt.Sprintf("%d chunks · %s", d.ChunkCount, d.UploadDate)
		b.WriteString(cursor + mark + m.theme.ListItem.Render(d.Filename) + " " + m.theme.ListMeta.Render(meta) + "\n")
	}
	return m.paneStyle(paneDocuments).Width(max(20, m.width-4)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderSessionsPane() string {
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render("Sessions"))
	b.WriteString("\n")

	sessions := m.app.Sessions.Sessions()
	if len(sessions) == 0 {
		b.WriteString(m.theme.ListMeta.Render("  none, select documents and press c"))
	}
	for i, s := range sessions {
		cursor := "  "
		if m.libPane == paneSessions && i == m.sessSel {
			cursor = m.theme.Selected.Render("> ")
		}
		meta := fmt.Sprintf("%d documents · %s", s.DocumentCount, s.CreatedDate)
		b.WriteString(cursor + m.theme.ListItem.Render(s.Name) + " " + m.theme.ListMeta.Render(meta) + "\n")
	}
	return m.paneStyle(paneSessions).Width(max(20, m.width-4)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *MainModel) renderChat() string {
	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render(m.chatHeader()))
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.chatVP.View())
	}
	b.WriteString("\n")
	box := m.theme.InputBox
	if m.chatFocused {
		box = m.theme.InputBoxF
	}
	b.WriteString(box.Width(max(20, m.width-4)).Render(m.chatInput.View()))
	return b.String()
}

// chatHeader names the active thread, resolving the key back through the
// registry or the session manager.
func (m *MainModel) chatHeader() string {
	k := m.app.Chat.Key()
	switch {
	case k.IsDocument():
		for _, d := range m.app.Documents.Documents() {
			if d.ID == k.ID() {
				return "Chat · " + d.Filename
			}
		}
		return fmt.Sprintf("Chat · document %d", k.ID())
	case k.IsSession():
		if s := m.app.Sessions.Active(); s != nil {
			return fmt.Sprintf("Chat · %s (%d documents)", s.Name, s.DocumentCount)
		}
		return fmt.Sprintf("Chat · session %d", k.ID())
	default:
		return "Chat · no document or session selected (open one from the library)"
	}
}

func (m *MainModel) chatLayout() (int, int) {
	w := max(20, m.width-4)
	h := max(3, m.height-9)
	return w, h
}

// updateChatViewport rebuilds the transcript and pins the view to the newest
// turn.
func (m *MainModel) updateChatViewport() {
	if !m.ready {
		return
	}
	wrap := lipgloss.NewStyle().Width(m.chatVP.Width - 2)

	var b strings.Builder
	for _, turn := range m.app.Chat.Turns() {
		label := m.theme.RoleAI.Render("ai")
		if turn.Role == app.RoleUser {
			label = m.theme.RoleYou.Render("you")
		}
		b.WriteString(label + "\n")
		b.WriteString(wrap.Render(turn.Content))
		b.WriteString("\n\n")
	}
	if m.app.Chat.Pending() {
		b.WriteString(m.theme.RoleSys.Render("thinking " + spinnerFrames[m.spinnerPos]))
		b.WriteString("\n")
	}
	m.chatVP.SetContent(b.String())
	m.chatVP.GotoBottom()
}
