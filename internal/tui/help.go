package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type helpModel struct {
	keys  keyMap
	width int
}

func newHelpModel() helpModel {
	return helpModel{
		keys:  defaultKeyMap(),
		width: 80,
	}
}

func (m *helpModel) SetWidth(width int) {
	m.width = width
}

func (m helpModel) View() string {
	var b strings.Builder

	b.WriteString(helpTitleStyle.Render("paperchat help"))
	b.WriteString("\n\n")

	b.WriteString(helpSectionStyle.Render("pages"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  search papers\n", helpKeyStyle.Render("1")))
	b.WriteString(fmt.Sprintf("  %s  library (topics, documents, sessions)\n", helpKeyStyle.Render("2")))
	b.WriteString(fmt.Sprintf("  %s  chat\n", helpKeyStyle.Render("3")))

	b.WriteString("\n")

	b.WriteString(helpSectionStyle.Render("search"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  run search / submit prompts\n", helpKeyStyle.Render("enter")))
	b.WriteString(fmt.Sprintf("  %s  next / previous page\n", helpKeyStyle.Render("n/p")))
	b.WriteString(fmt.Sprintf("  %s  save highlighted paper to a topic\n", helpKeyStyle.Render("s")))

	b.WriteString("\n")

	b.WriteString(helpSectionStyle.Render("library"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  cycle panes, %s move, %s open\n",
		helpKeyStyle.Render("tab"), helpKeyStyle.Render("j/k"), helpKeyStyle.Render("enter")))
	b.WriteString(fmt.Sprintf("  %s  toggle document for a session (2-5)\n", helpKeyStyle.Render("space")))
	b.WriteString(fmt.Sprintf("  %s  upload a PDF, %s create session, %s delete\n",
		helpKeyStyle.Render("u"), helpKeyStyle.Render("c"), helpKeyStyle.Render("d")))

	b.WriteString("\n")
	b.WriteString(helpFooterStyle.Render("ctrl+c quit | ? close help"))

	return b.String()
}

type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	Enter      key.Binding
	Escape     key.Binding
	PageSearch key.Binding
	PageLib    key.Binding
	PageChat   key.Binding
	NextPane   key.Binding
	Up         key.Binding
	Down       key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	Save       key.Binding
	Toggle     key.Binding
	Upload     key.Binding
	Create     key.Binding
	Delete     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit / open"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		PageSearch: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "search"),
		),
		PageLib: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "library"),
		),
		PageChat: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "chat"),
		),
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "down"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev page"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save paper"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle document"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload pdf"),
		),
		Create: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "create session"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#BD93F9"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6"))

	helpFooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#44475A")).
			Italic(true)
)
