package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"shoplist-server/entities"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true).
			PaddingLeft(2)

	normalStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	boughtStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Strikethrough(true)

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// listAPI is the subset of the REST client the model drives.
type listAPI interface {
	getList(id string) (*entities.ShoppingList, error)
	setBought(id, itemID string, bought bool) error
	deleteItem(id, itemID string) error
}

type model struct {
	api      listAPI
	listID   string
	list     *entities.ShoppingList
	cursor   int
	message  string
	deleted  bool
	quitting bool
}

type listMsg struct{ list *entities.ShoppingList }
type deletedMsg struct{}
type joinedMsg struct{}
type doneMsg struct{}
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func (m model) Init() tea.Cmd {
	return m.fetch()
}

func (m model) fetch() tea.Cmd {
	return func() tea.Msg {
		list, err := m.api.getList(m.listID)
		if err != nil {
			return errMsg{err}
		}
		return listMsg{list}
	}
}

// mutate runs a REST call; the resulting document arrives over the channel.
func (m model) mutate(call func() error) tea.Cmd {
	return func() tea.Msg {
		if err := call(); err != nil {
			return errMsg{err}
		}
		return doneMsg{}
	}
}

func (m model) selected() *entities.Item {
	if m.list == nil || m.cursor < 0 || m.cursor >= len(m.list.Items) {
		return nil
	}
	return &m.list.Items[m.cursor]
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.list != nil && m.cursor < len(m.list.Items)-1 {
				m.cursor++
			}

		case " ":
			if item := m.selected(); item != nil {
				id, bought := item.ID, !item.Bought
				return m, m.mutate(func() error { return m.api.setBought(m.listID, id, bought) })
			}

		case "d":
			if item := m.selected(); item != nil {
				id := item.ID
				return m, m.mutate(func() error { return m.api.deleteItem(m.listID, id) })
			}

		case "r":
			m.message = "Refreshing..."
			return m, m.fetch()
		}

	case listMsg:
		m.list = msg.list
		if m.cursor >= len(m.list.Items) {
			m.cursor = max(len(m.list.Items)-1, 0)
		}
		m.message = ""

	case joinedMsg:
		m.message = successStyle.Render("✓ Watching for changes")

	case deletedMsg:
		m.deleted = true
		m.message = errorStyle.Render("✗ This list was deleted")
		return m, tea.Quit

	case errMsg:
		m.message = errorStyle.Render("✗ " + msg.err.Error())
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	if m.list == nil {
		s.WriteString(titleStyle.Render("Loading list..."))
		s.WriteString("\n")
		if m.message != "" {
			s.WriteString(m.message + "\n")
		}
		return s.String()
	}

	s.WriteString(titleStyle.Render("🛒 " + m.list.Name))
	s.WriteString("\n")

	if len(m.list.Items) == 0 {
		s.WriteString(normalStyle.Render("(no items yet)") + "\n")
	}
	for i, item := range m.list.Items {
		mark := "[ ]"
		name := item.Name
		if item.Bought {
			mark = "[x]"
			name = boughtStyle.Render(name)
		}
		line := fmt.Sprintf("%s %s %s", mark, name, categoryStyle.Render(item.Category))
		if m.cursor == i {
			s.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString(normalStyle.Render(line) + "\n")
		}
	}

	if m.message != "" {
		s.WriteString("\n" + m.message + "\n")
	}
	s.WriteString("\nUse ↑/↓, space to toggle, d to delete, r to refresh, q to quit\n")
	return s.String()
}

// pump forwards realtime frames to the program until the connection closes.
func pump(p *tea.Program, conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			p.Send(errMsg{fmt.Errorf("realtime connection closed: %w", err)})
			return
		}
		if msg := frameMsg(f); msg != nil {
			p.Send(msg)
		}
	}
}

func frameMsg(f frame) tea.Msg {
	switch f.Event {
	case "listUpdate":
		var list entities.ShoppingList
		if err := json.Unmarshal(f.Data, &list); err != nil {
			return errMsg{err}
		}
		return listMsg{&list}
	case "listDeleted":
		return deletedMsg{}
	case "joined":
		return joinedMsg{}
	case "error":
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(f.Data, &e)
		return errMsg{fmt.Errorf("%s", e.Message)}
	}
	return nil
}

func main() {
	server := flag.String("server", "http://localhost:3536", "list server base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	listID := flag.String("list", "", "uuid of the list to watch")
	flag.Parse()

	if *email == "" || *password == "" || *listID == "" {
		fmt.Fprintln(os.Stderr, "usage: list-watch -email <email> -password <password> -list <uuid> [-server url]")
		os.Exit(2)
	}

	api := newAPIClient(*server)
	if err := api.login(*email, *password); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	conn, err := api.subscribe(*listID)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer conn.Close()

	p := tea.NewProgram(model{api: api, listID: *listID})
	go pump(p, conn)

	final, err := p.Run()
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if m, ok := final.(model); ok && m.deleted {
		fmt.Println("The list was deleted by its owner.")
	}
}
