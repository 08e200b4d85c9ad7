// Package history implements the interactive session browser for
// `easel history browse`.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/easel-graphics/easel/internal/history"
)

const pageSize = 20

// KeyMap defines the browser key bindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	Search      key.Binding
	ClearSearch key.Binding
	Select      key.Binding
	Back        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextPage:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next page")),
		PrevPage:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev page")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		ClearSearch: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear search")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Messages.
type refreshMsg struct{}

type dataMsg struct {
	rows        []*history.Session
	totalCount  int
	err         error
	refreshedAt time.Time
}

// Model is the bubbletea model for the session browser.
type Model struct {
	dbPath string
	keymap KeyMap

	rows        []*history.Session
	totalCount  int
	page        int
	pageCount   int
	selectedIdx int

	searching   bool
	searchQuery string
	searchInput textinput.Model

	detail *history.Session

	width  int
	height int
	ready  bool
	err    error

	// OnSelect, when set, replaces the built-in detail view.
	OnSelect func(id string)
	// OnBack is invoked when esc is pressed with nothing to clear.
	OnBack func()
}

// New creates a browser over the session database at dbPath.
func New(dbPath string) Model {
	input := textinput.New()
	input.Placeholder = "script path..."
	input.CharLimit = 120

	return Model{
		dbPath:      dbPath,
		keymap:      DefaultKeyMap(),
		searchInput: input,
	}
}

// Init loads the first page.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// loadData fetches the current page from the store.
func (m Model) loadData() tea.Msg {
	store, err := history.Open(m.dbPath)
	if err != nil {
		return dataMsg{err: err}
	}
	defer store.Close()

	ctx := context.Background()
	rows, err := store.List(ctx, history.ListOptions{
		Search: m.searchQuery,
		Limit:  pageSize,
		Offset: m.page * pageSize,
	})
	if err != nil {
		return dataMsg{err: err}
	}
	total, err := store.Count(ctx, m.searchQuery)
	if err != nil {
		return dataMsg{err: err}
	}

	return dataMsg{rows: rows, totalCount: total, refreshedAt: time.Now()}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case refreshMsg:
		return m, m.loadData

	case dataMsg:
		m.rows = msg.rows
		m.totalCount = msg.totalCount
		m.err = msg.err
		m.pageCount = (msg.totalCount + pageSize - 1) / pageSize
		if m.selectedIdx >= len(m.rows) {
			m.selectedIdx = 0
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		if m.detail != nil {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.searchQuery = m.searchInput.Value()
		m.page = 0
		m.selectedIdx = 0
		return m, m.loadData

	case tea.KeyEsc:
		m.searching = false
		m.searchInput.SetValue(m.searchQuery)
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Back), key.Matches(msg, m.keymap.Select):
		m.detail = nil
		return m, nil
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
		return m, nil

	case key.Matches(msg, m.keymap.Down):
		if m.selectedIdx < len(m.rows)-1 {
			m.selectedIdx++
		}
		return m, nil

	case key.Matches(msg, m.keymap.NextPage):
		if m.page < m.pageCount-1 {
			m.page++
			m.selectedIdx = 0
			return m, m.loadData
		}
		return m, nil

	case key.Matches(msg, m.keymap.PrevPage):
		if m.page > 0 {
			m.page--
			m.selectedIdx = 0
			return m, m.loadData
		}
		return m, nil

	case key.Matches(msg, m.keymap.Search):
		m.searching = true
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keymap.ClearSearch):
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.searchInput.SetValue("")
			m.page = 0
			return m, m.loadData
		}
		if m.OnBack != nil {
			m.OnBack()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Select):
		if m.selectedIdx < len(m.rows) {
			row := m.rows[m.selectedIdx]
			if m.OnSelect != nil {
				m.OnSelect(row.ID)
				return m, nil
			}
			m.detail = row
		}
		return m, nil
	}

	return m, nil
}

// Styles.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	detailKey     = lipgloss.NewStyle().Bold(true).Width(10)
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if m.err != nil {
		return failStyle.Render("history error: "+m.err.Error()) + "\n" + dimStyle.Render("q to quit")
	}
	if m.detail != nil {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("easel sessions"))
	b.WriteString("\n\n")

	if m.searching {
		b.WriteString("search: " + m.searchInput.View() + "\n\n")
	} else if m.searchQuery != "" {
		b.WriteString(dimStyle.Render("filter: "+m.searchQuery) + "\n\n")
	}

	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("(no sessions)") + "\n")
	}

	for i, row := range m.rows {
		line := fmt.Sprintf("%-8s  %-16s  %-8s  %-8s  %s",
			shortID(row.ID),
			row.StartedAt.Local().Format("2006-01-02 15:04"),
			row.Mode,
			rowStatus(row),
			row.Script,
		)
		if i == m.selectedIdx {
			line = selectedStyle.Render(line)
		} else if row.Finished && row.ExitCode != 0 {
			line = failStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"page %d/%d · %d sessions · ↑↓ move · ←→ page · / search · enter details · q quit",
		m.page+1, max(m.pageCount, 1), m.totalCount,
	)))
	return b.String()
}

func (m Model) viewDetail() string {
	sess := m.detail
	var b strings.Builder

	b.WriteString(titleStyle.Render("session "+shortID(sess.ID)) + "\n\n")
	b.WriteString(detailKey.Render("script") + sess.Script + "\n")
	b.WriteString(detailKey.Render("mode") + sess.Mode + "\n")
	if sess.Export != "" {
		b.WriteString(detailKey.Render("export") + fmt.Sprintf("%s (%s)", sess.Export, sess.Format) + "\n")
		b.WriteString(detailKey.Render("frames") + fmt.Sprintf("%d-%d", sess.FirstFrame, sess.LastFrame) + "\n")
	}
	b.WriteString(detailKey.Render("started") + sess.StartedAt.Local().Format(time.RFC1123) + "\n")
	b.WriteString(detailKey.Render("status") + rowStatus(sess) + "\n")
	if sess.Finished {
		b.WriteString(detailKey.Render("duration") + (time.Duration(sess.Duration) * time.Millisecond).String() + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("esc back · q quit"))
	return b.String()
}

func rowStatus(sess *history.Session) string {
	switch {
	case !sess.Finished:
		return "running"
	case sess.ExitCode == 0:
		return "ok"
	default:
		return fmt.Sprintf("exit %d", sess.ExitCode)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
