package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Messages fed into the sync TUI from the synchronizer's callbacks.
type (
	// SyncProgressMsg updates one project's download progress.
	SyncProgressMsg struct {
		Slug    string
		Current int64
		Total   int64
	}
	// SyncOutcomeMsg marks one project terminal.
	SyncOutcomeMsg struct {
		Slug     string
		Decision string
		Detail   string
		Err      error
	}
	// SyncDoneMsg ends the program once every item is terminal.
	SyncDoneMsg struct{}
)

type syncItemState int

const (
	itemPending syncItemState = iota
	itemFetching
	itemTerminal
)

type syncItem struct {
	slug     string
	state    syncItemState
	current  int64
	total    int64
	bar      progress.Model
	decision string
	detail   string
	err      error
}

var (
	syncTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	syncSlugStyle    = lipgloss.NewStyle().Width(24)
	syncOKStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	syncWarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	syncErrStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	syncPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// SyncModel is the bubbletea model for a live sync run: one line per
// tracked project with a progress bar while fetching and an outcome
// once terminal.
type SyncModel struct {
	title string
	items []*syncItem
	index map[string]int
	spin  spinner.Model
	done  bool
}

// NewSyncModel prepares a model with one pending row per slug, in the
// given order.
func NewSyncModel(title string, slugs []string) *SyncModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = syncPendingStyle
	m := &SyncModel{title: title, spin: sp, index: make(map[string]int, len(slugs))}
	for i, slug := range slugs {
		m.index[slug] = i
		m.items = append(m.items, &syncItem{
			slug: slug,
			bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		})
	}
	return m
}

func (m *SyncModel) Init() tea.Cmd { return m.spin.Tick }

func (m *SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case SyncProgressMsg:
		if it := m.item(msg.Slug); it != nil && it.state != itemTerminal {
			it.state = itemFetching
			it.current = msg.Current
			it.total = msg.Total
		}
	case SyncOutcomeMsg:
		if it := m.item(msg.Slug); it != nil {
			it.state = itemTerminal
			it.decision = msg.Decision
			it.detail = msg.Detail
			it.err = msg.Err
		}
	case SyncDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *SyncModel) View() string {
	var b strings.Builder
	b.WriteString(syncTitleStyle.Render(m.title))
	b.WriteString("\n\n")
	for _, it := range m.items {
		b.WriteString(m.renderItem(it))
		b.WriteString("\n")
	}
	if !m.done {
		b.WriteString("\n")
		b.WriteString(syncPendingStyle.Render("q to abort"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *SyncModel) renderItem(it *syncItem) string {
	name := syncSlugStyle.Render(it.slug)
	switch it.state {
	case itemPending:
		return fmt.Sprintf("%s %s %s", name, m.spin.View(), syncPendingStyle.Render("resolving"))
	case itemFetching:
		pct := 0.0
		if it.total > 0 {
			pct = float64(it.current) / float64(it.total)
		}
		return fmt.Sprintf("%s %s %s", name, it.bar.ViewAs(pct),
			syncPendingStyle.Render(FormatBytes(it.current)))
	default:
		return fmt.Sprintf("%s %s", name, m.renderOutcome(it))
	}
}

func (m *SyncModel) renderOutcome(it *syncItem) string {
	if it.err != nil {
		return syncErrStyle.Render("✗ " + it.err.Error())
	}
	label := it.decision
	if it.detail != "" {
		label += " (" + it.detail + ")"
	}
	switch it.decision {
	case "installed", "updated", "up-to-date":
		return syncOKStyle.Render("✓ " + label)
	case "incompatible":
		return syncWarnStyle.Render("⚠ " + label)
	default:
		return syncErrStyle.Render("✗ " + label)
	}
}

func (m *SyncModel) item(slug string) *syncItem {
	i, ok := m.index[slug]
	if !ok {
		return nil
	}
	return m.items[i]
}
