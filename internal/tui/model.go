package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cran/rollinglda/internal/domain"
)

// Model is the Bubble Tea model for browsing a fitted rolling update: the
// chunk audit table on the left, the selected record and the topic top terms
// on the right.
type Model struct {
	modelID  string
	records  []domain.ChunkRecord
	topTerms [][]string
	viewport viewport.Model
	cursor   int
	ready    bool
}

// New creates a browser over the chunk log. topTerms may be nil when no
// topic matrix was computed.
func New(modelID string, records []domain.ChunkRecord, topTerms [][]string) Model {
	vp := viewport.New(0, 0)
	return Model{modelID: modelID, records: records, topTerms: topTerms, viewport: vp}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := detailBoxStyle.GetFrameSize()
		reserved := 2 + 1 + fh // header + footer + frame
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderDetail())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "down", "j":
			if len(m.records) > 0 {
				m.cursor = (m.cursor + 1) % len(m.records)
				m.viewport.SetContent(m.renderDetail())
			}
			return m, nil
		case "up", "k":
			if len(m.records) > 0 {
				m.cursor = (m.cursor - 1 + len(m.records)) % len(m.records)
				m.viewport.SetContent(m.renderDetail())
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the browser layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RollingLDA  " + m.modelID)
	position := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).
		Render(fmt.Sprintf("chunk %d/%d  (up/down to browse, q to quit)", m.cursor+1, len(m.records)))
	detail := detailBoxStyle.Render(m.viewport.View())
	return header + "\n" + position + "\n" + detail
}

func (m Model) renderDetail() string {
	if len(m.records) == 0 {
		return "No chunk records."
	}
	r := m.records[m.cursor]
	var b strings.Builder
	fmt.Fprintf(&b, "chunk %d\n", r.ChunkID)
	fmt.Fprintf(&b, "  window:  %s .. %s\n", r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"))
	if r.MemoryDate.IsZero() {
		b.WriteString("  memory:  (initial fit)\n")
	} else {
		fmt.Fprintf(&b, "  memory:  since %s (%d documents)\n", r.MemoryDate.Format("2006-01-02"), r.NMemory)
	}
	fmt.Fprintf(&b, "  new:     %d admitted, %d discarded\n", r.NNew, r.NDiscarded)
	fmt.Fprintf(&b, "  vocab:   %d tokens\n", r.NVocab)
	if len(m.topTerms) > 0 && m.cursor == len(m.records)-1 {
		b.WriteString("\n" + termHeaderStyle.Render("topic top terms (final model)") + "\n")
		for k, terms := range m.topTerms {
			fmt.Fprintf(&b, "  %2d  %s\n", k+1, strings.Join(terms, " "))
		}
	}
	return b.String()
}

var (
	detailBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	termHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
