package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
)

// Live view styles
var (
	tuiHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	tuiWeightStyle = lipgloss.NewStyle().Foreground(colorCyan).Align(lipgloss.Right)
	tuiDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	defaultTableRows = 15
	logLines         = 5
)

// =============================================================================
// Messages
// =============================================================================

type (
	snapshotMsg graph.Snapshot
	logMsg      string
	finalMsg    struct{}
)

// =============================================================================
// LiveModel - live edge table
// =============================================================================

// LiveModel is the bubbletea model for the live terminal view: the heaviest
// edges, graph totals and the most recent log lines.
type LiveModel struct {
	Path   string
	Snap   graph.Snapshot
	Logs   []string
	Rows   int
	Final  bool
	cancel context.CancelFunc
}

// NewLiveModel creates a live model for path. cancel is called when the user
// quits the view.
func NewLiveModel(path string, cancel context.CancelFunc) LiveModel {
	return LiveModel{Path: path, Rows: defaultTableRows, cancel: cancel}
}

func (m LiveModel) Init() tea.Cmd {
	return nil
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.Rows = max(msg.Height-10-logLines, 3)
	case snapshotMsg:
		m.Snap = graph.Snapshot(msg)
	case logMsg:
		m.Logs = append(m.Logs, strings.TrimRight(string(msg), "\n"))
		if len(m.Logs) > logLines {
			m.Logs = m.Logs[len(m.Logs)-logLines:]
		}
	case finalMsg:
		m.Final = true
		return m, tea.Quit
	}
	return m, nil
}

func (m LiveModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Author Interaction Network"))
	b.WriteString("  ")
	b.WriteString(tuiDimStyle.Render(m.Path))
	b.WriteString("\n")
	b.WriteString(formatStats(m.Snap.Records, m.Snap.NodeCount(), m.Snap.EdgeCount(), 0, 0))
	b.WriteString("\n\n")

	edges := m.Snap.EdgesByWeight()
	shown := min(len(edges), m.Rows)
	rows := make([][]string, 0, shown)
	for _, e := range edges[:shown] {
		rows = append(rows, []string{
			errors.SanitizeLabel(e.A),
			errors.SanitizeLabel(e.B),
			fmt.Sprint(e.Weight),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Node", "Node", "Weight").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tuiHeaderStyle
			}
			if col == 2 {
				return tuiWeightStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	if hidden := len(edges) - shown; hidden > 0 {
		b.WriteString(tuiDimStyle.Render(fmt.Sprintf("  … %d more edges", hidden)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for _, l := range m.Logs {
		b.WriteString(tuiDimStyle.Render(l))
		b.WriteString("\n")
	}
	if !m.Final {
		b.WriteString(tuiDimStyle.Render("q quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Renderer and log bridge
// =============================================================================

// tuiRenderer forwards snapshots to a running program, so redraws happen on
// the program's goroutine.
type tuiRenderer struct {
	p      *tea.Program
	logger *log.Logger // output restored to stderr on Flush
}

func (r tuiRenderer) Render(_ context.Context, s graph.Snapshot) { r.p.Send(snapshotMsg(s)) }

// Flush shows the final state, stops the program and hands logging back to
// stderr.
func (r tuiRenderer) Flush(context.Context) {
	r.p.Send(finalMsg{})
	r.p.Wait()
	if r.logger != nil {
		r.logger.SetOutput(os.Stderr)
	}
}

// tuiLogWriter feeds log output into the view instead of the terminal.
type tuiLogWriter struct {
	p *tea.Program
}

func (w tuiLogWriter) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		w.p.Send(logMsg(line))
	}
	return len(b), nil
}
