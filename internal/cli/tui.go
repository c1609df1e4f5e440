package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"vantage/internal/store"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// WorkspaceListModel - Interactive workspace selection
// =============================================================================

// WorkspaceListModel is the bubbletea model for interactive workspace
// selection.
type WorkspaceListModel struct {
	Workspaces []store.Workspace
	Cursor     int
	Selected   *store.Workspace
	Height     int
	Offset     int
}

// NewWorkspaceListModel creates a new workspace list model.
func NewWorkspaceListModel(workspaces []store.Workspace) WorkspaceListModel {
	return WorkspaceListModel{
		Workspaces: workspaces,
		Cursor:     0,
		Height:     15,
		Offset:     0,
	}
}

func (m WorkspaceListModel) Init() tea.Cmd {
	return nil
}

func (m WorkspaceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Workspaces)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			ws := m.Workspaces[m.Cursor]
			m.Selected = &ws
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m WorkspaceListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Workspace"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Workspaces) {
		end = len(m.Workspaces)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		ws := m.Workspaces[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		rows = append(rows, []string{
			cursor,
			ws.Name,
			fmt.Sprintf("%d", len(ws.Snapshot.Components)),
			fmt.Sprintf("%d", len(ws.Statements)),
			fmt.Sprintf("%d", ws.Revision),
			formatRelativeTime(ws.UpdatedAt),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Workspace", "Components", "Statements", "Rev", "Updated").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Workspaces) {
				return lipgloss.NewStyle()
			}

			base := lipgloss.NewStyle()
			if col >= 4 {
				base = base.Foreground(colorDim)
			}
			if actualIdx == m.Cursor {
				return base.Foreground(colorGreen).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Workspaces))))

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}

	diff := time.Since(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
