package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/chipforge/pkg/engine"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// AlgorithmListModel - Interactive strategy selection
// =============================================================================

// AlgorithmListModel is the bubbletea model for interactive strategy
// selection.
type AlgorithmListModel struct {
	Algorithms []engine.Algorithm
	Cursor     int
	Selected   *engine.Algorithm
	Height     int
	Offset     int
}

// NewAlgorithmListModel creates a picker over algos.
func NewAlgorithmListModel(algos []engine.Algorithm) AlgorithmListModel {
	return AlgorithmListModel{Algorithms: algos, Height: 15}
}

func (m AlgorithmListModel) Init() tea.Cmd {
	return nil
}

func (m AlgorithmListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Algorithms)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Algorithms) == 0 {
				return m, nil
			}
			a := m.Algorithms[m.Cursor]
			m.Selected = &a
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m AlgorithmListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Algorithm"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Algorithms))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		a := m.Algorithms[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, string(a.Category), a.Name, describe(a)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Category", "Algorithm", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGood).Bold(true)
			}
			if col == 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Algorithms))))

	return b.String()
}

// pickAlgorithm runs the picker and returns the chosen strategy, or nil when
// the user quits without choosing.
func pickAlgorithm(algos []engine.Algorithm) (*engine.Algorithm, error) {
	final, err := tea.NewProgram(NewAlgorithmListModel(algos)).Run()
	if err != nil {
		return nil, err
	}
	return final.(AlgorithmListModel).Selected, nil
}
