package interactive

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
)

// SelectTags lets the operator tick the tags to migrate
func (p *Prompter) SelectTags(tags []string, descriptions map[string]string) ([]string, error) {
	if p.nonInteractive {
		return nil, ErrNonInteractive
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("the plan has no tags")
	}

	model := newMultiSelectModel(tags, descriptions, "Select tags to migrate")
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("tag selection failed: %w", err)
	}

	m := final.(multiSelectModel)
	if m.cancelled {
		return nil, fmt.Errorf("tag selection cancelled")
	}
	return m.chosen(), nil
}

// multiSelectModel is the bubbletea model for multi-select
type multiSelectModel struct {
	items        []string
	descriptions map[string]string
	cursor       int
	selected     map[int]bool
	title        string
	done         bool
	cancelled    bool
}

func newMultiSelectModel(items []string, descriptions map[string]string, title string) multiSelectModel {
	return multiSelectModel{
		items:        items,
		descriptions: descriptions,
		selected:     make(map[int]bool),
		title:        title,
	}
}

func (m multiSelectModel) Init() tea.Cmd {
	return nil
}

func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		m.done = true
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ":
		m.selected[m.cursor] = !m.selected[m.cursor]
	case "a":
		all := len(m.chosen()) < len(m.items)
		for i := range m.items {
			m.selected[i] = all
		}
	case "enter":
		if len(m.chosen()) > 0 {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m multiSelectModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(color.New(color.FgCyan, color.Bold).Sprintf("%s\n\n", m.title))

	for i, item := range m.items {
		cursor := " "
		if m.cursor == i {
			cursor = color.New(color.FgCyan).Sprint("▸")
		}

		checkbox := color.New(color.FgWhite).Sprint("○")
		if m.selected[i] {
			checkbox = color.New(color.FgGreen).Sprint("✓")
		}

		line := fmt.Sprintf("%s %s %s", cursor, checkbox, item)
		if desc := m.descriptions[item]; desc != "" {
			line += " " + color.New(color.Faint).Sprintf("(%s)", desc)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(color.New(color.FgYellow).Sprint("↑/↓: move  Space: toggle  a: all  Enter: confirm  q: quit\n"))
	return b.String()
}

// chosen returns the ticked items in display order
func (m multiSelectModel) chosen() []string {
	var out []string
	for i, item := range m.items {
		if m.selected[i] {
			out = append(out, item)
		}
	}
	return out
}
