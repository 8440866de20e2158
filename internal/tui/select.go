package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// selectModel picks one entry from a list of logins.
type selectModel struct {
	title    string
	items    []string
	cursor   int
	chosen   int
	canceled bool
}

func newSelectModel(title string, items []string) selectModel {
	return selectModel{title: title, items: items, chosen: -1}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(msg)
	}
	return m, nil
}

func (m selectModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC || key.Matches(msg, zstyle.KeyQuit) || key.Matches(msg, zstyle.KeyBack) {
		m.canceled = true
		return m, tea.Quit
	}

	if len(m.items) == 0 {
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyUp) {
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyDown) {
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	}

	if key.Matches(msg, zstyle.KeyEnter) {
		m.chosen = m.cursor
		return m, tea.Quit
	}

	// 1-9 jump straight to an entry
	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.items) && n <= 9 {
		m.chosen = n - 1
		m.cursor = n - 1
		return m, tea.Quit
	}

	return m, nil
}

func (m selectModel) View() string {
	if m.chosen >= 0 || m.canceled {
		return ""
	}

	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n  " + zstyle.Title.Render(m.title) + "\n\n"

	for i, item := range m.items {
		line := fmt.Sprintf("%d. %s", i+1, truncate(item, 60))
		if i == m.cursor {
			s += "  " + accentStyle.Render("▸") + " " + line + "\n"
		} else {
			s += "    " + line + "\n"
		}
	}

	s += "\n  " + zstyle.RenderFooter([]zstyle.HelpPair{
		{Key: "j/k", Desc: "navigate"},
		{Key: "enter", Desc: "log in"},
		{Key: "esc", Desc: "cancel"},
	}) + "\n"
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
