package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zstyle"
)

// confirmModel asks a yes/no question. Anything but y declines.
type confirmModel struct {
	question string
	answered bool
	yes      bool
	canceled bool
}

func newConfirmModel(question string) confirmModel {
	return confirmModel{question: question}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if k.Type == tea.KeyCtrlC {
		m.canceled = true
		return m, tea.Quit
	}

	switch k.String() {
	case "y", "Y":
		m.yes = true
	}
	m.answered = true
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.answered || m.canceled {
		return ""
	}
	return "\n  " + zstyle.StatusWarn.Render(m.question) + " (y/n)\n"
}
