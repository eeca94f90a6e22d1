package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	actionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	replErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// replModel is the interactive selection loop: one input line per pass,
// selected actions echoed into the transcript above the prompt.
type replModel struct {
	rt    *runtime
	input textinput.Model
	lines []string
}

func newReplModel(rt *runtime) replModel {
	ti := textinput.New()
	ti.Placeholder = "input"
	ti.Prompt = promptStyle.Render("> ")
	ti.Focus()

	return replModel{
		rt:    rt,
		input: ti,
		lines: []string{mutedStyle.Render("psikit repl. esc or ctrl+c to quit.")},
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			if line == "exit" || line == "quit" {
				return m, tea.Quit
			}
			m.lines = append(m.lines, m.runPass(line)...)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// runPass runs one triggered pass and renders the transcript lines for it.
func (m replModel) runPass(line string) []string {
	out := []string{promptStyle.Render("> ") + line}

	winner, err := m.rt.SelectOnce(line)
	if err != nil {
		return append(out, replErrStyle.Render("error: "+err.Error()))
	}
	if winner == nil {
		return append(out, mutedStyle.Render("(no action applicable)"))
	}

	result := actionStyle.Render(winner.Action.Key())
	if winner.Name != "" {
		result += mutedStyle.Render("  [rule " + winner.Name + "]")
	}
	return append(out, result)
}

func (m replModel) View() string {
	var b strings.Builder
	for _, l := range m.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(m.input.View())
	b.WriteByte('\n')
	return b.String()
}
