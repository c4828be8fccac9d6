package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/rewrite-abi/internal/config"
	"github.com/wippyai/rewrite-abi/ir"
	"github.com/wippyai/rewrite-abi/sema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	termStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectTerm modelState = iota
	stateShowRules
)

// termInfo is one row of the term list.
type termInfo struct {
	id    sema.TermID
	name  string
	sig   string
	kind  string
	rules int
}

type interactiveModel struct {
	err      error
	prog     *ir.Program
	cfg      *config.Config
	filter   textinput.Model
	terms    []termInfo
	visible  []int
	selected int
	state    modelState
}

type loadedMsg struct {
	err  error
	prog *ir.Program
}

func newInteractiveModel(cfg *config.Config) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "term name"
	ti.Width = 40
	ti.Focus()
	return &interactiveModel{cfg: cfg, filter: ti, state: stateSelectTerm}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.load, textinput.Blink)
}

func (m *interactiveModel) load() tea.Msg {
	var diags bytes.Buffer
	prog, err := analyze(m.cfg, newReporter(&diags, false))
	if err != nil {
		if diags.Len() > 0 {
			err = fmt.Errorf("%w\n\n%s", err, strings.TrimSpace(diags.String()))
		}
		return loadedMsg{err: err}
	}
	return loadedMsg{prog: prog}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state == stateShowRules || m.err != nil {
				return m, tea.Quit
			}

		case "up":
			if m.state == stateSelectTerm && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateSelectTerm && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			switch m.state {
			case stateSelectTerm:
				if len(m.visible) > 0 {
					m.state = stateShowRules
				}
			case stateShowRules:
				m.state = stateSelectTerm
			}
			return m, nil

		case "esc":
			if m.state == stateShowRules {
				m.state = stateSelectTerm
				return m, nil
			}
			if m.filter.Value() != "" {
				m.filter.SetValue("")
				m.applyFilter()
				return m, nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.prog = msg.prog
		m.terms = describeTerms(msg.prog)
		m.applyFilter()
		return m, nil
	}

	if m.state == stateSelectTerm {
		var cmd tea.Cmd
		prev := m.filter.Value()
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != prev {
			m.applyFilter()
		}
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, t := range m.terms {
		if strings.Contains(strings.ToLower(t.name), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func describeTerms(p *ir.Program) []termInfo {
	counts := make(map[sema.TermID]int)
	for _, r := range p.Rules {
		counts[r.Root]++
	}
	out := make([]termInfo, len(p.Terms))
	for i, t := range p.Terms {
		args := make([]string, len(t.ArgTys))
		for j, a := range t.ArgTys {
			args[j] = p.TypeName(a)
		}
		out[i] = termInfo{
			id:    sema.TermID(i),
			name:  t.Name,
			sig:   "(" + strings.Join(args, ", ") + ") -> " + p.TypeName(t.RetTy),
			kind:  termKind(t),
			rules: counts[sema.TermID(i)],
		}
	}
	return out
}

func termKind(t ir.Term) string {
	if t.Variant {
		return "variant"
	}
	var parts []string
	if t.Flags != "" {
		parts = append(parts, t.Flags)
	}
	if t.Constructor != "" {
		parts = append(parts, "constructor="+t.Constructor)
	}
	if t.Extractor != "" {
		parts = append(parts, "extractor="+t.Extractor)
	}
	return strings.Join(parts, " ")
}

// rulesText renders the lowered rules rooted at id.
func (m *interactiveModel) rulesText(id sema.TermID) string {
	sub := *m.prog
	sub.Rules = nil
	for _, r := range m.prog.Rules {
		if r.Root == id {
			sub.Rules = append(sub.Rules, r)
		}
	}
	if len(sub.Rules) == 0 {
		return "no rules"
	}
	return strings.TrimRight(sub.String(), "\n")
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.prog == nil {
		return "Analyzing rules..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Rule Browser"))
	b.WriteString(" ")
	b.WriteString(m.cfg.Input)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectTerm:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		for i, idx := range m.visible {
			line := m.formatTerm(m.terms[idx])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter show rules • esc clear • ctrl+c quit"))

	case stateShowRules:
		t := m.terms[m.visible[m.selected]]
		b.WriteString(fmt.Sprintf("Rules of %s %s\n\n", termStyle.Render(t.name), typeStyle.Render(t.sig)))
		b.WriteString(m.rulesText(t.id))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatTerm(t termInfo) string {
	s := termStyle.Render(t.name) + " " + typeStyle.Render(t.sig)
	if t.kind != "" {
		s += " " + helpStyle.Render(t.kind)
	}
	if t.rules > 0 {
		s += fmt.Sprintf(" [%d rules]", t.rules)
	}
	return s
}

func runInteractive(cfg *config.Config) error {
	p := tea.NewProgram(newInteractiveModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
