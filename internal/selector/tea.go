package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	ErrNoTerminal = errors.New("stdin is not a terminal")
	ErrAborted    = errors.New("selection aborted")
)

var (
	promptStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TeaChooser renders an arrow-key menu on a terminal.
type TeaChooser struct {
	In  io.Reader
	Out io.Writer
}

func NewTeaChooser() *TeaChooser {
	return &TeaChooser{In: os.Stdin, Out: os.Stderr}
}

func (c *TeaChooser) Choose(ctx context.Context, prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("no options")
	}
	if f, ok := c.In.(*os.File); !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return 0, ErrNoTerminal
	}
	p := tea.NewProgram(newMenu(prompt, options),
		tea.WithContext(ctx),
		tea.WithInput(c.In),
		tea.WithOutput(c.Out),
	)
	final, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("run menu: %w", err)
	}
	m, ok := final.(menu)
	if !ok || m.aborted || !m.chosen {
		return 0, ErrAborted
	}
	return m.cursor, nil
}

type menu struct {
	prompt  string
	options []string
	cursor  int
	chosen  bool
	aborted bool
}

func newMenu(prompt string, options []string) menu {
	return menu{prompt: prompt, options: options}
}

func (m menu) Init() tea.Cmd {
	return nil
}

func (m menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.options) - 1
	case "enter", " ":
		m.chosen = true
		return m, tea.Quit
	case "ctrl+c", "esc", "q":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m menu) View() string {
	if m.chosen || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptStyle.Render(m.prompt))
	b.WriteString("\n")
	for i, opt := range m.options {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> "))
			b.WriteString(selectedStyle.Render(opt))
		} else {
			b.WriteString("  ")
			b.WriteString(opt)
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move • enter select • esc cancel"))
	b.WriteString("\n")
	return b.String()
}
