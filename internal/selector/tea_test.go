package selector

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(m menu, keys ...tea.KeyMsg) (menu, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(menu)
	}
	return m, cmd
}

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestMenuMovesAndSelects(t *testing.T) {
	m := newMenu("Select a device:", []string{"a", "b", "ALL"})
	m, _ = press(m, keyDown, keyDown, keyDown)
	if m.cursor != 2 {
		t.Fatalf("cursor should clamp at last option, got %d", m.cursor)
	}
	m, _ = press(m, keyUp)
	m, cmd := press(m, keyEnter)
	if !m.chosen || m.cursor != 1 {
		t.Fatalf("expected choice 1, got chosen=%v cursor=%d", m.chosen, m.cursor)
	}
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestMenuVimKeys(t *testing.T) {
	m := newMenu("p", []string{"a", "b"})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.cursor != 1 {
		t.Fatalf("j should move down, cursor=%d", m.cursor)
	}
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}, keyUp)
	if m.cursor != 0 {
		t.Fatalf("cursor should clamp at 0, got %d", m.cursor)
	}
}

func TestMenuAbort(t *testing.T) {
	m, cmd := press(newMenu("p", []string{"a", "b"}), keyEsc)
	if !m.aborted || m.chosen || cmd == nil {
		t.Fatalf("expected aborted menu")
	}
	if m.View() != "" {
		t.Fatalf("view should be cleared after abort")
	}
}

func TestMenuViewListsOptions(t *testing.T) {
	view := newMenu("Select a device:", []string{"emulator-5554", "R5CRC"}).View()
	for _, want := range []string{"Select a device:", "emulator-5554", "R5CRC"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTeaChooserRequiresTerminal(t *testing.T) {
	c := &TeaChooser{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}
	if _, err := c.Choose(context.Background(), "p", []string{"a", "b"}); !errors.Is(err, ErrNoTerminal) {
		t.Fatalf("expected ErrNoTerminal, got %v", err)
	}
}
