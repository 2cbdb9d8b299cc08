package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"dropsum/internal/model"
)

func items() []model.BookmarkItem {
	return []model.BookmarkItem{
		{ID: 1, Title: "Go Talk", Link: "https://youtu.be/aaaaaaaaaa1"},
		{ID: 2, Title: "Rust Talk", Link: "https://youtu.be/bbbbbbbbbb2"},
		{ID: 3, Title: "Go Workshop", Link: "https://youtu.be/cccccccccc3"},
	}
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestPicker_AllMarkedByDefault(t *testing.T) {
	p := New(items())

	m, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = m.(Picker)

	if got := p.Selected(); len(got) != 3 {
		t.Errorf("expected all 3 selected, got %d", len(got))
	}
}

func TestPicker_ToggleAndConfirm(t *testing.T) {
	p := New(items())

	// Unmark the first item, confirm.
	m, _ := p.Update(tea.KeyMsg{Type: tea.KeySpace})
	p = m.(Picker)
	m, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = m.(Picker)

	got := p.Selected()
	if len(got) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 3 {
		t.Errorf("unexpected selection: %v, %v", got[0].ID, got[1].ID)
	}
}

func TestPicker_CancelSelectsNothing(t *testing.T) {
	p := New(items())

	m, _ := p.Update(key('q'))
	p = m.(Picker)

	if !p.Cancelled() {
		t.Error("expected cancelled")
	}
	if p.Selected() != nil {
		t.Error("cancelled picker must select nothing")
	}
}

func TestPicker_CursorMovement(t *testing.T) {
	p := New(items())

	m, _ := p.Update(key('j'))
	p = m.(Picker)
	m, _ = p.Update(key('j'))
	p = m.(Picker)
	m, _ = p.Update(key('j')) // bottom, stays put
	p = m.(Picker)

	if p.cursor != 2 {
		t.Errorf("expected cursor 2, got %d", p.cursor)
	}

	m, _ = p.Update(key('k'))
	p = m.(Picker)
	if p.cursor != 1 {
		t.Errorf("expected cursor 1, got %d", p.cursor)
	}
}

func TestPicker_FilterNarrowsToggleScope(t *testing.T) {
	p := New(items())

	// Enter filter mode and type "go".
	m, _ := p.Update(key('/'))
	p = m.(Picker)
	m, _ = p.Update(key('g'))
	p = m.(Picker)
	m, _ = p.Update(key('o'))
	p = m.(Picker)
	m, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = m.(Picker)

	if got := len(p.visible()); got != 2 {
		t.Fatalf("expected 2 visible after filter, got %d", got)
	}

	// "a" on the filtered view unmarks only the Go items.
	m, _ = p.Update(key('a'))
	p = m.(Picker)
	m, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = m.(Picker)

	got := p.Selected()
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("expected only the Rust talk selected, got %v", got)
	}
}

func TestPicker_ViewShowsMarks(t *testing.T) {
	p := New(items())

	view := p.View()
	if !strings.Contains(view, "Go Talk") {
		t.Error("view missing item title")
	}
	if !strings.Contains(view, "3 selected") {
		t.Error("view missing selection count")
	}
}
