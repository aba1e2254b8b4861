package sheet

import (
	"fmt"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

func keyPress(t *testing.T, m Model, key string) Model {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	m = next.(Model)
	for cmd != nil {
		next, cmd = m.Update(cmd())
		m = next.(Model)
	}
	return m
}

func TestEditedCell(t *testing.T) {
	t.Run("number", func(t *testing.T) {
		c := editedCell(NumberCell{Value: 1}, "2.5").(NumberCell)
		if c.Value != 2.5 {
			t.Errorf("expected 2.5, got %v", c.Value)
		}
		if c = editedCell(NumberCell{}, "junk").(NumberCell); !math.IsNaN(c.Value) {
			t.Errorf("expected NaN, got %v", c.Value)
		}
	})

	t.Run("checkbox", func(t *testing.T) {
		if c := editedCell(CheckboxCell{}, "true").(CheckboxCell); !c.Checked {
			t.Error("expected checked")
		}
	})

	t.Run("dropdown resolves against candidates", func(t *testing.T) {
		dd := DropdownCell{Options: candidates("engineering", "operations")}
		if c := editedCell(dd, "ops").(DropdownCell); c.SelectedValue != "operations" {
			t.Errorf("expected operations, got %q", c.SelectedValue)
		}
	})

	t.Run("creatable grows its options", func(t *testing.T) {
		cc := CreatableCell{Options: candidates("a")}
		got := editedCell(cc, "b").(CreatableCell)
		if got.SelectedValue != "b" || len(got.Options) != 2 {
			t.Errorf("expected grown options, got %+v", got)
		}
	})

	t.Run("text", func(t *testing.T) {
		if c := editedCell(TextCell{Text: "old"}, "new").(TextCell); c.Text != "new" {
			t.Errorf("expected new, got %q", c.Text)
		}
	})
}

func TestCellText(t *testing.T) {
	if got := cellText(CheckboxCell{Checked: true}); got != "[x]" {
		t.Errorf("expected [x], got %q", got)
	}
	if got := cellText(DropdownCell{InputLabel: "Engineering"}); got != "Engineering" {
		t.Errorf("expected label, got %q", got)
	}
	if got := cellText(NumberCell{Value: 1.5}); got != "1.5" {
		t.Errorf("expected 1.5, got %q", got)
	}
}

func TestPad(t *testing.T) {
	if got := pad("ab", 4); got != "ab  " {
		t.Errorf("expected padding, got %q", got)
	}
	if got := pad("abcdef", 4); got != "abc…" {
		t.Errorf("expected truncation, got %q", got)
	}

	t.Run("width counts terminal cells, not bytes", func(t *testing.T) {
		for _, s := range []string{"héllo wörld", "日本語テキスト", "ok"} {
			got := pad(s, 6)
			if w := runewidth.StringWidth(got); w != 6 {
				t.Errorf("pad(%q, 6) has width %d: %q", s, w, got)
			}
		}
		if got := pad("héllo!", 4); got != "hél…" {
			t.Errorf("expected rune-aware truncation, got %q", got)
		}
	})
}

func TestModelScrollFollowsCursor(t *testing.T) {
	data := make([]map[string]any, 30)
	for i := range data {
		data[i] = map[string]any{"name": fmt.Sprintf("row-%02d", i)}
	}
	s := New(data, Options{Includes: []string{"name"}}, nil)
	l := NewLoader(pagedFetcher(1, 5), 5)
	m := NewModel(s, l)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m = next.(Model)

	for i := 0; i < 40; i++ {
		m = keyPress(t, m, "j")
	}

	if m.scrollY == 0 {
		t.Fatal("expected the viewport to follow the cursor down")
	}
	if m.cy < m.scrollY || m.cy >= m.scrollY+m.dataHeight() {
		t.Fatalf("cursor row %d outside window [%d,%d)", m.cy, m.scrollY, m.scrollY+m.dataHeight())
	}
	rows := m.Sheet.RawRows()
	if name, ok := rows[m.cy].Cells["name"].(string); ok && name != "" {
		if !strings.Contains(m.View(), name) {
			t.Errorf("expected cursor row %q rendered", name)
		}
	}
	if len(rows) <= 30 {
		t.Errorf("expected the sentinel to trigger a fetch past the seed rows, got %d", len(rows))
	}
	if m.Loader.HasMore() {
		t.Error("expected the source drained after scrolling to the bottom")
	}

	t.Run("scrolling back up", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			m = keyPress(t, m, "k")
		}
		if m.cy != 0 || m.scrollY != 0 {
			t.Errorf("expected cursor and viewport at top, got cy=%d scrollY=%d", m.cy, m.scrollY)
		}
		if !strings.Contains(m.View(), "row-00") {
			t.Error("expected first row rendered at top")
		}
	})
}

func TestModelToggleSelection(t *testing.T) {
	s := New([]map[string]any{
		{"name": "a"}, {"name": "b"}, {"name": "c"}, {"name": "d"},
	}, Options{Includes: []string{"name"}}, nil)
	m := NewModel(s, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = next.(Model)

	m = keyPress(t, m, " ") // toggle row 0
	m = keyPress(t, m, "j")
	m = keyPress(t, m, " ") // toggle row 1
	m = keyPress(t, m, "-")

	rows := m.Sheet.RawRows()
	if len(rows) != 2 {
		t.Fatalf("expected both toggled rows removed, got %d", len(rows))
	}
	if rows[0].Cells["name"] != "c" || rows[1].Cells["name"] != "d" {
		t.Errorf("unexpected survivors %v, %v", rows[0].Cells, rows[1].Cells)
	}

	t.Run("toggle twice deselects", func(t *testing.T) {
		m = keyPress(t, m, " ")
		m = keyPress(t, m, " ")
		m = keyPress(t, m, "-") // falls back to the cursor row
		if got := len(m.Sheet.RawRows()); got != 1 {
			t.Errorf("expected single-row fallback delete, got %d rows", got)
		}
	})

	t.Run("selection does not survive a structural change", func(t *testing.T) {
		if len(m.selected) != 0 {
			t.Errorf("expected cleared toggles, got %v", m.selected)
		}
	})
}

func TestModelFetchFlow(t *testing.T) {
	s := New([]map[string]any{{"name": "a"}, {"name": "b"}}, Options{Includes: []string{"name"}}, nil)
	l := NewLoader(pagedFetcher(1, 2), 2)
	m := NewModel(s, l)
	m.height = 20

	cmd := m.maybeFetch()
	if cmd == nil {
		t.Fatal("expected a fetch command while the sentinel is visible")
	}
	msg, ok := cmd().(rowsFetchedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("unexpected msg %v", msg)
	}

	next, _ := m.Update(msg)
	m = next.(Model)
	if len(m.Sheet.RawRows()) != 4 {
		t.Errorf("expected fetched rows merged, got %d", len(m.Sheet.RawRows()))
	}
	if m.Loader.Page() != 1 {
		t.Errorf("expected page 1 consumed, got %d", m.Loader.Page())
	}
}
