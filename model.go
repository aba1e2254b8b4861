package sheet

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Model is the terminal rendering surface of a sheet: a bubbletea model
// that translates key events into sheet state transitions and renders the
// presentational cells. The state machine itself lives in Sheet; this is
// deliberately thin glue.
type Model struct {
	Sheet  *Sheet
	Loader *Loader

	width    int
	height   int
	cx, cy   int
	scrollY  int
	selected map[int]bool
	editing  bool
	editBuf  string
	err      error

	cursorStyle lipgloss.Style
	selectStyle lipgloss.Style
	dimStyle    lipgloss.Style
}

// NewModel wraps a sheet (and optional loader) in a renderable model.
func NewModel(s *Sheet, l *Loader) Model {
	return Model{
		Sheet:       s,
		Loader:      l,
		selected:    map[int]bool{},
		cursorStyle: lipgloss.NewStyle().Reverse(true),
		selectStyle: lipgloss.NewStyle().Bold(true),
		dimStyle:    lipgloss.NewStyle().Faint(true),
	}
}

// rowsFetchedMsg carries the outcome of an incremental fetch.
type rowsFetchedMsg struct {
	rows []map[string]any
	err  error
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scroll()
		return m, nil
	case rowsFetchedMsg:
		if msg.err != nil {
			m.Loader.Abort()
			m.err = msg.err
			return m, nil
		}
		m.Loader.Finish(msg.rows)
		if len(msg.rows) > 0 {
			m.Sheet.AddNewData(msg.rows)
		}
		return m, m.maybeFetch()
	case tea.KeyMsg:
		if m.editing {
			return m.updateEdit(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.Sheet.Columns()
	rows := m.Sheet.RawRows()
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "ctrl+z":
		m.Sheet.Undo()
		m.clamp()
	case "ctrl+y":
		m.Sheet.Redo()
		m.clamp()
	case "left", "h":
		if m.cx > 0 {
			m.cx--
		}
	case "right", "l":
		if m.cx < len(cols)-1 {
			m.cx++
		}
	case "up", "k":
		if m.cy > 0 {
			m.cy--
		}
	case "down", "j":
		if m.cy < len(rows)-1 {
			m.cy++
		} else if m.Sheet.AppendBlankRow() {
			m.cy++
		}
		m.scroll()
		m.syncFocus()
		return m, m.maybeFetch()
	case "enter":
		if len(rows) > 0 && m.cx < len(cols) {
			m.editing = true
			m.editBuf = m.currentText()
		}
	case " ":
		m.toggleSelection()
	case "+":
		m.Sheet.AddRow()
		m.clamp()
	case "-":
		m.ensureSelection()
		m.Sheet.RemoveRow()
		m.clamp()
	case "d":
		m.Sheet.DuplicateRow()
		m.clamp()
	}
	m.scroll()
	m.syncFocus()
	return m, m.maybeFetch()
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.commitEdit()
		m.editing = false
	case "esc":
		m.editing = false
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	default:
		if len(msg.String()) == 1 || msg.String() == " " {
			m.editBuf += msg.String()
		}
	}
	return m, nil
}

// syncFocus mirrors the cursor into the sheet's focus location.
func (m *Model) syncFocus() {
	rows := m.Sheet.RawRows()
	cols := m.Sheet.Columns()
	if m.cy >= len(rows) || m.cx >= len(cols) {
		m.Sheet.SetFocus(nil)
		return
	}
	m.Sheet.SetFocus(&CellLocation{RowID: rows[m.cy].ID, Column: cols[m.cx].Key})
}

// clamp keeps the cursor inside the grid after structural changes. Row
// identities shift when the grid renumbers, so any toggled selection is
// dropped as well.
func (m *Model) clamp() {
	if n := len(m.Sheet.RawRows()); m.cy >= n {
		m.cy = n - 1
	}
	if m.cy < 0 {
		m.cy = 0
	}
	m.selected = map[int]bool{}
	m.scroll()
}

// scroll keeps the cursor row inside the rendered window.
func (m *Model) scroll() {
	h := m.dataHeight()
	if m.cy < m.scrollY {
		m.scrollY = m.cy
	}
	if m.cy >= m.scrollY+h {
		m.scrollY = m.cy - h + 1
	}
	if m.scrollY < 0 {
		m.scrollY = 0
	}
}

// ensureSelection falls back to the cursor row when nothing is toggled,
// so a bare delete removes the focused row.
func (m *Model) ensureSelection() {
	if len(m.selected) > 0 {
		m.pushSelection()
		return
	}
	rows := m.Sheet.RawRows()
	if m.cy < len(rows) {
		m.Sheet.SetSelection([]int{rows[m.cy].ID})
	}
}

// toggleSelection flips the cursor row in and out of the multi-row
// selection.
func (m *Model) toggleSelection() {
	rows := m.Sheet.RawRows()
	if m.cy >= len(rows) {
		return
	}
	id := rows[m.cy].ID
	if m.selected[id] {
		delete(m.selected, id)
	} else {
		m.selected[id] = true
	}
	m.pushSelection()
}

func (m *Model) pushSelection() {
	ids := make([]int, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	m.Sheet.SetSelection(ids)
}

// maybeFetch triggers the loader when the sentinel (the space below the
// last visible row) is on screen.
func (m Model) maybeFetch() tea.Cmd {
	visible := m.sentinelVisible()
	m.Sheet.SetSentinelVisible(visible)
	if !visible || m.Loader == nil {
		return nil
	}
	page, ok := m.Loader.Start()
	if !ok {
		return nil
	}
	fetch := m.Loader.fetch
	limit := m.Loader.limit
	return func() tea.Msg {
		rows, err := fetch(page, limit)
		return rowsFetchedMsg{rows: rows, err: err}
	}
}

func (m Model) sentinelVisible() bool {
	return m.scrollY+m.dataHeight() >= len(m.Sheet.RawRows())
}

func (m Model) dataHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) currentText() string {
	rows := m.Sheet.RawRows()
	cols := m.Sheet.Columns()
	if m.cy >= len(rows) || m.cx >= len(cols) {
		return ""
	}
	cell, ok := m.Sheet.BuildCell(rows[m.cy].ID, cols[m.cx].Key)
	if !ok {
		return ""
	}
	return rawText(cell)
}

// commitEdit turns the edit buffer into a cell change pair and feeds it
// through the sheet's edit path.
func (m *Model) commitEdit() {
	rows := m.Sheet.RawRows()
	cols := m.Sheet.Columns()
	if m.cy >= len(rows) || m.cx >= len(cols) {
		return
	}
	id := rows[m.cy].ID
	key := cols[m.cx].Key
	prev, ok := m.Sheet.BuildCell(id, key)
	if !ok || !prev.Editable() {
		return
	}
	next := editedCell(prev, m.editBuf)
	m.Sheet.ApplyChanges([]CellChange{{RowID: id, Column: key, Previous: prev, New: next}})
}

// editedCell clones a presentational cell with the typed value applied.
func editedCell(prev Cell, buf string) Cell {
	switch c := prev.(type) {
	case NumberCell:
		c.Value = toNumber(buf)
		return c
	case CheckboxCell:
		c.Checked = toBool(buf)
		return c
	case DateCell:
		c.Date = toDate(buf)
		return c
	case TimeCell:
		c.Time = toDate(buf)
		return c
	case DropdownCell:
		// typed text narrows the candidate set; the best match wins
		c.SelectedValue = resolveCandidate(c.Options, buf)
		return c
	case CreatableCell:
		if buf != "" && !hasOption(c.Options, buf) {
			c.Options = append(c.Options, OptionItem{Value: buf, Label: buf})
		}
		c.SelectedValue = buf
		return c
	case EmailCell:
		c.Text = buf
		return c
	case TextCell:
		c.Text = buf
		return c
	}
	return prev
}

func hasOption(opts []OptionItem, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

// View renders the header and the visible window of data rows.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	cols := m.Sheet.Columns()
	if len(cols) == 0 {
		return m.dimStyle.Render(" (empty sheet)")
	}
	var b strings.Builder

	if m.err != nil {
		b.WriteString(m.dimStyle.Render(" error: "+m.err.Error()) + "\n")
	}

	widths := m.columnWidths(cols)
	headers := m.Sheet.HeaderMap()
	opts := m.Sheet.SheetOption()
	for i, col := range cols {
		text := headers[col.Key]
		if icon, ok := opts.HeaderIcon[col.Key]; ok && icon != "" {
			text = icon + " " + text
		}
		b.WriteString(opts.HeaderStyle.Render(pad(text, widths[i])))
		b.WriteString(" ")
	}
	b.WriteString("\n")

	rendered := m.Sheet.Rows()
	end := m.scrollY + m.dataHeight()
	if end > len(rendered) {
		end = len(rendered)
	}
	for ri := m.scrollY; ri < end; ri++ {
		row := rendered[ri]
		for ci, cell := range row.Cells {
			text := cellText(cell)
			if m.editing && ri == m.cy && ci == m.cx {
				text = m.editBuf + "_"
			}
			padded := pad(text, widths[ci])
			switch {
			case ri == m.cy && ci == m.cx:
				b.WriteString(m.cursorStyle.Render(padded))
			case m.selected[row.ID]:
				b.WriteString(m.selectStyle.Render(padded))
			default:
				b.WriteString(cell.Style().Render(padded))
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	if hints := m.editHints(); hints != "" {
		b.WriteString(m.dimStyle.Render(hints) + "\n")
	}

	b.WriteString(m.dimStyle.Render(fmt.Sprintf(" %d rows  ctrl+z undo  ctrl+y redo  + add  - delete  d duplicate", len(rendered))))
	return b.String()
}

// editHints lists the candidates matching the edit buffer while a
// dropdown or creatable editor is open.
func (m Model) editHints() string {
	if !m.editing {
		return ""
	}
	rows := m.Sheet.RawRows()
	cols := m.Sheet.Columns()
	if m.cy >= len(rows) || m.cx >= len(cols) {
		return ""
	}
	cell, ok := m.Sheet.BuildCell(rows[m.cy].ID, cols[m.cx].Key)
	if !ok {
		return ""
	}
	var opts []OptionItem
	switch c := cell.(type) {
	case DropdownCell:
		opts = c.Options
	case CreatableCell:
		opts = c.Options
	default:
		return ""
	}
	narrowed := FilterOptions(opts, m.editBuf)
	if len(narrowed) > 6 {
		narrowed = narrowed[:6]
	}
	labels := make([]string, len(narrowed))
	for i, o := range narrowed {
		labels[i] = o.Label
	}
	return " › " + strings.Join(labels, "  ")
}

// cellText resolves the display text of a presentational cell.
func cellText(c Cell) string {
	switch cell := c.(type) {
	case TextCell:
		return cell.Display()
	case NumberCell:
		return cell.Display()
	case CheckboxCell:
		if cell.Checked {
			return "[x]"
		}
		return "[ ]"
	case DateCell:
		return cell.Display()
	case TimeCell:
		return cell.Display()
	case DropdownCell:
		return cell.InputLabel
	case CreatableCell:
		return cell.SelectedValue
	case EmailCell:
		return cell.Text
	}
	return ""
}

// rawText resolves the editable text of a presentational cell, without
// formula evaluation or labels.
func rawText(c Cell) string {
	switch cell := c.(type) {
	case TextCell:
		return cell.Text
	case DropdownCell:
		return cell.SelectedValue
	default:
		return formatScalar(c.Scalar())
	}
}

func (m Model) columnWidths(cols []Column) []int {
	widths := make([]int, len(cols))
	for i, col := range cols {
		w := col.Width / 8
		if w < 4 {
			w = 4
		}
		if w > 24 {
			w = 24
		}
		widths[i] = w
	}
	return widths
}

// pad fits s to display width w, truncating with an ellipsis. Width is
// measured in terminal cells, not bytes, so multibyte and wide runes
// survive intact.
func pad(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}
