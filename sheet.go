package sheet

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Row is one logical data row: a mapping from column key to scalar value
// plus a dense identity index used as the stable row key. UUID is assigned
// lazily, the first time a structural operation references the row.
type Row struct {
	ID    int
	UUID  string
	Cells map[string]any
}

func (r Row) clone() Row {
	cells := make(map[string]any, len(r.Cells))
	for k, v := range r.Cells {
		cells[k] = v
	}
	return Row{ID: r.ID, UUID: r.UUID, Cells: cells}
}

// Column is one display column bound to a data key.
type Column struct {
	Key         string
	Width       int
	Resizable   bool
	Reorderable bool
}

// CellState is the ephemeral UI state of one cell, distinct from its
// logical value. It is reset to the blank default whenever its row is
// created and is never carried across undo.
type CellState struct {
	IsOpen bool
	Input  string
}

// Sheet is the editable grid state machine. It owns the row collection,
// column list, per-cell interaction state, focus location, style state,
// validation report and the linear undo/redo change log. All operations
// are synchronous in-memory state transitions.
type Sheet struct {
	opts      Options
	evaluator Evaluator

	rows       []Row
	columns    []Column
	headerMap  map[string]string
	cellStates []map[string]*CellState
	valuesMap  map[string]*orderedSet
	focus      *CellLocation
	selection  []int
	styles     StyleState
	report     Report
	log        *changeLog

	sentinelVisible bool
}

// New builds a sheet over the given source data. The evaluator computes
// formula cells and may be nil, in which case formula cells display their
// rewritten text.
func New(data []map[string]any, opts Options, ev Evaluator) *Sheet {
	s := &Sheet{opts: opts, evaluator: ev, log: newChangeLog()}
	s.rows = s.normalizeRows(data, 0)
	s.columns = s.buildColumns()
	s.headerMap = s.buildHeaderMap()
	s.cellStates = blankStates(s.rows)
	s.valuesMap = s.buildValuesMap()
	s.styles = ParseSheetStyles(opts.InitialSheetStyle)
	s.report = Validate(s.rows, opts.ValidateMap)
	return s
}

// Reset re-initializes the sheet from a new data set and options,
// clearing the change log. It mirrors construction and is invoked when
// the externally supplied source data or configuration changes identity.
func (s *Sheet) Reset(data []map[string]any, opts Options) {
	s.opts = opts
	s.rows = s.normalizeRows(data, 0)
	s.columns = s.buildColumns()
	s.headerMap = s.buildHeaderMap()
	s.cellStates = blankStates(s.rows)
	s.valuesMap = s.buildValuesMap()
	s.styles = ParseSheetStyles(opts.InitialSheetStyle)
	s.report = Validate(s.rows, opts.ValidateMap)
	s.log.clear()
	s.focus = nil
	s.selection = nil
}

// header returns the displayed data keys in column order.
func (s *Sheet) header() []string {
	if len(s.opts.Includes) > 0 {
		return s.opts.Includes
	}
	if len(s.rows) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.rows[0].Cells))
	for k := range s.rows[0].Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Sheet) buildColumns() []Column {
	var cols []Column
	for i, key := range s.header() {
		cols = append(cols, Column{
			Key:         key,
			Width:       s.opts.columnWidth(i),
			Resizable:   true,
			Reorderable: true,
		})
	}
	return cols
}

func (s *Sheet) buildHeaderMap() map[string]string {
	m := map[string]string{}
	for _, key := range s.header() {
		if label, ok := s.opts.HeadersLabel[key]; ok {
			m[key] = label
		} else {
			m[key] = key
		}
	}
	return m
}

// normalizeRows converts source maps into rows: identity assigned from
// position (offset by base), every included column present (blank when
// absent), calculated columns derived for every key present on the row.
func (s *Sheet) normalizeRows(src []map[string]any, base int) []Row {
	rows := make([]Row, 0, len(src))
	for i, m := range src {
		row := Row{ID: base + i, Cells: map[string]any{}}
		for _, key := range s.opts.Includes {
			row.Cells[key] = ""
		}
		for k, v := range m {
			row.Cells[k] = v
		}
		rows = append(rows, row)
	}
	for i := range rows {
		for key := range rows[i].Cells {
			if fn, ok := s.opts.CalculateMap[key]; ok {
				rows[i].Cells[key] = fn(rows[i], rows, CellLocation{RowID: rows[i].ID, Column: key})
			}
		}
	}
	return rows
}

func blankStates(rows []Row) []map[string]*CellState {
	states := make([]map[string]*CellState, len(rows))
	for i, row := range rows {
		states[i] = blankState(row)
	}
	return states
}

func blankState(row Row) map[string]*CellState {
	st := make(map[string]*CellState, len(row.Cells))
	for k := range row.Cells {
		st[k] = &CellState{}
	}
	return st
}

// buildValuesMap collects the candidate sets for dropdown/creatable
// columns. When any column is seeded from Options.ValuesMap the data is
// not scanned at all; otherwise candidates come from the data.
func (s *Sheet) buildValuesMap() map[string]*orderedSet {
	vm := map[string]*orderedSet{}
	fromOptions := false
	for _, key := range s.header() {
		kind := s.opts.columnKind(key)
		if kind != KindDropdown && kind != KindCreatable {
			continue
		}
		set := newOrderedSet()
		if vals, ok := s.opts.ValuesMap[key]; ok {
			for _, v := range vals {
				set.add(v)
			}
			fromOptions = true
		}
		vm[key] = set
	}
	if fromOptions {
		return vm
	}
	for _, row := range s.rows {
		for key, set := range vm {
			if v, ok := row.Cells[key]; ok {
				set.add(formatScalar(v))
			}
		}
	}
	return vm
}

// rowIndex resolves a row identity to its position, -1 when absent.
func (s *Sheet) rowIndex(id int) int {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return i
		}
	}
	return -1
}

// renumber restores the dense 0..N-1 identity invariant.
func (s *Sheet) renumber() {
	for i := range s.rows {
		s.rows[i].ID = i
	}
}

func (s *Sheet) insertRow(pos int, row Row) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.rows) {
		pos = len(s.rows)
	}
	s.rows = append(s.rows[:pos], append([]Row{row}, s.rows[pos:]...)...)
	st := blankState(row)
	s.cellStates = append(s.cellStates[:pos], append([]map[string]*CellState{st}, s.cellStates[pos:]...)...)
}

func (s *Sheet) removeAt(pos int) {
	if pos < 0 || pos >= len(s.rows) {
		return
	}
	s.rows = append(s.rows[:pos], s.rows[pos+1:]...)
	s.cellStates = append(s.cellStates[:pos], s.cellStates[pos+1:]...)
}

// blankRow builds a row with every column blank.
func (s *Sheet) blankRow() Row {
	row := Row{Cells: map[string]any{}}
	for _, col := range s.columns {
		row.Cells[col.Key] = ""
	}
	return row
}

// applyCalc recomputes every calculated column of the row at idx.
func (s *Sheet) applyCalc(idx int) {
	for key := range s.opts.CalculateMap {
		if _, ok := s.rows[idx].Cells[key]; ok {
			fn := s.opts.CalculateMap[key]
			s.rows[idx].Cells[key] = fn(s.rows[idx], s.rows, CellLocation{RowID: s.rows[idx].ID, Column: key})
		}
	}
}

// revalidateRow refreshes the report for a single row.
func (s *Sheet) revalidateRow(idx int) {
	if idx < 0 || idx >= len(s.rows) {
		return
	}
	s.report[s.rows[idx].ID] = validateRow(s.rows[idx], s.rows, s.opts.ValidateMap)
}

// ----------------------------------------------------------------------------
// public operations
// ----------------------------------------------------------------------------

// ApplyChanges applies a batch of simultaneous cell edits delivered by
// the rendering surface. Changes that are no-ops for their cell kind are
// filtered out; if any survive, one update entry is appended to the
// history. Interaction state (open dropdowns, grown creatable option
// sets) is absorbed for every change, no-op or not.
func (s *Sheet) ApplyChanges(changes []CellChange) {
	for _, ch := range changes {
		s.absorbCellState(ch)
	}
	surviving := make([]CellChange, 0, len(changes))
	for _, ch := range changes {
		if isRealChange(ch) {
			surviving = append(surviving, ch)
		}
	}
	if len(surviving) == 0 {
		return
	}
	for _, ch := range surviving {
		idx := s.rowIndex(ch.RowID)
		if idx < 0 {
			continue
		}
		s.rows[idx].Cells[ch.Column] = ch.New.Scalar()
		s.applyCalc(idx)
		s.revalidateRow(idx)
	}
	s.log.push(LogEntry{Kind: ChangeUpdate, Cells: surviving})
}

// isRealChange applies the per-kind no-op filter: dropdowns compare the
// selected value, creatables additionally compare option-list length so a
// newly created option registers even when the selection is unchanged.
// Every other kind always counts as a change.
func isRealChange(ch CellChange) bool {
	if ch.New == nil || ch.Previous == nil {
		return true
	}
	switch ch.New.Kind() {
	case KindCreatable:
		prev, pok := ch.Previous.(CreatableCell)
		next, nok := ch.New.(CreatableCell)
		if pok && nok {
			return next.SelectedValue != prev.SelectedValue || len(next.Options) != len(prev.Options)
		}
		return ch.New.Scalar() != ch.Previous.Scalar()
	case KindDropdown:
		return ch.New.Scalar() != ch.Previous.Scalar()
	default:
		return true
	}
}

// absorbCellState copies ephemeral state out of an incoming cell and
// grows creatable candidate sets with any new options.
func (s *Sheet) absorbCellState(ch CellChange) {
	idx := s.rowIndex(ch.RowID)
	if idx < 0 || ch.New == nil {
		return
	}
	st := s.cellStates[idx][ch.Column]
	if st == nil {
		st = &CellState{}
		s.cellStates[idx][ch.Column] = st
	}
	switch cell := ch.New.(type) {
	case DropdownCell:
		st.IsOpen = cell.IsOpen
	case CreatableCell:
		st.IsOpen = cell.IsOpen
		set := s.valuesMap[ch.Column]
		if set == nil {
			set = newOrderedSet()
			s.valuesMap[ch.Column] = set
		}
		for _, opt := range cell.Options {
			set.add(opt.Value)
		}
	}
}

// AddRow inserts a blank row after the focused row, or appends one when
// nothing is focused. The focus is cleared afterwards.
func (s *Sheet) AddRow() {
	row := s.blankRow()
	row.UUID = uuid.NewString()
	pos := len(s.rows)
	if s.focus != nil {
		if i := s.rowIndex(s.focus.RowID); i >= 0 {
			pos = i + 1
		}
	}
	s.insertRow(pos, row)
	s.renumber()
	s.report = Validate(s.rows, s.opts.ValidateMap)
	s.log.push(LogEntry{Kind: ChangeAdd, RowID: pos, UUID: row.UUID, Row: s.rows[pos].clone()})
	s.focus = nil
}

// RemoveRow deletes every currently selected row. Deletion proceeds from
// the highest identity downwards so earlier removals cannot invalidate
// later positions, and each removed row gets its own history entry.
// Without an active focus this is a no-op.
func (s *Sheet) RemoveRow() {
	if s.focus == nil {
		return
	}
	ids := append([]int(nil), s.selection...)
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	for _, id := range ids {
		idx := s.rowIndex(id)
		if idx < 0 {
			continue
		}
		snap := s.rows[idx].clone()
		if snap.UUID == "" {
			snap.UUID = uuid.NewString()
		}
		s.removeAt(idx)
		s.log.push(LogEntry{Kind: ChangeRemove, RowID: idx, UUID: snap.UUID, Row: snap})
	}
	s.renumber()
	s.report = Validate(s.rows, s.opts.ValidateMap)
	s.focus = nil
	s.selection = nil
}

// DuplicateRow clones the focused row immediately below itself with a
// fresh UUID. For undo/redo it behaves exactly like AddRow.
func (s *Sheet) DuplicateRow() {
	if s.focus == nil {
		return
	}
	idx := s.rowIndex(s.focus.RowID)
	if idx < 0 {
		return
	}
	row := s.rows[idx].clone()
	row.UUID = uuid.NewString()
	s.insertRow(idx+1, row)
	s.renumber()
	s.report = Validate(s.rows, s.opts.ValidateMap)
	s.log.push(LogEntry{Kind: ChangeDuplicate, RowID: idx + 1, UUID: row.UUID, Row: s.rows[idx+1].clone()})
	s.focus = nil
}

// AppendBlankRow appends a blank row with calculated columns pre-filled
// when the focus sits on the last row. This backs the ArrowDown-at-last-row
// keyboard surface. Reports whether a row was appended.
func (s *Sheet) AppendBlankRow() bool {
	if s.focus == nil || len(s.rows) == 0 {
		return false
	}
	if s.focus.RowID != s.rows[len(s.rows)-1].ID {
		return false
	}
	row := s.blankRow()
	row.ID = len(s.rows)
	row.UUID = uuid.NewString()
	for key, fn := range s.opts.CalculateMap {
		if _, ok := row.Cells[key]; ok {
			row.Cells[key] = formatScalar(fn(row, s.rows, CellLocation{RowID: row.ID, Column: key}))
		}
	}
	s.insertRow(len(s.rows), row)
	s.revalidateRow(len(s.rows) - 1)
	s.log.push(LogEntry{Kind: ChangeAdd, RowID: row.ID, UUID: row.UUID, Row: row.clone()})
	return true
}

// SortData stably sorts the rows by the given column keys; a "-" prefix
// sorts that key descending. Missing values compare as 0. Sorting is a
// view operation: identities travel with their rows and nothing is
// recorded in the undo history.
func (s *Sheet) SortData(sortKeys []string) {
	type sortKey struct {
		key  string
		desc bool
	}
	keys := make([]sortKey, 0, len(sortKeys))
	for _, k := range sortKeys {
		if rest, ok := strings.CutPrefix(k, "-"); ok {
			keys = append(keys, sortKey{key: rest, desc: true})
		} else {
			keys = append(keys, sortKey{key: k})
		}
	}
	sort.SliceStable(s.rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareValues(s.rows[i].Cells[k.key], s.rows[j].Cells[k.key])
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	s.cellStates = blankStates(s.rows)
}

// compareValues orders two raw cell values; absent and blank values
// compare as 0.
func compareValues(a, b any) int {
	if a == nil || a == "" {
		a = float64(0)
	}
	if b == nil || b == "" {
		b = float64(0)
	}
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(formatScalar(a), formatScalar(b))
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Undo moves the history cursor one step back, reverting the entry it
// pointed at. A cursor at the lower boundary makes this a silent no-op.
func (s *Sheet) Undo() {
	e, ok := s.log.undo()
	if !ok {
		return
	}
	switch e.Kind {
	case ChangeUpdate:
		s.writeSnapshots(e.Cells, true)
	case ChangeAdd, ChangeDuplicate:
		s.removeAt(e.RowID)
		s.renumber()
		s.report = Validate(s.rows, s.opts.ValidateMap)
	case ChangeRemove:
		s.insertRow(e.RowID, e.Row.clone())
		s.renumber()
		s.report = Validate(s.rows, s.opts.ValidateMap)
	}
}

// Redo moves the history cursor one step forward, replaying the entry it
// lands on. A cursor at the upper boundary makes this a silent no-op.
func (s *Sheet) Redo() {
	e, ok := s.log.redo()
	if !ok {
		return
	}
	switch e.Kind {
	case ChangeUpdate:
		s.writeSnapshots(e.Cells, false)
	case ChangeAdd, ChangeDuplicate:
		s.insertRow(e.RowID, e.Row.clone())
		s.renumber()
		s.report = Validate(s.rows, s.opts.ValidateMap)
	case ChangeRemove:
		s.removeAt(e.RowID)
		s.renumber()
		s.report = Validate(s.rows, s.opts.ValidateMap)
	}
}

// writeSnapshots replays the stored cell snapshots of an update entry,
// previous values for undo and new values for redo.
func (s *Sheet) writeSnapshots(cells []CellChange, usePrevious bool) {
	for _, ch := range cells {
		idx := s.rowIndex(ch.RowID)
		if idx < 0 {
			continue
		}
		cell := ch.New
		if usePrevious {
			cell = ch.Previous
		}
		if cell == nil {
			continue
		}
		s.rows[idx].Cells[ch.Column] = cell.Scalar()
		s.applyCalc(idx)
		s.revalidateRow(idx)
	}
}

// AddNewData appends externally fetched rows, renumbering them to extend
// the current identity sequence. A sheet still holding a single
// placeholder row is replaced outright. Nothing is written to the undo
// history. If the load sentinel is visible the scroll listener fires
// again so the loader may fetch the next page.
func (s *Sheet) AddNewData(newRows []map[string]any) {
	if len(s.rows) == 1 {
		s.rows = s.normalizeRows(newRows, 0)
	} else {
		s.rows = append(s.rows, s.normalizeRows(newRows, len(s.rows))...)
	}
	s.cellStates = blankStates(s.rows)
	s.report = Validate(s.rows, s.opts.ValidateMap)
	if s.sentinelVisible && s.opts.ScrollListener != nil {
		s.opts.ScrollListener()
	}
}

// SetSentinelVisible records visibility transitions of the load sentinel.
// Becoming visible fires the scroll listener once per transition.
func (s *Sheet) SetSentinelVisible(visible bool) {
	was := s.sentinelVisible
	s.sentinelVisible = visible
	if visible && !was && s.opts.ScrollListener != nil {
		s.opts.ScrollListener()
	}
}

// SetFocus records the focused cell location; nil clears it.
func (s *Sheet) SetFocus(loc *CellLocation) { s.focus = loc }

// Focus returns the focused cell location, nil when nothing is focused.
func (s *Sheet) Focus() *CellLocation { return s.focus }

// SetSelection records the identities of the multi-selected rows, as
// reported by the rendering surface's range selection.
func (s *Sheet) SetSelection(ids []int) { s.selection = ids }

// RenameHeader overrides the display text of a column header. Header
// renames are not recorded in the undo history.
func (s *Sheet) RenameHeader(col, text string) {
	if _, ok := s.headerMap[col]; ok {
		s.headerMap[col] = text
	}
}

// ResizeColumn updates the width of a resizable column.
func (s *Sheet) ResizeColumn(key string, width int) {
	for i := range s.columns {
		if s.columns[i].Key == key && s.columns[i].Resizable {
			s.columns[i].Width = width
			return
		}
	}
}

// ReorderColumns moves the named columns to the position of the target
// column in on-screen order.
func (s *Sheet) ReorderColumns(target string, moved []string) {
	to := -1
	for i, c := range s.columns {
		if c.Key == target {
			to = i
			break
		}
	}
	if to < 0 {
		return
	}
	var idxs []int
	for _, key := range moved {
		for i, c := range s.columns {
			if c.Key == key {
				idxs = append(idxs, i)
				break
			}
		}
	}
	s.columns = reorderSlice(s.columns, idxs, to)
}

// ReorderRows moves the identified rows to the position of the target
// row. Identities travel with their rows.
func (s *Sheet) ReorderRows(targetID int, ids []int) {
	to := s.rowIndex(targetID)
	if to < 0 {
		return
	}
	var idxs []int
	for _, id := range ids {
		if i := s.rowIndex(id); i >= 0 {
			idxs = append(idxs, i)
		}
	}
	s.rows = reorderSlice(s.rows, idxs, to)
	s.cellStates = reorderSlice(s.cellStates, idxs, to)
}

// reorderSlice moves the elements at idxs so the group starts at the
// position of element to, preserving the relative order of everything.
func reorderSlice[T any](arr []T, idxs []int, to int) []T {
	inMoved := map[int]bool{}
	minIdx := len(arr)
	for _, i := range idxs {
		inMoved[i] = true
		if i < minIdx {
			minIdx = i
		}
	}
	if minIdx < to {
		to++
	} else {
		before := 0
		for _, i := range idxs {
			if i < to {
				before++
			}
		}
		to -= before
	}
	var moved, left, right []T
	for i, v := range arr {
		switch {
		case inMoved[i]:
			moved = append(moved, v)
		case i < to:
			left = append(left, v)
		default:
			right = append(right, v)
		}
	}
	out := make([]T, 0, len(arr))
	out = append(out, left...)
	out = append(out, moved...)
	return append(out, right...)
}

// RunRowAction invokes a named row action for the identified row.
func (s *Sheet) RunRowAction(name string, rowID int) {
	action, ok := s.opts.RowActions[name]
	if !ok || action.Do == nil {
		return
	}
	idx := s.rowIndex(rowID)
	if idx < 0 {
		return
	}
	action.Do(s.rows[idx].clone())
}

// ----------------------------------------------------------------------------
// accessors
// ----------------------------------------------------------------------------

// Data dumps the rows as stringified maps. Calculated columns still blank
// in the underlying data are filled from their CalcFunc.
func (s *Sheet) Data() []map[string]string {
	out := make([]map[string]string, len(s.rows))
	for i, row := range s.rows {
		m := make(map[string]string, len(row.Cells))
		for key, val := range row.Cells {
			if fn, ok := s.opts.CalculateMap[key]; ok && val == "" {
				m[key] = formatScalar(fn(row, s.rows, CellLocation{RowID: row.ID, Column: key}))
				continue
			}
			m[key] = formatScalar(val)
		}
		out[i] = m
	}
	return out
}

// RawRows returns the live row collection.
func (s *Sheet) RawRows() []Row { return s.rows }

// Columns returns the display columns in on-screen order.
func (s *Sheet) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// HeaderMap returns the data-key to header-text mapping.
func (s *Sheet) HeaderMap() map[string]string {
	out := make(map[string]string, len(s.headerMap))
	for k, v := range s.headerMap {
		out[k] = v
	}
	return out
}

// ValuesMap returns the current candidate values per dropdown/creatable
// column, in insertion order.
func (s *Sheet) ValuesMap() map[string][]string {
	out := map[string][]string{}
	for key, set := range s.valuesMap {
		out[key] = set.values()
	}
	return out
}

// ColumnSizes returns the current column widths in on-screen order.
func (s *Sheet) ColumnSizes() []int {
	out := make([]int, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Width
	}
	return out
}

// CellStates returns the per-row interaction state collection.
func (s *Sheet) CellStates() []map[string]*CellState { return s.cellStates }

// SheetOption reconstructs the effective options: configured values plus
// the current column widths and materialized candidate sets.
func (s *Sheet) SheetOption() Options {
	opts := s.opts
	opts.ColumnSize = s.ColumnSizes()
	opts.ValuesMap = s.ValuesMap()
	return opts
}

// ValidationReport recomputes and returns the full validation report.
func (s *Sheet) ValidationReport() Report {
	s.report = Validate(s.rows, s.opts.ValidateMap)
	return s.report
}

// StyleState returns the parsed initial style state.
func (s *Sheet) StyleState() StyleState { return s.styles }

// CellChanges returns the committed, not-yet-undone history entries.
func (s *Sheet) CellChanges() []LogEntry { return s.log.committed() }

// ClearCellChanges drops the whole change log.
func (s *Sheet) ClearCellChanges() { s.log.clear() }

// orderedSet is a string set that preserves insertion order.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
