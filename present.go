package sheet

import (
	"github.com/charmbracelet/lipgloss"
)

// errorBackground is the fixed overlay applied to cells with failing
// validation before the configured validation style is merged on top.
var errorBackground = lipgloss.Color("#F01717")

// RenderedRow is one data row resolved into presentational cells, in
// on-screen column order.
type RenderedRow struct {
	ID    int
	Cells []Cell
}

// Rows resolves every data row into its presentational cells.
func (s *Sheet) Rows() []RenderedRow {
	out := make([]RenderedRow, len(s.rows))
	for i, row := range s.rows {
		state := map[string]*CellState{}
		if i < len(s.cellStates) && s.cellStates[i] != nil {
			state = s.cellStates[i]
		}
		cells := make([]Cell, len(s.columns))
		for j, col := range s.columns {
			cells[j] = s.buildCell(s.opts.columnKind(col.Key), row, state, col.Key)
		}
		out[i] = RenderedRow{ID: row.ID, Cells: cells}
	}
	return out
}

// BuildCell resolves a single cell for the given row identity and column.
func (s *Sheet) BuildCell(rowID int, col string) (Cell, bool) {
	idx := s.rowIndex(rowID)
	if idx < 0 {
		return nil, false
	}
	state := map[string]*CellState{}
	if idx < len(s.cellStates) && s.cellStates[idx] != nil {
		state = s.cellStates[idx]
	}
	return s.buildCell(s.opts.columnKind(col), s.rows[idx], state, col), true
}

// buildCell derives the fully-specified presentational cell for one
// row/column intersection. Read-only calculated columns always present
// the derived value, even when a literal sits underneath.
func (s *Sheet) buildCell(kind CellKind, row Row, state map[string]*CellState, col string) Cell {
	nonEditable := s.opts.ReadOnly[col]
	value := row.Cells[col]
	if nonEditable {
		if fn, ok := s.opts.CalculateMap[col]; ok {
			value = fn(row, s.rows, CellLocation{RowID: row.ID, Column: col})
			if value == nil {
				value = ""
			}
		}
	}
	style := s.cellStyle(row.ID, col)

	switch kind {
	case KindCreatable:
		return CreatableCell{
			SelectedValue: formatScalar(value),
			Options:       s.optionsForColumn(col, row),
			IsOpen:        stateOpen(state, col),
			NonEditable:   nonEditable,
			CellStyle:     style,
		}
	case KindDropdown:
		var label func(string) string
		if s.opts.LabelsMap != nil {
			label = s.opts.LabelsMap[col]
		}
		return DropdownCell{
			SelectedValue: formatScalar(value),
			InputLabel:    createOption(formatScalar(row.Cells[col]), label).Label,
			Text:          formatScalar(row.Cells[col]),
			Options:       s.optionsForColumn(col, row),
			IsOpen:        stateOpen(state, col),
			NonEditable:   nonEditable,
			CellStyle:     style,
		}
	case KindCheckbox:
		return CheckboxCell{
			Checked:     toBool(value),
			NonEditable: nonEditable,
			CellStyle:   style,
		}
	case KindDate:
		return DateCell{
			Date:        toDate(value),
			Layout:      s.opts.DateFormat,
			Locale:      s.opts.Locale,
			NonEditable: nonEditable,
			CellStyle:   style,
		}
	case KindTime:
		return TimeCell{
			Time:        toDate(value),
			Layout:      s.opts.TimeFormat,
			Locale:      s.opts.Locale,
			NonEditable: nonEditable,
			CellStyle:   style,
		}
	case KindEmail:
		return EmailCell{
			Text:        formatScalar(value),
			Validator:   ValidEmail,
			NonEditable: nonEditable,
			CellStyle:   style,
		}
	case KindNumber:
		return NumberCell{
			Value:       toNumber(value),
			NonEditable: nonEditable,
			CellStyle:   style,
		}
	default:
		return TextCell{
			Text:        formatScalar(value),
			NonEditable: nonEditable,
			CellStyle:   style,
			Render:      s.formulaRenderer(row),
		}
	}
}

// cellStyle resolves the configured style for a cell and, when the cell
// has failing validation, overlays the fixed error background merged with
// the configured validation style; the configured fields win.
func (s *Sheet) cellStyle(rowID int, col string) lipgloss.Style {
	style, _ := s.styles.Lookup(rowID, col)
	if !s.report.Failed(rowID, col) {
		return style
	}
	withError := style.Background(errorBackground)
	return s.opts.ValidationCellStyle.Inherit(withError)
}

// optionsForColumn returns the column's candidate set, narrowed by the
// per-column filter and mapped through the label function.
func (s *Sheet) optionsForColumn(col string, row Row) []OptionItem {
	set, ok := s.valuesMap[col]
	if !ok {
		return nil
	}
	var label func(string) string
	if s.opts.LabelsMap != nil {
		label = s.opts.LabelsMap[col]
	}
	var filter func(string, Row) bool
	if s.opts.ValuesFilter != nil {
		filter = s.opts.ValuesFilter[col]
	}
	var out []OptionItem
	for _, v := range set.values() {
		if filter != nil && !filter(v, row) {
			continue
		}
		out = append(out, createOption(v, label))
	}
	return out
}

func stateOpen(state map[string]*CellState, col string) bool {
	if st, ok := state[col]; ok && st != nil {
		return st.IsOpen
	}
	return false
}

// formulaRenderer installs the formula pipeline on a text cell: leading
// "=" triggers reference rewriting and evaluation, anything else passes
// through untouched.
func (s *Sheet) formulaRenderer(row Row) func(string) string {
	return func(text string) string {
		return evalFormula(text, row, s.rows, s.evaluator)
	}
}
