package sheet

import "github.com/charmbracelet/lipgloss"

// CellLocation identifies one cell by row identity and column key.
type CellLocation struct {
	RowID  int
	Column string
}

// CalcFunc derives a cell value from its row and the full data set.
// Columns bound to a CalcFunc are recomputed after every edit, and
// read-only calculated columns always display the derived value.
type CalcFunc func(row Row, rows []Row, loc CellLocation) any

// Rule is a single validation rule for a column. Fn returning true means
// the cell FAILED validation and Message is attached to it. The inverted
// convention is deliberate: rules describe failure conditions.
type Rule struct {
	Fn      func(loc CellLocation, rows []Row) bool
	Message string
}

// RowAction is a named action rendered as a per-row button column.
type RowAction struct {
	Text string
	Do   func(row Row)
}

// StylePair binds a range expression to a style. Range syntax is
// "<rowSpec>:<colSpec>" where either side may be empty, a single token,
// or "a-b". See ParseSheetStyles.
type StylePair struct {
	Range string
	Style lipgloss.Style
}

// Options is the full configuration surface of a sheet. All fields are
// optional; the zero value yields a plain text grid.
type Options struct {
	// Includes is the ordered allow-list of data keys to display. Keys
	// absent from Includes never become columns.
	Includes []string

	// ColumnType assigns a cell kind per data key. Unlisted keys are text.
	ColumnType map[string]CellKind

	// ValuesMap supplies the candidate values for dropdown and creatable
	// columns. When empty for every such column, candidates are collected
	// from the data instead.
	ValuesMap map[string][]string

	// ValuesFilter narrows a column's candidates per row.
	ValuesFilter map[string]func(candidate string, row Row) bool

	// LabelsMap maps a raw candidate value to its display label.
	LabelsMap map[string]func(value string) string

	// ReadOnly marks columns as non-editable.
	ReadOnly map[string]bool

	// CalculateMap binds derived-value functions to columns.
	CalculateMap map[string]CalcFunc

	// ValidateMap binds validation rules to columns.
	ValidateMap map[string][]Rule

	// ColumnSize is an ordered pixel-ish width list aligned to Includes.
	ColumnSize []int

	// HeadersLabel overrides the header text per data key.
	HeadersLabel map[string]string

	// HeaderIcon and HeaderTooltip are presentation hints passed through
	// to the renderer untouched.
	HeaderIcon         map[string]string
	HeaderTooltip      map[string]string
	HeaderTooltipStyle map[string]lipgloss.Style

	// InitialSheetStyle seeds the style state; the first recognized range
	// pattern fixes its shape (row, column or cell indexed).
	InitialSheetStyle []StylePair

	// HeaderStyle is applied to every header cell.
	HeaderStyle lipgloss.Style

	// ValidationCellStyle is merged over the error background on cells
	// with failing validation; its fields win on conflict.
	ValidationCellStyle lipgloss.Style

	// Locale (e.g. "fr_FR") localizes month and day names in date/time
	// cells; DateFormat/TimeFormat are Go reference layouts. Empty
	// layouts fall back to defaults, an unknown locale to plain
	// formatting.
	Locale     string
	DateFormat string
	TimeFormat string

	// RowActions declares named per-row action buttons.
	RowActions map[string]RowAction

	// ScrollListener is invoked when the load sentinel becomes visible.
	ScrollListener func()
}

// columnKind resolves the declared kind for a data key, defaulting to text.
func (o *Options) columnKind(key string) CellKind {
	if o == nil || o.ColumnType == nil {
		return KindText
	}
	if k, ok := o.ColumnType[key]; ok {
		return k
	}
	return KindText
}

// columnWidth returns the configured width for the idx'th column, or the
// default when the list is short.
func (o *Options) columnWidth(idx int) int {
	if o == nil || idx >= len(o.ColumnSize) {
		return defaultColumnWidth
	}
	return o.ColumnSize[idx]
}

const defaultColumnWidth = 100
