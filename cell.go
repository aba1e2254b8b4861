package sheet

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/goodsign/monday"
)

// CellKind discriminates the cell variants a column can declare.
type CellKind int

const (
	KindText CellKind = iota
	KindNumber
	KindDropdown
	KindCreatable
	KindDate
	KindTime
	KindCheckbox
	KindEmail
)

var kindNames = [...]string{
	KindText:      "text",
	KindNumber:    "number",
	KindDropdown:  "dropdown",
	KindCreatable: "s_creatable",
	KindDate:      "date",
	KindTime:      "time",
	KindCheckbox:  "checkbox",
	KindEmail:     "email",
}

func (k CellKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "text"
	}
	return kindNames[k]
}

// Cell is the renderer-ready representation of one row/column
// intersection. Scalar is the value written back into the row when the
// cell is committed by an edit.
type Cell interface {
	Kind() CellKind
	Scalar() any
	Editable() bool
	Style() lipgloss.Style
}

// OptionItem is one dropdown/creatable candidate.
type OptionItem struct {
	Value string
	Label string
}

// TextCell displays a string. Render, when set, post-processes the text
// for display; the sheet installs a formula renderer here so that cells
// starting with "=" are rewritten and evaluated.
type TextCell struct {
	Text        string
	NonEditable bool
	CellStyle   lipgloss.Style
	Render      func(string) string
}

func (c TextCell) Kind() CellKind        { return KindText }
func (c TextCell) Scalar() any           { return c.Text }
func (c TextCell) Editable() bool        { return !c.NonEditable }
func (c TextCell) Style() lipgloss.Style { return c.CellStyle }

// Display returns the rendered text.
func (c TextCell) Display() string {
	if c.Render != nil {
		return c.Render(c.Text)
	}
	return c.Text
}

// NumberCell displays a numeric value. A non-numeric source coerces to
// NaN, which is a representable state rather than an error.
type NumberCell struct {
	Value       float64
	NonEditable bool
	CellStyle   lipgloss.Style
}

func (c NumberCell) Kind() CellKind        { return KindNumber }
func (c NumberCell) Scalar() any           { return c.Value }
func (c NumberCell) Editable() bool        { return !c.NonEditable }
func (c NumberCell) Style() lipgloss.Style { return c.CellStyle }

func (c NumberCell) Display() string {
	if math.IsNaN(c.Value) {
		return "NaN"
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}

// CheckboxCell displays a boolean.
type CheckboxCell struct {
	Checked     bool
	NonEditable bool
	CellStyle   lipgloss.Style
}

func (c CheckboxCell) Kind() CellKind        { return KindCheckbox }
func (c CheckboxCell) Scalar() any           { return c.Checked }
func (c CheckboxCell) Editable() bool        { return !c.NonEditable }
func (c CheckboxCell) Style() lipgloss.Style { return c.CellStyle }

// DateCell displays a date using the configured layout. A non-empty
// Locale localizes month and day names.
type DateCell struct {
	Date        time.Time
	Layout      string
	Locale      string
	NonEditable bool
	CellStyle   lipgloss.Style
}

func (c DateCell) Kind() CellKind        { return KindDate }
func (c DateCell) Scalar() any           { return c.Date }
func (c DateCell) Editable() bool        { return !c.NonEditable }
func (c DateCell) Style() lipgloss.Style { return c.CellStyle }

func (c DateCell) Display() string {
	return formatLocalized(c.Date, layoutOrDefault(c.Layout, defaultDateLayout), c.Locale)
}

// TimeCell displays a time of day using the configured layout.
type TimeCell struct {
	Time        time.Time
	Layout      string
	Locale      string
	NonEditable bool
	CellStyle   lipgloss.Style
}

func (c TimeCell) Kind() CellKind        { return KindTime }
func (c TimeCell) Scalar() any           { return c.Time }
func (c TimeCell) Editable() bool        { return !c.NonEditable }
func (c TimeCell) Style() lipgloss.Style { return c.CellStyle }

func (c TimeCell) Display() string {
	return formatLocalized(c.Time, layoutOrDefault(c.Layout, defaultTimeLayout), c.Locale)
}

// DropdownCell displays one of an enumerated candidate set.
type DropdownCell struct {
	SelectedValue string
	InputLabel    string
	Text          string
	Options       []OptionItem
	IsOpen        bool
	NonEditable   bool
	CellStyle     lipgloss.Style
}

func (c DropdownCell) Kind() CellKind        { return KindDropdown }
func (c DropdownCell) Scalar() any           { return c.SelectedValue }
func (c DropdownCell) Editable() bool        { return !c.NonEditable }
func (c DropdownCell) Style() lipgloss.Style { return c.CellStyle }

// CreatableCell is a dropdown whose candidate set grows with typed-in
// values. A grown option list marks the cell changed even when the
// selected value is not.
type CreatableCell struct {
	SelectedValue string
	Options       []OptionItem
	IsOpen        bool
	NonEditable   bool
	CellStyle     lipgloss.Style
}

func (c CreatableCell) Kind() CellKind        { return KindCreatable }
func (c CreatableCell) Scalar() any           { return c.SelectedValue }
func (c CreatableCell) Editable() bool        { return !c.NonEditable }
func (c CreatableCell) Style() lipgloss.Style { return c.CellStyle }

// EmailCell displays a string and carries a format validator.
type EmailCell struct {
	Text        string
	Validator   func(string) bool
	NonEditable bool
	CellStyle   lipgloss.Style
}

func (c EmailCell) Kind() CellKind        { return KindEmail }
func (c EmailCell) Scalar() any           { return c.Text }
func (c EmailCell) Editable() bool        { return !c.NonEditable }
func (c EmailCell) Style() lipgloss.Style { return c.CellStyle }

// emailPattern is the fixed RFC-5322 subset used by email cells.
var emailPattern = regexp.MustCompile("^[a-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?")

// ValidEmail reports whether v matches the email cell format.
func ValidEmail(v string) bool { return emailPattern.MatchString(v) }

const (
	defaultDateLayout = "2006-01-02"
	defaultTimeLayout = "15:04"
)

func layoutOrDefault(layout, fallback string) string {
	if layout == "" {
		return fallback
	}
	return layout
}

// formatLocalized renders t with localized month/day names when a locale
// is configured; an unknown locale falls back to the plain layout.
func formatLocalized(t time.Time, layout, locale string) string {
	if locale == "" {
		return t.Format(layout)
	}
	return monday.Format(t, layout, monday.Locale(locale))
}

// ----------------------------------------------------------------------------
// coercions — all failures fall back to a safe default, never an error
// ----------------------------------------------------------------------------

// toNumber coerces a raw value to float64, NaN when non-numeric.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case time.Time:
		return float64(n.UnixMilli())
	case string:
		if n == "" {
			return 0
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// toBool coerces a raw value to bool. Strings and numbers are first tried
// as a JSON literal, then fall back to truthiness.
func toBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(b), &parsed); err == nil {
			return truthy(parsed)
		}
		return b != ""
	default:
		return true
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// dateLayouts are tried in order when coercing strings to dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// toDate coerces a raw value to a date. Construction failure falls back
// to the current time.
func toDate(v any) time.Time {
	switch d := v.(type) {
	case time.Time:
		return d
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return t
			}
		}
		return time.Now()
	case float64:
		return time.UnixMilli(int64(d))
	case int64:
		return time.UnixMilli(d)
	case int:
		return time.UnixMilli(int64(d))
	default:
		return time.Now()
	}
}

// formatScalar renders a raw value the way the data model stringifies it.
func formatScalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		if math.IsNaN(s) {
			return "NaN"
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return ""
	}
}

// createOption maps a raw candidate value to a value/label pair.
func createOption(value string, label func(string) string) OptionItem {
	opt := OptionItem{Value: value, Label: value}
	if label != nil {
		if l := label(value); l != "" {
			opt.Label = l
		}
	}
	return opt
}
