package sheet

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Range expression grammar, as accepted by ParseSheetStyles:
//
//	"1-3:name-age"  rows 1..3, columns name and age
//	"1:name-age"    row 1, columns name and age
//	"1-3:name"      rows 1..3, column name
//	"1:"            row 1, every column
//	":name"         column name, every row
//
// The first recognized pair fixes the state shape; pairs of another shape
// are dropped. Column "ranges" style exactly the listed tokens, not a span.
var (
	rangePattern = regexp.MustCompile(`\w+-\w+`)
	colonPattern = regexp.MustCompile(`(\w+:\w+)+|(:\w+)|(\w+:)`)
)

const rangeDelimiter = "-"

type styleShape int

const (
	shapeColumn styleShape = iota
	shapeRow
	shapeCell
)

// StyleState holds the parsed initial sheet styles in one of three
// shapes: row-indexed, column-indexed, or a row-by-column matrix.
type StyleState struct {
	shape styleShape
	rows  map[int]lipgloss.Style
	cols  map[string]lipgloss.Style
	cells map[int]map[string]lipgloss.Style
}

// ParseSheetStyles expands an ordered list of range/style pairs into a
// style state. Malformed pairs (no colon) are dropped silently. Later
// pairs overwrite earlier ones where they overlap.
func ParseSheetStyles(pairs []StylePair) StyleState {
	st := StyleState{
		rows:  map[int]lipgloss.Style{},
		cols:  map[string]lipgloss.Style{},
		cells: map[int]map[string]lipgloss.Style{},
	}
	fixed := false
	for _, p := range pairs {
		if !colonPattern.MatchString(p.Range) {
			continue
		}
		rowRange, colRange, ok := strings.Cut(p.Range, ":")
		if !ok {
			continue
		}
		var shape styleShape
		switch {
		case rowRange == "":
			shape = shapeColumn
		case colRange == "":
			shape = shapeRow
		default:
			shape = shapeCell
		}
		if !fixed {
			st.shape = shape
			fixed = true
		}
		if shape != st.shape {
			continue
		}
		switch shape {
		case shapeRow:
			for id, s := range expandRowRange(rowRange, p.Style) {
				st.rows[id] = s
			}
		case shapeColumn:
			for col, s := range expandColumnRange(colRange, p.Style) {
				st.cols[col] = s
			}
		case shapeCell:
			for id := range expandRowRange(rowRange, p.Style) {
				st.cells[id] = expandColumnRange(colRange, p.Style)
			}
		}
	}
	return st
}

// expandRowRange expands a numeric row spec. Reversed bounds ("3-1") are
// tolerated and expanded ascending.
func expandRowRange(spec string, style lipgloss.Style) map[int]lipgloss.Style {
	out := map[int]lipgloss.Style{}
	if rangePattern.MatchString(spec) {
		bounds := strings.SplitN(spec, rangeDelimiter, 2)
		start, err1 := strconv.Atoi(bounds[0])
		end, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return out
		}
		if start > end {
			start, end = end, start
		}
		for i := start; i <= end; i++ {
			out[i] = style
		}
		return out
	}
	id, err := strconv.Atoi(spec)
	if err != nil {
		return out
	}
	out[id] = style
	return out
}

// expandColumnRange expands a column spec. A dashed spec styles each
// listed token rather than a span between them.
func expandColumnRange(spec string, style lipgloss.Style) map[string]lipgloss.Style {
	out := map[string]lipgloss.Style{}
	if rangePattern.MatchString(spec) {
		for _, col := range strings.Split(spec, rangeDelimiter) {
			out[col] = style
		}
		return out
	}
	out[spec] = style
	return out
}

// Lookup returns the configured style for a cell, if any.
func (st StyleState) Lookup(rowID int, col string) (lipgloss.Style, bool) {
	switch st.shape {
	case shapeRow:
		s, ok := st.rows[rowID]
		return s, ok
	case shapeColumn:
		s, ok := st.cols[col]
		return s, ok
	case shapeCell:
		if row, ok := st.cells[rowID]; ok {
			s, ok := row[col]
			return s, ok
		}
	}
	return lipgloss.Style{}, false
}
