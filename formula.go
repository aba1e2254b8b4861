package sheet

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Formula cells start with "=" and may reference data through
// {{row['key']}} and {{sheetData[i]['key']}} tokens. References are
// rewritten to literal values before the text reaches the evaluator.
const (
	// RefError replaces the whole cell text when a reference cannot be
	// resolved; the evaluator is never called for such a cell.
	RefError = "#REF;"
	// EvalError replaces the cell text when the evaluator itself fails.
	EvalError = "#FORMULA"
)

// Evaluator computes the final value of a rewritten formula string (still
// carrying its leading "="). Implementations are stateless and injected at
// sheet construction; there is no package-level instance.
type Evaluator interface {
	Calculate(expr string) (string, error)
}

var (
	variableToken  = regexp.MustCompile(`\{\{\w+(\[(('\w+')|("\w+")|([0-9]+))\])+\}\}`)
	accessorPrefix = regexp.MustCompile(`\w+\[`)
	bracketSegment = regexp.MustCompile(`\[(\w+|'\w+'|"\w+")\]`)
)

// IsFormula reports whether the cell text is a formula.
func IsFormula(text string) bool { return strings.HasPrefix(text, "=") }

// ReplaceVariables substitutes every recognized reference token in text
// with its resolved value. A missing key or out-of-range row index
// stringifies as "undefined"; a malformed reference aborts with an error.
func ReplaceVariables(text string, row Row, rows []Row) (string, error) {
	out := text
	for _, token := range variableToken.FindAllString(text, -1) {
		value, err := resolveToken(token, row, rows)
		if err != nil {
			return "", err
		}
		out = strings.ReplaceAll(out, token, value)
	}
	return out, nil
}

// resolveToken resolves one {{accessor[...]...}} token. An unrecognized
// accessor leaves the token untouched.
func resolveToken(token string, row Row, rows []Row) (string, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "{{"), "}}")
	prefix := accessorPrefix.FindString(inner)
	if prefix == "" {
		return token, nil
	}
	accessor := strings.TrimSuffix(prefix, "[")

	var segments []string
	for _, m := range bracketSegment.FindAllStringSubmatch(inner, -1) {
		segments = append(segments, strings.Trim(m[1], `'"`))
	}

	switch accessor {
	case "row":
		if len(segments) == 0 {
			return "", errors.New("row reference without key")
		}
		return refString(row.Cells[segments[0]]), nil
	case "sheetData":
		if len(segments) < 2 {
			return "", errors.New("sheetData reference needs index and key")
		}
		idx, err := strconv.Atoi(segments[0])
		if err != nil {
			return "", err
		}
		if idx < 0 {
			idx += len(rows)
		}
		if idx < 0 || idx >= len(rows) {
			return "undefined", nil
		}
		return refString(rows[idx].Cells[segments[1]]), nil
	default:
		return token, nil
	}
}

// refString stringifies a resolved reference. Absent values become the
// literal "undefined" so that a broken reference stays visible in the
// rewritten formula.
func refString(v any) string {
	if v == nil {
		return "undefined"
	}
	return formatScalar(v)
}

// evalFormula runs the full formula pipeline for one text cell.
func evalFormula(text string, row Row, rows []Row, ev Evaluator) string {
	if !IsFormula(text) {
		return text
	}
	rewritten, err := ReplaceVariables(text, row, rows)
	if err != nil {
		return RefError
	}
	if ev == nil {
		return rewritten
	}
	out, err := ev.Calculate(rewritten)
	if err != nil {
		return EvalError
	}
	return out
}
