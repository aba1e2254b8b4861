// sheetdemo: interactive editable grid with typed cells, validation,
// undo/redo and incremental loading. Pass an .xlsx path to page rows in
// from a workbook instead of the built-in sample source.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"sheet"
)

// calc is a minimal left-to-right arithmetic evaluator, enough to show
// the formula pipeline end to end.
type calc struct{}

func (calc) Calculate(expr string) (string, error) {
	expr = strings.TrimPrefix(expr, "=")
	fields := strings.FieldsFunc(expr, func(r rune) bool { return r == '+' || r == '-' || r == '*' })
	if len(fields) == 0 {
		return "", errors.New("empty formula")
	}
	total, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return "", err
	}
	rest := expr[len(fields[0]):]
	for _, f := range fields[1:] {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", err
		}
		switch rest[0] {
		case '+':
			total += n
		case '-':
			total -= n
		case '*':
			total *= n
		}
		rest = rest[len(f)+1:]
	}
	return strconv.FormatFloat(total, 'f', -1, 64), nil
}

func sampleFetcher(page, limit int) ([]map[string]any, error) {
	if page > 3 {
		return nil, nil
	}
	var rows []map[string]any
	for i := 0; i < limit; i++ {
		n := (page-1)*limit + i
		rows = append(rows, map[string]any{
			"name":   fmt.Sprintf("generated-%d", n),
			"age":    float64(20 + n%40),
			"role":   "dev",
			"email":  fmt.Sprintf("user%d@example.com", n),
			"active": n%2 == 0,
		})
	}
	return rows, nil
}

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Fatal("sheetdemo must run in a terminal")
	}

	fetch := sheet.Fetcher(sampleFetcher)
	if len(os.Args) > 1 {
		f, err := sheet.XLSXFetcher(os.Args[1], "Sheet1")
		if err != nil {
			log.Fatal(err)
		}
		fetch = f
	}

	data := []map[string]any{
		{"name": "ada", "age": 36.0, "role": "eng", "email": "ada@example.com", "active": true},
		{"name": "lin", "age": 28.0, "role": "ops", "email": "lin@example.com", "active": false},
		{"name": "={{row['age']}}+1", "age": 30.0, "role": "dev", "email": "", "active": true},
	}

	opts := sheet.Options{
		Includes: []string{"name", "age", "role", "email", "active"},
		ColumnType: map[string]sheet.CellKind{
			"age":    sheet.KindNumber,
			"role":   sheet.KindDropdown,
			"email":  sheet.KindEmail,
			"active": sheet.KindCheckbox,
		},
		ValuesMap: map[string][]string{"role": {"eng", "ops", "dev"}},
		ValidateMap: map[string][]sheet.Rule{
			"age": {{
				Fn: func(loc sheet.CellLocation, rows []sheet.Row) bool {
					for _, r := range rows {
						if r.ID == loc.RowID {
							n, _ := r.Cells["age"].(float64)
							return n < 0 || n > 130
						}
					}
					return false
				},
				Message: "age out of range",
			}},
		},
		InitialSheetStyle: []sheet.StylePair{
			{Range: ":name", Style: lipgloss.NewStyle().Bold(true)},
		},
		HeaderStyle:         lipgloss.NewStyle().Bold(true).Underline(true),
		ValidationCellStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
	}

	s := sheet.New(data, opts, calc{})
	loader := sheet.NewLoader(fetch, 10)

	if _, err := tea.NewProgram(sheet.NewModel(s, loader), tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
