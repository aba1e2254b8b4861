package sheet

// Report maps row identity to column key to the messages of every failing
// rule. An empty (or absent) message list means the cell passes.
type Report map[int]map[string][]string

// Messages returns the failing-rule messages for one cell.
func (r Report) Messages(rowID int, col string) []string {
	row, ok := r[rowID]
	if !ok {
		return nil
	}
	return row[col]
}

// Failed reports whether any rule failed for the cell.
func (r Report) Failed(rowID int, col string) bool {
	return len(r.Messages(rowID, col)) > 0
}

// Validate evaluates every rule of every validated column against the full
// data set. A rule whose Fn returns true has FAILED and contributes its
// message. A panicking rule counts as a pass for that cell; rules are
// caller-supplied closures and must not take down the render loop.
func Validate(rows []Row, validateMap map[string][]Rule) Report {
	report := Report{}
	if len(validateMap) == 0 {
		return report
	}
	for _, row := range rows {
		report[row.ID] = validateRow(row, rows, validateMap)
	}
	return report
}

// validateRow evaluates the validated columns present on a single row.
func validateRow(row Row, rows []Row, validateMap map[string][]Rule) map[string][]string {
	out := map[string][]string{}
	for col := range row.Cells {
		rules, ok := validateMap[col]
		if !ok {
			continue
		}
		messages := []string{}
		for _, rule := range rules {
			if runRule(rule, CellLocation{RowID: row.ID, Column: col}, rows) {
				messages = append(messages, rule.Message)
			}
		}
		out[col] = messages
	}
	return out
}

// runRule invokes one rule, converting a panic into a pass.
func runRule(rule Rule, loc CellLocation, rows []Row) (failed bool) {
	defer func() {
		if recover() != nil {
			failed = false
		}
	}()
	if rule.Fn == nil {
		return false
	}
	return rule.Fn(loc, rows)
}
