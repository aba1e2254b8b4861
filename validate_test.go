package sheet

import "testing"

func testRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{ID: i, Cells: map[string]any{"name": "r", "age": float64(i)}}
	}
	return rows
}

func TestValidate(t *testing.T) {
	t.Run("failing rule reports its message", func(t *testing.T) {
		rules := map[string][]Rule{
			"age": {{Fn: func(CellLocation, []Row) bool { return true }, Message: "X"}},
		}
		report := Validate(testRows(3), rules)
		for id := 0; id < 3; id++ {
			msgs := report.Messages(id, "age")
			if len(msgs) != 1 || msgs[0] != "X" {
				t.Errorf("row %d: expected [X], got %v", id, msgs)
			}
		}
	})

	t.Run("passing rule reports nothing", func(t *testing.T) {
		rules := map[string][]Rule{
			"age": {{Fn: func(CellLocation, []Row) bool { return false }, Message: "X"}},
		}
		report := Validate(testRows(3), rules)
		for id := 0; id < 3; id++ {
			if msgs := report.Messages(id, "age"); len(msgs) != 0 {
				t.Errorf("row %d: expected no messages, got %v", id, msgs)
			}
			if report.Failed(id, "age") {
				t.Errorf("row %d: expected pass", id)
			}
		}
	})

	t.Run("rules stack per column", func(t *testing.T) {
		rules := map[string][]Rule{
			"age": {
				{Fn: func(CellLocation, []Row) bool { return true }, Message: "first"},
				{Fn: func(CellLocation, []Row) bool { return true }, Message: "second"},
			},
		}
		report := Validate(testRows(1), rules)
		msgs := report.Messages(0, "age")
		if len(msgs) != 2 || msgs[0] != "first" || msgs[1] != "second" {
			t.Errorf("expected [first second], got %v", msgs)
		}
	})

	t.Run("panicking rule counts as pass", func(t *testing.T) {
		rules := map[string][]Rule{
			"age": {
				{Fn: func(CellLocation, []Row) bool { panic("boom") }, Message: "panicked"},
				{Fn: func(CellLocation, []Row) bool { return true }, Message: "failed"},
			},
		}
		report := Validate(testRows(1), rules)
		msgs := report.Messages(0, "age")
		if len(msgs) != 1 || msgs[0] != "failed" {
			t.Errorf("expected only the non-panicking failure, got %v", msgs)
		}
	})

	t.Run("unvalidated columns absent from report", func(t *testing.T) {
		rules := map[string][]Rule{
			"age": {{Fn: func(CellLocation, []Row) bool { return true }, Message: "X"}},
		}
		report := Validate(testRows(1), rules)
		if msgs := report.Messages(0, "name"); len(msgs) != 0 {
			t.Errorf("expected nothing for name, got %v", msgs)
		}
	})

	t.Run("rule sees full data set", func(t *testing.T) {
		var seen int
		rules := map[string][]Rule{
			"age": {{Fn: func(loc CellLocation, rows []Row) bool {
				seen = len(rows)
				return false
			}, Message: "X"}},
		}
		Validate(testRows(4), rules)
		if seen != 4 {
			t.Errorf("expected predicate to see 4 rows, got %d", seen)
		}
	})

	t.Run("no rules yields empty report", func(t *testing.T) {
		report := Validate(testRows(2), nil)
		if len(report) != 0 {
			t.Errorf("expected empty report, got %v", report)
		}
	})
}
