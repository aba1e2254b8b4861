package sheet

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestXLSXFetcher(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"name", "age"},
		{"ada", 36},
		{"lin", 28},
		{"sum"},
	})

	fetch, err := XLSXFetcher(path, "Sheet1")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("header row supplies the keys", func(t *testing.T) {
		rows, err := fetch(1, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[0]["name"] != "ada" || rows[0]["age"] != "36" {
			t.Errorf("unexpected first row %v", rows[0])
		}
	})

	t.Run("short rows blank their trailing cells", func(t *testing.T) {
		rows, err := fetch(2, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row, got %d", len(rows))
		}
		if rows[0]["name"] != "sum" || rows[0]["age"] != "" {
			t.Errorf("unexpected row %v", rows[0])
		}
	})

	t.Run("past the end is empty", func(t *testing.T) {
		rows, err := fetch(3, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 0 {
			t.Errorf("expected no rows, got %v", rows)
		}
	})

	t.Run("feeds the loader", func(t *testing.T) {
		s := New(nil, Options{Includes: []string{"name", "age"}}, nil)
		l := NewLoader(fetch, 2)
		for {
			merged, err := l.Load(s)
			if err != nil {
				t.Fatal(err)
			}
			if !merged {
				break
			}
		}
		if len(s.RawRows()) != 3 {
			t.Errorf("expected 3 rows loaded, got %d", len(s.RawRows()))
		}
	})

	t.Run("missing workbook", func(t *testing.T) {
		if _, err := XLSXFetcher(filepath.Join(t.TempDir(), "nope.xlsx"), "Sheet1"); err == nil {
			t.Error("expected error for missing workbook")
		}
	})

	t.Run("empty sheet yields a terminal fetcher", func(t *testing.T) {
		empty := writeWorkbook(t, nil)
		fetch, err := XLSXFetcher(empty, "Sheet1")
		if err != nil {
			t.Fatal(err)
		}
		rows, err := fetch(1, 10)
		if err != nil || len(rows) != 0 {
			t.Errorf("expected no rows, got %v err=%v", rows, err)
		}
	})
}
