package sheet

import (
	"errors"
	"fmt"
	"testing"
)

func pagedFetcher(pages int, limit int) Fetcher {
	return func(page, lim int) ([]map[string]any, error) {
		if page > pages {
			return nil, nil
		}
		rows := make([]map[string]any, lim)
		for i := range rows {
			rows[i] = map[string]any{"name": fmt.Sprintf("p%d-%d", page, i)}
		}
		return rows, nil
	}
}

func TestLoader(t *testing.T) {
	t.Run("claims sequential pages", func(t *testing.T) {
		l := NewLoader(pagedFetcher(2, 2), 2)
		for want := 1; want <= 3; want++ {
			page, ok := l.Start()
			if !ok {
				t.Fatalf("claim %d refused", want)
			}
			if page != want {
				t.Fatalf("expected page %d, got %d", want, page)
			}
			rows, err := l.fetch(page, l.limit)
			if err != nil {
				t.Fatal(err)
			}
			l.Finish(rows)
		}
		// page 3 was empty, so the loader is terminal
		if l.HasMore() {
			t.Error("expected exhausted loader")
		}
		if _, ok := l.Start(); ok {
			t.Error("expected refusal after exhaustion")
		}
	})

	t.Run("refuses overlapping claims", func(t *testing.T) {
		l := NewLoader(pagedFetcher(5, 1), 1)
		if _, ok := l.Start(); !ok {
			t.Fatal("first claim refused")
		}
		if _, ok := l.Start(); ok {
			t.Error("expected refusal while a fetch is in flight")
		}
		l.Finish([]map[string]any{{"name": "x"}})
		if _, ok := l.Start(); !ok {
			t.Error("expected claim after finish")
		}
	})

	t.Run("abort releases the claim without consuming the page", func(t *testing.T) {
		l := NewLoader(pagedFetcher(5, 1), 1)
		l.Start()
		l.Abort()
		page, ok := l.Start()
		if !ok || page != 1 {
			t.Errorf("expected page 1 retried, got %d ok=%v", page, ok)
		}
	})

	t.Run("reset rewinds a terminal loader", func(t *testing.T) {
		l := NewLoader(pagedFetcher(0, 1), 1)
		l.Start()
		l.Finish(nil)
		if l.HasMore() {
			t.Fatal("expected terminal loader")
		}
		l.Reset()
		page, ok := l.Start()
		if !ok || page != 1 {
			t.Errorf("expected page 1 after reset, got %d ok=%v", page, ok)
		}
	})
}

func TestLoaderLoad(t *testing.T) {
	t.Run("merges fetched rows into the sheet", func(t *testing.T) {
		s := New([]map[string]any{
			{"name": "seed-0"},
			{"name": "seed-1"},
		}, Options{Includes: []string{"name"}}, nil)
		l := NewLoader(pagedFetcher(2, 3), 3)

		merged, err := l.Load(s)
		if err != nil || !merged {
			t.Fatalf("expected merge, got merged=%v err=%v", merged, err)
		}
		rows := s.RawRows()
		if len(rows) != 5 {
			t.Fatalf("expected 5 rows, got %d", len(rows))
		}
		if rows[2].ID != 2 || rows[2].Cells["name"] != "p1-0" {
			t.Errorf("expected first fetched row at identity 2, got %+v", rows[2])
		}

		merged, err = l.Load(s)
		if err != nil || !merged {
			t.Fatalf("second load: merged=%v err=%v", merged, err)
		}
		merged, err = l.Load(s)
		if err != nil || merged {
			t.Fatalf("exhausted load: merged=%v err=%v", merged, err)
		}
		if len(s.RawRows()) != 8 {
			t.Errorf("expected 8 rows, got %d", len(s.RawRows()))
		}
	})

	t.Run("fetch error aborts without consuming the page", func(t *testing.T) {
		fails := true
		fetch := func(page, limit int) ([]map[string]any, error) {
			if fails {
				return nil, errors.New("backend down")
			}
			return []map[string]any{{"name": "late"}}, nil
		}
		s := New([]map[string]any{{"name": "a"}, {"name": "b"}}, Options{Includes: []string{"name"}}, nil)
		l := NewLoader(fetch, 1)

		if merged, err := l.Load(s); err == nil || merged {
			t.Fatalf("expected error, got merged=%v err=%v", merged, err)
		}
		if !l.HasMore() {
			t.Error("a failed fetch must not mark the source exhausted")
		}
		fails = false
		if merged, err := l.Load(s); err != nil || !merged {
			t.Fatalf("retry: merged=%v err=%v", merged, err)
		}
		if l.Page() != 1 {
			t.Errorf("expected page 1 consumed once, got %d", l.Page())
		}
	})
}
