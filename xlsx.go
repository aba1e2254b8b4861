package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXFetcher adapts one worksheet of an .xlsx workbook into a paged
// Fetcher. The first row is treated as the header and supplies the data
// keys; every following row becomes one data row of string values. The
// whole sheet is read once up front; paging slices the cached rows.
func XLSXFetcher(path, sheetName string) (Fetcher, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	raw, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(raw) == 0 {
		return emptyFetcher, nil
	}
	header := raw[0]
	data := make([]map[string]any, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(map[string]any, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(cells) {
				row[key] = cells[i]
			} else {
				row[key] = ""
			}
		}
		data = append(data, row)
	}
	return sliceFetcher(data), nil
}

// sliceFetcher pages over an in-memory row slice.
func sliceFetcher(data []map[string]any) Fetcher {
	return func(page, limit int) ([]map[string]any, error) {
		if page < 1 || limit <= 0 {
			return nil, nil
		}
		start := (page - 1) * limit
		if start >= len(data) {
			return nil, nil
		}
		end := start + limit
		if end > len(data) {
			end = len(data)
		}
		return data[start:end], nil
	}
}

func emptyFetcher(page, limit int) ([]map[string]any, error) { return nil, nil }
