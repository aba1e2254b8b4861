package sheet

// Fetcher retrieves one page of external rows. Pages are 1-based; an
// empty result marks the source exhausted.
type Fetcher func(page, limit int) ([]map[string]any, error)

// Loader drives incremental data loading. Each visibility transition of
// the load sentinel triggers at most one fetch; once a fetch returns no
// rows the loader is terminal until Reset. Overlapping fetches are
// refused while one is in flight.
type Loader struct {
	fetch    Fetcher
	page     int
	limit    int
	hasMore  bool
	inFlight bool
}

// NewLoader builds a loader over the fetcher with the given page size.
func NewLoader(fetch Fetcher, limit int) *Loader {
	return &Loader{fetch: fetch, limit: limit, hasMore: true}
}

// HasMore reports whether the source may still yield rows.
func (l *Loader) HasMore() bool { return l.hasMore }

// Page returns the number of the last fetched page.
func (l *Loader) Page() int { return l.page }

// Start claims the next fetch. It returns the page to fetch and whether
// the claim succeeded; it fails when the source is exhausted or another
// fetch is already in flight.
func (l *Loader) Start() (page int, ok bool) {
	if !l.hasMore || l.inFlight {
		return 0, false
	}
	l.inFlight = true
	return l.page + 1, true
}

// Finish records the outcome of a claimed fetch. An empty page is
// terminal: no further fetches happen until Reset.
func (l *Loader) Finish(rows []map[string]any) {
	l.inFlight = false
	l.page++
	if len(rows) == 0 {
		l.hasMore = false
	}
}

// Abort releases a claimed fetch without consuming the page, for fetches
// that failed outright.
func (l *Loader) Abort() { l.inFlight = false }

// Load synchronously fetches the next page and merges any rows into the
// sheet. It reports whether rows were merged.
func (l *Loader) Load(s *Sheet) (bool, error) {
	page, ok := l.Start()
	if !ok {
		return false, nil
	}
	rows, err := l.fetch(page, l.limit)
	if err != nil {
		l.Abort()
		return false, err
	}
	l.Finish(rows)
	if len(rows) == 0 {
		return false, nil
	}
	s.AddNewData(rows)
	return true, nil
}

// Reset rewinds the loader to fetch from the first page again.
func (l *Loader) Reset() {
	l.page = 0
	l.hasMore = true
	l.inFlight = false
}
