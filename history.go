package sheet

// ChangeKind tags one entry in the change log.
type ChangeKind int

const (
	ChangeUpdate ChangeKind = iota
	ChangeAdd
	ChangeRemove
	ChangeDuplicate
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeDuplicate:
		return "duplicate"
	default:
		return "update"
	}
}

// CellChange is one cell edit delivered by the rendering surface, with
// the previous and new presentational cells.
type CellChange struct {
	RowID    int
	Column   string
	Previous Cell
	New      Cell
}

// LogEntry is one committed operation in the undo/redo history.
type LogEntry struct {
	Kind ChangeKind
	// RowID is the display index the structural operation touched: the
	// position an added row was inserted at, or the position a removed
	// row previously occupied.
	RowID int
	UUID  string
	// Row is the full snapshot replayed by structural undo/redo.
	Row Row
	// Cells holds the per-cell snapshots of an update entry.
	Cells []CellChange
}

// changeLog is a linear undo/redo history: an append-only entry sequence
// with a movable cursor. Cursor -1 means fully undone / no history.
type changeLog struct {
	entries []LogEntry
	cursor  int
}

func newChangeLog() *changeLog {
	return &changeLog{cursor: -1}
}

// push truncates everything past the cursor, appends the entry and moves
// the cursor onto it.
func (l *changeLog) push(e LogEntry) {
	l.entries = append(l.entries[:l.cursor+1], e)
	l.cursor++
}

// undo steps the cursor back and returns the entry to revert.
func (l *changeLog) undo() (LogEntry, bool) {
	if l.cursor < 0 {
		return LogEntry{}, false
	}
	e := l.entries[l.cursor]
	l.cursor--
	return e, true
}

// redo steps the cursor forward and returns the entry to replay.
func (l *changeLog) redo() (LogEntry, bool) {
	if l.cursor+1 > len(l.entries)-1 {
		return LogEntry{}, false
	}
	l.cursor++
	return l.entries[l.cursor], true
}

// committed returns the entries up to and including the cursor: the part
// of the history that is applied and not undone.
func (l *changeLog) committed() []LogEntry {
	if l.cursor < 0 {
		return nil
	}
	out := make([]LogEntry, l.cursor+1)
	copy(out, l.entries[:l.cursor+1])
	return out
}

// clear drops the whole history.
func (l *changeLog) clear() {
	l.entries = nil
	l.cursor = -1
}
