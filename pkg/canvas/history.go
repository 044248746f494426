// Package canvas holds the edit-history state machine for the poster
// editor. A History is a linear sequence of serialized document snapshots
// plus a cursor; recording after an undo irrevocably discards the redo
// tail.
package canvas

// History tracks snapshots of the editable document. It is driven by one
// flow of UI events at a time and needs no locking.
type History struct {
	snapshots []string
	cursor    int
}

// NewHistory returns an empty history (cursor -1, no snapshot yet).
func NewHistory() *History {
	return &History{cursor: -1}
}

// Seeded returns a history holding one initial snapshot, for freshly
// created documents.
func Seeded(snapshot string) *History {
	return &History{snapshots: []string{snapshot}, cursor: 0}
}

// Record truncates any redo tail and appends the snapshot, unless it is
// identical to the current entry (re-recording unchanged state is a no-op).
func (h *History) Record(snapshot string) {
	h.snapshots = h.snapshots[:h.cursor+1]
	if h.cursor >= 0 && h.snapshots[h.cursor] == snapshot {
		return
	}
	h.snapshots = append(h.snapshots, snapshot)
	h.cursor = len(h.snapshots) - 1
}

// Undo steps the cursor back and returns the snapshot to apply. The second
// return is false when there is nothing to undo.
func (h *History) Undo() (string, bool) {
	if h.cursor <= 0 {
		return "", false
	}
	h.cursor--
	return h.snapshots[h.cursor], true
}

// Redo steps the cursor forward and returns the snapshot to apply. The
// second return is false when there is nothing to redo.
func (h *History) Redo() (string, bool) {
	if h.cursor >= len(h.snapshots)-1 {
		return "", false
	}
	h.cursor++
	return h.snapshots[h.cursor], true
}

// Load resets the history to a single snapshot, discarding everything
// recorded before. Used when opening a previously saved document.
func (h *History) Load(snapshot string) {
	h.snapshots = []string{snapshot}
	h.cursor = 0
}

// Current returns the snapshot at the cursor.
func (h *History) Current() (string, bool) {
	if h.cursor < 0 {
		return "", false
	}
	return h.snapshots[h.cursor], true
}

// CanUndo reports whether Undo would move the cursor.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }

// Len reports the number of reachable snapshots.
func (h *History) Len() int { return len(h.snapshots) }

// Cursor reports the current index, -1 when empty.
func (h *History) Cursor() int { return h.cursor }

// Snapshots returns a copy of the reachable sequence.
func (h *History) Snapshots() []string {
	return append([]string(nil), h.snapshots...)
}
