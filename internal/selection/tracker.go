// Package selection tracks which entity identifiers the user has selected,
// independently of the currently filtered view.
package selection

import (
	"sort"
	"sync"
)

// Tracker holds a set of selected identifiers. Identifiers whose entities
// are removed must be pruned immediately so a later bulk action can never
// target an orphan.
type Tracker struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[string]struct{})}
}

// Select adds or removes a single identifier.
func (t *Tracker) Select(id string, on bool) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if on {
		t.ids[id] = struct{}{}
	} else {
		delete(t.ids, id)
	}
}

// SelectAll replaces the selection with exactly the identifiers currently
// visible under the active filter.
func (t *Tracker) SelectAll(visible []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = make(map[string]struct{}, len(visible))
	for _, id := range visible {
		t.ids[id] = struct{}{}
	}
}

// Clear empties the full selection regardless of any filter.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = make(map[string]struct{})
}

// Prune drops the given identifiers from the selection. Called on every
// reconciliation removal.
func (t *Tracker) Prune(removed []string) {
	if len(removed) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range removed {
		delete(t.ids, id)
	}
}

// Has reports whether id is selected.
func (t *Tracker) Has(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// Count returns the number of selected identifiers.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// Snapshot returns the selected identifiers in lexical order.
func (t *Tracker) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
