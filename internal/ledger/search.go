package ledger

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"gestor/internal/core"
)

// Query selects entries from a View.
type Query struct {
	// Term is matched case-insensitively against every column. A non-empty
	// term overrides the date window.
	Term string
	// ShowAll disables the current-month window.
	ShowAll bool
	// Environment restricts results when set.
	Environment core.Environment
	// Now anchors the default window; the zero value means time.Now().
	Now time.Time
}

// Search filters the view and sorts the result by due date, newest first.
// Without a term, entries due before the first day of the current month are
// hidden unless ShowAll is set.
func Search(v View, q Query) []core.Entry {
	term := strings.TrimSpace(q.Term)
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	windowStart := core.NewDate(now.Year(), int(now.Month()), 1)

	out := make([]core.Entry, 0, len(v.Entries))
	for _, e := range v.Entries {
		if q.Environment != "" && e.Environment != q.Environment {
			continue
		}
		switch {
		case term != "":
			if !e.Matches(term) {
				continue
			}
		case !q.ShowAll:
			if e.DueDate.IsZero() || e.DueDate.Before(windowStart.Time) {
				continue
			}
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, byDueDateDesc)
	return out
}

func byDueDateDesc(a, b core.Entry) int {
	switch {
	case a.DueDate.IsZero() && b.DueDate.IsZero():
		return 0
	case a.DueDate.IsZero():
		return 1
	case b.DueDate.IsZero():
		return -1
	}
	return cmp.Compare(b.DueDate.Unix(), a.DueDate.Unix())
}
