// Package table keeps rendered rows keyed by entity identifier so refreshes
// diff by identity instead of comparing rendered text.
package table

import (
	"slices"
	"strings"
)

// Action is a per-row control bound to the row identifier.
type Action struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// Row is one rendered entry.
type Row struct {
	ID     string   `json:"id"`
	Cells  []string `json:"cells"`
	Action *Action  `json:"action,omitempty"`
}

func (r Row) equal(other Row) bool {
	if r.ID != other.ID || !slices.Equal(r.Cells, other.Cells) {
		return false
	}
	switch {
	case r.Action == nil && other.Action == nil:
		return true
	case r.Action == nil || other.Action == nil:
		return false
	default:
		return *r.Action == *other.Action
	}
}

// MergeStats summarises a Merge call.
type MergeStats struct {
	Added     int
	Updated   int
	Unchanged int
	Removed   int
}

// Changed reports whether the merge touched any row.
func (s MergeStats) Changed() bool {
	return s.Added+s.Updated+s.Removed > 0
}

// Table is not safe for concurrent use; callers serialise access (the
// dashboard holds a lock per list).
type Table struct {
	Columns []string

	rows  map[string]*Row
	order []string
}

// New creates an empty table with the given headers.
func New(columns ...string) *Table {
	return &Table{
		Columns: append([]string(nil), columns...),
		rows:    make(map[string]*Row),
	}
}

// Replace drops every row and installs rows in order. Later duplicates of an
// identifier replace earlier ones.
func (t *Table) Replace(rows []Row) {
	t.rows = make(map[string]*Row, len(rows))
	t.order = t.order[:0]
	for _, row := range rows {
		row.ID = strings.TrimSpace(row.ID)
		if existing, ok := t.rows[row.ID]; ok {
			*existing = cloneRow(row)
			continue
		}
		clone := cloneRow(row)
		t.rows[row.ID] = &clone
		t.order = append(t.order, row.ID)
	}
}

// Merge diffs rows against the current content by identifier. Row handles of
// identifiers present on both sides are kept (and updated in place when their
// cells changed); identifiers missing from rows are removed. The resulting
// order follows rows.
func (t *Table) Merge(rows []Row) MergeStats {
	if t.rows == nil {
		t.rows = make(map[string]*Row)
	}

	var stats MergeStats
	seen := make(map[string]struct{}, len(rows))
	order := make([]string, 0, len(rows))

	for _, row := range rows {
		row.ID = strings.TrimSpace(row.ID)
		if _, dup := seen[row.ID]; dup {
			continue
		}
		seen[row.ID] = struct{}{}
		order = append(order, row.ID)

		existing, ok := t.rows[row.ID]
		switch {
		case !ok:
			clone := cloneRow(row)
			t.rows[row.ID] = &clone
			stats.Added++
		case existing.equal(row):
			stats.Unchanged++
		default:
			*existing = cloneRow(row)
			stats.Updated++
		}
	}

	for _, id := range t.order {
		if _, keep := seen[id]; !keep {
			delete(t.rows, id)
			stats.Removed++
		}
	}
	t.order = order
	return stats
}

// Remove deletes exactly one row. It reports whether the row existed.
func (t *Table) Remove(id string) bool {
	id = strings.TrimSpace(id)
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	if idx := slices.Index(t.order, id); idx >= 0 {
		t.order = slices.Delete(t.order, idx, idx+1)
	}
	return true
}

// Get returns the row handle for id.
func (t *Table) Get(id string) (*Row, bool) {
	row, ok := t.rows[strings.TrimSpace(id)]
	return row, ok
}

// Rows returns copies of the rows in display order.
func (t *Table) Rows() []Row {
	out := make([]Row, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, cloneRow(*t.rows[id]))
	}
	return out
}

// IDs returns identifiers in display order.
func (t *Table) IDs() []string {
	return append([]string(nil), t.order...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.order)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.order) == 0
}

func cloneRow(row Row) Row {
	out := Row{ID: row.ID, Cells: append([]string(nil), row.Cells...)}
	if row.Action != nil {
		action := *row.Action
		out.Action = &action
	}
	return out
}
