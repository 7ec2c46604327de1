package listing

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-herdform/pkg/datefmt"
	"github.com/goliatone/go-herdform/pkg/table"
)

// Entry is one identifier/value pair of a list payload.
type Entry struct {
	ID string `json:"id"`
	// Raw is the value as sent by the server.
	Raw string `json:"raw"`
	// Date is set for date lists when Raw parses.
	Date time.Time `json:"date,omitzero"`
	// Parsed reports whether Date is meaningful.
	Parsed bool `json:"parsed"`
}

// Listing is a fetched and ordered list.
type Listing struct {
	Source  Source  `json:"source"`
	Entries []Entry `json:"entries"`
}

// Empty reports whether the payload had no entries.
func (l Listing) Empty() bool {
	return len(l.Entries) == 0
}

// Rows maps entries to table rows, formatting dates with f.
func (l Listing) Rows(f datefmt.Formatter) []table.Row {
	rows := make([]table.Row, 0, len(l.Entries))
	for _, e := range l.Entries {
		value := e.Raw
		if l.Source.Kind == KindDates {
			if e.Parsed {
				value = f.Format(e.Date)
			} else {
				value = f.FormatString(e.Raw)
			}
		}
		row := table.Row{ID: e.ID, Cells: []string{e.ID, value}}
		if l.Source.Action != nil {
			row.Action = &table.Action{Label: l.Source.Action.Label, Target: l.Source.Action.Endpoint}
		}
		rows = append(rows, row)
	}
	return rows
}

// Entries builds ordered entries from a payload mapping identifiers to
// scalar values. Date lists sort ascending by date with ties broken by
// identifier; unparseable dates keep their raw text and sort last.
// Quantity lists sort by identifier.
func Entries(kind Kind, payload map[string]json.RawMessage) []Entry {
	entries := make([]Entry, 0, len(payload))
	for id, raw := range payload {
		e := Entry{ID: id, Raw: scalarText(raw)}
		if kind == KindDates {
			if t, err := datefmt.Parse(e.Raw); err == nil {
				e.Date, e.Parsed = t, true
			}
		}
		entries = append(entries, e)
	}

	if kind == KindDates {
		slices.SortStableFunc(entries, compareByDate)
	} else {
		slices.SortStableFunc(entries, func(a, b Entry) int {
			return CompareIDs(a.ID, b.ID)
		})
	}
	return entries
}

func compareByDate(a, b Entry) int {
	switch {
	case a.Parsed && !b.Parsed:
		return -1
	case !a.Parsed && b.Parsed:
		return 1
	case a.Parsed && b.Parsed:
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
	}
	return CompareIDs(a.ID, b.ID)
}

// CompareIDs orders numeric identifiers numerically and everything else
// lexically, numbers first.
func CompareIDs(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
