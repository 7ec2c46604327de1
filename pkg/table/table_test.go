package table_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-herdform/pkg/table"
)

func rows(pairs ...string) []table.Row {
	out := make([]table.Row, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, table.Row{ID: pairs[i], Cells: []string{pairs[i], pairs[i+1]}})
	}
	return out
}

func TestReplace_DeduplicatesByID(t *testing.T) {
	tbl := table.New("Vache", "Tarissement")
	tbl.Replace(rows("3", "15 janv. 2024", "7", "01 mars 2024", "3", "16 janv. 2024"))

	if diff := cmp.Diff([]string{"3", "7"}, tbl.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	row, ok := tbl.Get("3")
	if !ok || row.Cells[1] != "16 janv. 2024" {
		t.Fatalf("expected last duplicate to win, got %+v", row)
	}
}

func TestMerge_DiffsByIdentifier(t *testing.T) {
	tbl := table.New()
	tbl.Replace(rows("1", "a", "2", "b", "3", "c"))
	keep, _ := tbl.Get("1")

	stats := tbl.Merge(rows("4", "d", "1", "a", "2", "B"))

	want := table.MergeStats{Added: 1, Updated: 1, Unchanged: 1, Removed: 1}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"4", "1", "2"}, tbl.IDs()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if again, _ := tbl.Get("1"); again != keep {
		t.Fatalf("unchanged row handle should be reused")
	}
	if updated, _ := tbl.Get("2"); updated.Cells[1] != "B" {
		t.Fatalf("row 2 not updated: %+v", updated)
	}
	if _, ok := tbl.Get("3"); ok {
		t.Fatalf("row 3 should have been removed")
	}
}

func TestMerge_IdempotentRefresh(t *testing.T) {
	tbl := table.New()
	payload := rows("3", "x", "7", "y")
	tbl.Merge(payload)
	stats := tbl.Merge(payload)
	if stats.Changed() {
		t.Fatalf("second merge should not change anything: %+v", stats)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
}

func TestMerge_ActionChangesCount(t *testing.T) {
	tbl := table.New()
	tbl.Replace(rows("3", "x"))
	withAction := rows("3", "x")
	withAction[0].Action = &table.Action{Label: "Valider", Target: "/validate_dry"}
	if stats := tbl.Merge(withAction); stats.Updated != 1 {
		t.Fatalf("expected action change to count as update, got %+v", stats)
	}
}

func TestRemove_ExactlyOneRow(t *testing.T) {
	tbl := table.New()
	tbl.Replace(rows("3", "x", "7", "y", "9", "z"))

	if !tbl.Remove("7") {
		t.Fatalf("expected row 7 to be removed")
	}
	if tbl.Remove("7") {
		t.Fatalf("second removal should report false")
	}
	if diff := cmp.Diff([]string{"3", "9"}, tbl.IDs()); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_ReturnsCopies(t *testing.T) {
	tbl := table.New()
	tbl.Replace(rows("1", "a"))
	out := tbl.Rows()
	out[0].Cells[1] = "mutated"
	if row, _ := tbl.Get("1"); row.Cells[1] != "a" {
		t.Fatalf("table content leaked through Rows()")
	}
}
