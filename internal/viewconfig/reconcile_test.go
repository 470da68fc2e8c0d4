package viewconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func fieldsOf(names ...string) []Field {
	out := make([]Field, 0, len(names))
	for _, n := range names {
		out = append(out, Field{Name: n, Label: "Label " + n})
	}
	return out
}

func TestDefaultColumns(t *testing.T) {
	got := defaultColumns([]Field{{Name: "a", Label: "A"}, {Name: " "}, {Name: "b"}, {Name: "a", Label: "dup"}})
	want := []ColumnConfig{
		{FieldName: "a", Label: "A", Visible: true, Order: 0},
		{FieldName: "b", Label: "b", Visible: true, Order: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaultColumns mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileColumnsFieldDrift(t *testing.T) {
	saved := []ColumnConfig{
		{FieldName: "C", Label: "Label C", Visible: true, Order: 0},
		{FieldName: "A", Label: "Label A", Visible: true, Order: 1},
		{FieldName: "B", Label: "Label B", Visible: false, Order: 2},
	}

	got, dropped := reconcileColumns(saved, fieldsOf("A", "C", "D"))

	want := []ColumnConfig{
		{FieldName: "C", Label: "Label C", Visible: true, Order: 0},
		{FieldName: "A", Label: "Label A", Visible: true, Order: 1},
		{FieldName: "D", Label: "Label D", Visible: true, Order: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reconcile mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B"}, dropped); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileColumnsTiesFollowDeclarationOrder(t *testing.T) {
	saved := []ColumnConfig{
		{FieldName: "y", Visible: true, Order: 5},
		{FieldName: "x", Visible: false, Order: 5},
	}
	got, _ := reconcileColumns(saved, []Field{{Name: "x"}, {Name: "y"}})
	want := []ColumnConfig{
		{FieldName: "x", Label: "x", Visible: false, Order: 0},
		{FieldName: "y", Label: "y", Visible: true, Order: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tie-break mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileColumnsRefreshesLabels(t *testing.T) {
	saved := []ColumnConfig{{FieldName: "email", Label: "E-mail", Visible: false, Order: 0}}
	got, _ := reconcileColumns(saved, []Field{{Name: "email", Label: "Email address"}})
	if got[0].Label != "Email address" || got[0].Visible {
		t.Fatalf("unexpected column %+v", got[0])
	}
}

func TestReorderColumns(t *testing.T) {
	cols := defaultColumns(fieldsOf("a", "b", "c", "d"))

	got := reorderColumns(cols, []string{"c", "ghost", "a", "c"})

	names := make([]string, 0, len(got))
	for i, c := range got {
		if c.Order != i {
			t.Fatalf("order not dense at %d: %+v", i, c)
		}
		names = append(names, c.FieldName)
	}
	if diff := cmp.Diff([]string{"c", "a", "b", "d"}, names); diff != "" {
		t.Fatalf("reorder mismatch (-want +got):\n%s", diff)
	}
}
