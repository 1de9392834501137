package builder_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"checkline/internal/builder"
	"checkline/internal/domain"
)

func testBuilder() builder.Builder {
	n := 0
	return builder.Builder{
		NewID: func() string {
			n++
			return fmt.Sprintf("f-%d", n)
		},
		Now: func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func labels(list []domain.ProcedureField) []string {
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = f.Label
	}
	return out
}

func checkOrder(t *testing.T, list []domain.ProcedureField) {
	t.Helper()
	for i, f := range list {
		if f.OrderIndex != i {
			t.Fatalf("order index %d at position %d: %v", f.OrderIndex, i, labels(list))
		}
	}
}

func sampleList(t *testing.T, b builder.Builder, names ...string) []domain.ProcedureField {
	t.Helper()
	var list []domain.ProcedureField
	for _, name := range names {
		var idx int
		list, idx = b.AddField(list, domain.FieldText, nil)
		list = b.UpdateField(list, idx, builder.FieldPatch{Label: &name})
	}
	return list
}

func TestAddFieldAppendsAndSelects(t *testing.T) {
	b := testBuilder()
	list, sel := b.AddField(nil, domain.FieldText, nil)
	if sel != 0 || len(list) != 1 {
		t.Fatalf("expected single selected field, got len=%d sel=%d", len(list), sel)
	}
	if list[0].Label != "New Field" {
		t.Fatalf("unexpected label %q", list[0].Label)
	}
	list, sel = b.AddSection(list)
	if sel != 1 || list[1].Label != "New Section" {
		t.Fatalf("section should append at end and select, got sel=%d label=%q", sel, list[1].Label)
	}
	if list[1].Options.Collapsible == nil {
		t.Fatalf("section should carry its default options")
	}
	list, sel = b.AddHeading(list)
	if sel != 2 || list[2].FieldType != domain.FieldInfo {
		t.Fatalf("heading should append info field")
	}
	checkOrder(t, list)
}

func TestAddFieldDoesNotMutateInput(t *testing.T) {
	b := testBuilder()
	orig := sampleList(t, b, "A", "B")
	before := builder.CopyFields(orig)
	_, _ = b.AddField(orig, domain.FieldCheckbox, nil)
	if diff := cmp.Diff(before, orig); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestUpdateFieldKeepsIdentityAndOrder(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B")
	required := true
	newLabel := "Checked"
	got := b.UpdateField(list, 1, builder.FieldPatch{Label: &newLabel, IsRequired: &required})
	if got[1].ID != list[1].ID || got[1].OrderIndex != 1 {
		t.Fatalf("update must not touch id or order index")
	}
	if got[1].Label != "Checked" || !got[1].IsRequired {
		t.Fatalf("patch not applied: %+v", got[1])
	}
	if got[0].Label != "A" {
		t.Fatalf("sibling touched")
	}
}

func TestUpdateFieldTypeChangeRebasesOptions(t *testing.T) {
	b := testBuilder()
	list, idx := b.AddField(nil, domain.FieldSelect, &domain.FieldOptions{Choices: []string{"a", "b"}})
	checkbox := domain.FieldCheckbox
	got := b.UpdateField(list, idx, builder.FieldPatch{FieldType: &checkbox})
	if got[idx].FieldType != domain.FieldCheckbox {
		t.Fatalf("type not changed")
	}
	if got[idx].Options.Choices != nil {
		t.Fatalf("choices must be stripped when the type no longer uses them")
	}

	// And the reverse direction gains the new type's defaults.
	text := domain.FieldText
	sel := domain.FieldSelect
	list2, idx2 := b.AddField(nil, text, nil)
	got2 := b.UpdateField(list2, idx2, builder.FieldPatch{FieldType: &sel})
	if got2[idx2].Options.Choices == nil {
		t.Fatalf("select should start with an empty choice list")
	}
}

func TestRemoveFieldReindexes(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B", "C")
	got, sel := b.RemoveField(list, 1, builder.NoSelection)
	if diff := cmp.Diff([]string{"A", "C"}, labels(got)); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	checkOrder(t, got)
	if sel != builder.NoSelection {
		t.Fatalf("selection should stay cleared")
	}
}

func TestRemoveSelectedClearsSelection(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B", "C")
	_, sel := b.RemoveField(list, 1, 1)
	if sel != builder.NoSelection {
		t.Fatalf("removing the selected field must clear selection, got %d", sel)
	}
	// A selection elsewhere is left alone even when its position shifts.
	_, sel = b.RemoveField(list, 0, 2)
	if sel != 2 {
		t.Fatalf("selection on another field untouched, got %d", sel)
	}
}

func TestDuplicateFieldInsertsAfter(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B", "C")
	got := b.DuplicateField(list, 0)
	if diff := cmp.Diff([]string{"A", "A (Copy)", "B", "C"}, labels(got)); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	checkOrder(t, got)
	if got[1].ID == got[0].ID || got[1].ID == "" {
		t.Fatalf("copy must have a fresh id")
	}
	if got[1].FieldType != got[0].FieldType || got[1].IsRequired != got[0].IsRequired {
		t.Fatalf("copy must keep type and required flag")
	}
}

func TestDuplicateIsDeepCopy(t *testing.T) {
	b := testBuilder()
	list, idx := b.AddField(nil, domain.FieldSelect, &domain.FieldOptions{Choices: []string{"a", "b"}})
	got := b.DuplicateField(list, idx)
	got[1].Options.Choices[0] = "mutated"
	if got[0].Options.Choices[0] != "a" {
		t.Fatalf("duplicate shares choice storage with the original")
	}
}

func TestMoveFieldSwapsNeighbors(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B", "C")
	got, sel := b.MoveField(list, 2, builder.MoveUp, 2)
	if diff := cmp.Diff([]string{"A", "C", "B"}, labels(got)); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	checkOrder(t, got)
	if sel != 1 {
		t.Fatalf("selection should follow the moved field, got %d", sel)
	}
}

func TestMovePastEndsIsNoop(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B")
	got, sel := b.MoveField(list, 0, builder.MoveUp, 0)
	if diff := cmp.Diff(list, got); diff != "" {
		t.Fatalf("move up at top must not change anything:\n%s", diff)
	}
	if sel != 0 {
		t.Fatalf("selection must not move")
	}
	got, _ = b.MoveField(list, 1, builder.MoveDown, builder.NoSelection)
	if diff := cmp.Diff(list, got); diff != "" {
		t.Fatalf("move down at bottom must not change anything:\n%s", diff)
	}
}

func TestReorderFieldsSplices(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B", "C", "D")
	got, sel := b.ReorderFields(list, 0, 2, 0)
	if diff := cmp.Diff([]string{"B", "C", "A", "D"}, labels(got)); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	checkOrder(t, got)
	if sel != 2 {
		t.Fatalf("selection should land on the target position, got %d", sel)
	}

	got, _ = b.ReorderFields(list, 3, 0, builder.NoSelection)
	if diff := cmp.Diff([]string{"D", "A", "B", "C"}, labels(got)); diff != "" {
		t.Fatalf("unexpected labels (-want +got):\n%s", diff)
	}
	checkOrder(t, got)
}

func TestReorderOutOfRangeIsNoop(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B")
	got, _ := b.ReorderFields(list, 0, 5, builder.NoSelection)
	if diff := cmp.Diff(list, got); diff != "" {
		t.Fatalf("out of range reorder must not change anything:\n%s", diff)
	}
	got, _ = b.ReorderFields(list, -1, 0, builder.NoSelection)
	if diff := cmp.Diff(list, got); diff != "" {
		t.Fatalf("negative source must not change anything:\n%s", diff)
	}
}

func TestOrderInvariantAcrossOperationSequence(t *testing.T) {
	b := testBuilder()
	list := sampleList(t, b, "A", "B", "C")
	list, _ = b.AddField(list, domain.FieldCheckbox, nil)
	checkOrder(t, list)
	list = b.DuplicateField(list, 2)
	checkOrder(t, list)
	list, _ = b.ReorderFields(list, 4, 1, builder.NoSelection)
	checkOrder(t, list)
	list, _ = b.RemoveField(list, 0, builder.NoSelection)
	checkOrder(t, list)
	list, _ = b.MoveField(list, 1, builder.MoveDown, builder.NoSelection)
	checkOrder(t, list)
}
