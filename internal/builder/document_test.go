package builder_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"checkline/internal/builder"
	"checkline/internal/domain"
)

func testDocument(t *testing.T, categories []string) *builder.Document {
	t.Helper()
	p := domain.Procedure{ID: "p-1", Title: "Pump Inspection"}
	return builder.NewDocument(p, testBuilder(), categories)
}

func TestSetCategoryClosedSet(t *testing.T) {
	d := testDocument(t, []string{"Safety", "Electrical"})
	if err := d.SetCategory("Safety"); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if d.Proc.Category != "Safety" {
		t.Fatalf("category not applied")
	}
	if err := d.SetCategory("Plumbing"); err == nil {
		t.Fatalf("expected unknown category error")
	}
	if d.Proc.Category != "Safety" {
		t.Fatalf("failed set must not change the category")
	}
}

func TestSetCategoryOpenWithoutConfiguredSet(t *testing.T) {
	d := testDocument(t, nil)
	if err := d.SetCategory("Anything"); err != nil {
		t.Fatalf("empty set should disable the check: %v", err)
	}
}

func TestAddTagRejectsBlankAndDuplicate(t *testing.T) {
	d := testDocument(t, nil)
	if err := d.AddTag("monthly"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := d.AddTag("  "); err == nil {
		t.Fatalf("blank tag accepted")
	}
	if err := d.AddTag("monthly"); err == nil {
		t.Fatalf("duplicate tag accepted")
	}
	if err := d.AddTag(" trimmed "); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if diff := cmp.Diff([]string{"monthly", "trimmed"}, d.Proc.Tags); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}
}

func TestRemoveTag(t *testing.T) {
	d := testDocument(t, nil)
	for _, tag := range []string{"a", "b", "c"} {
		if err := d.AddTag(tag); err != nil {
			t.Fatalf("AddTag: %v", err)
		}
	}
	d.RemoveTag("b")
	if diff := cmp.Diff([]string{"a", "c"}, d.Proc.Tags); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}
	d.RemoveTag("missing")
	if len(d.Proc.Tags) != 2 {
		t.Fatalf("removing an absent tag must be a no-op")
	}
}

func TestValidateForSaveRequiresTitle(t *testing.T) {
	d := testDocument(t, nil)
	if err := d.ValidateForSave(); err != nil {
		t.Fatalf("ValidateForSave: %v", err)
	}
	d.SetTitle("   ")
	if err := d.ValidateForSave(); err == nil {
		t.Fatalf("blank title accepted")
	}
}

func TestDocumentFieldCommandsTrackSelection(t *testing.T) {
	d := testDocument(t, nil)
	d.AddField(domain.FieldCheckbox, nil)
	d.AddSection()
	if d.Selected != 1 {
		t.Fatalf("selection should follow the last added field, got %d", d.Selected)
	}
	d.MoveField(1, builder.MoveUp)
	if d.Selected != 0 {
		t.Fatalf("selection should follow the moved field, got %d", d.Selected)
	}
	d.RemoveField(0)
	if d.Selected != builder.NoSelection {
		t.Fatalf("removing the selected field must clear selection, got %d", d.Selected)
	}
	if len(d.Proc.Fields) != 1 || d.Proc.Fields[0].OrderIndex != 0 {
		t.Fatalf("list not reindexed after remove: %+v", d.Proc.Fields)
	}
}

func TestSnapshotDiscardRestoresEverything(t *testing.T) {
	d := testDocument(t, nil)
	d.AddField(domain.FieldText, nil)
	if err := d.AddTag("weekly"); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	d.Snapshot()
	want := d.Proc

	d.SetTitle("Renamed")
	d.SetDescription("scratch edits")
	d.AddField(domain.FieldNumber, nil)
	d.RemoveTag("weekly")
	d.Discard()

	if diff := cmp.Diff(want, d.Proc); diff != "" {
		t.Fatalf("discard did not restore the snapshot (-want +got):\n%s", diff)
	}
	if d.Selected != builder.NoSelection {
		t.Fatalf("discard must clear selection")
	}
}

func TestDiscardWithoutSnapshotIsNoop(t *testing.T) {
	d := testDocument(t, nil)
	d.SetTitle("Changed")
	d.Discard()
	if d.Proc.Title != "Changed" {
		t.Fatalf("discard without snapshot must keep current state")
	}
}
