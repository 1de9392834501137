package fields_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"checkline/internal/domain"
	"checkline/internal/fields"
)

func TestAnswerable(t *testing.T) {
	for _, ft := range []domain.FieldType{domain.FieldText, domain.FieldNumber, domain.FieldCheckbox, domain.FieldSelect, domain.FieldMultiselect} {
		if !fields.Answerable(ft) {
			t.Errorf("%s should be answerable", ft)
		}
	}
	for _, ft := range []domain.FieldType{domain.FieldSection, domain.FieldInfo} {
		if fields.Answerable(ft) {
			t.Errorf("%s should not be answerable", ft)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	sel := fields.DefaultOptions(domain.FieldSelect)
	if sel.Choices == nil || len(sel.Choices) != 0 {
		t.Fatalf("select defaults should carry an empty choice list, got %#v", sel.Choices)
	}
	sec := fields.DefaultOptions(domain.FieldSection)
	if sec.Collapsible == nil || *sec.Collapsible {
		t.Fatalf("section defaults should start non-collapsible")
	}
	info := fields.DefaultOptions(domain.FieldInfo)
	if info.Style == nil || *info.Style != fields.InfoStyleHeading {
		t.Fatalf("info defaults should be styled as heading")
	}
	if diff := cmp.Diff(domain.FieldOptions{}, fields.DefaultOptions(domain.FieldText)); diff != "" {
		t.Fatalf("text defaults should be empty (-want +got):\n%s", diff)
	}
}

func TestNormalizeStripsForeignKeys(t *testing.T) {
	desc := "help"
	got := fields.Normalize(domain.FieldSelect, domain.FieldOptions{
		Choices:     []string{"a", "b"},
		Description: &desc,
	})
	if got.Description != nil {
		t.Fatalf("select options must not carry a description")
	}
	if len(got.Choices) != 2 {
		t.Fatalf("choices should survive, got %v", got.Choices)
	}

	file := &domain.FileRef{Name: "manual.pdf", URL: "https://example.com/manual.pdf"}
	got = fields.Normalize(domain.FieldCheckbox, domain.FieldOptions{
		Choices:      []string{"x"},
		AttachedFile: file,
	})
	if got.Choices != nil {
		t.Fatalf("checkbox options must not carry choices")
	}
	if got.AttachedFile == nil || got.AttachedFile.Name != "manual.pdf" {
		t.Fatalf("attached file is valid on every type")
	}
}

func TestMergeOneLevelDeep(t *testing.T) {
	desc := "before"
	collapsible := true
	base := domain.FieldOptions{Description: &desc, Collapsible: &collapsible}
	collapsed := true
	got := fields.Merge(domain.FieldSection, base, domain.FieldOptions{DefaultCollapsed: &collapsed})
	if got.Description == nil || *got.Description != "before" {
		t.Fatalf("untouched keys must survive a patch")
	}
	if got.DefaultCollapsed == nil || !*got.DefaultCollapsed {
		t.Fatalf("patched key missing")
	}
}

func TestValidate(t *testing.T) {
	if err := fields.Validate(domain.ProcedureField{FieldType: "widget"}); err == nil {
		t.Fatalf("unknown type should fail validation")
	}
	if err := fields.Validate(domain.ProcedureField{
		FieldType: domain.FieldSelect,
		Options:   domain.FieldOptions{Choices: []string{"ok", ""}},
	}); err == nil {
		t.Fatalf("empty choice should fail validation")
	}
	bad := "fancy"
	if err := fields.Validate(domain.ProcedureField{
		FieldType: domain.FieldSection,
		Options:   domain.FieldOptions{Style: &bad},
	}); err == nil {
		t.Fatalf("unknown section style should fail validation")
	}
	if err := fields.Validate(domain.ProcedureField{FieldType: domain.FieldText}); err != nil {
		t.Fatalf("plain text field should validate: %v", err)
	}
}

func TestComplete(t *testing.T) {
	if fields.Complete(domain.ProcedureField{FieldType: domain.FieldSelect}) {
		t.Fatalf("select without choices is incomplete")
	}
	if !fields.Complete(domain.ProcedureField{FieldType: domain.FieldSelect, Options: domain.FieldOptions{Choices: []string{"a"}}}) {
		t.Fatalf("select with choices is complete")
	}
	if !fields.Complete(domain.ProcedureField{FieldType: domain.FieldText}) {
		t.Fatalf("text is always complete")
	}
}
