package template_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"checkline/internal/domain"
	"checkline/internal/template"
)

func sourceProcedure() domain.Procedure {
	desc := "check twice"
	return domain.Procedure{
		ID:          "p-1",
		Title:       "Monthly Extinguisher Check",
		Description: "walk the floor",
		Category:    "Safety",
		Tags:        []string{"monthly", "safety"},
		Fields: []domain.ProcedureField{
			{ID: "f-1", Label: "Area", FieldType: domain.FieldSection, OrderIndex: 0},
			{ID: "f-2", Label: "Pin intact", FieldType: domain.FieldCheckbox, IsRequired: true, OrderIndex: 1,
				Options: domain.FieldOptions{Description: &desc}, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-02T00:00:00Z"},
			{ID: "f-3", Label: "Condition", FieldType: domain.FieldSelect, OrderIndex: 2,
				Options: domain.FieldOptions{Choices: []string{"good", "worn"}}},
		},
		CreatedAt: "2024-01-01T00:00:00Z",
		UpdatedAt: "2024-01-02T00:00:00Z",
	}
}

func TestFromProcedureStripsIdentity(t *testing.T) {
	p := sourceProcedure()
	tpl := template.FromProcedure(p, "Extinguisher Template", true)
	if tpl.Name != "Extinguisher Template" || !tpl.IsPublic {
		t.Fatalf("metadata not applied: %+v", tpl)
	}
	if tpl.Description != p.Description || tpl.Category != p.Category {
		t.Fatalf("description and category must carry over")
	}
	if diff := cmp.Diff(p.Tags, tpl.Tags); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}
	if len(tpl.Fields) != len(p.Fields) {
		t.Fatalf("field count changed")
	}
	for i, f := range tpl.Fields {
		if f.ID != "" || f.CreatedAt != "" || f.UpdatedAt != "" {
			t.Fatalf("field %d keeps identity: %+v", i, f)
		}
		src := p.Fields[i]
		if f.Label != src.Label || f.FieldType != src.FieldType || f.IsRequired != src.IsRequired || f.OrderIndex != src.OrderIndex {
			t.Fatalf("field %d lost content: %+v", i, f)
		}
	}
	if diff := cmp.Diff(p.Fields[2].Options.Choices, tpl.Fields[2].Options.Choices); diff != "" {
		t.Fatalf("options must carry over (-want +got):\n%s", diff)
	}
}

func TestFromProcedureIsDetached(t *testing.T) {
	p := sourceProcedure()
	tpl := template.FromProcedure(p, "T", false)
	tpl.Fields[2].Options.Choices[0] = "mutated"
	if p.Fields[2].Options.Choices[0] != "good" {
		t.Fatalf("template shares option storage with the source")
	}
}

func counterID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestApplyRegeneratesIdentity(t *testing.T) {
	tpl := template.FromProcedure(sourceProcedure(), "Extinguisher Template", true)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := template.Apply(tpl, counterID(), now)

	if p.Title != "Extinguisher Template" {
		t.Fatalf("title = %q, want the template name", p.Title)
	}
	if p.ID == "" {
		t.Fatalf("procedure must get a fresh id")
	}
	if p.CreatedAt != "2024-06-01T12:00:00Z" || p.UpdatedAt != p.CreatedAt {
		t.Fatalf("timestamps = %q / %q", p.CreatedAt, p.UpdatedAt)
	}
	seen := map[string]bool{p.ID: true}
	for i, f := range p.Fields {
		if f.ID == "" || seen[f.ID] {
			t.Fatalf("field %d id %q not fresh and distinct", i, f.ID)
		}
		seen[f.ID] = true
		if f.OrderIndex != i {
			t.Fatalf("field %d has order index %d", i, f.OrderIndex)
		}
		if f.CreatedAt != p.CreatedAt {
			t.Fatalf("field %d timestamp %q", i, f.CreatedAt)
		}
	}
}

func TestApplySortsByStoredOrder(t *testing.T) {
	tpl := domain.Template{
		Name: "Scrambled",
		Fields: []domain.ProcedureField{
			{Label: "third", FieldType: domain.FieldText, OrderIndex: 9},
			{Label: "first", FieldType: domain.FieldText, OrderIndex: 0},
			{Label: "second", FieldType: domain.FieldText, OrderIndex: 4},
		},
	}
	p := template.Apply(tpl, counterID(), time.Now())
	var labels []string
	for _, f := range p.Fields {
		labels = append(labels, f.Label)
	}
	if diff := cmp.Diff([]string{"first", "second", "third"}, labels); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	for i, f := range p.Fields {
		if f.OrderIndex != i {
			t.Fatalf("order index %d at position %d", f.OrderIndex, i)
		}
	}
}

func TestApplyRoundTripKeepsContent(t *testing.T) {
	src := sourceProcedure()
	tpl := template.FromProcedure(src, src.Title, false)
	p := template.Apply(tpl, counterID(), time.Now())
	if len(p.Fields) != len(src.Fields) {
		t.Fatalf("field count changed in round trip")
	}
	for i := range src.Fields {
		if p.Fields[i].Label != src.Fields[i].Label || p.Fields[i].FieldType != src.Fields[i].FieldType {
			t.Fatalf("field %d content changed: %+v", i, p.Fields[i])
		}
	}
	if diff := cmp.Diff(src.Tags, p.Tags); diff != "" {
		t.Fatalf("unexpected tags (-want +got):\n%s", diff)
	}
}
