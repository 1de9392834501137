package scoring_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"checkline/internal/domain"
	"checkline/internal/scoring"
)

func requiredField(id string, t domain.FieldType) domain.ProcedureField {
	return domain.ProcedureField{ID: id, Label: id, FieldType: t, IsRequired: true}
}

func answered(ids ...string) map[string]domain.Answer {
	out := make(map[string]domain.Answer, len(ids))
	for _, id := range ids {
		out[id] = domain.Answer{FieldID: id, Value: true}
	}
	return out
}

func TestScoreRoundsHalfUp(t *testing.T) {
	list := []domain.ProcedureField{
		requiredField("a", domain.FieldCheckbox),
		requiredField("b", domain.FieldCheckbox),
		requiredField("c", domain.FieldCheckbox),
		requiredField("d", domain.FieldCheckbox),
		requiredField("e", domain.FieldCheckbox),
		requiredField("f", domain.FieldCheckbox),
	}
	cases := []struct {
		name    string
		answers map[string]domain.Answer
		want    int
	}{
		{"none", nil, 0},
		{"one of six", answered("a"), 17},
		{"four of six", answered("a", "b", "c", "d"), 67},
		{"all", answered("a", "b", "c", "d", "e", "f"), 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := scoring.Score(list, tc.answers); got != tc.want {
				t.Fatalf("Score = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestScoreOneOfThree(t *testing.T) {
	list := []domain.ProcedureField{
		requiredField("a", domain.FieldText),
		requiredField("b", domain.FieldText),
		requiredField("c", domain.FieldText),
	}
	if got := scoring.Score(list, answered("b")); got != 33 {
		t.Fatalf("Score = %d, want 33", got)
	}
	if got := scoring.Score(list, answered("a", "b")); got != 67 {
		t.Fatalf("Score = %d, want 67", got)
	}
}

func TestScoreNothingRequired(t *testing.T) {
	list := []domain.ProcedureField{
		{ID: "a", FieldType: domain.FieldText},
		{ID: "b", FieldType: domain.FieldCheckbox},
	}
	if got := scoring.Score(list, nil); got != 100 {
		t.Fatalf("Score = %d, want 100 with no required fields", got)
	}
	if got := scoring.Score(nil, nil); got != 100 {
		t.Fatalf("Score = %d, want 100 for an empty list", got)
	}
}

func TestScoreIgnoresLayoutFields(t *testing.T) {
	// Required flags on sections and info blocks must not affect the
	// denominator.
	list := []domain.ProcedureField{
		requiredField("s", domain.FieldSection),
		requiredField("i", domain.FieldInfo),
		requiredField("a", domain.FieldCheckbox),
	}
	if got := scoring.Score(list, answered("a")); got != 100 {
		t.Fatalf("Score = %d, want 100", got)
	}
}

func TestScoreIgnoresOptionalAnswers(t *testing.T) {
	list := []domain.ProcedureField{
		requiredField("a", domain.FieldCheckbox),
		{ID: "opt", FieldType: domain.FieldText},
	}
	if got := scoring.Score(list, answered("opt")); got != 0 {
		t.Fatalf("Score = %d, optional answers must not count", got)
	}
}

func TestMissingRequiredInFieldOrder(t *testing.T) {
	list := []domain.ProcedureField{
		requiredField("c", domain.FieldCheckbox),
		requiredField("a", domain.FieldText),
		{ID: "opt", FieldType: domain.FieldText},
		requiredField("b", domain.FieldSelect),
	}
	got := scoring.MissingRequired(list, answered("a"))
	if diff := cmp.Diff([]string{"c", "b"}, got); diff != "" {
		t.Fatalf("unexpected missing ids (-want +got):\n%s", diff)
	}
	if got := scoring.MissingRequired(list, answered("a", "b", "c")); got != nil {
		t.Fatalf("expected nil when nothing is missing, got %v", got)
	}
}
