// Package scoring computes the completion score of an execution.
package scoring

import (
	"math"

	"checkline/internal/domain"
	"checkline/internal/fields"
)

// Score returns the completion percentage for a set of answers against
// a procedure's fields: answered required fields over all required
// answerable fields, rounded half-up to an integer 0..100. With
// nothing required the run is trivially complete and scores 100.
func Score(list []domain.ProcedureField, answers map[string]domain.Answer) int {
	required := 0
	answered := 0
	for _, f := range list {
		if !fields.Answerable(f.FieldType) || !f.IsRequired {
			continue
		}
		required++
		if _, ok := answers[f.ID]; ok {
			answered++
		}
	}
	if required == 0 {
		return 100
	}
	return int(math.Round(float64(answered) / float64(required) * 100))
}

// MissingRequired lists the ids of required answerable fields that
// have no recorded answer, in field order.
func MissingRequired(list []domain.ProcedureField, answers map[string]domain.Answer) []string {
	var missing []string
	for _, f := range list {
		if !fields.Answerable(f.FieldType) || !f.IsRequired {
			continue
		}
		if _, ok := answers[f.ID]; !ok {
			missing = append(missing, f.ID)
		}
	}
	return missing
}
