// Package template derives reusable templates from procedures and
// instantiates procedures from them.
package template

import (
	"sort"
	"time"

	"checkline/internal/builder"
	"checkline/internal/domain"
)

// FromProcedure snapshots a procedure into a template. Field ids and
// timestamps are stripped; they are regenerated on apply. The snapshot
// deep-copies fields so later edits to the source document never leak
// in.
func FromProcedure(p domain.Procedure, name string, isPublic bool) domain.Template {
	fields := builder.CopyFields(p.Fields)
	for i := range fields {
		fields[i].ID = ""
		fields[i].CreatedAt = ""
		fields[i].UpdatedAt = ""
	}
	return domain.Template{
		Name:        name,
		Description: p.Description,
		Category:    p.Category,
		Tags:        append([]string{}, p.Tags...),
		IsPublic:    isPublic,
		Fields:      fields,
	}
}

// Apply instantiates a new procedure from a template. Every field gets
// a fresh id and timestamps, and order indexes are re-derived from the
// stored order: templates may have been edited or reordered
// independently of any live document, so stored indexes are trusted
// only for relative order.
func Apply(t domain.Template, newID func() string, now time.Time) domain.Procedure {
	fields := builder.CopyFields(t.Fields)
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].OrderIndex < fields[j].OrderIndex
	})
	ts := now.UTC().Format(time.RFC3339)
	for i := range fields {
		fields[i].ID = newID()
		fields[i].OrderIndex = i
		fields[i].CreatedAt = ts
		fields[i].UpdatedAt = ts
	}
	return domain.Procedure{
		ID:          newID(),
		Title:       t.Name,
		Description: t.Description,
		Category:    t.Category,
		Tags:        append([]string{}, t.Tags...),
		Fields:      fields,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}
