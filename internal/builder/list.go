// Package builder holds the pure edit operations behind the procedure
// editor: an ordered field list with insert/remove/duplicate/reorder
// commands, and the document aggregate wrapping it. Operations never
// mutate their input; callers own the state and feed each result back
// in, so the package stays free of any rendering or persistence
// concern.
package builder

import (
	"time"

	"checkline/internal/domain"
	"checkline/internal/fields"
)

// NoSelection marks that no field is currently selected.
const NoSelection = -1

// Direction for MoveField.
type Direction string

const (
	MoveUp   Direction = "up"
	MoveDown Direction = "down"
)

// Builder carries the injected capabilities every list operation
// needs. Ids and time come from the caller so the operations stay
// deterministic under test.
type Builder struct {
	NewID func() string
	Now   func() time.Time
}

func (b Builder) now() string {
	if b.Now != nil {
		return b.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// FieldPatch is a partial update for one field. Nil members are left
// untouched; Options merges one level deep so updating a single
// option key keeps its siblings.
type FieldPatch struct {
	Label      *string
	FieldType  *domain.FieldType
	IsRequired *bool
	Options    *domain.FieldOptions
}

// AddField appends a field of the given type and returns the new list
// plus the index of the appended field, which becomes the selection.
// Option overrides are merged over the registry defaults.
func (b Builder) AddField(list []domain.ProcedureField, t domain.FieldType, opts *domain.FieldOptions) ([]domain.ProcedureField, int) {
	label := "New Field"
	if t == domain.FieldSection {
		label = "New Section"
	}
	options := fields.DefaultOptions(t)
	if opts != nil {
		options = fields.Merge(t, options, *opts)
	}
	now := b.now()
	f := domain.ProcedureField{
		ID:         b.NewID(),
		Label:      label,
		FieldType:  t,
		OrderIndex: len(list),
		Options:    options,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	out := append(copyList(list), f)
	return out, len(out) - 1
}

// AddSection appends a section header with its default options.
func (b Builder) AddSection(list []domain.ProcedureField) ([]domain.ProcedureField, int) {
	return b.AddField(list, domain.FieldSection, nil)
}

// AddHeading appends an info block styled as a large heading.
func (b Builder) AddHeading(list []domain.ProcedureField) ([]domain.ProcedureField, int) {
	return b.AddField(list, domain.FieldInfo, nil)
}

// UpdateField shallow-merges patch into the field at index. Id and
// order index never change. Out-of-range indices leave the list
// untouched.
func (b Builder) UpdateField(list []domain.ProcedureField, index int, patch FieldPatch) []domain.ProcedureField {
	if index < 0 || index >= len(list) {
		return list
	}
	out := copyList(list)
	f := copyField(out[index])
	if patch.Label != nil {
		f.Label = *patch.Label
	}
	if patch.IsRequired != nil {
		f.IsRequired = *patch.IsRequired
	}
	t := f.FieldType
	if patch.FieldType != nil {
		t = *patch.FieldType
	}
	opts := f.Options
	if t != f.FieldType {
		// Changing type re-bases options on the new type's defaults;
		// surviving shared keys carry over, alien keys are stripped.
		opts = fields.Merge(t, fields.DefaultOptions(t), opts)
		f.FieldType = t
	}
	if patch.Options != nil {
		opts = fields.Merge(t, opts, *patch.Options)
	}
	f.Options = opts
	f.UpdatedAt = b.now()
	out[index] = f
	return out
}

// RemoveField deletes the field at index and reindexes everything
// after it. A removed selection is cleared, not shifted to a
// neighbor.
func (b Builder) RemoveField(list []domain.ProcedureField, index, selected int) ([]domain.ProcedureField, int) {
	if index < 0 || index >= len(list) {
		return list, selected
	}
	out := make([]domain.ProcedureField, 0, len(list)-1)
	out = append(out, list[:index]...)
	out = append(out, list[index+1:]...)
	out = reindex(out)
	if selected == index {
		selected = NoSelection
	}
	return out, selected
}

// DuplicateField inserts a deep copy right after index with a fresh
// id, a " (Copy)" label suffix and reset timestamps. Fields before the
// copy keep their order index; the copy and everything after shift up
// by one.
func (b Builder) DuplicateField(list []domain.ProcedureField, index int) []domain.ProcedureField {
	if index < 0 || index >= len(list) {
		return list
	}
	dup := copyField(list[index])
	dup.ID = b.NewID()
	dup.Label = dup.Label + " (Copy)"
	now := b.now()
	dup.CreatedAt = now
	dup.UpdatedAt = now
	out := make([]domain.ProcedureField, 0, len(list)+1)
	out = append(out, list[:index+1]...)
	out = append(out, dup)
	out = append(out, list[index+1:]...)
	return reindex(out)
}

// MoveField swaps the field at index with its neighbor in the given
// direction. Moves past either end are no-ops. A selection on the
// moved field follows it.
func (b Builder) MoveField(list []domain.ProcedureField, index int, dir Direction, selected int) ([]domain.ProcedureField, int) {
	if index < 0 || index >= len(list) {
		return list, selected
	}
	target := index - 1
	if dir == MoveDown {
		target = index + 1
	}
	if target < 0 || target >= len(list) {
		return list, selected
	}
	out := copyList(list)
	out[index], out[target] = out[target], out[index]
	out = reindex(out)
	if selected == index {
		selected = target
	}
	return out, selected
}

// ReorderFields removes the field at from and re-inserts it at to with
// splice semantics: everything between the two positions shifts by
// one. Out-of-range indices are no-ops. Selection tracking mirrors
// MoveField.
func (b Builder) ReorderFields(list []domain.ProcedureField, from, to, selected int) ([]domain.ProcedureField, int) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return list, selected
	}
	if from == to {
		return list, selected
	}
	out := copyList(list)
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	rest := append([]domain.ProcedureField{}, out[to:]...)
	out = append(out[:to], moved)
	out = append(out, rest...)
	out = reindex(out)
	if selected == from {
		selected = to
	}
	return out, selected
}

// reindex restores the order invariant: each field's OrderIndex equals
// its position, forming the contiguous range 0..n-1.
func reindex(list []domain.ProcedureField) []domain.ProcedureField {
	for i := range list {
		list[i].OrderIndex = i
	}
	return list
}

func copyList(list []domain.ProcedureField) []domain.ProcedureField {
	out := make([]domain.ProcedureField, len(list))
	copy(out, list)
	return out
}

// copyField deep-copies one field, including option slices and
// pointers, so edits to the copy never bleed into the original.
func copyField(f domain.ProcedureField) domain.ProcedureField {
	out := f
	if f.Options.Choices != nil {
		out.Options.Choices = append([]string{}, f.Options.Choices...)
	}
	out.Options.Description = copyPtr(f.Options.Description)
	out.Options.Collapsible = copyPtr(f.Options.Collapsible)
	out.Options.DefaultCollapsed = copyPtr(f.Options.DefaultCollapsed)
	out.Options.Style = copyPtr(f.Options.Style)
	out.Options.Size = copyPtr(f.Options.Size)
	if f.Options.AttachedFile != nil {
		ref := *f.Options.AttachedFile
		out.Options.AttachedFile = &ref
	}
	return out
}

// CopyFields deep-copies a whole field list.
func CopyFields(list []domain.ProcedureField) []domain.ProcedureField {
	out := make([]domain.ProcedureField, len(list))
	for i, f := range list {
		out[i] = copyField(f)
	}
	return out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
