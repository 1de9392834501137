package builder

import (
	"fmt"
	"strings"

	"checkline/internal/domain"
)

// Document is the editable procedure aggregate: metadata setters with
// local validation plus the field list, which is only ever touched
// through the Builder operations. Entering an edit session snapshots
// the committed state; Discard restores it wholesale.
type Document struct {
	Proc       domain.Procedure
	Selected   int
	Categories []string // allowed category set, seeded by config

	builder  Builder
	snapshot *domain.Procedure
}

// NewDocument wraps a procedure for editing. categories is the closed
// set SetCategory validates against; an empty set disables the check.
func NewDocument(p domain.Procedure, b Builder, categories []string) *Document {
	return &Document{Proc: p, Selected: NoSelection, Categories: categories, builder: b}
}

func (d *Document) SetTitle(title string) {
	d.Proc.Title = title
}

func (d *Document) SetDescription(desc string) {
	d.Proc.Description = desc
}

// SetCategory rejects values outside the configured category set.
func (d *Document) SetCategory(category string) error {
	if len(d.Categories) > 0 {
		found := false
		for _, c := range d.Categories {
			if c == category {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown category %q", category)
		}
	}
	d.Proc.Category = category
	return nil
}

// AddTag rejects blank and duplicate tags.
func (d *Document) AddTag(tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("tag must not be blank")
	}
	for _, t := range d.Proc.Tags {
		if t == tag {
			return fmt.Errorf("tag %q already present", tag)
		}
	}
	d.Proc.Tags = append(d.Proc.Tags, tag)
	return nil
}

func (d *Document) RemoveTag(tag string) {
	out := d.Proc.Tags[:0]
	for _, t := range d.Proc.Tags {
		if t != tag {
			out = append(out, t)
		}
	}
	d.Proc.Tags = out
}

func (d *Document) SetGlobal(global bool) {
	d.Proc.IsGlobal = global
}

// ValidateForSave checks what must hold before the document is handed
// to the persistence boundary.
func (d *Document) ValidateForSave() error {
	if strings.TrimSpace(d.Proc.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// Field list commands, delegating to the pure Builder operations.

func (d *Document) AddField(t domain.FieldType, opts *domain.FieldOptions) {
	d.Proc.Fields, d.Selected = d.builder.AddField(d.Proc.Fields, t, opts)
}

func (d *Document) AddSection() {
	d.Proc.Fields, d.Selected = d.builder.AddSection(d.Proc.Fields)
}

func (d *Document) AddHeading() {
	d.Proc.Fields, d.Selected = d.builder.AddHeading(d.Proc.Fields)
}

func (d *Document) UpdateField(index int, patch FieldPatch) {
	d.Proc.Fields = d.builder.UpdateField(d.Proc.Fields, index, patch)
}

func (d *Document) RemoveField(index int) {
	d.Proc.Fields, d.Selected = d.builder.RemoveField(d.Proc.Fields, index, d.Selected)
}

func (d *Document) DuplicateField(index int) {
	d.Proc.Fields = d.builder.DuplicateField(d.Proc.Fields, index)
}

func (d *Document) MoveField(index int, dir Direction) {
	d.Proc.Fields, d.Selected = d.builder.MoveField(d.Proc.Fields, index, dir, d.Selected)
}

func (d *Document) ReorderFields(from, to int) {
	d.Proc.Fields, d.Selected = d.builder.ReorderFields(d.Proc.Fields, from, to, d.Selected)
}

// Snapshot records the current state so a later Discard can restore
// it. Taking a new snapshot replaces the previous one.
func (d *Document) Snapshot() {
	p := d.Proc
	p.Tags = append([]string{}, d.Proc.Tags...)
	p.Fields = CopyFields(d.Proc.Fields)
	d.snapshot = &p
}

// Discard restores the last snapshot in full. Without a snapshot it is
// a no-op.
func (d *Document) Discard() {
	if d.snapshot == nil {
		return
	}
	d.Proc = *d.snapshot
	d.Proc.Tags = append([]string{}, d.snapshot.Tags...)
	d.Proc.Fields = CopyFields(d.snapshot.Fields)
	d.Selected = NoSelection
}
