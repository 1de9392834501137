// Package fields defines the closed set of procedure field types and
// the shape of their option payloads. Everything here is a pure
// lookup; no state, no I/O.
package fields

import (
	"fmt"

	"checkline/internal/domain"
)

// Styles accepted for section and info blocks.
const (
	SectionStyleSimple = "simple"
	SectionStyleCard   = "card"
	InfoStyleHeading   = "heading"
	InfoSizeLarge      = "large"
)

var all = []domain.FieldType{
	domain.FieldText,
	domain.FieldNumber,
	domain.FieldCheckbox,
	domain.FieldSelect,
	domain.FieldMultiselect,
	domain.FieldSection,
	domain.FieldInfo,
}

// Types returns every known field type in declaration order.
func Types() []domain.FieldType {
	out := make([]domain.FieldType, len(all))
	copy(out, all)
	return out
}

// Known reports whether t is one of the registered field types.
func Known(t domain.FieldType) bool {
	for _, ft := range all {
		if ft == t {
			return true
		}
	}
	return false
}

// Answerable reports whether a field of this type takes an answer.
// Section headers and info blocks are layout only.
func Answerable(t domain.FieldType) bool {
	switch t {
	case domain.FieldSection, domain.FieldInfo:
		return false
	default:
		return true
	}
}

// DefaultOptions returns the option payload a freshly created field of
// this type starts with.
func DefaultOptions(t domain.FieldType) domain.FieldOptions {
	switch t {
	case domain.FieldSelect, domain.FieldMultiselect:
		return domain.FieldOptions{Choices: []string{}}
	case domain.FieldSection:
		collapsible := false
		return domain.FieldOptions{Collapsible: &collapsible}
	case domain.FieldInfo:
		style := InfoStyleHeading
		size := InfoSizeLarge
		return domain.FieldOptions{Style: &style, Size: &size}
	default:
		return domain.FieldOptions{}
	}
}

// Normalize strips option keys that do not belong to the given type so
// a payload can never carry another type's options. AttachedFile is
// kept for every type.
func Normalize(t domain.FieldType, o domain.FieldOptions) domain.FieldOptions {
	out := domain.FieldOptions{AttachedFile: o.AttachedFile}
	switch t {
	case domain.FieldSelect, domain.FieldMultiselect:
		out.Choices = o.Choices
	case domain.FieldSection:
		out.Description = o.Description
		out.Collapsible = o.Collapsible
		out.DefaultCollapsed = o.DefaultCollapsed
		out.Style = o.Style
	case domain.FieldInfo:
		out.Style = o.Style
		out.Size = o.Size
	}
	return out
}

// Merge overlays patch onto base one level deep: keys present in the
// patch replace the base value, absent keys keep it. The result is
// normalized for the given type.
func Merge(t domain.FieldType, base, patch domain.FieldOptions) domain.FieldOptions {
	out := base
	if patch.Choices != nil {
		out.Choices = patch.Choices
	}
	if patch.Description != nil {
		out.Description = patch.Description
	}
	if patch.Collapsible != nil {
		out.Collapsible = patch.Collapsible
	}
	if patch.DefaultCollapsed != nil {
		out.DefaultCollapsed = patch.DefaultCollapsed
	}
	if patch.Style != nil {
		out.Style = patch.Style
	}
	if patch.Size != nil {
		out.Size = patch.Size
	}
	if patch.AttachedFile != nil {
		out.AttachedFile = patch.AttachedFile
	}
	return Normalize(t, out)
}

// Complete reports whether a field's options are structurally complete
// for answering. A select without choices is a legal draft but cannot
// be answered meaningfully; it is flagged, not rejected.
func Complete(f domain.ProcedureField) bool {
	switch f.FieldType {
	case domain.FieldSelect, domain.FieldMultiselect:
		return len(f.Options.Choices) > 0
	default:
		return true
	}
}

// Validate checks structural validity of a field's type and options.
func Validate(f domain.ProcedureField) error {
	if !Known(f.FieldType) {
		return fmt.Errorf("unknown field type %q", f.FieldType)
	}
	switch f.FieldType {
	case domain.FieldSelect, domain.FieldMultiselect:
		for i, c := range f.Options.Choices {
			if c == "" {
				return fmt.Errorf("%s field has empty choice at index %d", f.FieldType, i)
			}
		}
	case domain.FieldSection:
		if f.Options.Style != nil && *f.Options.Style != SectionStyleSimple && *f.Options.Style != SectionStyleCard {
			return fmt.Errorf("section style must be %q or %q", SectionStyleSimple, SectionStyleCard)
		}
	}
	return nil
}
