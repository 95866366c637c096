package patch

import (
	"fmt"

	"github.com/jacentio/syllabus/schema"
)

// Builder assembles Fields for one entity, checking every attribute against
// the descriptor as it is added. The first error sticks and is returned by
// Fields.
type Builder struct {
	d      *schema.Descriptor
	fields Fields
	err    error
}

// NewBuilder starts a patch for the entity described by d.
func NewBuilder(d *schema.Descriptor) *Builder {
	return &Builder{d: d, fields: make(Fields)}
}

// Set replaces attr with v. Use Merge to change a single sparse-map sub-key.
func (b *Builder) Set(attr string, v any) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.check(attr); err != nil {
		b.err = err
		return b
	}
	b.fields[attr] = v
	return b
}

// Merge sets sub-key sub of the sparse map attr, leaving other sub-keys as stored.
func (b *Builder) Merge(attr, sub string, v any) *Builder {
	if b.err != nil {
		return b
	}
	if err := b.check(attr); err != nil {
		b.err = err
		return b
	}
	if !b.d.IsSparseMap(attr) {
		b.err = fmt.Errorf("%w: %s.%s", ErrNotSparseMap, b.d.Name, attr)
		return b
	}
	if sub == "" {
		b.err = fmt.Errorf("%w: %s.%s has an empty sub-key", ErrInvalidPath, b.d.Name, attr)
		return b
	}
	m := make(map[string]any)
	if prev, ok := b.fields[attr].(map[string]any); ok {
		for k, pv := range prev {
			m[k] = pv
		}
	}
	m[sub] = v
	b.fields[attr] = m
	return b
}

// Fields returns the accumulated fields or the first error.
func (b *Builder) Fields() (Fields, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make(Fields, len(b.fields))
	for k, v := range b.fields {
		out[k] = v
	}
	return out, nil
}

func (b *Builder) check(attr string) error {
	if attr == "" {
		return fmt.Errorf("%w: empty attribute name", ErrInvalidPath)
	}
	if b.d.IsKeyAttribute(attr) {
		return fmt.Errorf("%w: %s.%s", ErrKeyFieldImmutable, b.d.Name, attr)
	}
	if !b.d.AllowsAttribute(attr) {
		return fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, b.d.Name, attr)
	}
	return nil
}
