package patch

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/syllabus/internal/clock"
	"github.com/jacentio/syllabus/schema"
)

var (
	// ErrKeyFieldImmutable is returned when a patch names a primary key attribute.
	ErrKeyFieldImmutable = errors.New("syllabus: key attribute is immutable")

	// ErrEmptyPatch is returned when a patch contains no updatable fields.
	ErrEmptyPatch = errors.New("syllabus: patch has no updatable fields")

	// ErrUnknownAttribute is returned when a patch names an attribute the descriptor does not allow.
	ErrUnknownAttribute = errors.New("syllabus: unknown attribute")

	// ErrNotSparseMap is returned when a sub-key merge targets an attribute not declared as a sparse map.
	ErrNotSparseMap = errors.New("syllabus: attribute is not a sparse map")

	// ErrInvalidPath is returned for empty attribute names or sub-keys, or
	// when a merge addresses a stored attribute that is not a map.
	ErrInvalidPath = errors.New("syllabus: invalid attribute path")

	// ErrInvalidValue is returned when a value cannot be marshaled to an attribute value.
	ErrInvalidValue = errors.New("syllabus: invalid attribute value")
)

// Operation is one compiled SET action.
type Operation struct {
	// Path is the real dotted path ("title" or "assessments.preQuiz").
	Path string

	// Names are the placeholders for each path segment ("#f0", "#f1").
	Names []string

	// Value is the value placeholder (":v0").
	Value string

	// Kind is Replace or MergeKey.
	Kind MergeKind

	// Clause is the typed clause the operation was compiled from.
	Clause Clause
}

// Expr renders the operation as "#f0.#f1 = :v0".
func (o Operation) Expr() string {
	return strings.Join(o.Names, ".") + " = " + o.Value
}

// Program is a compiled patch ready for UpdateItem.
type Program struct {
	// Entity is the descriptor name.
	Entity string

	// Key is the primary key of the item being patched.
	Key schema.Item

	// Operations are the SET actions in order; the last always sets updatedAt.
	Operations []Operation

	// Names maps name placeholders to attribute names.
	Names map[string]string

	// Values maps value placeholders to values.
	Values map[string]types.AttributeValue

	// UpdatedAt is the timestamp written by the trailing clause.
	UpdatedAt time.Time
}

// Expression returns the UpdateExpression.
func (p *Program) Expression() string {
	parts := make([]string, len(p.Operations))
	for i, op := range p.Operations {
		parts[i] = op.Expr()
	}
	return "SET " + strings.Join(parts, ", ")
}

// Clauses returns the typed clauses, excluding the trailing updatedAt clause.
func (p *Program) Clauses() []Clause {
	out := make([]Clause, 0, len(p.Operations))
	for _, op := range p.Operations[:len(p.Operations)-1] {
		out = append(out, op.Clause)
	}
	return out
}

// Compile validates fields against d and compiles them into a Program that
// patches the item identified by key, stamping updatedAt with now.
//
// Fields are processed in name order and sparse-map sub-keys in key order,
// so the same input always yields the same program.
func Compile(d *schema.Descriptor, key schema.Item, fields Fields, now time.Time) (*Program, error) {
	k, err := d.ExtractKey(key)
	if err != nil {
		return nil, err
	}

	clauses, err := Clauses(d, fields)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPatch, d.Name)
	}

	p := &Program{
		Entity:    d.Name,
		Key:       k,
		Names:     make(map[string]string),
		Values:    make(map[string]types.AttributeValue),
		UpdatedAt: now,
	}
	a := &aliaser{names: p.Names, byName: make(map[string]string)}

	clauses = append(clauses, ReplaceClause{Attr: UpdatedAtAttr, Value: clock.Format(now)})
	for i, c := range clauses {
		av, err := attributevalue.Marshal(c.value())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, c.Path(), err)
		}
		valueKey := ":v" + strconv.Itoa(i)
		p.Values[valueKey] = av

		var names []string
		switch c := c.(type) {
		case ReplaceClause:
			names = []string{a.alias(c.Attr)}
		case MergeKeyClause:
			names = []string{a.alias(c.ParentAttr), a.alias(c.SubKey)}
		}
		p.Operations = append(p.Operations, Operation{
			Path:   c.Path(),
			Names:  names,
			Value:  valueKey,
			Kind:   c.Kind(),
			Clause: c,
		})
	}
	return p, nil
}

// Clauses validates fields against d and returns the typed clauses they
// produce, without placeholders or the updatedAt clause.
func Clauses(d *schema.Descriptor, fields Fields) ([]Clause, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var clauses []Clause
	for _, name := range names {
		v := fields[name]
		if name == "" {
			return nil, fmt.Errorf("%w: empty attribute name", ErrInvalidPath)
		}
		if d.IsKeyAttribute(name) {
			return nil, fmt.Errorf("%w: %s.%s", ErrKeyFieldImmutable, d.Name, name)
		}
		if !d.AllowsAttribute(name) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, d.Name, name)
		}
		// Managed by the store.
		if name == CreatedAtAttr || name == UpdatedAtAttr {
			continue
		}
		if IsUndefined(v) {
			continue
		}

		if d.IsSparseMap(name) {
			if keys, entries, ok := mapEntries(v); ok {
				for _, sub := range keys {
					sv := entries[sub]
					if IsUndefined(sv) {
						continue
					}
					if sub == "" {
						return nil, fmt.Errorf("%w: %s.%s has an empty sub-key", ErrInvalidPath, d.Name, name)
					}
					clauses = append(clauses, MergeKeyClause{ParentAttr: name, SubKey: sub, Value: sv})
				}
				continue
			}
		}
		clauses = append(clauses, ReplaceClause{Attr: name, Value: v})
	}
	return clauses, nil
}

// aliaser hands out #fN placeholders, one per distinct attribute name.
type aliaser struct {
	names  map[string]string
	byName map[string]string
}

func (a *aliaser) alias(name string) string {
	if ph, ok := a.byName[name]; ok {
		return ph
	}
	ph := "#f" + strconv.Itoa(len(a.byName))
	a.byName[name] = ph
	a.names[ph] = name
	return ph
}
