// Package patch compiles partial entity updates into DynamoDB SET programs.
//
// A patch is a set of fields to change. Top-level fields become Replace
// clauses; map values for attributes the descriptor declares as sparse maps
// become one MergeKey clause per sub-key, so sibling sub-keys already stored
// are left untouched. Every attribute name is aliased (#f0, #f1, ...) and every
// value is bound (:v0, :v1, ...), so reserved words never reach the expression.
package patch

import (
	"reflect"
	"sort"
)

// Reserved attributes maintained by the store itself.
const (
	CreatedAtAttr = "createdAt"
	UpdatedAtAttr = "updatedAt"
)

// Fields is a partial entity: attribute name to new value.
//
// A nil value sets the attribute to null. Undefined leaves it unchanged.
type Fields map[string]any

type undefined struct{}

// Undefined marks a field as "no change". Fields holding it are skipped.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// MergeKind says how a clause combines with the stored value.
type MergeKind int

const (
	// Replace overwrites the whole attribute.
	Replace MergeKind = iota
	// MergeKey sets a single sub-key of a map attribute.
	MergeKey
)

func (k MergeKind) String() string {
	switch k {
	case Replace:
		return "Replace"
	case MergeKey:
		return "MergeKey"
	default:
		return "Unknown"
	}
}

// Clause is a typed patch instruction, validated before placeholders exist.
type Clause interface {
	// Path returns the dotted attribute path.
	Path() string
	// Kind returns the merge kind.
	Kind() MergeKind

	value() any
}

// ReplaceClause replaces a top-level attribute.
type ReplaceClause struct {
	Attr  string
	Value any
}

func (c ReplaceClause) Path() string    { return c.Attr }
func (c ReplaceClause) Kind() MergeKind { return Replace }
func (c ReplaceClause) value() any      { return c.Value }

// MergeKeyClause sets one sub-key of a sparse map attribute.
type MergeKeyClause struct {
	ParentAttr string
	SubKey     string
	Value      any
}

func (c MergeKeyClause) Path() string    { return c.ParentAttr + "." + c.SubKey }
func (c MergeKeyClause) Kind() MergeKind { return MergeKey }
func (c MergeKeyClause) value() any      { return c.Value }

// mapEntries returns the entries of a string-keyed map in key order, or
// ok=false if v is not such a map.
func mapEntries(v any) (keys []string, vals map[string]any, ok bool) {
	if v == nil {
		return nil, nil, false
	}
	if m, isMap := v.(map[string]any); isMap {
		keys = make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, m, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, nil, false
	}
	vals = make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		keys = append(keys, k)
		vals[k] = iter.Value().Interface()
	}
	sort.Strings(keys)
	return keys, vals, true
}
