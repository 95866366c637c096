package route

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/syllabus/schema"
)

// Op is a filter operator.
type Op int

const (
	// Equal matches attributes equal to the value.
	Equal Op = iota
	// Contains matches strings containing the value as a substring, and
	// string sets or lists containing the value as an element. The value
	// must be a string.
	Contains
	// BeginsWith matches strings with the value as a prefix. The value must
	// be a string.
	BeginsWith
)

func (o Op) String() string {
	switch o {
	case Equal:
		return "="
	case Contains:
		return "contains"
	case BeginsWith:
		return "begins_with"
	default:
		return "unknown"
	}
}

// Predicate is a caller-supplied non-key filter.
type Predicate struct {
	Attr  string
	Op    Op
	Value any
}

// Eq is shorthand for an Equal predicate.
func Eq(attr string, v any) Predicate { return Predicate{Attr: attr, Op: Equal, Value: v} }

// Has is shorthand for a Contains predicate.
func Has(attr string, v any) Predicate { return Predicate{Attr: attr, Op: Contains, Value: v} }

// Prefix is shorthand for a BeginsWith predicate.
func Prefix(attr string, v any) Predicate { return Predicate{Attr: attr, Op: BeginsWith, Value: v} }

func (p Predicate) compile() (Filter, error) {
	if p.Attr == "" {
		return Filter{}, fmt.Errorf("%w: predicate with empty attribute name", ErrInvalidConstraint)
	}
	av, err := attributevalue.Marshal(p.Value)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %s: %v", ErrInvalidConstraint, p.Attr, err)
	}
	switch p.Op {
	case Equal:
	case Contains, BeginsWith:
		if _, ok := av.(*types.AttributeValueMemberS); !ok {
			return Filter{}, fmt.Errorf("%w: %s %s needs a string, got %T", ErrInvalidConstraint, p.Attr, p.Op, p.Value)
		}
	default:
		return Filter{}, fmt.Errorf("%w: %s: unknown operator %d", ErrInvalidConstraint, p.Attr, int(p.Op))
	}
	return Filter{Attr: p.Attr, Op: p.Op, Value: av, Raw: p.Value}, nil
}

// Filter is a compiled predicate.
type Filter struct {
	Attr  string
	Op    Op
	Value types.AttributeValue

	// Raw is the value as the caller supplied it, before marshaling.
	Raw any
}

// Match evaluates the filter against item. Missing attributes never match.
func (f Filter) Match(item schema.Item) bool {
	got, ok := item[f.Attr]
	if !ok {
		return false
	}
	switch f.Op {
	case Equal:
		return schema.EqualValues(got, f.Value)
	case Contains:
		return contains(got, f.Value)
	case BeginsWith:
		return beginsWith(got, f.Value)
	default:
		return false
	}
}

func contains(got, want types.AttributeValue) bool {
	w, ok := want.(*types.AttributeValueMemberS)
	if !ok {
		return false
	}
	switch g := got.(type) {
	case *types.AttributeValueMemberS:
		return strings.Contains(g.Value, w.Value)
	case *types.AttributeValueMemberSS:
		for _, s := range g.Value {
			if s == w.Value {
				return true
			}
		}
	case *types.AttributeValueMemberL:
		for _, e := range g.Value {
			if schema.EqualValues(e, want) {
				return true
			}
		}
	}
	return false
}

func beginsWith(got, want types.AttributeValue) bool {
	g, ok := got.(*types.AttributeValueMemberS)
	if !ok {
		return false
	}
	w, ok := want.(*types.AttributeValueMemberS)
	return ok && strings.HasPrefix(g.Value, w.Value)
}
