// Package route picks the access path for a query: a direct key lookup, the
// first secondary index whose partition attribute is constrained, or a full
// table scan.
//
// Routing is a pure function of the entity descriptor and the constraint
// set. Index registration order breaks ties, so reordering a descriptor's
// indexes changes which index serves a query.
package route

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/syllabus/schema"
)

var (
	// ErrUnroutableQuery is returned when a query would need a scan and the
	// call site disallowed scans.
	ErrUnroutableQuery = errors.New("syllabus: query matches no key or index and scans are disallowed")

	// ErrInvalidConstraint is returned when a constraint or predicate value
	// cannot be marshaled, or names no attribute.
	ErrInvalidConstraint = errors.New("syllabus: invalid query constraint")
)

// PathKind is the access path a plan uses.
type PathKind int

const (
	// PathKey is a direct primary key lookup.
	PathKey PathKind = iota
	// PathIndex is a query against a secondary index.
	PathIndex
	// PathScan is a full table scan.
	PathScan
)

func (k PathKind) String() string {
	switch k {
	case PathKey:
		return "key"
	case PathIndex:
		return "index"
	case PathScan:
		return "scan"
	default:
		return "unknown"
	}
}

// Spec is a query against one entity.
type Spec struct {
	// Entity is the descriptor name.
	Entity string

	// Constraints are known attribute values. They drive routing; those not
	// consumed by the key condition become equality filters.
	Constraints map[string]any

	// Predicates are non-key filters. They never influence routing.
	Predicates []Predicate

	// Limit caps the page size. Zero means the store default.
	Limit int32

	// PageToken continues a previous query.
	PageToken string

	// NoScan makes a query that would need a scan fail with ErrUnroutableQuery.
	NoScan bool
}

// Condition is an equality condition on a key attribute.
type Condition struct {
	Attr  string
	Value types.AttributeValue

	// Raw is the value as the caller supplied it, before marshaling.
	Raw any
}

// Plan is a routed query.
type Plan struct {
	Entity string
	Table  string
	Kind   PathKind

	// Index is the secondary index name for PathIndex.
	Index string

	// Key holds the full primary key for PathKey.
	Key schema.Item

	// Partition and Sort are the key conditions for PathIndex. Sort is nil
	// when the index sort attribute was not constrained.
	Partition *Condition
	Sort      *Condition

	// SortAttr is the index sort attribute, set even when Sort is nil, so
	// results can be ordered the way the index orders them.
	SortAttr string

	// Filters apply after the key condition, in order.
	Filters []Filter

	// Expensive flags a full scan.
	Expensive bool
}

// Route resolves spec against d.
func Route(d *schema.Descriptor, spec Spec) (*Plan, error) {
	constraints := make(map[string]types.AttributeValue, len(spec.Constraints))
	raw := spec.Constraints
	for attr, v := range spec.Constraints {
		if attr == "" {
			return nil, fmt.Errorf("%w: empty attribute name", ErrInvalidConstraint)
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConstraint, attr, err)
		}
		constraints[attr] = av
	}

	p := &Plan{Entity: d.Name, Table: d.Table}
	consumed := make(map[string]bool, 2)

	switch {
	case hasAll(constraints, d.KeyAttributes()):
		key, err := d.ExtractKey(constraints)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConstraint, err)
		}
		p.Kind = PathKey
		p.Key = key
		for attr := range key {
			consumed[attr] = true
		}

	default:
		idx, ok := firstIndex(d, constraints)
		if ok {
			p.Kind = PathIndex
			p.Index = idx.Name
			p.SortAttr = idx.Sort
			p.Partition = &Condition{Attr: idx.Partition, Value: constraints[idx.Partition], Raw: raw[idx.Partition]}
			consumed[idx.Partition] = true
			if v, ok := constraints[idx.Sort]; ok && idx.Sort != "" {
				p.Sort = &Condition{Attr: idx.Sort, Value: v, Raw: raw[idx.Sort]}
				consumed[idx.Sort] = true
			}
			break
		}
		if spec.NoScan {
			return nil, fmt.Errorf("%w: %s", ErrUnroutableQuery, d.Name)
		}
		p.Kind = PathScan
		p.Expensive = true
	}

	residual := make([]string, 0, len(constraints))
	for attr := range constraints {
		if !consumed[attr] {
			residual = append(residual, attr)
		}
	}
	sort.Strings(residual)
	for _, attr := range residual {
		p.Filters = append(p.Filters, Filter{Attr: attr, Op: Equal, Value: constraints[attr], Raw: raw[attr]})
	}

	for _, pr := range spec.Predicates {
		f, err := pr.compile()
		if err != nil {
			return nil, err
		}
		p.Filters = append(p.Filters, f)
	}
	return p, nil
}

func firstIndex(d *schema.Descriptor, constraints map[string]types.AttributeValue) (schema.IndexDescriptor, bool) {
	for _, idx := range d.Indexes {
		if _, ok := constraints[idx.Partition]; ok {
			return idx, true
		}
	}
	return schema.IndexDescriptor{}, false
}

func hasAll(constraints map[string]types.AttributeValue, attrs []string) bool {
	for _, a := range attrs {
		if _, ok := constraints[a]; !ok {
			return false
		}
	}
	return true
}
