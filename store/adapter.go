package store

import (
	"context"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
)

// Adapter is the primitive key-value contract both the live DynamoDB
// adapter and the in-memory fallback repository implement.
//
// Adapters never retry. A missing item is a nil item, not an error. Failed
// write conditions return ErrConditionFailed; every other failure of the
// underlying store is returned as a *TransportError.
type Adapter interface {
	// Get returns the item with the request key, or nil.
	Get(ctx context.Context, req GetRequest) (schema.Item, error)

	// Put writes a whole item.
	Put(ctx context.Context, req PutRequest) error

	// Update applies a compiled patch to an existing item and returns the
	// item as stored afterwards.
	Update(ctx context.Context, req UpdateRequest) (schema.Item, error)

	// Delete removes the item with the request key. Deleting a missing item
	// is not an error.
	Delete(ctx context.Context, req DeleteRequest) error

	// Query returns one page of a PathIndex plan.
	Query(ctx context.Context, req QueryRequest) (Page, error)

	// Scan returns one page of a PathScan plan.
	Scan(ctx context.Context, req QueryRequest) (Page, error)
}

// WriteCondition guards a put.
type WriteCondition int

const (
	// Unconditional overwrites whatever is stored.
	Unconditional WriteCondition = iota
	// IfNotExists fails with ErrConditionFailed when the key is taken.
	IfNotExists
	// IfExists fails with ErrConditionFailed when the key is free.
	IfExists
)

// GetRequest reads one item by primary key.
type GetRequest struct {
	Entity string
	Table  string
	Key    schema.Item
}

// PutRequest writes one item.
type PutRequest struct {
	Entity    string
	Table     string
	Item      schema.Item
	Condition WriteCondition

	// KeyAttrs names the key attributes the condition is evaluated on.
	KeyAttrs []string
}

// UpdateRequest applies a compiled patch. The item must exist.
type UpdateRequest struct {
	Entity  string
	Table   string
	Program *patch.Program

	// KeyAttrs names the key attributes the existence condition is evaluated on.
	KeyAttrs []string
}

// Key returns the program's key.
func (r UpdateRequest) Key() schema.Item { return r.Program.Key }

// DeleteRequest removes one item by primary key.
type DeleteRequest struct {
	Entity string
	Table  string
	Key    schema.Item
}

// QueryRequest runs a routed plan.
type QueryRequest struct {
	Entity string
	Table  string
	Plan   *route.Plan

	// Limit caps the number of items returned in the page.
	Limit int32

	// PageToken continues a previous page. Adapters only accept their own tokens.
	PageToken string
}

// Page is one page of query results.
type Page struct {
	Items []schema.Item

	// NextToken is empty on the last page.
	NextToken string
}
