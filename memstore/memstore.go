// Package memstore is the in-memory repository that serves the store while
// it is degraded.
//
// It implements store.Adapter over seeded records, evaluating the same
// routed plans the DynamoDB adapter receives, so a degraded session sees
// results shaped exactly like live ones. Writes made while degraded mutate
// the records in place.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/syllabus/internal/cursor"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

// Repository holds fallback records per entity, in seeded order.
type Repository struct {
	registry *schema.Registry

	mu      sync.RWMutex
	records map[string][]schema.Item
}

var _ store.Adapter = (*Repository)(nil)

// New creates an empty repository for the entities in registry.
func New(registry *schema.Registry) *Repository {
	return &Repository{
		registry: registry,
		records:  make(map[string][]schema.Item),
	}
}

// Seed appends items to an entity's records. Every item must carry the full
// primary key and keys must be unique.
func (r *Repository) Seed(entity string, items ...schema.Item) error {
	d, err := r.registry.Describe(entity)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		key, err := d.ExtractKey(item)
		if err != nil {
			return fmt.Errorf("seed %s: %w", entity, err)
		}
		if r.find(d.Name, key) >= 0 {
			return fmt.Errorf("seed %s: duplicate key %v", entity, formatKey(key))
		}
		r.records[d.Name] = append(r.records[d.Name], copyItem(item))
	}
	return nil
}

// SeedRecords marshals each record with attributevalue.MarshalMap and seeds it.
func (r *Repository) SeedRecords(entity string, records ...any) error {
	items := make([]schema.Item, 0, len(records))
	for i, rec := range records {
		item, err := attributevalue.MarshalMap(rec)
		if err != nil {
			return fmt.Errorf("seed %s[%d]: %w", entity, i, err)
		}
		items = append(items, item)
	}
	return r.Seed(entity, items...)
}

// Snapshot returns a copy of an entity's records in order.
func (r *Repository) Snapshot(entity string) []schema.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Item, len(r.records[entity]))
	for i, item := range r.records[entity] {
		out[i] = copyItem(item)
	}
	return out
}

// Len returns the number of records held for entity.
func (r *Repository) Len(entity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records[entity])
}

// Get implements store.Adapter.
func (r *Repository) Get(ctx context.Context, req store.GetRequest) (schema.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.find(req.Entity, req.Key); i >= 0 {
		return copyItem(r.records[req.Entity][i]), nil
	}
	return nil, nil
}

// Put implements store.Adapter. A replaced item keeps its position.
func (r *Repository) Put(ctx context.Context, req store.PutRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := r.registry.Describe(req.Entity)
	if err != nil {
		return err
	}
	key, err := d.ExtractKey(req.Item)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(d.Name, key)
	switch {
	case req.Condition == store.IfNotExists && i >= 0:
		return fmt.Errorf("%w: %s %s exists", store.ErrConditionFailed, d.Name, formatKey(key))
	case req.Condition == store.IfExists && i < 0:
		return fmt.Errorf("%w: %s %s does not exist", store.ErrConditionFailed, d.Name, formatKey(key))
	}
	if i >= 0 {
		r.records[d.Name][i] = copyItem(req.Item)
		return nil
	}
	r.records[d.Name] = append(r.records[d.Name], copyItem(req.Item))
	return nil
}

// Update implements store.Adapter by applying the compiled program the same
// way DynamoDB evaluates the rendered expression.
func (r *Repository) Update(ctx context.Context, req store.UpdateRequest) (schema.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.find(req.Entity, req.Key())
	if i < 0 {
		return nil, fmt.Errorf("%w: %s %s does not exist", store.ErrConditionFailed, req.Entity, formatKey(req.Key()))
	}
	out, err := req.Program.Apply(r.records[req.Entity][i])
	if err != nil {
		return nil, err
	}
	r.records[req.Entity][i] = out
	return copyItem(out), nil
}

// Delete implements store.Adapter. Remaining records keep their order.
func (r *Repository) Delete(ctx context.Context, req store.DeleteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.find(req.Entity, req.Key); i >= 0 {
		recs := r.records[req.Entity]
		r.records[req.Entity] = append(recs[:i:i], recs[i+1:]...)
	}
	return nil
}

// Query implements store.Adapter. Matches are ordered by the index sort
// attribute, ties in seeded order; records lacking the sort attribute are
// not part of the index.
func (r *Repository) Query(ctx context.Context, req store.QueryRequest) (store.Page, error) {
	return r.page(ctx, req)
}

// Scan implements store.Adapter. Matches keep seeded order.
func (r *Repository) Scan(ctx context.Context, req store.QueryRequest) (store.Page, error) {
	return r.page(ctx, req)
}

func (r *Repository) page(ctx context.Context, req store.QueryRequest) (store.Page, error) {
	if err := ctx.Err(); err != nil {
		return store.Page{}, err
	}
	plan := req.Plan
	fp := cursor.Fingerprint(req.Entity, plan.String())
	offset, err := cursor.DecodeOffset(req.PageToken, fp)
	if err != nil {
		return store.Page{}, fmt.Errorf("%w: %v", store.ErrInvalidPageToken, err)
	}

	r.mu.RLock()
	var matched []schema.Item
	for _, item := range r.records[req.Entity] {
		if plan.Kind == route.PathIndex && plan.SortAttr != "" {
			if _, ok := item[plan.SortAttr]; !ok {
				continue
			}
		}
		if plan.Match(item) {
			matched = append(matched, copyItem(item))
		}
	}
	r.mu.RUnlock()

	if plan.Kind == route.PathIndex && plan.SortAttr != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			return schema.CompareValues(matched[i][plan.SortAttr], matched[j][plan.SortAttr]) < 0
		})
	}

	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if req.Limit > 0 && offset+int(req.Limit) < end {
		end = offset + int(req.Limit)
	}

	p := store.Page{Items: matched[offset:end]}
	if end < len(matched) {
		p.NextToken = cursor.EncodeOffset(fp, end)
	}
	return p, nil
}

// find returns the index of the record with key, or -1. Callers hold mu.
func (r *Repository) find(entity string, key schema.Item) int {
	for i, item := range r.records[entity] {
		if keyMatches(item, key) {
			return i
		}
	}
	return -1
}

func keyMatches(item, key schema.Item) bool {
	for attr, v := range key {
		got, ok := item[attr]
		if !ok || !schema.EqualValues(got, v) {
			return false
		}
	}
	return len(key) > 0
}

func copyItem(item schema.Item) schema.Item {
	out := make(schema.Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func formatKey(key schema.Item) string {
	attrs := make([]string, 0, len(key))
	for a := range key {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	s := ""
	for i, a := range attrs {
		if i > 0 {
			s += " "
		}
		s += a + "=" + schema.FormatValue(key[a])
	}
	return "{" + s + "}"
}
