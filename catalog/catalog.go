// Package catalog defines the training-admin entities and their typed
// operations: courses, customers, catalog items and quizzes.
//
// Each entity has a descriptor registered with a schema.Registry, a Go type
// tagged for attributevalue, a repository whose methods return
// store.Result values, and a patch builder that checks attribute names
// before any call reaches the store.
//
//	reg, _ := catalog.NewRegistry()
//	st := store.New(reg, live, store.DefaultConfig(), store.WithFallback(fallback))
//	courses := catalog.NewCourses(st)
//	res, err := courses.ListByCatalog(ctx, "cat-go")
package catalog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

// Entity names.
const (
	EntityCourse      = "Course"
	EntityCustomer    = "Customer"
	EntityCatalogItem = "CatalogItem"
	EntityQuiz        = "Quiz"
)

// Descriptors returns the descriptors of every catalog entity, in
// registration order.
func Descriptors() []schema.Descriptor {
	return []schema.Descriptor{
		courseDescriptor,
		customerDescriptor,
		catalogItemDescriptor,
		quizDescriptor,
	}
}

// Register adds every catalog entity to reg.
func Register(reg *schema.Registry) error {
	for _, d := range Descriptors() {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the catalog entities.
func NewRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if err := Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// repo holds the operations shared by every typed repository.
type repo[T any] struct {
	store  *store.Store
	entity string
}

func (r repo[T]) create(ctx context.Context, v T, opts []store.CallOption) (store.Result[*T], error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return store.Result[*T]{}, fmt.Errorf("marshal %s: %w", r.entity, err)
	}
	return one[T](r.store.Create(ctx, r.entity, item, opts...))
}

func (r repo[T]) get(ctx context.Context, key store.Key, opts []store.CallOption) (store.Result[*T], error) {
	return one[T](r.store.Get(ctx, r.entity, key, opts...))
}

func (r repo[T]) list(ctx context.Context, opts []store.CallOption) (store.Result[[]T], error) {
	return many[T](r.store.List(ctx, r.entity, opts...))
}

func (r repo[T]) query(ctx context.Context, constraints map[string]any, preds []route.Predicate, opts []store.CallOption) (store.Result[[]T], error) {
	return many[T](r.store.Query(ctx, route.Spec{
		Entity:      r.entity,
		Constraints: constraints,
		Predicates:  preds,
	}, opts...))
}

func (r repo[T]) update(ctx context.Context, key store.Key, fields patch.Fields, opts []store.CallOption) (store.Result[*T], error) {
	return one[T](r.store.Update(ctx, r.entity, key, fields, opts...))
}

func (r repo[T]) delete(ctx context.Context, key store.Key, opts []store.CallOption) (store.Result[struct{}], error) {
	return r.store.Delete(ctx, r.entity, key, opts...)
}

// one decodes a single-item result. A missing item stays nil.
func one[T any](res store.Result[schema.Item], err error) (store.Result[*T], error) {
	out := store.Result[*T]{NextToken: res.NextToken, Errors: res.Errors, Degraded: res.Degraded}
	if err != nil || res.Data == nil {
		return out, err
	}
	v := new(T)
	if err := attributevalue.UnmarshalMap(res.Data, v); err != nil {
		return out, fmt.Errorf("decode item: %w", err)
	}
	out.Data = v
	return out, nil
}

// many decodes a page of items. Data is never nil on success.
func many[T any](res store.Result[[]schema.Item], err error) (store.Result[[]T], error) {
	out := store.Result[[]T]{NextToken: res.NextToken, Errors: res.Errors, Degraded: res.Degraded}
	if err != nil {
		return out, err
	}
	out.Data = make([]T, 0, len(res.Data))
	for _, item := range res.Data {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			return out, fmt.Errorf("decode item: %w", err)
		}
		out.Data = append(out.Data, v)
	}
	return out, nil
}

// builder wraps patch.Builder for a catalog descriptor.
func builder(d schema.Descriptor) *patch.Builder {
	return patch.NewBuilder(&d)
}
