package store_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/syllabus/memstore"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

func newRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	reg.MustRegister(
		schema.Descriptor{
			Name:  "Course",
			Table: "courses",
			Key:   schema.KeySchema{Partition: "lmsId", Sort: "startDate"},
			Indexes: []schema.IndexDescriptor{
				{Name: "byCatalog", Partition: "catalogId", Sort: "startDate"},
				{Name: "byCustomer", Partition: "customerId", Sort: "startDate"},
			},
			SparseMaps: []string{"assessments"},
		},
		schema.Descriptor{
			Name:    "Customer",
			Table:   "customers",
			Key:     schema.KeySchema{Partition: "id"},
			Indexes: []schema.IndexDescriptor{{Name: "byRegion", Partition: "region", Sort: "name"}},
		},
	)
	return reg
}

var customerSeed = []any{
	map[string]any{"id": "cu-3", "name": "Initech", "region": "amer"},
	map[string]any{"id": "cu-1", "name": "Acme Learning", "region": "emea"},
	map[string]any{"id": "cu-2", "name": "Globex Academy", "region": "emea"},
}

func seed(t *testing.T, repo *memstore.Repository) {
	t.Helper()
	require.NoError(t, repo.SeedRecords("Customer", customerSeed...))
	require.NoError(t, repo.SeedRecords("Course",
		map[string]any{"lmsId": "A", "startDate": "2024-01-01", "catalogId": "cat1", "title": "Intro to Go",
			"assessments": map[string]any{"postQuiz": "q2"}},
		map[string]any{"lmsId": "B", "startDate": "2024-02-01", "catalogId": "cat1", "title": "Advanced Go",
			"assessments": map[string]any{}},
	))
}

// flaky wraps an adapter and counts calls, failing them with a transport
// error while failing is set.
type flaky struct {
	inner   store.Adapter
	failing atomic.Bool
	calls   atomic.Int64
}

func (f *flaky) fail(op string) error {
	f.calls.Add(1)
	if f.failing.Load() {
		return &store.TransportError{Op: op, Entity: "test", Err: errConnRefused}
	}
	return nil
}

func (f *flaky) Get(ctx context.Context, req store.GetRequest) (schema.Item, error) {
	if err := f.fail("GetItem"); err != nil {
		return nil, err
	}
	return f.inner.Get(ctx, req)
}

func (f *flaky) Put(ctx context.Context, req store.PutRequest) error {
	if err := f.fail("PutItem"); err != nil {
		return err
	}
	return f.inner.Put(ctx, req)
}

func (f *flaky) Update(ctx context.Context, req store.UpdateRequest) (schema.Item, error) {
	if err := f.fail("UpdateItem"); err != nil {
		return nil, err
	}
	return f.inner.Update(ctx, req)
}

func (f *flaky) Delete(ctx context.Context, req store.DeleteRequest) error {
	if err := f.fail("DeleteItem"); err != nil {
		return err
	}
	return f.inner.Delete(ctx, req)
}

func (f *flaky) Query(ctx context.Context, req store.QueryRequest) (store.Page, error) {
	if err := f.fail("Query"); err != nil {
		return store.Page{}, err
	}
	return f.inner.Query(ctx, req)
}

func (f *flaky) Scan(ctx context.Context, req store.QueryRequest) (store.Page, error) {
	if err := f.fail("Scan"); err != nil {
		return store.Page{}, err
	}
	return f.inner.Scan(ctx, req)
}

type connError struct{}

func (connError) Error() string { return "dial tcp 127.0.0.1:8000: connect: connection refused" }

var errConnRefused error = connError{}

// fixture is a store over a flaky live repository with an identically
// seeded fallback.
type fixture struct {
	reg      *schema.Registry
	live     *flaky
	liveRepo *memstore.Repository
	fallback *memstore.Repository
	creds    atomic.Bool
	store    *store.Store
}

func newFixture(t *testing.T, cfg store.Config, opts ...store.Option) *fixture {
	t.Helper()
	f := &fixture{reg: newRegistry()}
	f.liveRepo = memstore.New(f.reg)
	f.fallback = memstore.New(f.reg)
	seed(t, f.liveRepo)
	seed(t, f.fallback)
	f.live = &flaky{inner: f.liveRepo}
	f.creds.Store(true)

	base := []store.Option{
		store.WithFallback(f.fallback),
		store.WithCredentials(store.CredentialsFunc(func(context.Context) error {
			if f.creds.Load() {
				return nil
			}
			return store.ErrMissingCredentials
		})),
	}
	f.store = store.New(f.reg, f.live, cfg, append(base, opts...)...)
	return f
}

func str(item schema.Item, attr string) string {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func strs(items []schema.Item, attr string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = str(item, attr)
	}
	return out
}

// steppingClock returns successive times from ts, repeating the last.
func steppingClock(ts ...time.Time) func() time.Time {
	var i atomic.Int64
	return func() time.Time {
		n := int(i.Add(1)) - 1
		if n >= len(ts) {
			n = len(ts) - 1
		}
		return ts[n]
	}
}
