package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jacentio/syllabus/internal/clock"
	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
)

// Key identifies an item by its primary key attribute values.
type Key = map[string]any

// Result is the outcome of a store call.
type Result[T any] struct {
	// Data is the item or items returned. A missing item is the zero value.
	Data T

	// NextToken continues a paginated query; empty on the last page.
	NextToken string

	// Errors lists live-store failures that were swallowed because the
	// call was served from the fallback repository instead.
	Errors []error

	// Degraded is true when the fallback repository served the call.
	Degraded bool
}

// Store routes entity operations to the live adapter, or to the fallback
// repository while degraded.
type Store struct {
	registry *schema.Registry
	live     Adapter
	fallback Adapter
	creds    CredentialSource
	config   Config
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	mode     modeState
}

// Option configures a Store.
type Option func(*Store)

// WithFallback sets the repository that serves calls while degraded.
// Without one the store never degrades.
func WithFallback(a Adapter) Option {
	return func(s *Store) { s.fallback = a }
}

// WithCredentials sets the credential source consulted before live calls.
func WithCredentials(c CredentialSource) Option {
	return func(s *Store) { s.creds = c }
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the collectors. Default: NewMetrics("syllabus").
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithTracer sets the tracer. Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// WithClock sets the time source for createdAt/updatedAt. Readings are
// made monotonic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = clock.NewMonotonic(clock.ClockFunc(now)) }
}

// New creates a Store over the live adapter. live may be nil, in which case
// every call is treated as having no credentials.
func New(registry *schema.Registry, live Adapter, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		registry: registry,
		live:     live,
		config:   config,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("syllabus")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/jacentio/syllabus/store")
	}
	if s.clock == nil {
		s.clock = clock.NewMonotonic(nil)
	}
	return s
}

// Registry returns the schema registry.
func (s *Store) Registry() *schema.Registry { return s.registry }

// Metrics returns the store collectors.
func (s *Store) Metrics() *Metrics { return s.metrics }

// Config returns the validated configuration.
func (s *Store) Config() Config { return s.config }

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	policy    FallbackPolicy
	limit     int32
	pageToken string
	noScan    bool
}

// WithFallbackPolicy overrides the configured policy for one call.
func WithFallbackPolicy(p FallbackPolicy) CallOption {
	return func(o *callOptions) { o.policy = p }
}

// WithLimit sets the page size for one query.
func WithLimit(n int32) CallOption {
	return func(o *callOptions) { o.limit = n }
}

// WithPageToken continues a previous query.
func WithPageToken(token string) CallOption {
	return func(o *callOptions) { o.pageToken = token }
}

// WithoutScan makes a query fail with ErrUnroutableQuery rather than scan.
func WithoutScan() CallOption {
	return func(o *callOptions) { o.noScan = true }
}

func (s *Store) callOpts(opts []CallOption) callOptions {
	o := callOptions{policy: s.config.FallbackPolicy, noScan: s.config.DisableScan}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (s *Store) table(d *schema.Descriptor) string {
	return s.config.TablePrefix + d.Table
}

// Create writes a new item. The key must not exist. createdAt and updatedAt
// are stamped with the same timestamp, and every declared sparse-map
// attribute absent from item is initialized to an empty map so later
// sub-key patches have a parent to merge into.
func (s *Store) Create(ctx context.Context, entity string, item schema.Item, opts ...CallOption) (res Result[schema.Item], err error) {
	o := s.callOpts(opts)
	ctx, span := s.start(ctx, "create", entity)
	began := time.Now()
	defer func() { s.finish(span, entity, "create", route.PathKey.String(), res.Degraded, err, began) }()

	d, err := s.registry.Describe(entity)
	if err != nil {
		return res, err
	}
	if _, err = d.ExtractKey(item); err != nil {
		return res, err
	}

	out := make(schema.Item, len(item)+len(d.SparseMaps)+2)
	for attr, v := range item {
		if attr == patch.CreatedAtAttr || attr == patch.UpdatedAtAttr {
			continue
		}
		if !d.AllowsAttribute(attr) {
			return res, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, d.Name, attr)
		}
		out[attr] = v
	}
	for _, attr := range d.SparseMaps {
		if _, ok := out[attr]; !ok {
			out[attr] = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
		}
	}
	now := &types.AttributeValueMemberS{Value: clock.Format(s.clock.Now())}
	out[patch.CreatedAtAttr] = now
	out[patch.UpdatedAtAttr] = now

	req := PutRequest{
		Entity:    d.Name,
		Table:     s.table(d),
		Item:      out,
		Condition: IfNotExists,
		KeyAttrs:  d.KeyAttributes(),
	}
	res.Degraded, err = s.write(ctx, "create", d.Name, o, func(ctx context.Context, a Adapter) error {
		return a.Put(ctx, req)
	})
	if errors.Is(err, ErrConditionFailed) {
		err = fmt.Errorf("%w: %s", ErrAlreadyExists, d.Name)
	}
	if err != nil {
		return res, err
	}
	res.Data = out
	return res, nil
}

// Get reads one item by key. A missing item is a nil Data, not an error.
func (s *Store) Get(ctx context.Context, entity string, key Key, opts ...CallOption) (res Result[schema.Item], err error) {
	o := s.callOpts(opts)
	ctx, span := s.start(ctx, "get", entity)
	began := time.Now()
	defer func() { s.finish(span, entity, "get", route.PathKey.String(), res.Degraded, err, began) }()

	d, err := s.registry.Describe(entity)
	if err != nil {
		return res, err
	}
	k, err := marshalKey(d, key)
	if err != nil {
		return res, err
	}

	req := GetRequest{Entity: d.Name, Table: s.table(d), Key: k}
	res.Data, res.Degraded, res.Errors, err = read(ctx, s, "get", d.Name, o, func(ctx context.Context, a Adapter) (schema.Item, error) {
		return a.Get(ctx, req)
	})
	return res, err
}

// Query routes spec and returns one page of matching items.
func (s *Store) Query(ctx context.Context, spec route.Spec, opts ...CallOption) (Result[[]schema.Item], error) {
	return s.query(ctx, "query", spec, s.callOpts(opts))
}

// List returns one page of every item of an entity, in storage order.
// Lists always scan, even when scans are disabled for queries.
func (s *Store) List(ctx context.Context, entity string, opts ...CallOption) (Result[[]schema.Item], error) {
	o := s.callOpts(opts)
	o.noScan = false
	return s.query(ctx, "list", route.Spec{Entity: entity}, o)
}

func (s *Store) query(ctx context.Context, op string, spec route.Spec, o callOptions) (res Result[[]schema.Item], err error) {
	ctx, span := s.start(ctx, op, spec.Entity)
	began := time.Now()
	path := ""
	defer func() { s.finish(span, spec.Entity, op, path, res.Degraded, err, began) }()

	spec = o.apply(spec)
	plan, err := s.plan(spec)
	if err != nil {
		return res, err
	}
	path = plan.Kind.String()
	if plan.Expensive {
		s.logger.Debug("query routed to scan",
			zap.String("entity", plan.Entity),
			zap.Stringer("plan", plan),
		)
	}

	req := QueryRequest{
		Entity:    plan.Entity,
		Table:     s.config.TablePrefix + plan.Table,
		Plan:      plan,
		Limit:     s.config.pageSize(spec.Limit),
		PageToken: spec.PageToken,
	}
	page, degraded, swallowed, err := read(ctx, s, op, plan.Entity, o, func(ctx context.Context, a Adapter) (Page, error) {
		return run(ctx, a, req)
	})
	res.Degraded = degraded
	res.Errors = swallowed
	if err != nil {
		return res, err
	}
	res.Data = page.Items
	if res.Data == nil {
		res.Data = []schema.Item{}
	}
	res.NextToken = page.NextToken
	return res, nil
}

// Explain returns the access plan a query would use, without any I/O.
func (s *Store) Explain(spec route.Spec, opts ...CallOption) (*route.Plan, error) {
	return s.plan(s.callOpts(opts).apply(spec))
}

// apply overrides spec with the per-call limit, page token and scan option.
func (o callOptions) apply(spec route.Spec) route.Spec {
	if o.limit > 0 {
		spec.Limit = o.limit
	}
	if o.pageToken != "" {
		spec.PageToken = o.pageToken
	}
	spec.NoScan = spec.NoScan || o.noScan
	return spec
}

func (s *Store) plan(spec route.Spec) (*route.Plan, error) {
	d, err := s.registry.Describe(spec.Entity)
	if err != nil {
		return nil, err
	}
	return route.Route(d, spec)
}

// run executes a plan against one adapter. Key lookups go through Get and
// are post-filtered so residual constraints still apply.
func run(ctx context.Context, a Adapter, req QueryRequest) (Page, error) {
	switch req.Plan.Kind {
	case route.PathKey:
		item, err := a.Get(ctx, GetRequest{Entity: req.Entity, Table: req.Table, Key: req.Plan.Key})
		if err != nil {
			return Page{}, err
		}
		if item == nil || !req.Plan.Match(item) {
			return Page{}, nil
		}
		return Page{Items: []schema.Item{item}}, nil
	case route.PathIndex:
		return a.Query(ctx, req)
	default:
		return a.Scan(ctx, req)
	}
}

// Update compiles fields into a patch and applies it to the existing item
// identified by key, returning the item as stored afterwards.
func (s *Store) Update(ctx context.Context, entity string, key Key, fields patch.Fields, opts ...CallOption) (res Result[schema.Item], err error) {
	o := s.callOpts(opts)
	ctx, span := s.start(ctx, "update", entity)
	began := time.Now()
	defer func() { s.finish(span, entity, "update", route.PathKey.String(), res.Degraded, err, began) }()

	d, err := s.registry.Describe(entity)
	if err != nil {
		return res, err
	}
	k, err := marshalKey(d, key)
	if err != nil {
		return res, err
	}
	prog, err := patch.Compile(d, k, fields, s.clock.Now())
	if err != nil {
		return res, err
	}

	req := UpdateRequest{
		Entity:   d.Name,
		Table:    s.table(d),
		Program:  prog,
		KeyAttrs: d.KeyAttributes(),
	}
	var item schema.Item
	res.Degraded, err = s.write(ctx, "update", d.Name, o, func(ctx context.Context, a Adapter) error {
		var err error
		item, err = a.Update(ctx, req)
		return err
	})
	if errors.Is(err, ErrConditionFailed) {
		err = fmt.Errorf("%w: %s", ErrNotFound, d.Name)
	}
	if err != nil {
		return res, err
	}
	res.Data = item
	return res, nil
}

// Delete removes the item identified by key. Deleting a missing item succeeds.
func (s *Store) Delete(ctx context.Context, entity string, key Key, opts ...CallOption) (res Result[struct{}], err error) {
	o := s.callOpts(opts)
	ctx, span := s.start(ctx, "delete", entity)
	began := time.Now()
	defer func() { s.finish(span, entity, "delete", route.PathKey.String(), res.Degraded, err, began) }()

	d, err := s.registry.Describe(entity)
	if err != nil {
		return res, err
	}
	k, err := marshalKey(d, key)
	if err != nil {
		return res, err
	}

	req := DeleteRequest{Entity: d.Name, Table: s.table(d), Key: k}
	res.Degraded, err = s.write(ctx, "delete", d.Name, o, func(ctx context.Context, a Adapter) error {
		return a.Delete(ctx, req)
	})
	return res, err
}

// read runs fn against the chosen adapter. Under FallbackOnAnyTransportError
// a live transport failure degrades the store and fn is retried once against
// the fallback; the live error is returned in the swallowed slice.
func read[T any](ctx context.Context, s *Store, op, entity string, o callOptions, fn func(context.Context, Adapter) (T, error)) (v T, degraded bool, swallowed []error, err error) {
	a, degraded, err := s.pick(ctx, op, entity, o.policy)
	if err != nil {
		return v, false, nil, err
	}
	v, err = fn(ctx, a)
	if err == nil {
		return v, degraded, nil, nil
	}
	if degraded || o.policy != FallbackOnAnyTransportError || s.fallback == nil || !IsTransport(err) {
		return v, degraded, nil, err
	}

	s.logger.Warn("live read failed, serving fallback",
		zap.String("entity", entity),
		zap.String("op", op),
		zap.Error(err),
	)
	s.degrade(reasonTransport, err)
	v, ferr := fn(ctx, s.fallback)
	if ferr != nil {
		return v, true, nil, ferr
	}
	return v, true, []error{err}, nil
}

// write runs fn against the chosen adapter. Write failures are always returned.
func (s *Store) write(ctx context.Context, op, entity string, o callOptions, fn func(context.Context, Adapter) error) (bool, error) {
	a, degraded, err := s.pick(ctx, op, entity, o.policy)
	if err != nil {
		return false, err
	}
	return degraded, fn(ctx, a)
}

func (s *Store) start(ctx context.Context, op, entity string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "store."+op,
		trace.WithAttributes(attribute.String("syllabus.entity", entity)),
	)
}

func (s *Store) finish(span trace.Span, entity, op, path string, degraded bool, err error, began time.Time) {
	span.SetAttributes(
		attribute.String("syllabus.path", path),
		attribute.Bool("syllabus.degraded", degraded),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.metrics.observe(entity, op, path, degraded, err, time.Since(began))
}

func marshalKey(d *schema.Descriptor, key Key) (schema.Item, error) {
	av, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s key: %v", patch.ErrInvalidValue, d.Name, err)
	}
	return d.ExtractKey(av)
}
