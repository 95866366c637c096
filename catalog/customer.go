package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

var customerDescriptor = schema.Descriptor{
	Name:    EntityCustomer,
	Table:   "customers",
	Key:     schema.KeySchema{Partition: "id"},
	Indexes: []schema.IndexDescriptor{{Name: "byRegion", Partition: "region", Sort: "name"}},
	Attributes: []string{
		"name", "region", "contactEmail", "active",
	},
}

// Customer is an organisation that books courses.
type Customer struct {
	ID           string `dynamodbav:"id" json:"id"`
	Name         string `dynamodbav:"name" json:"name"`
	Region       string `dynamodbav:"region,omitempty" json:"region,omitempty"`
	ContactEmail string `dynamodbav:"contactEmail,omitempty" json:"contactEmail,omitempty"`
	Active       bool   `dynamodbav:"active" json:"active"`
	CreatedAt    string `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Customers is the typed repository for Customer.
type Customers struct {
	repo repo[Customer]
}

// NewCustomers creates a Customer repository over s.
func NewCustomers(s *store.Store) *Customers {
	return &Customers{repo: repo[Customer]{store: s, entity: EntityCustomer}}
}

// Create stores a new customer, assigning a random id when ID is empty.
func (c *Customers) Create(ctx context.Context, customer Customer, opts ...store.CallOption) (store.Result[*Customer], error) {
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	return c.repo.create(ctx, customer, opts)
}

// Get returns a customer, or nil Data if it does not exist.
func (c *Customers) Get(ctx context.Context, id string, opts ...store.CallOption) (store.Result[*Customer], error) {
	return c.repo.get(ctx, store.Key{"id": id}, opts)
}

// List returns one page of all customers.
func (c *Customers) List(ctx context.Context, opts ...store.CallOption) (store.Result[[]Customer], error) {
	return c.repo.list(ctx, opts)
}

// ListByRegion returns a region's customers ordered by name.
func (c *Customers) ListByRegion(ctx context.Context, region string, opts ...store.CallOption) (store.Result[[]Customer], error) {
	return c.repo.query(ctx, map[string]any{"region": region}, nil, opts)
}

// Update applies p to an existing customer.
func (c *Customers) Update(ctx context.Context, id string, p *CustomerPatch, opts ...store.CallOption) (store.Result[*Customer], error) {
	fields, err := p.Fields()
	if err != nil {
		return store.Result[*Customer]{}, err
	}
	return c.repo.update(ctx, store.Key{"id": id}, fields, opts)
}

// Delete removes a customer.
func (c *Customers) Delete(ctx context.Context, id string, opts ...store.CallOption) (store.Result[struct{}], error) {
	return c.repo.delete(ctx, store.Key{"id": id}, opts)
}

// CustomerPatch collects changes to a customer.
type CustomerPatch struct {
	b *patch.Builder
}

// NewCustomerPatch starts an empty customer patch.
func NewCustomerPatch() *CustomerPatch {
	return &CustomerPatch{b: builder(customerDescriptor)}
}

func (p *CustomerPatch) Name(v string) *CustomerPatch         { p.b.Set("name", v); return p }
func (p *CustomerPatch) Region(v string) *CustomerPatch       { p.b.Set("region", v); return p }
func (p *CustomerPatch) ContactEmail(v string) *CustomerPatch { p.b.Set("contactEmail", v); return p }
func (p *CustomerPatch) Active(v bool) *CustomerPatch         { p.b.Set("active", v); return p }

// Fields returns the collected fields or the first invalid change.
func (p *CustomerPatch) Fields() (patch.Fields, error) {
	return p.b.Fields()
}
