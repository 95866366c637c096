package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

var catalogItemDescriptor = schema.Descriptor{
	Name:    EntityCatalogItem,
	Table:   "catalogItems",
	Key:     schema.KeySchema{Partition: "id"},
	Indexes: []schema.IndexDescriptor{{Name: "byCustomer", Partition: "customerId", Sort: "title"}},
	Attributes: []string{
		"title", "customerId", "description", "language", "durationHours", "tags",
	},
}

// CatalogItem is a course offering in a customer's catalog. Courses are
// scheduled runs of a catalog item.
type CatalogItem struct {
	ID            string   `dynamodbav:"id" json:"id"`
	CustomerID    string   `dynamodbav:"customerId,omitempty" json:"customerId,omitempty"`
	Title         string   `dynamodbav:"title" json:"title"`
	Description   string   `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Language      string   `dynamodbav:"language,omitempty" json:"language,omitempty"`
	DurationHours int      `dynamodbav:"durationHours,omitempty" json:"durationHours,omitempty"`
	Tags          []string `dynamodbav:"tags,stringset,omitempty" json:"tags,omitempty"`
	CreatedAt     string   `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt     string   `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// CatalogItems is the typed repository for CatalogItem.
type CatalogItems struct {
	repo repo[CatalogItem]
}

// NewCatalogItems creates a CatalogItem repository over s.
func NewCatalogItems(s *store.Store) *CatalogItems {
	return &CatalogItems{repo: repo[CatalogItem]{store: s, entity: EntityCatalogItem}}
}

// Create stores a new catalog item, assigning a random id when ID is empty.
func (c *CatalogItems) Create(ctx context.Context, item CatalogItem, opts ...store.CallOption) (store.Result[*CatalogItem], error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return c.repo.create(ctx, item, opts)
}

// Get returns a catalog item, or nil Data if it does not exist.
func (c *CatalogItems) Get(ctx context.Context, id string, opts ...store.CallOption) (store.Result[*CatalogItem], error) {
	return c.repo.get(ctx, store.Key{"id": id}, opts)
}

// List returns one page of all catalog items.
func (c *CatalogItems) List(ctx context.Context, opts ...store.CallOption) (store.Result[[]CatalogItem], error) {
	return c.repo.list(ctx, opts)
}

// ListByCustomer returns a customer's catalog ordered by title.
func (c *CatalogItems) ListByCustomer(ctx context.Context, customerID string, opts ...store.CallOption) (store.Result[[]CatalogItem], error) {
	return c.repo.query(ctx, map[string]any{"customerId": customerID}, nil, opts)
}

// Update applies p to an existing catalog item.
func (c *CatalogItems) Update(ctx context.Context, id string, p *CatalogItemPatch, opts ...store.CallOption) (store.Result[*CatalogItem], error) {
	fields, err := p.Fields()
	if err != nil {
		return store.Result[*CatalogItem]{}, err
	}
	return c.repo.update(ctx, store.Key{"id": id}, fields, opts)
}

// Delete removes a catalog item.
func (c *CatalogItems) Delete(ctx context.Context, id string, opts ...store.CallOption) (store.Result[struct{}], error) {
	return c.repo.delete(ctx, store.Key{"id": id}, opts)
}

// CatalogItemPatch collects changes to a catalog item.
type CatalogItemPatch struct {
	b *patch.Builder
}

// NewCatalogItemPatch starts an empty catalog item patch.
func NewCatalogItemPatch() *CatalogItemPatch {
	return &CatalogItemPatch{b: builder(catalogItemDescriptor)}
}

func (p *CatalogItemPatch) Title(v string) *CatalogItemPatch       { p.b.Set("title", v); return p }
func (p *CatalogItemPatch) Description(v string) *CatalogItemPatch { p.b.Set("description", v); return p }
func (p *CatalogItemPatch) Language(v string) *CatalogItemPatch    { p.b.Set("language", v); return p }
func (p *CatalogItemPatch) CustomerID(v string) *CatalogItemPatch  { p.b.Set("customerId", v); return p }
func (p *CatalogItemPatch) DurationHours(n int) *CatalogItemPatch  { p.b.Set("durationHours", n); return p }

// Tags replaces the tag set.
func (p *CatalogItemPatch) Tags(tags ...string) *CatalogItemPatch {
	p.b.Set("tags", schema.StringSet(tags))
	return p
}

// Fields returns the collected fields or the first invalid change.
func (p *CatalogItemPatch) Fields() (patch.Fields, error) {
	return p.b.Fields()
}
