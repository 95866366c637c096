package catalog

import (
	"context"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

// Assessment slots of a course.
const (
	PreQuiz  = "preQuiz"
	PostQuiz = "postQuiz"
)

var courseDescriptor = schema.Descriptor{
	Name:  EntityCourse,
	Table: "courses",
	Key:   schema.KeySchema{Partition: "lmsId", Sort: "startDate"},
	Indexes: []schema.IndexDescriptor{
		{Name: "byCatalog", Partition: "catalogId", Sort: "startDate"},
		{Name: "byCustomer", Partition: "customerId", Sort: "startDate"},
	},
	SparseMaps: []string{"assessments", "surveys"},
	Attributes: []string{
		"title", "catalogId", "customerId", "status", "trainer",
		"location", "seats", "endDate", "tags",
	},
}

// Course is one scheduled run of a catalog item, identified by its LMS id
// and start date.
type Course struct {
	LMSID      string `dynamodbav:"lmsId" json:"lmsId"`
	StartDate  string `dynamodbav:"startDate" json:"startDate"`
	EndDate    string `dynamodbav:"endDate,omitempty" json:"endDate,omitempty"`
	Title      string `dynamodbav:"title,omitempty" json:"title,omitempty"`
	CatalogID  string `dynamodbav:"catalogId,omitempty" json:"catalogId,omitempty"`
	CustomerID string `dynamodbav:"customerId,omitempty" json:"customerId,omitempty"`
	Status     string `dynamodbav:"status,omitempty" json:"status,omitempty"`
	Trainer    string `dynamodbav:"trainer,omitempty" json:"trainer,omitempty"`
	Location   string `dynamodbav:"location,omitempty" json:"location,omitempty"`
	Seats      int    `dynamodbav:"seats,omitempty" json:"seats,omitempty"`

	// Assessments maps a slot (PreQuiz, PostQuiz) to a quiz id.
	Assessments map[string]string `dynamodbav:"assessments,omitempty" json:"assessments,omitempty"`

	// Surveys maps a survey slot to a quiz id.
	Surveys map[string]string `dynamodbav:"surveys,omitempty" json:"surveys,omitempty"`

	Tags      []string `dynamodbav:"tags,stringset,omitempty" json:"tags,omitempty"`
	CreatedAt string   `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt string   `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Courses is the typed repository for Course.
type Courses struct {
	repo repo[Course]
}

// NewCourses creates a Course repository over s.
func NewCourses(s *store.Store) *Courses {
	return &Courses{repo: repo[Course]{store: s, entity: EntityCourse}}
}

func courseKey(lmsID, startDate string) store.Key {
	return store.Key{"lmsId": lmsID, "startDate": startDate}
}

// Create stores a new course. The LMS id and start date must be set.
func (c *Courses) Create(ctx context.Context, course Course, opts ...store.CallOption) (store.Result[*Course], error) {
	return c.repo.create(ctx, course, opts)
}

// Get returns a course, or nil Data if it does not exist.
func (c *Courses) Get(ctx context.Context, lmsID, startDate string, opts ...store.CallOption) (store.Result[*Course], error) {
	return c.repo.get(ctx, courseKey(lmsID, startDate), opts)
}

// List returns one page of all courses.
func (c *Courses) List(ctx context.Context, opts ...store.CallOption) (store.Result[[]Course], error) {
	return c.repo.list(ctx, opts)
}

// ListByCatalog returns the runs of a catalog item ordered by start date.
func (c *Courses) ListByCatalog(ctx context.Context, catalogID string, opts ...store.CallOption) (store.Result[[]Course], error) {
	return c.repo.query(ctx, map[string]any{"catalogId": catalogID}, nil, opts)
}

// ListByCustomer returns a customer's courses ordered by start date.
func (c *Courses) ListByCustomer(ctx context.Context, customerID string, opts ...store.CallOption) (store.Result[[]Course], error) {
	return c.repo.query(ctx, map[string]any{"customerId": customerID}, nil, opts)
}

// Query returns courses matching the equality constraints and predicates,
// routed like any other query.
func (c *Courses) Query(ctx context.Context, constraints map[string]any, preds []route.Predicate, opts ...store.CallOption) (store.Result[[]Course], error) {
	return c.repo.query(ctx, constraints, preds, opts)
}

// Update applies p to an existing course and returns it as stored.
func (c *Courses) Update(ctx context.Context, lmsID, startDate string, p *CoursePatch, opts ...store.CallOption) (store.Result[*Course], error) {
	fields, err := p.Fields()
	if err != nil {
		return store.Result[*Course]{}, err
	}
	return c.repo.update(ctx, courseKey(lmsID, startDate), fields, opts)
}

// Delete removes a course.
func (c *Courses) Delete(ctx context.Context, lmsID, startDate string, opts ...store.CallOption) (store.Result[struct{}], error) {
	return c.repo.delete(ctx, courseKey(lmsID, startDate), opts)
}

// CoursePatch collects changes to a course. Assessment and survey slots
// are merged one at a time, leaving the other slots as stored.
type CoursePatch struct {
	b *patch.Builder
}

// NewCoursePatch starts an empty course patch.
func NewCoursePatch() *CoursePatch {
	return &CoursePatch{b: builder(courseDescriptor)}
}

func (p *CoursePatch) Title(v string) *CoursePatch      { p.b.Set("title", v); return p }
func (p *CoursePatch) Status(v string) *CoursePatch     { p.b.Set("status", v); return p }
func (p *CoursePatch) Trainer(v string) *CoursePatch    { p.b.Set("trainer", v); return p }
func (p *CoursePatch) Location(v string) *CoursePatch   { p.b.Set("location", v); return p }
func (p *CoursePatch) EndDate(v string) *CoursePatch    { p.b.Set("endDate", v); return p }
func (p *CoursePatch) CatalogID(v string) *CoursePatch  { p.b.Set("catalogId", v); return p }
func (p *CoursePatch) CustomerID(v string) *CoursePatch { p.b.Set("customerId", v); return p }
func (p *CoursePatch) Seats(n int) *CoursePatch         { p.b.Set("seats", n); return p }

// Tags replaces the tag set.
func (p *CoursePatch) Tags(tags ...string) *CoursePatch {
	p.b.Set("tags", schema.StringSet(tags))
	return p
}

// Assessment assigns quizID to an assessment slot.
func (p *CoursePatch) Assessment(slot, quizID string) *CoursePatch {
	p.b.Merge("assessments", slot, quizID)
	return p
}

// ClearAssessment sets an assessment slot to null.
func (p *CoursePatch) ClearAssessment(slot string) *CoursePatch {
	p.b.Merge("assessments", slot, nil)
	return p
}

// Survey assigns quizID to a survey slot.
func (p *CoursePatch) Survey(slot, quizID string) *CoursePatch {
	p.b.Merge("surveys", slot, quizID)
	return p
}

// Set sets an arbitrary allowed attribute.
func (p *CoursePatch) Set(attr string, v any) *CoursePatch {
	p.b.Set(attr, v)
	return p
}

// Fields returns the collected fields or the first invalid change.
func (p *CoursePatch) Fields() (patch.Fields, error) {
	return p.b.Fields()
}
