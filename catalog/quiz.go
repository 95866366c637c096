package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

// Quiz kinds.
const (
	KindQuiz   = "quiz"
	KindSurvey = "survey"
)

var quizDescriptor = schema.Descriptor{
	Name:    EntityQuiz,
	Table:   "quizzes",
	Key:     schema.KeySchema{Partition: "id"},
	Indexes: []schema.IndexDescriptor{{Name: "byKind", Partition: "kind", Sort: "title"}},
	Attributes: []string{
		"title", "kind", "passMark", "questions",
	},
}

// Question is one multiple-choice question.
type Question struct {
	Prompt  string   `dynamodbav:"prompt" json:"prompt"`
	Options []string `dynamodbav:"options" json:"options"`
	Answer  int      `dynamodbav:"answer" json:"answer"`
}

// Quiz is an assessment or survey attached to courses.
type Quiz struct {
	ID        string     `dynamodbav:"id" json:"id"`
	Kind      string     `dynamodbav:"kind" json:"kind"`
	Title     string     `dynamodbav:"title" json:"title"`
	PassMark  int        `dynamodbav:"passMark,omitempty" json:"passMark,omitempty"`
	Questions []Question `dynamodbav:"questions,omitempty" json:"questions,omitempty"`
	CreatedAt string     `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt string     `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Quizzes is the typed repository for Quiz.
type Quizzes struct {
	repo repo[Quiz]
}

// NewQuizzes creates a Quiz repository over s.
func NewQuizzes(s *store.Store) *Quizzes {
	return &Quizzes{repo: repo[Quiz]{store: s, entity: EntityQuiz}}
}

// Create stores a new quiz, assigning a random id when ID is empty.
func (q *Quizzes) Create(ctx context.Context, quiz Quiz, opts ...store.CallOption) (store.Result[*Quiz], error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	return q.repo.create(ctx, quiz, opts)
}

// Get returns a quiz, or nil Data if it does not exist.
func (q *Quizzes) Get(ctx context.Context, id string, opts ...store.CallOption) (store.Result[*Quiz], error) {
	return q.repo.get(ctx, store.Key{"id": id}, opts)
}

// List returns one page of all quizzes.
func (q *Quizzes) List(ctx context.Context, opts ...store.CallOption) (store.Result[[]Quiz], error) {
	return q.repo.list(ctx, opts)
}

// ListByKind returns the quizzes of one kind ordered by title.
func (q *Quizzes) ListByKind(ctx context.Context, kind string, opts ...store.CallOption) (store.Result[[]Quiz], error) {
	return q.repo.query(ctx, map[string]any{"kind": kind}, nil, opts)
}

// Update applies p to an existing quiz.
func (q *Quizzes) Update(ctx context.Context, id string, p *QuizPatch, opts ...store.CallOption) (store.Result[*Quiz], error) {
	fields, err := p.Fields()
	if err != nil {
		return store.Result[*Quiz]{}, err
	}
	return q.repo.update(ctx, store.Key{"id": id}, fields, opts)
}

// Delete removes a quiz.
func (q *Quizzes) Delete(ctx context.Context, id string, opts ...store.CallOption) (store.Result[struct{}], error) {
	return q.repo.delete(ctx, store.Key{"id": id}, opts)
}

// QuizPatch collects changes to a quiz.
type QuizPatch struct {
	b *patch.Builder
}

// NewQuizPatch starts an empty quiz patch.
func NewQuizPatch() *QuizPatch {
	return &QuizPatch{b: builder(quizDescriptor)}
}

func (p *QuizPatch) Title(v string) *QuizPatch { p.b.Set("title", v); return p }
func (p *QuizPatch) Kind(v string) *QuizPatch  { p.b.Set("kind", v); return p }
func (p *QuizPatch) PassMark(n int) *QuizPatch { p.b.Set("passMark", n); return p }

// Questions replaces the question list.
func (p *QuizPatch) Questions(qs ...Question) *QuizPatch {
	p.b.Set("questions", qs)
	return p
}

// Fields returns the collected fields or the first invalid change.
func (p *QuizPatch) Fields() (patch.Fields, error) {
	return p.b.Fields()
}
