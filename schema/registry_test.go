package schema_test

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/syllabus/schema"
)

func courseDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Name:  "Course",
		Table: "courses",
		Key:   schema.KeySchema{Partition: "lmsId", Sort: "startDate"},
		Indexes: []schema.IndexDescriptor{
			{Name: "byCatalog", Partition: "catalogId", Sort: "startDate"},
			{Name: "byCustomer", Partition: "customerId", Sort: "startDate"},
		},
		SparseMaps: []string{"assessments"},
	}
}

func TestRegistry_RegisterAndDescribe(t *testing.T) {
	r := schema.NewRegistry()
	if err := r.Register(courseDescriptor()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d, err := r.Describe("Course")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if d.Table != "courses" {
		t.Errorf("expected table 'courses', got %q", d.Table)
	}
	if got := d.KeyAttributes(); !reflect.DeepEqual(got, []string{"lmsId", "startDate"}) {
		t.Errorf("expected key attributes [lmsId startDate], got %v", got)
	}
	if !d.IsKeyAttribute("startDate") {
		t.Error("expected startDate to be a key attribute")
	}
	if d.IsKeyAttribute("catalogId") {
		t.Error("expected catalogId not to be a key attribute")
	}
	if !d.IsSparseMap("assessments") {
		t.Error("expected assessments to be a sparse map")
	}
	if d.Indexes[0].Name != "byCatalog" {
		t.Errorf("expected first index 'byCatalog', got %q", d.Indexes[0].Name)
	}
}

func TestRegistry_DescribeUnknown(t *testing.T) {
	r := schema.NewRegistry()
	_, err := r.Describe("Nope")
	if !errors.Is(err, schema.ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	r := schema.NewRegistry()
	if err := r.Register(courseDescriptor()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(courseDescriptor()); !errors.Is(err, schema.ErrDuplicateEntity) {
		t.Errorf("expected ErrDuplicateEntity, got %v", err)
	}
}

func TestRegistry_SealedAfterFirstDescribe(t *testing.T) {
	r := schema.NewRegistry()
	if err := r.Register(courseDescriptor()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Sealed() {
		t.Fatal("expected registry to be open before Describe")
	}

	_, _ = r.Describe("Course")
	if !r.Sealed() {
		t.Fatal("expected registry to be sealed after Describe")
	}

	err := r.Register(schema.Descriptor{Name: "Customer", Table: "customers", Key: schema.KeySchema{Partition: "id"}})
	if !errors.Is(err, schema.ErrRegistrySealed) {
		t.Errorf("expected ErrRegistrySealed, got %v", err)
	}
}

func TestRegistry_DescribeReturnsCopy(t *testing.T) {
	r := schema.NewRegistry()
	if err := r.Register(courseDescriptor()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d, err := r.Describe("Course")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	d.Indexes[0].Name = "mutated"
	d.SparseMaps = nil

	again, err := r.Describe("Course")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if again.Indexes[0].Name != "byCatalog" {
		t.Errorf("expected 'byCatalog', got %q", again.Indexes[0].Name)
	}
	if !again.IsSparseMap("assessments") {
		t.Error("expected assessments to still be a sparse map")
	}
}

func TestRegistry_EntitiesInRegistrationOrder(t *testing.T) {
	r := schema.NewRegistry()
	r.MustRegister(
		schema.Descriptor{Name: "Customer", Table: "customers", Key: schema.KeySchema{Partition: "id"}},
		courseDescriptor(),
	)
	if got := r.Entities(); !reflect.DeepEqual(got, []string{"Customer", "Course"}) {
		t.Errorf("expected [Customer Course], got %v", got)
	}
}

func TestRegistry_ConcurrentDescribe(t *testing.T) {
	r := schema.NewRegistry()
	if err := r.Register(courseDescriptor()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := r.Describe("Course")
			if err != nil {
				t.Errorf("Describe: %v", err)
				return
			}
			if d.Name != "Course" {
				t.Errorf("expected 'Course', got %q", d.Name)
			}
		}()
	}
	wg.Wait()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		d    schema.Descriptor
	}{
		{"missing name", schema.Descriptor{Table: "t", Key: schema.KeySchema{Partition: "id"}}},
		{"missing table", schema.Descriptor{Name: "X", Key: schema.KeySchema{Partition: "id"}}},
		{"missing partition", schema.Descriptor{Name: "X", Table: "t"}},
		{"sort equals partition", schema.Descriptor{Name: "X", Table: "t", Key: schema.KeySchema{Partition: "id", Sort: "id"}}},
		{"index without partition", schema.Descriptor{Name: "X", Table: "t", Key: schema.KeySchema{Partition: "id"},
			Indexes: []schema.IndexDescriptor{{Name: "i"}}}},
		{"duplicate index", schema.Descriptor{Name: "X", Table: "t", Key: schema.KeySchema{Partition: "id"},
			Indexes: []schema.IndexDescriptor{{Name: "i", Partition: "a"}, {Name: "i", Partition: "b"}}}},
		{"key as sparse map", schema.Descriptor{Name: "X", Table: "t", Key: schema.KeySchema{Partition: "id"},
			SparseMaps: []string{"id"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := schema.Validate(tt.d); !errors.Is(err, schema.ErrInvalidDescriptor) {
				t.Errorf("expected ErrInvalidDescriptor, got %v", err)
			}
		})
	}
}

func TestDescriptor_AllowsAttribute(t *testing.T) {
	d := courseDescriptor()
	if !d.AllowsAttribute("anything") {
		t.Error("expected an empty allow-list to allow any attribute")
	}

	d.Attributes = []string{"title"}
	for _, attr := range []string{"title", "assessments", "lmsId"} {
		if !d.AllowsAttribute(attr) {
			t.Errorf("expected %q to be allowed", attr)
		}
	}
	if d.AllowsAttribute("titel") {
		t.Error("expected 'titel' to be rejected")
	}
}

func TestDescriptor_ExtractKey(t *testing.T) {
	d := courseDescriptor()
	item := schema.Item{
		"lmsId":     &types.AttributeValueMemberS{Value: "A"},
		"startDate": &types.AttributeValueMemberS{Value: "2024-01-01"},
		"title":     &types.AttributeValueMemberS{Value: "Intro"},
	}

	key, err := d.ExtractKey(item)
	if err != nil {
		t.Fatalf("ExtractKey: %v", err)
	}
	if len(key) != 2 {
		t.Errorf("expected 2 key attributes, got %d", len(key))
	}
	if _, ok := key["title"]; ok {
		t.Error("expected title to be left out of the key")
	}

	delete(item, "startDate")
	if _, err = d.ExtractKey(item); !errors.Is(err, schema.ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}

	item["startDate"] = &types.AttributeValueMemberBOOL{Value: true}
	if _, err = d.ExtractKey(item); !errors.Is(err, schema.ErrInvalidKeyType) {
		t.Errorf("expected ErrInvalidKeyType, got %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	const doc = `
entities:
  - name: Course
    table: courses
    key: {partition: lmsId, sort: startDate}
    indexes:
      - {name: byCatalog, partition: catalogId, sort: startDate}
    sparseMaps: [assessments]
  - name: Customer
    table: customers
    key: {partition: id}
`
	ds, err := schema.LoadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(ds))
	}
	if ds[0].Key.Sort != "startDate" {
		t.Errorf("expected sort 'startDate', got %q", ds[0].Key.Sort)
	}
	if ds[0].Indexes[0].Partition != "catalogId" {
		t.Errorf("expected index partition 'catalogId', got %q", ds[0].Indexes[0].Partition)
	}
	if ds[1].Key.Sort != "" {
		t.Errorf("expected no sort key, got %q", ds[1].Key.Sort)
	}

	r := schema.NewRegistry()
	if err := r.RegisterYAML(strings.NewReader(doc)); err != nil {
		t.Fatalf("RegisterYAML: %v", err)
	}
	if got := r.Entities(); !reflect.DeepEqual(got, []string{"Course", "Customer"}) {
		t.Errorf("expected [Course Customer], got %v", got)
	}
}

func TestLoadYAML_UnknownField(t *testing.T) {
	if _, err := schema.LoadYAML(strings.NewReader("entities:\n  - name: X\n    tabel: t\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadYAML_Invalid(t *testing.T) {
	_, err := schema.LoadYAML(strings.NewReader("entities:\n  - name: X\n    table: t\n"))
	if !errors.Is(err, schema.ErrInvalidDescriptor) {
		t.Errorf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestNodeValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"date stays a string", "2024-03-04", "2024-03-04"},
		{"timestamp stays a string", "2024-03-04T10:00:00Z", "2024-03-04T10:00:00Z"},
		{"int", "12", 12},
		{"bool", "true", true},
		{"null", "null", nil},
		{"quoted", "'12'", "12"},
		{"nested", "{startDate: 2024-01-01, slots: [a, 2]}", map[string]any{
			"startDate": "2024-01-01",
			"slots":     []any{"a", 2},
		}},
		{"string set", "!stringset [go, aws]", schema.StringSet{"go", "aws"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n yaml.Node
			if err := yaml.Unmarshal([]byte(tt.in), &n); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			got, err := schema.NodeValue(&n)
			if err != nil {
				t.Fatalf("NodeValue: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestStringSet_Marshal(t *testing.T) {
	av, err := schema.StringSet{"go", "aws"}.MarshalDynamoDBAttributeValue()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := schema.FormatValue(av); got != `SS ["go", "aws"]` {
		t.Errorf("expected string set, got %s", got)
	}

	av, err = schema.StringSet(nil).MarshalDynamoDBAttributeValue()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, ok := av.(*types.AttributeValueMemberNULL); !ok {
		t.Errorf("expected NULL for an empty set, got %T", av)
	}
}

func TestFormatValue(t *testing.T) {
	v := &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"b":    &types.AttributeValueMemberN{Value: "2"},
		"a":    &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: "x"}, &types.AttributeValueMemberBOOL{Value: true}}},
		"tags": &types.AttributeValueMemberSS{Value: []string{"go", "aws"}},
	}}
	tests := []struct {
		v    types.AttributeValue
		want string
	}{
		{v, `M {a: L [S "x", BOOL true], b: N 2, tags: SS ["go", "aws"]}`},
		{&types.AttributeValueMemberB{Value: []byte{0xab, 0x01}}, "B ab01"},
		{&types.AttributeValueMemberNULL{Value: true}, "NULL"},
	}
	for _, tt := range tests {
		if got := schema.FormatValue(tt.v); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}

func TestEqualValues(t *testing.T) {
	n := func(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }
	s := func(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

	tests := []struct {
		name string
		a, b types.AttributeValue
		want bool
	}{
		{"same string", s("a"), s("a"), true},
		{"different string", s("a"), s("b"), false},
		{"numbers compare numerically", n("1.0"), n("1"), true},
		{"string vs number", s("1"), n("1"), false},
		{"sets ignore order", &types.AttributeValueMemberSS{Value: []string{"a", "b"}}, &types.AttributeValueMemberSS{Value: []string{"b", "a"}}, true},
		{"lists keep order", &types.AttributeValueMemberL{Value: []types.AttributeValue{s("a"), s("b")}}, &types.AttributeValueMemberL{Value: []types.AttributeValue{s("b"), s("a")}}, false},
		{"maps", &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{"x": n("2")}}, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{"x": n("2.00")}}, true},
		{"null", &types.AttributeValueMemberNULL{Value: true}, &types.AttributeValueMemberNULL{Value: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schema.EqualValues(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name string
		a, b types.AttributeValue
		want int
	}{
		{"strings", &types.AttributeValueMemberS{Value: "2024-01-01"}, &types.AttributeValueMemberS{Value: "2024-02-01"}, -1},
		{"numbers", &types.AttributeValueMemberN{Value: "10"}, &types.AttributeValueMemberN{Value: "9"}, 1},
		{"exponent", &types.AttributeValueMemberN{Value: "1e1"}, &types.AttributeValueMemberN{Value: "10"}, 0},
		// missing values sort first
		{"missing", nil, &types.AttributeValueMemberS{Value: "a"}, -1},
	}
	for _, tt := range tests {
		if got := schema.CompareValues(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}
