package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/syllabus/patch"
	"github.com/jacentio/syllabus/store"
)

// run executes the CLI offline against the built-in dataset.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range []string{"SYLLABUS_CONFIG", "SYLLABUS_SCHEMA_FILE", "SYLLABUS_SEED_FILE", "SYLLABUS_FALLBACK_POLICY", "SYLLABUS_LOG_LEVEL", "SYLLABUS_ENVIRONMENT"} {
		t.Setenv(k, "")
	}
	t.Setenv("SYLLABUS_LOG_LEVEL", "error")

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--offline"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "syllabus", cmd.Use)

	for _, name := range []string{"entities", "explain", "get", "list", "patch"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFlags(t *testing.T) {
	_, _, err := run(t, "--format", "xml", "entities")
	assert.ErrorContains(t, err, "invalid format")

	_, _, err = run(t, "--policy", "sometimes", "entities")
	assert.Error(t, err)
}

func TestEntities(t *testing.T) {
	out, _, err := run(t, "entities")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Course table=courses key=lmsId,startDate indexes=byCatalog(catalogId,startDate),byCustomer(customerId,startDate) sparse=assessments,surveys", lines[0])
	assert.Equal(t, "Customer table=customers key=id indexes=byRegion(region,name)", lines[1])
}

func TestExplain(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"Course", "lmsId=LMS-1001", "startDate=2024-03-04"}, `Course key lmsId = S "LMS-1001" startDate = S "2024-03-04"`},
		{[]string{"Course", "catalogId=ci-go", "customerId=cu-acme"}, `Course index byCatalog catalogId = S "ci-go" filter customerId = S "cu-acme"`},
		{[]string{"Course", "status=open", "--contains", "title=Go"}, `Course scan filter status = S "open" and title contains S "Go" (expensive)`},
	}
	for _, tt := range tests {
		out, _, err := run(t, append([]string{"explain"}, tt.args...)...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, strings.TrimSpace(out))
	}

	_, _, err := run(t, "explain", "Course", "status=open", "--no-scan")
	assert.ErrorIs(t, err, store.ErrUnroutableQuery)

	_, _, err = run(t, "explain", "Trainer")
	assert.ErrorIs(t, err, store.ErrUnknownEntity)
}

func TestExplain_JSON(t *testing.T) {
	out, _, err := run(t, "--format", "json", "explain", "Customer", "region=emea")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "index", got["path"])
	assert.Equal(t, "byRegion", got["index"])
	assert.Equal(t, false, got["expensive"])
}

func TestGet(t *testing.T) {
	out, stderr, err := run(t, "get", "Customer", "id=cu-initech")
	require.NoError(t, err)
	assert.Contains(t, out, `name=S "Initech"`)
	assert.Contains(t, stderr, "degraded")

	out, _, err = run(t, "get", "Customer", "id=cu-nobody")
	require.NoError(t, err)
	assert.Equal(t, "not found\n", out)
}

func TestList_JSON(t *testing.T) {
	out, _, err := run(t, "--format", "json", "list", "Course", "catalogId=ci-go")
	require.NoError(t, err)

	var page struct {
		Items    []map[string]any `json:"items"`
		Degraded bool             `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.True(t, page.Degraded)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "LMS-1002", page.Items[0]["lmsId"])
	assert.Equal(t, "LMS-1001", page.Items[1]["lmsId"])
}

func TestList_Paging(t *testing.T) {
	out, _, err := run(t, "list", "Customer", "--limit", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `id=S "cu-acme"`)
	require.True(t, strings.HasPrefix(lines[2], "next: "))

	token := strings.TrimPrefix(lines[2], "next: ")
	out, _, err = run(t, "list", "Customer", "--limit", "2", "--token", token)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `id=S "cu-initech"`)
}

func TestPatch_DryRun(t *testing.T) {
	out, _, err := run(t, "patch", "Course", "lmsId=LMS-1001", "startDate=2024-03-04",
		"--merge", "assessments.preQuiz=qz-new", "--set", "seats=14", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "SET #f0.#f1 = :v0, #f2 = :v1, #f3 = :v2\n")
	assert.Contains(t, out, "#f1 = preQuiz\n")
	assert.Contains(t, out, ":v1 = N 14\n")
}

func TestPatch_MergesIntoFallback(t *testing.T) {
	out, stderr, err := run(t, "patch", "Course", "lmsId=LMS-1001", "startDate=2024-03-04",
		"--merge", "assessments.preQuiz=qz-new")
	require.NoError(t, err)
	assert.Contains(t, out, `assessments=M {postQuiz: S "qz-go-post", preQuiz: S "qz-new"}`)
	assert.Contains(t, stderr, "degraded")
}

func TestPatch_Errors(t *testing.T) {
	_, _, err := run(t, "patch", "Course", "lmsId=LMS-1001", "startDate=2024-03-04", "--set", "lmsId=LMS-2")
	assert.ErrorIs(t, err, patch.ErrKeyFieldImmutable)

	_, _, err = run(t, "patch", "Course", "lmsId=LMS-1001", "startDate=2024-03-04", "--merge", "title=x")
	assert.ErrorContains(t, err, "invalid merge")

	_, _, err = run(t, "patch", "Customer", "id=cu-acme")
	assert.ErrorIs(t, err, patch.ErrEmptyPatch)
}

func TestCustomSeedFile(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
seeds:
  - entity: Customer
    records:
      - {id: cu-x, name: Solo, region: apac}
`), 0o600))

	cfg := filepath.Join(t.TempDir(), "syllabus.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("seedFile: "+seed+"\n"), 0o600))

	out, _, err := run(t, "--config", cfg, "list", "Customer")
	require.NoError(t, err)
	assert.Equal(t, `id=S "cu-x" name=S "Solo" region=S "apac"`, strings.TrimSpace(out))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"", ""},
		{"12", 12},
		{"true", true},
		{"'12'", "12"},
		{"2024-03-04", "2024-03-04"},
		{"2024-03-04T10:00:00Z", "2024-03-04T10:00:00Z"},
		{"[a, 2024-01-01]", []any{"a", "2024-01-01"}},
		{"null", nil},
		{"Go for Backend", "Go for Backend"},
	}
	for _, tt := range tests {
		got, err := parseValue(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := parseAssignments([]string{"novalue"})
	assert.Error(t, err)
}
