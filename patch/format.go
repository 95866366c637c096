package patch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jacentio/syllabus/schema"
)

// String renders the program for logs and dry runs:
//
//	Course lmsId=S "A" startDate=S "2024-01-01"
//	SET #f0.#f1 = :v0, #f2 = :v1
//	#f0 = assessments
//	...
//	:v0 = S "q1"
func (p *Program) String() string {
	var b strings.Builder

	b.WriteString(p.Entity)
	keys := make([]string, 0, len(p.Key))
	for k := range p.Key {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, schema.FormatValue(p.Key[k]))
	}
	b.WriteByte('\n')

	b.WriteString(p.Expression())
	b.WriteByte('\n')

	for _, ph := range placeholders(p.Names) {
		fmt.Fprintf(&b, "%s = %s\n", ph, p.Names[ph])
	}
	vals := make(map[string]string, len(p.Values))
	for ph, v := range p.Values {
		vals[ph] = schema.FormatValue(v)
	}
	for _, ph := range placeholders(vals) {
		fmt.Fprintf(&b, "%s = %s\n", ph, vals[ph])
	}
	return b.String()
}

// placeholders returns the keys of m ordered by their numeric suffix.
func placeholders(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return placeholderIndex(out[i]) < placeholderIndex(out[j])
	})
	return out
}

func placeholderIndex(ph string) int {
	n, _ := strconv.Atoi(strings.TrimLeft(ph, "#:fv"))
	return n
}
