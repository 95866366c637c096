package route

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jacentio/syllabus/schema"
)

// Match reports whether item satisfies the plan's key condition and filters.
// The in-memory repository uses it to serve the same result set the store
// would return for the plan.
func (p *Plan) Match(item schema.Item) bool {
	switch p.Kind {
	case PathKey:
		for attr, v := range p.Key {
			if got, ok := item[attr]; !ok || !schema.EqualValues(got, v) {
				return false
			}
		}
	case PathIndex:
		if !p.Partition.match(item) {
			return false
		}
		if p.Sort != nil && !p.Sort.match(item) {
			return false
		}
	}
	for _, f := range p.Filters {
		if !f.Match(item) {
			return false
		}
	}
	return true
}

func (c *Condition) match(item schema.Item) bool {
	got, ok := item[c.Attr]
	return ok && schema.EqualValues(got, c.Value)
}

// String renders the plan on one line, e.g.
//
//	Course index byCatalog catalogId = S "c1" filter title contains S "Go"
//
// Equal plans render identically, so the string doubles as a fingerprint.
func (p *Plan) String() string {
	var b strings.Builder
	b.WriteString(p.Entity)
	b.WriteByte(' ')
	b.WriteString(p.Kind.String())

	switch p.Kind {
	case PathKey:
		attrs := make([]string, 0, len(p.Key))
		for a := range p.Key {
			attrs = append(attrs, a)
		}
		sort.Strings(attrs)
		for _, a := range attrs {
			fmt.Fprintf(&b, " %s = %s", a, schema.FormatValue(p.Key[a]))
		}
	case PathIndex:
		fmt.Fprintf(&b, " %s %s = %s", p.Index, p.Partition.Attr, schema.FormatValue(p.Partition.Value))
		if p.Sort != nil {
			fmt.Fprintf(&b, " and %s = %s", p.Sort.Attr, schema.FormatValue(p.Sort.Value))
		}
	}
	for i, f := range p.Filters {
		if i == 0 {
			b.WriteString(" filter ")
		} else {
			b.WriteString(" and ")
		}
		fmt.Fprintf(&b, "%s %s %s", f.Attr, f.Op, schema.FormatValue(f.Value))
	}
	if p.Expensive {
		b.WriteString(" (expensive)")
	}
	return b.String()
}
