package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a set of descriptors.
//
//	entities:
//	  - name: Course
//	    table: courses
//	    key: {partition: lmsId, sort: startDate}
//	    indexes:
//	      - {name: byCatalog, partition: catalogId, sort: startDate}
//	    sparseMaps: [assessments]
type File struct {
	Entities []Descriptor `yaml:"entities"`
}

// LoadYAML decodes descriptors from r. Unknown fields are rejected.
func LoadYAML(r io.Reader) ([]Descriptor, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	for _, d := range f.Entities {
		if err := Validate(d); err != nil {
			return nil, err
		}
	}
	return f.Entities, nil
}

// RegisterYAML loads descriptors from r and registers each of them.
func (r *Registry) RegisterYAML(in io.Reader) error {
	ds, err := LoadYAML(in)
	if err != nil {
		return err
	}
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// NodeValue converts a decoded YAML node into plain Go values. It differs
// from decoding into any in one way: unquoted dates and timestamps keep their
// source text instead of becoming time.Time, so startDate: 2024-03-04 stays
// the string "2024-03-04". A sequence tagged !stringset becomes a StringSet.
func NodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return NodeValue(n.Content[0])
	case yaml.AliasNode:
		return NodeValue(n.Alias)
	case yaml.SequenceNode:
		if n.Tag == StringSetTag {
			var ss []string
			if err := n.Decode(&ss); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", n.Line, StringSetTag, err)
			}
			return StringSet(ss), nil
		}
		out := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := NodeValue(c)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.ShortTag() == "!!merge" {
				return nil, fmt.Errorf("line %d: merge keys are not supported", k.Line)
			}
			val, err := NodeValue(v)
			if err != nil {
				return nil, err
			}
			out[k.Value] = val
		}
		return out, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}
