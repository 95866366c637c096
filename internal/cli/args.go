package cli

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jacentio/syllabus/schema"
)

// parseAssignments turns "attr=value" arguments into a map. Values are
// read as YAML scalars, so seats=12 is a number and title='12' a string.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		attr, v, err := parseAssignment(arg)
		if err != nil {
			return nil, err
		}
		out[attr] = v
	}
	return out, nil
}

func parseAssignment(arg string) (string, any, error) {
	attr, raw, ok := strings.Cut(arg, "=")
	if !ok || attr == "" {
		return "", nil, fmt.Errorf("invalid argument %q: want attr=value", arg)
	}
	v, err := parseValue(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid value for %s: %w", attr, err)
	}
	return attr, v, nil
}

func parseValue(raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &n); err != nil {
		return nil, err
	}
	return schema.NodeValue(&n)
}
