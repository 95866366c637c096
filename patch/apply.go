package patch

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/syllabus/schema"
)

// Apply evaluates the program against item the way DynamoDB evaluates the
// rendered SET expression, returning the updated copy. item is not modified.
//
// A MergeKey operation whose parent attribute is missing or not a map fails
// with ErrInvalidPath, matching DynamoDB's "document path" validation error.
func (p *Program) Apply(item schema.Item) (schema.Item, error) {
	out := make(schema.Item, len(item)+len(p.Operations))
	for k, v := range item {
		out[k] = v
	}
	for k, v := range p.Key {
		out[k] = v
	}

	for _, op := range p.Operations {
		val := p.Values[op.Value]
		switch len(op.Names) {
		case 1:
			out[p.Names[op.Names[0]]] = val
		case 2:
			parent := p.Names[op.Names[0]]
			sub := p.Names[op.Names[1]]
			m, ok := out[parent].(*types.AttributeValueMemberM)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a map", ErrInvalidPath, parent)
			}
			merged := make(map[string]types.AttributeValue, len(m.Value)+1)
			for k, v := range m.Value {
				merged[k] = v
			}
			merged[sub] = val
			out[parent] = &types.AttributeValueMemberM{Value: merged}
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidPath, op.Path)
		}
	}
	return out, nil
}
