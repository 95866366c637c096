package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FormatValue renders an attribute value compactly with its type tag.
func FormatValue(v types.AttributeValue) string {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return "S " + strconv.Quote(av.Value)
	case *types.AttributeValueMemberN:
		return "N " + av.Value
	case *types.AttributeValueMemberB:
		return fmt.Sprintf("B %x", av.Value)
	case *types.AttributeValueMemberBOOL:
		return "BOOL " + strconv.FormatBool(av.Value)
	case *types.AttributeValueMemberNULL:
		return "NULL"
	case *types.AttributeValueMemberSS:
		q := make([]string, len(av.Value))
		for i, s := range av.Value {
			q[i] = strconv.Quote(s)
		}
		return "SS [" + strings.Join(q, ", ") + "]"
	case *types.AttributeValueMemberNS:
		return "NS [" + strings.Join(av.Value, ", ") + "]"
	case *types.AttributeValueMemberBS:
		q := make([]string, len(av.Value))
		for i, bs := range av.Value {
			q[i] = fmt.Sprintf("%x", bs)
		}
		return "BS [" + strings.Join(q, ", ") + "]"
	case *types.AttributeValueMemberL:
		q := make([]string, len(av.Value))
		for i, e := range av.Value {
			q[i] = FormatValue(e)
		}
		return "L [" + strings.Join(q, ", ") + "]"
	case *types.AttributeValueMemberM:
		keys := make([]string, 0, len(av.Value))
		for k := range av.Value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		q := make([]string, len(keys))
		for i, k := range keys {
			q[i] = k + ": " + FormatValue(av.Value[k])
		}
		return "M {" + strings.Join(q, ", ") + "}"
	default:
		return fmt.Sprintf("%T", v)
	}
}
