package schema

import (
	"bytes"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// EqualValues reports whether two attribute values are equal under
// DynamoDB comparison rules: numbers compare numerically, sets ignore order.
func EqualValues(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && CompareNumbers(av.Value, bv.Value) == 0
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameSet(av.Value, bv.Value, func(x, y string) bool { return x == y })
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameSet(av.Value, bv.Value, func(x, y string) bool { return CompareNumbers(x, y) == 0 })
	case *types.AttributeValueMemberBS:
		bv, ok := b.(*types.AttributeValueMemberBS)
		return ok && sameSet(av.Value, bv.Value, bytes.Equal)
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !EqualValues(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			w, ok := bv.Value[k]
			if !ok || !EqualValues(v, w) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CompareNumbers compares two DynamoDB number strings. Unparseable numbers
// compare as strings.
func CompareNumbers(a, b string) int {
	x, okA := new(big.Float).SetString(a)
	y, okB := new(big.Float).SetString(b)
	if !okA || !okB {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	return x.Cmp(y)
}

// CompareValues orders two scalar values the way DynamoDB orders sort keys.
// Values of different or non-scalar types order by type tag.
func CompareValues(a, b types.AttributeValue) int {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		if bv, ok := b.(*types.AttributeValueMemberS); ok {
			switch {
			case av.Value < bv.Value:
				return -1
			case av.Value > bv.Value:
				return 1
			}
			return 0
		}
	case *types.AttributeValueMemberN:
		if bv, ok := b.(*types.AttributeValueMemberN); ok {
			return CompareNumbers(av.Value, bv.Value)
		}
	case *types.AttributeValueMemberB:
		if bv, ok := b.(*types.AttributeValueMemberB); ok {
			return bytes.Compare(av.Value, bv.Value)
		}
	}
	ta, tb := typeRank(a), typeRank(b)
	switch {
	case ta < tb:
		return -1
	case ta > tb:
		return 1
	}
	return 0
}

func typeRank(v types.AttributeValue) int {
	switch v.(type) {
	case nil:
		return 0
	case *types.AttributeValueMemberB:
		return 1
	case *types.AttributeValueMemberN:
		return 2
	case *types.AttributeValueMemberS:
		return 3
	default:
		return 4
	}
}

func sameSet[T any](a, b []T, eq func(x, y T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && eq(x, y) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// StringSetTag marks a YAML sequence as a string set.
const StringSetTag = "!stringset"

// StringSet marshals as a DynamoDB string set. An empty set is written as
// null, since DynamoDB rejects empty sets.
type StringSet []string

func (s StringSet) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	if len(s) == 0 {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	return &types.AttributeValueMemberSS{Value: append([]string(nil), s...)}, nil
}
