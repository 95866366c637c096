// Package cursor encodes the opaque page tokens handed to callers.
//
// Live tokens carry a DynamoDB LastEvaluatedKey. Fallback tokens carry an
// offset bound to a fingerprint of the query that produced them, so a token
// cannot be replayed against a different query.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrInvalidToken is returned when a token cannot be decoded.
var ErrInvalidToken = errors.New("syllabus: invalid page token")

const (
	keyPrefix    = "k."
	offsetPrefix = "o."
)

type keyAttr struct {
	S *string `json:"S,omitempty"`
	N *string `json:"N,omitempty"`
	B []byte  `json:"B,omitempty"`
}

// EncodeKey encodes a LastEvaluatedKey. An empty key encodes to "".
func EncodeKey(key map[string]types.AttributeValue) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	raw := make(map[string]keyAttr, len(key))
	for name, v := range key {
		switch av := v.(type) {
		case *types.AttributeValueMemberS:
			s := av.Value
			raw[name] = keyAttr{S: &s}
		case *types.AttributeValueMemberN:
			n := av.Value
			raw[name] = keyAttr{N: &n}
		case *types.AttributeValueMemberB:
			raw[name] = keyAttr{B: av.Value}
		default:
			return "", fmt.Errorf("encode key attribute %q: unsupported type %T", name, v)
		}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return keyPrefix + base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeKey decodes a token produced by EncodeKey. "" decodes to a nil key.
func DecodeKey(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}
	body, ok := strings.CutPrefix(token, keyPrefix)
	if !ok {
		return nil, ErrInvalidToken
	}
	data, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var raw map[string]keyAttr
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	key := make(map[string]types.AttributeValue, len(raw))
	for name, a := range raw {
		switch {
		case a.S != nil:
			key[name] = &types.AttributeValueMemberS{Value: *a.S}
		case a.N != nil:
			key[name] = &types.AttributeValueMemberN{Value: *a.N}
		case a.B != nil:
			key[name] = &types.AttributeValueMemberB{Value: a.B}
		default:
			return nil, fmt.Errorf("%w: empty attribute %q", ErrInvalidToken, name)
		}
	}
	return key, nil
}

// Fingerprint hashes the parts describing a query.
func Fingerprint(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum32()
}

// EncodeOffset encodes a fallback page position.
func EncodeOffset(fingerprint uint32, offset int) string {
	return fmt.Sprintf("%s%08x.%d", offsetPrefix, fingerprint, offset)
}

// DecodeOffset decodes a token produced by EncodeOffset for the same
// fingerprint. "" decodes to offset 0.
func DecodeOffset(token string, fingerprint uint32) (int, error) {
	if token == "" {
		return 0, nil
	}
	body, ok := strings.CutPrefix(token, offsetPrefix)
	if !ok {
		return 0, ErrInvalidToken
	}
	fp, off, ok := strings.Cut(body, ".")
	if !ok || fp != fmt.Sprintf("%08x", fingerprint) {
		return 0, fmt.Errorf("%w: token belongs to a different query", ErrInvalidToken)
	}
	n, err := strconv.Atoi(off)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad offset %q", ErrInvalidToken, off)
	}
	return n, nil
}
