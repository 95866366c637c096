// Package schema describes how each entity maps onto a DynamoDB table: its
// primary key, its secondary indexes in routing order, and which attributes
// are sparse maps whose sub-keys are patched independently.
package schema

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// KeySchema names the attributes forming a primary key.
type KeySchema struct {
	// Partition is the partition (hash) key attribute.
	Partition string `yaml:"partition" json:"partition" validate:"required"`

	// Sort is the optional sort (range) key attribute.
	Sort string `yaml:"sort,omitempty" json:"sort,omitempty" validate:"omitempty,nefield=Partition"`
}

// Attributes returns the key attribute names, partition first.
func (k KeySchema) Attributes() []string {
	if k.Sort == "" {
		return []string{k.Partition}
	}
	return []string{k.Partition, k.Sort}
}

// IndexDescriptor describes a secondary index.
type IndexDescriptor struct {
	// Name is the GSI/LSI name as known to DynamoDB.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Partition is the index partition attribute.
	Partition string `yaml:"partition" json:"partition" validate:"required"`

	// Sort is the optional index sort attribute.
	Sort string `yaml:"sort,omitempty" json:"sort,omitempty"`
}

// Descriptor describes one entity.
//
// Index order is significant: the query router picks the first index whose
// partition attribute is constrained, so reordering Indexes changes routing.
type Descriptor struct {
	// Name is the entity name (e.g., "Course").
	Name string `yaml:"name" json:"name" validate:"required"`

	// Table is the DynamoDB table name, before any configured prefix.
	Table string `yaml:"table" json:"table" validate:"required"`

	// Key is the primary key.
	Key KeySchema `yaml:"key" json:"key"`

	// Indexes are the secondary indexes in routing order.
	Indexes []IndexDescriptor `yaml:"indexes,omitempty" json:"indexes,omitempty" validate:"dive"`

	// SparseMaps lists map attributes whose sub-keys are merged on update
	// rather than replaced (e.g., "assessments").
	SparseMaps []string `yaml:"sparseMaps,omitempty" json:"sparseMaps,omitempty" validate:"dive,required"`

	// Attributes optionally restricts the attributes a patch may name.
	// Empty means any attribute is accepted.
	Attributes []string `yaml:"attributes,omitempty" json:"attributes,omitempty" validate:"dive,required"`
}

// KeyAttributes returns the primary key attribute names.
func (d *Descriptor) KeyAttributes() []string {
	return d.Key.Attributes()
}

// IsKeyAttribute reports whether name is part of the primary key.
func (d *Descriptor) IsKeyAttribute(name string) bool {
	return name == d.Key.Partition || (d.Key.Sort != "" && name == d.Key.Sort)
}

// IsSparseMap reports whether name is declared as a sparse map.
func (d *Descriptor) IsSparseMap(name string) bool {
	for _, s := range d.SparseMaps {
		if s == name {
			return true
		}
	}
	return false
}

// AllowsAttribute reports whether a patch may name the attribute.
func (d *Descriptor) AllowsAttribute(name string) bool {
	if len(d.Attributes) == 0 {
		return true
	}
	if d.IsKeyAttribute(name) || d.IsSparseMap(name) {
		return true
	}
	for _, a := range d.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// Index returns the named index.
func (d *Descriptor) Index(name string) (IndexDescriptor, bool) {
	for _, idx := range d.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexDescriptor{}, false
}

// ExtractKey returns the primary key attributes of item.
func (d *Descriptor) ExtractKey(item Item) (Item, error) {
	key := make(Item, 2)
	for _, attr := range d.KeyAttributes() {
		v, ok := item[attr]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingKey, d.Name, attr)
		}
		if err := checkKeyValue(v); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.Name, attr, err)
		}
		key[attr] = v
	}
	return key, nil
}

func (d *Descriptor) clone() *Descriptor {
	c := *d
	c.Indexes = append([]IndexDescriptor(nil), d.Indexes...)
	c.SparseMaps = append([]string(nil), d.SparseMaps...)
	c.Attributes = append([]string(nil), d.Attributes...)
	return &c
}

// checkKeyValue enforces DynamoDB's scalar key types.
func checkKeyValue(v types.AttributeValue) error {
	switch v.(type) {
	case *types.AttributeValueMemberS, *types.AttributeValueMemberN, *types.AttributeValueMemberB:
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrInvalidKeyType, v)
	}
}
