package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/syllabus/schema"
)

// TableClient is the subset of *dynamodb.Client used to provision tables.
type TableClient interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
}

var _ TableClient = (*dynamodb.Client)(nil)

// TableInput returns the CreateTable request for d under the given table
// name. Every index projects all attributes. Key attributes are declared
// as strings.
func TableInput(d *schema.Descriptor, table string) *dynamodb.CreateTableInput {
	var defs []types.AttributeDefinition
	defined := make(map[string]bool)
	define := func(attr string) {
		if attr == "" || defined[attr] {
			return
		}
		defined[attr] = true
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(attr),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	input := &dynamodb.CreateTableInput{
		TableName:   aws.String(table),
		KeySchema:   keySchema(d.Key.Partition, d.Key.Sort),
		BillingMode: types.BillingModePayPerRequest,
	}
	define(d.Key.Partition)
	define(d.Key.Sort)

	for _, idx := range d.Indexes {
		define(idx.Partition)
		define(idx.Sort)
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchema(idx.Partition, idx.Sort),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	input.AttributeDefinitions = defs
	return input
}

func keySchema(partition, sort string) []types.KeySchemaElement {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(partition), KeyType: types.KeyTypeHash},
	}
	if sort != "" {
		ks = append(ks, types.KeySchemaElement{AttributeName: aws.String(sort), KeyType: types.KeyTypeRange})
	}
	return ks
}

// CreateTables creates a table for every registered entity, named prefix
// plus the descriptor's table, and waits up to wait for each to become
// active.
func CreateTables(ctx context.Context, client TableClient, reg *schema.Registry, prefix string, wait time.Duration) error {
	var created []string
	for _, name := range reg.Entities() {
		d, err := reg.Describe(name)
		if err != nil {
			return err
		}
		table := prefix + d.Table
		if _, err := client.CreateTable(ctx, TableInput(d, table)); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		created = append(created, table)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	for _, table := range created {
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)}, wait); err != nil {
			return fmt.Errorf("wait for table %s: %w", table, err)
		}
	}
	return nil
}

// DeleteTables deletes the table of every registered entity. It attempts
// every table and returns the first error.
func DeleteTables(ctx context.Context, client TableClient, reg *schema.Registry, prefix string) error {
	var first error
	for _, name := range reg.Entities() {
		d, err := reg.Describe(name)
		if err != nil {
			return err
		}
		table := prefix + d.Table
		if _, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(table)}); err != nil && first == nil {
			first = fmt.Errorf("delete table %s: %w", table, err)
		}
	}
	return first
}
