package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jacentio/syllabus/internal/cursor"
	"github.com/jacentio/syllabus/route"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

// Adapter implements store.Adapter over a DynamoDB client.
type Adapter struct {
	client Client
	logger *zap.Logger
}

var _ store.Adapter = (*Adapter)(nil)

// New creates an Adapter. A nil logger logs nothing.
func New(client Client, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, logger: logger}
}

// Get implements store.Adapter.
func (a *Adapter) Get(ctx context.Context, req store.GetRequest) (schema.Item, error) {
	out, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(req.Table),
		Key:       req.Key,
	})
	if err != nil {
		return nil, mapError("GetItem", req.Entity, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// Put implements store.Adapter.
func (a *Adapter) Put(ctx context.Context, req store.PutRequest) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(req.Table),
		Item:      req.Item,
	}

	if req.Condition != store.Unconditional {
		if len(req.KeyAttrs) == 0 {
			return fmt.Errorf("syllabus: conditional put on %s without key attributes", req.Entity)
		}
		name := expression.Name(req.KeyAttrs[0])
		cond := expression.AttributeExists(name)
		if req.Condition == store.IfNotExists {
			cond = expression.AttributeNotExists(name)
		}
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return fmt.Errorf("build put condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
	}

	_, err := a.client.PutItem(ctx, input)
	return mapError("PutItem", req.Entity, err)
}

// Update implements store.Adapter. The compiled SET expression is guarded
// by attribute_exists on the partition key and returns the new item.
func (a *Adapter) Update(ctx context.Context, req store.UpdateRequest) (schema.Item, error) {
	if len(req.KeyAttrs) == 0 {
		return nil, fmt.Errorf("syllabus: update on %s without key attributes", req.Entity)
	}
	prog := req.Program

	out, err := a.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(req.Table),
		Key:                       prog.Key,
		UpdateExpression:          aws.String(prog.Expression()),
		ConditionExpression:       aws.String("attribute_exists(#k0)"),
		ExpressionAttributeNames:  mergeExprNames(prog.Names, map[string]string{"#k0": req.KeyAttrs[0]}),
		ExpressionAttributeValues: prog.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, mapError("UpdateItem", req.Entity, err)
	}
	return out.Attributes, nil
}

// Delete implements store.Adapter.
func (a *Adapter) Delete(ctx context.Context, req store.DeleteRequest) error {
	_, err := a.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(req.Table),
		Key:       req.Key,
	})
	return mapError("DeleteItem", req.Entity, err)
}

// Query implements store.Adapter for PathIndex plans.
func (a *Adapter) Query(ctx context.Context, req store.QueryRequest) (store.Page, error) {
	p := req.Plan
	if p.Kind != route.PathIndex {
		return store.Page{}, fmt.Errorf("syllabus: query needs an index plan, got %s", p.Kind)
	}

	keyCond := expression.Key(p.Partition.Attr).Equal(expression.Value(p.Partition.Raw))
	if p.Sort != nil {
		keyCond = keyCond.And(expression.Key(p.Sort.Attr).Equal(expression.Value(p.Sort.Raw)))
	}
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter, ok := filterCondition(p.Filters); ok {
		builder = builder.WithFilter(filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return store.Page{}, fmt.Errorf("build query expression: %w", err)
	}

	return a.collect(ctx, req, func(ctx context.Context, start schema.Item, limit int32) ([]schema.Item, schema.Item, error) {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(req.Table),
			IndexName:                 aws.String(p.Index),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         start,
		}
		if limit > 0 {
			input.Limit = aws.Int32(limit)
		}
		out, err := a.client.Query(ctx, input)
		if err != nil {
			return nil, nil, mapError("Query", req.Entity, err)
		}
		return out.Items, out.LastEvaluatedKey, nil
	})
}

// Scan implements store.Adapter for PathScan plans.
func (a *Adapter) Scan(ctx context.Context, req store.QueryRequest) (store.Page, error) {
	p := req.Plan
	a.logger.Debug("scanning table",
		zap.String("entity", req.Entity),
		zap.String("table", req.Table),
		zap.Int("filters", len(p.Filters)),
	)

	var expr *expression.Expression
	if filter, ok := filterCondition(p.Filters); ok {
		built, err := expression.NewBuilder().WithFilter(filter).Build()
		if err != nil {
			return store.Page{}, fmt.Errorf("build scan expression: %w", err)
		}
		expr = &built
	}

	return a.collect(ctx, req, func(ctx context.Context, start schema.Item, limit int32) ([]schema.Item, schema.Item, error) {
		input := &dynamodb.ScanInput{
			TableName:         aws.String(req.Table),
			ExclusiveStartKey: start,
		}
		if expr != nil {
			input.FilterExpression = expr.Filter()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}
		if limit > 0 {
			input.Limit = aws.Int32(limit)
		}
		out, err := a.client.Scan(ctx, input)
		if err != nil {
			return nil, nil, mapError("Scan", req.Entity, err)
		}
		return out.Items, out.LastEvaluatedKey, nil
	})
}

type fetchFunc func(ctx context.Context, start schema.Item, limit int32) (items []schema.Item, last schema.Item, err error)

// collect fetches pages until req.Limit matching items are gathered or the
// table is exhausted. DynamoDB applies Limit before filtering, so each call
// asks for no more than the remaining count; a page can then never overshoot
// and LastEvaluatedKey always marks exactly where the next page starts.
func (a *Adapter) collect(ctx context.Context, req store.QueryRequest, fetch fetchFunc) (store.Page, error) {
	var start schema.Item
	if req.PageToken != "" {
		key, err := cursor.DecodeKey(req.PageToken)
		if err != nil {
			return store.Page{}, fmt.Errorf("%w: %v", store.ErrInvalidPageToken, err)
		}
		start = key
	}

	var page store.Page
	for {
		var remaining int32
		if req.Limit > 0 {
			remaining = req.Limit - int32(len(page.Items))
		}
		items, last, err := fetch(ctx, start, remaining)
		if err != nil {
			return store.Page{}, err
		}
		page.Items = append(page.Items, items...)

		if len(last) == 0 {
			return page, nil
		}
		if req.Limit > 0 && int32(len(page.Items)) >= req.Limit {
			token, err := cursor.EncodeKey(last)
			if err != nil {
				return store.Page{}, fmt.Errorf("encode page token: %w", err)
			}
			page.NextToken = token
			return page, nil
		}
		start = last
	}
}

// filterCondition ANDs the plan's filters, in order.
func filterCondition(filters []route.Filter) (expression.ConditionBuilder, bool) {
	var cond expression.ConditionBuilder
	for i, f := range filters {
		c := filterOf(f)
		if i == 0 {
			cond = c
			continue
		}
		cond = cond.And(c)
	}
	return cond, len(filters) > 0
}

func filterOf(f route.Filter) expression.ConditionBuilder {
	name := expression.Name(f.Attr)
	switch f.Op {
	case route.Contains:
		return name.Contains(stringValue(f))
	case route.BeginsWith:
		return name.BeginsWith(stringValue(f))
	default:
		return name.Equal(expression.Value(f.Raw))
	}
}

// stringValue returns the string operand of a Contains or BeginsWith
// filter. Routing only admits string values for those operators.
func stringValue(f route.Filter) string {
	if s, ok := f.Value.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return fmt.Sprint(f.Raw)
}

// mergeExprNames merges multiple expression attribute name maps.
func mergeExprNames(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}
