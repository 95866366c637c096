// Package dynamo is the live store.Adapter over Amazon DynamoDB.
//
// Routed plans are rendered with the expression builder; compiled patches
// are sent as-is, since their placeholders are already assigned.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/syllabus/store"
)

// Client is the subset of *dynamodb.Client the adapter uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// ClientOptions selects the AWS account and endpoint.
type ClientOptions struct {
	// Region overrides the region from the shared config.
	Region string

	// Endpoint points the client at DynamoDB Local or another compatible
	// endpoint (e.g., "http://localhost:8000").
	Endpoint string

	// Profile selects a shared config profile.
	Profile string
}

// NewClient loads the default AWS config and builds a DynamoDB client.
func NewClient(ctx context.Context, opts ClientOptions) (*dynamodb.Client, aws.Config, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return client, cfg, nil
}

// CredentialSource reports whether provider yields usable credentials.
// A nil provider never does.
func CredentialSource(provider aws.CredentialsProvider) store.CredentialSource {
	return store.CredentialsFunc(func(ctx context.Context) error {
		if provider == nil {
			return fmt.Errorf("%w: no credentials provider", store.ErrMissingCredentials)
		}
		creds, err := provider.Retrieve(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrMissingCredentials, err)
		}
		if !creds.HasKeys() {
			return fmt.Errorf("%w: provider returned no keys", store.ErrMissingCredentials)
		}
		if creds.Expired() {
			return fmt.Errorf("%w: credentials expired", store.ErrMissingCredentials)
		}
		return nil
	})
}
