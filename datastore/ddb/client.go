/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/suparena/cloudstore/config"
	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/logger"
)

// API is the subset of the DynamoDB client the backend uses.
type API interface {
	DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, opts ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *sdk.CreateTableInput, opts ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *sdk.UpdateTimeToLiveInput, opts ...func(*sdk.Options)) (*sdk.UpdateTimeToLiveOutput, error)
	GetItem(ctx context.Context, in *sdk.GetItemInput, opts ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, opts ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *sdk.UpdateItemInput, opts ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, opts ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, in *sdk.QueryInput, opts ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, in *sdk.ScanInput, opts ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *sdk.BatchWriteItemInput, opts ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
}

var _ API = (*sdk.Client)(nil)

// NewClient initializes a DynamoDB client from parsed connection settings.
// Static credentials win over a named profile; with neither, the default AWS
// credential chain is used.
func NewClient(ctx context.Context, cs config.ConnectionSettings, log *zap.Logger) (*sdk.Client, error) {
	var loaders []func(*awsconfig.LoadOptions) error
	if cs.Region != "" {
		loaders = append(loaders, awsconfig.WithRegion(cs.Region))
	}
	switch {
	case cs.HasStaticCredentials():
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cs.AccessKeyID, cs.SecretAccessKey, ""),
		))
	case cs.Profile != "":
		loaders = append(loaders, awsconfig.WithSharedConfigProfile(cs.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, errors.NewNotConfiguredError(config.KeyConnectionString,
			fmt.Errorf("failed to load AWS configuration: %w", err))
	}
	if cfg.Region == "" {
		return nil, errors.NewNotConfiguredError(config.KeyConnectionString,
			fmt.Errorf("no AWS region in connection string or environment"))
	}

	client := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if cs.Endpoint != "" {
			o.BaseEndpoint = aws.String(cs.Endpoint)
		}
	})

	logger.OrNop(log).Info("DynamoDB client initialized",
		zap.String("region", cfg.Region),
		zap.String("endpoint", cs.Endpoint),
		zap.Bool("development", cs.Development))
	return client, nil
}
