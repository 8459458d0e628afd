package rds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/smithy-go"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

var (
	ErrInstanceNotFound = errors.New("database instance not found")
	ErrRequestFailed    = errors.New("rds request failed")
)

// API is the part of the RDS client used here.
type API interface {
	rds.DescribeDBInstancesAPIClient
	StartDBInstance(ctx context.Context, in *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error)
	StopDBInstance(ctx context.Context, in *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
}

type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// Client starts, stops and describes RDS instances. Every call is bounded
// by the configured timeout.
type Client struct {
	api     API
	timeout time.Duration
}

// New builds a client from static credentials, or from the default AWS
// credential chain when no key is configured.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	logger.Info("Creating an AWS session...")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithAPI(rds.NewFromConfig(awsCfg), cfg.Timeout), nil
}

func NewWithAPI(api API, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{api: api, timeout: timeout}
}

func (c *Client) Describe(ctx context.Context, id string) (models.DatabaseStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.api.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return "", wrap("describe", id, err)
	}
	if len(out.DBInstances) == 0 {
		return "", fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	return models.DatabaseStatus(aws.ToString(out.DBInstances[0].DBInstanceStatus)), nil
}

func (c *Client) Start(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.StartDBInstance(ctx, &rds.StartDBInstanceInput{DBInstanceIdentifier: aws.String(id)})
	if err != nil {
		return wrap("start", id, err)
	}
	return nil
}

func (c *Client) Stop(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.StopDBInstance(ctx, &rds.StopDBInstanceInput{DBInstanceIdentifier: aws.String(id)})
	if err != nil {
		return wrap("stop", id, err)
	}
	return nil
}

// ListAll returns the identifiers of every instance in the region.
func (c *Client) ListAll(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var ids []string
	p := rds.NewDescribeDBInstancesPaginator(c.api, &rds.DescribeDBInstancesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, wrap("list", "instances", err)
		}
		for _, db := range page.DBInstances {
			ids = append(ids, aws.ToString(db.DBInstanceIdentifier))
		}
	}
	return ids, nil
}

func wrap(op, id string, err error) error {
	var notFound *types.DBInstanceNotFoundFault
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s %s: %s: %s", ErrRequestFailed, op, id, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, op, id, err)
}
