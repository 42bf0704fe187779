package export

import (
	"bytes"
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/castellan/extract/failure"
)

// S3BackendConfig configures the durable S3 export destination, mirroring
// audit.S3ArchiveConfig's shape (same AWS SDK v2 client setup) since both
// are "flat key under a bucket/prefix" writers with no partitioned dataset
// underneath.
type S3BackendConfig struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3Backend writes exported files as S3 objects keyed by prefix/key.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend builds an S3Backend using the AWS SDK's default credential
// chain, optionally pointed at an S3-compatible endpoint.
func NewS3Backend(ctx context.Context, cfg S3BackendConfig) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("export: S3 backend requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, failure.WrapInitError(err, cfg.Bucket)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = &endpoint })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &S3Backend{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put uploads data to prefix/key with contentType set on the object.
func (b *S3Backend) Put(ctx context.Context, key string, data []byte, contentType string) error {
	fullKey := key
	if b.prefix != "" {
		fullKey = b.prefix + "/" + key
	}

	input := &s3.PutObjectInput{
		Bucket: &b.bucket,
		Key:    &fullKey,
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return failure.WrapWriteError(err, fullKey)
	}
	return nil
}
