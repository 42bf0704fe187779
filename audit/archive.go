package audit

import (
	"bytes"
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/castellan/extract/failure"
)

// S3ArchiveConfig configures the optional durable S3 archival backend for
// completed audit logs. Rather than a hive-partitioned dataset
// layout, each job's log and sidecar are archived under one flat key
// pair — a job's audit trail is a single, independently fetchable unit,
// not a partition member.
type S3ArchiveConfig struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// S3Archive uploads completed audit log files to S3 for durable,
// off-host retention after a job finishes.
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archive builds an S3Archive using the AWS SDK's default credential
// chain (env vars, shared config, IAM role), optionally pointed at an
// S3-compatible endpoint (e.g. R2, MinIO) via cfg.Endpoint.
func NewS3Archive(ctx context.Context, cfg S3ArchiveConfig) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("audit: S3 archive requires a bucket")
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

	return &S3Archive{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ArchiveJob uploads jobID's log and sidecar files from dir to S3 under
// prefix/jobID.jsonl and prefix/jobID.jsonl.blake3.
func (a *S3Archive) ArchiveJob(ctx context.Context, dir, jobID string) error {
	logPath := dir + "/extraction-" + jobID + ".jsonl"
	sidePath := logPath + ".blake3"

	if err := a.putFile(ctx, logPath, a.key(jobID+".jsonl")); err != nil {
		return err
	}
	return a.putFile(ctx, sidePath, a.key(jobID+".jsonl.blake3"))
}

func (a *S3Archive) key(name string) string {
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

func (a *S3Archive) putFile(ctx context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return failure.WrapReadError(err, localPath)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return failure.WrapWriteError(err, key)
	}
	return nil
}
