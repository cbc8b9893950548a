package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for S3 storage.
type S3Config struct {
	Bucket string
	Region string
	// Endpoint is an optional custom endpoint (MinIO, LocalStack). Setting
	// it enables path-style addressing.
	Endpoint string
	// PublicBaseURL, when set, is the prefix of returned object URLs (a CDN
	// in front of the bucket, for instance).
	PublicBaseURL string
}

// S3Backend writes objects to an S3-compatible bucket.
type S3Backend struct {
	client *s3.Client
	cfg    S3Config
}

var _ Backend = (*S3Backend)(nil)

// NewS3 loads the default AWS configuration chain and builds a backend.
func NewS3(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return NewS3WithClient(s3.NewFromConfig(awsCfg, s3opts...), cfg), nil
}

// NewS3WithClient builds a backend around a pre-configured client.
func NewS3WithClient(client *s3.Client, cfg S3Config) *S3Backend {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return &S3Backend{client: client, cfg: cfg}
}

// Upload puts data at key and returns its URL.
func (b *S3Backend) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("%w: s3 put object %s: %v", ErrUploadFailed, key, err)
	}
	return b.URL(key), nil
}

// URL returns the address an uploaded key is served from.
func (b *S3Backend) URL(key string) string {
	switch {
	case b.cfg.PublicBaseURL != "":
		return joinURL(b.cfg.PublicBaseURL, key)
	case b.cfg.Endpoint != "":
		return joinURL(joinURL(b.cfg.Endpoint, b.cfg.Bucket), key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.cfg.Bucket, b.cfg.Region, key)
	}
}
