package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/scportal/search-api/pkg/config"
)

// ObjectPresigner is the subset of the S3 presign client used for downloads.
// The *s3.PresignClient type satisfies this interface.
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Signer presigns GET requests against S3-compatible study buckets.
type S3Signer struct {
	presigner ObjectPresigner
	ttl       time.Duration
}

// NewS3Client builds an S3 client from static credentials. A custom endpoint
// targets S3-compatible stores, addressed path-style.
func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Signer wraps a presign client.
func NewS3Signer(presigner ObjectPresigner, ttl time.Duration) *S3Signer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &S3Signer{presigner: presigner, ttl: ttl}
}

// SignURL presigns a GET for bucket/key.
func (s *S3Signer) SignURL(ctx context.Context, bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key required")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// NewSigner picks the S3 signer when static credentials are configured and
// the gateway signer otherwise.
func NewSigner(ctx context.Context, cfg config.StorageConfig, ttl time.Duration) (URLSigner, error) {
	if !cfg.S3Enabled() {
		return NewGatewaySigner(cfg.GatewayBaseURL, cfg.GatewaySecret, ttl), nil
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewS3Signer(s3.NewPresignClient(client), ttl), nil
}
