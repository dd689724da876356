package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scportal/search-api/pkg/config"
)

type fakePresigner struct {
	input   *s3.GetObjectInput
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.input = params
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://s3.example.org/" + *params.Bucket + "/" + *params.Key + "?X-Amz-Signature=abc"}, nil
}

func TestS3SignerPresignsGet(t *testing.T) {
	presigner := &fakePresigner{}
	signer := NewS3Signer(presigner, 2*time.Hour)

	signed, err := signer.SignURL(context.Background(), "fc-bucket", "cluster.txt")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.org/fc-bucket/cluster.txt?X-Amz-Signature=abc", signed)
	assert.Equal(t, "fc-bucket", *presigner.input.Bucket)
	assert.Equal(t, 2*time.Hour, presigner.expires)
}

func TestS3SignerWrapsErrors(t *testing.T) {
	signer := NewS3Signer(&fakePresigner{err: errors.New("denied")}, time.Hour)
	_, err := signer.SignURL(context.Background(), "fc-bucket", "cluster.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestNewS3ClientUsesCustomEndpointPathStyle(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.StorageConfig{
		S3Region:    "us-east-1",
		S3Endpoint:  "https://minio.internal:9000",
		S3AccessKey: "access",
		S3SecretKey: "secret",
	})
	require.NoError(t, err)

	options := client.Options()
	require.NotNil(t, options.BaseEndpoint)
	assert.Equal(t, "https://minio.internal:9000", *options.BaseEndpoint)
	assert.True(t, options.UsePathStyle)

	signed, err := NewS3Signer(s3.NewPresignClient(client), time.Hour).SignURL(context.Background(), "fc-bucket-1", "metadata.txt")
	require.NoError(t, err)
	assert.Contains(t, signed, "https://minio.internal:9000/fc-bucket-1/metadata.txt?")
	assert.Contains(t, signed, "X-Amz-Expires=3600")
}

func TestNewS3ClientDefaultsToAWSEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), config.StorageConfig{
		S3Region:    "us-west-2",
		S3AccessKey: "access",
		S3SecretKey: "secret",
	})
	require.NoError(t, err)

	options := client.Options()
	assert.Nil(t, options.BaseEndpoint)
	assert.False(t, options.UsePathStyle)
}
