//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

// TestS3Store_Integration runs the S3 store against LocalStack. Requires Docker.
func TestS3Store_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := localstack.Run(ctx, "localstack/localstack:3.0")
	require.NoError(t, err, "failed to start LocalStack")
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}()

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(t, err)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
	)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = true })
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String("skybalance")})
	require.NoError(t, err)

	store := &S3Store{Client: client, Bucket: "skybalance", Prefix: "runs/it"}

	require.NoError(t, store.Put(ctx, "airport_load.csv", []byte("airport,load\nA,3\n")))

	data, err := store.Get(ctx, "airport_load.csv")
	require.NoError(t, err)
	assert.Equal(t, "airport,load\nA,3\n", string(data))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"airport_load.csv"}, keys)

	_, err = store.Get(ctx, "missing.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}
