//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GetAWSConfig returns the shared AWS config pointing to LocalStack
func GetAWSConfig(t *testing.T) aws.Config {
	if awsCfg.Region == "" {
		t.Fatal("AWS Config not initialized (TestMain didn't run?)")
	}
	return awsCfg
}

// buildBinary compiles the CLI into dir.
func buildBinary(dir string) (string, error) {
	path := filepath.Join(dir, "skybalance")
	cmd := exec.Command("go", "build", "-o", path, "./cmd/skybalance")
	cmd.Dir = "../../"
	cmd.Env = os.Environ()
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %s", err, out)
	}
	return path, nil
}

// WriteRegistry writes a small facility registry and returns its path.
func WriteRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airports.csv")
	content := "name,latitude,longitude\nJFK,40.6413,-73.7781\nLGA,40.7769,-73.874\nEWR,40.6895,-74.1745\nTEB,40.8501,-74.0608\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write registry: %v", err)
	}
	return path
}

// CreateBucket provisions an S3 bucket in LocalStack.
func CreateBucket(t *testing.T, name string) {
	t.Helper()
	client := s3.NewFromConfig(GetAWSConfig(t), func(o *s3.Options) { o.UsePathStyle = true })
	if _, err := client.CreateBucket(context.TODO(), &s3.CreateBucketInput{Bucket: aws.String(name)}); err != nil {
		t.Fatalf("Failed to create bucket %s: %v", name, err)
	}
}

// ListKeys returns every object key under prefix.
func ListKeys(t *testing.T, bucket, prefix string) []string {
	t.Helper()
	client := s3.NewFromConfig(GetAWSConfig(t), func(o *s3.Options) { o.UsePathStyle = true })
	out, err := client.ListObjectsV2(context.TODO(), &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		t.Fatalf("Failed to list %s/%s: %v", bucket, prefix, err)
	}
	var keys []string
	for _, o := range out.Contents {
		keys = append(keys, aws.ToString(o.Key))
	}
	return keys
}

// CreateLedgerTable provisions the cycle ledger table keyed by run_id and cycle.
func CreateLedgerTable(t *testing.T, name string) {
	t.Helper()
	client := dynamodb.NewFromConfig(GetAWSConfig(t))
	_, err := client.CreateTable(context.TODO(), &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("run_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("cycle"), AttributeType: types.ScalarAttributeTypeN},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("run_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("cycle"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		t.Fatalf("Failed to create table %s: %v", name, err)
	}
}

// Skybalance runs the built binary against LocalStack.
func Skybalance(t *testing.T, env []string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(binPath, args...)
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = env
	return cmd.CombinedOutput()
}
