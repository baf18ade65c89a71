// Package storage abstracts the blob stores snapshots and ledgers are written to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore defines the interface for abstract storage backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// ConfigLoader resolves AWS configuration on demand.
type ConfigLoader func(context.Context) (aws.Config, error)

// ParseS3URL splits s3://bucket/prefix. ok is false for any other scheme.
func ParseS3URL(raw string) (bucket, key string, ok bool, err error) {
	if !strings.HasPrefix(raw, "s3://") {
		return "", "", false, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", true, fmt.Errorf("invalid s3 url: %w", err)
	}
	if u.Host == "" {
		return "", "", true, fmt.Errorf("invalid s3 url %q: missing bucket", raw)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), true, nil
}

// Open returns the store addressed by target: s3://bucket/prefix or a
// local directory.
func Open(ctx context.Context, target string, load ConfigLoader) (BlobStore, error) {
	bucket, prefix, isS3, err := ParseS3URL(target)
	if err != nil {
		return nil, err
	}
	if !isS3 {
		return NewLocalStore(target), nil
	}
	if load == nil {
		return nil, fmt.Errorf("s3 target %s requires AWS configuration", target)
	}
	cfg, err := load(ctx)
	if err != nil {
		return nil, err
	}
	s := NewS3Store(cfg, bucket)
	s.Prefix = prefix
	return s, nil
}
