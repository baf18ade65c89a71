package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DrSkyle/skybalance/pkg/storage"
)

// S3Backend stores the ledger as one JSONL object.
// Appends are read-modify-write; concurrent writers are not supported.
type S3Backend struct {
	Store storage.BlobStore
	Key   string
}

// NewS3Backend initializes an S3 backend.
func NewS3Backend(store storage.BlobStore, key string) *S3Backend {
	return &S3Backend{Store: store, Key: key}
}

func (b *S3Backend) Append(ctx context.Context, e Entry) error {
	existing, err := b.readAll(ctx)
	if err != nil {
		return err
	}
	existing = append(existing, e)

	var buf bytes.Buffer
	for _, entry := range existing {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	if err := b.Store.Put(ctx, b.Key, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}

func (b *S3Backend) Load(ctx context.Context, n int) ([]Entry, error) {
	entries, err := b.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return tail(entries, n), nil
}

func (b *S3Backend) readAll(ctx context.Context) ([]Entry, error) {
	data, err := b.Store.Get(ctx, b.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return decode(bytes.NewReader(data))
}
