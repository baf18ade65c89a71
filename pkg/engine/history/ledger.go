// Package history keeps a per-cycle ledger of rebalancing runs and derives
// trends from it.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/DrSkyle/skybalance/pkg/storage"
)

// Entry records the outcome of one cycle.
type Entry struct {
	RunID     string  `json:"run_id"`
	Cycle     int     `json:"cycle"`
	Timestamp int64   `json:"timestamp"`
	Threshold float64 `json:"threshold"`
	TotalLoad int     `json:"total_load"`

	Overloaded    int `json:"overloaded"`
	Underutilized int `json:"underutilized"`
	Idle          int `json:"idle"`

	FailedFacilities int     `json:"failed_facilities"`
	Moves            int     `json:"moves"`
	Skipped          int     `json:"skipped"`
	Displacement     float64 `json:"displacement"`

	// Loads holds facility loads in registry order.
	Loads Vector `json:"loads,omitempty"`
}

// Backend defines the storage interface for ledger entries.
type Backend interface {
	Append(ctx context.Context, e Entry) error
	// Load returns up to the n most recent entries, oldest first.
	Load(ctx context.Context, n int) ([]Entry, error)
}

// Client manages the ledger.
type Client struct {
	backend Backend
}

// NewClient initializes a ledger client.
// Defaults to a FileBackend in the working directory.
func NewClient(backend Backend) *Client {
	if backend == nil {
		backend = NewLocalBackend(filepath.Join(".skybalance", "history"))
	}
	return &Client{backend: backend}
}

// Append records a new entry.
func (c *Client) Append(ctx context.Context, e Entry) error {
	return c.backend.Append(ctx, e)
}

// LoadWindow retrieves the n most recent entries.
func (c *Client) LoadWindow(ctx context.Context, n int) ([]Entry, error) {
	return c.backend.Load(ctx, n)
}

// NewBackend picks a backend from target:
// s3://bucket/key, dynamodb://table, or a local directory.
func NewBackend(ctx context.Context, target string, load storage.ConfigLoader) (Backend, error) {
	if table, ok := strings.CutPrefix(target, "dynamodb://"); ok {
		if table == "" {
			return nil, fmt.Errorf("invalid dynamodb url %q: missing table", target)
		}
		if load == nil {
			return nil, fmt.Errorf("dynamodb ledger %s requires AWS configuration", target)
		}
		cfg, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return NewDynamoBackend(cfg, table), nil
	}

	bucket, key, isS3, err := storage.ParseS3URL(target)
	if err != nil {
		return nil, err
	}
	if isS3 {
		if load == nil {
			return nil, fmt.Errorf("s3 ledger %s requires AWS configuration", target)
		}
		cfg, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if key == "" || strings.HasSuffix(key, "/") {
			key += ledgerFile
		}
		return NewS3Backend(storage.NewS3Store(cfg, bucket), key), nil
	}

	return NewLocalBackend(target), nil
}

const ledgerFile = "ledger.jsonl"

// NewLocalBackend creates a file-based backend storing dir/ledger.jsonl.
func NewLocalBackend(dir string) *FileBackend {
	return &FileBackend{Path: filepath.Join(dir, ledgerFile)}
}

// FileBackend implements local filesystem storage.
type FileBackend struct {
	Path string
}

func (b *FileBackend) Append(ctx context.Context, e Entry) error {
	if err := os.MkdirAll(filepath.Dir(b.Path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(b.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	_, err = f.Write(append(data, '\n'))
	return err
}

func (b *FileBackend) Load(ctx context.Context, n int) ([]Entry, error) {
	f, err := os.Open(b.Path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := decode(f)
	if err != nil {
		return nil, err
	}
	return tail(entries, n), nil
}

// decode reads JSONL, skipping lines that are not valid entries.
func decode(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func tail(entries []Entry, n int) []Entry {
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}
