// Package cache stores the most recent raw forecast response so repeated CLI runs can skip the
// billed upstream call.
package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultFilePath is where FileStore keeps the blob unless configured otherwise.
const DefaultFilePath = "/tmp/darksky.json.gz"

// Store holds a single opaque blob. Get returns (nil, false, nil) when nothing is stored.
type Store interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Put(ctx context.Context, data []byte) error
}

// FileStore keeps the blob gzip-compressed in one file. A blob older than maxAge, judged by the
// file's modification time, reads as a miss; a zero maxAge never expires.
type FileStore struct {
	path   string
	maxAge time.Duration
	clock  clockwork.Clock
}

// NewFileStore creates a FileStore at path (DefaultFilePath if empty). clock may be nil.
func NewFileStore(path string, maxAge time.Duration, clock clockwork.Clock) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FileStore{path: path, maxAge: maxAge, clock: clock}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads and decompresses the stored blob.
func (s *FileStore) Get(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	if s.maxAge > 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, false, fmt.Errorf("stat cache file: %w", err)
		}
		if s.clock.Since(info.ModTime()) > s.maxAge {
			return nil, false, nil
		}
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, false, fmt.Errorf("decompress cache file: %w", err)
	}
	return data, true, nil
}

// Put replaces the stored blob. The file is written beside the target and renamed into place so a
// concurrent reader never sees a partial blob.
func (s *FileStore) Put(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compress cache blob: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress cache blob: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
