package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

const testBlob = `{"timezone":"America/New_York","currently":{"time":1512997200}}`

// TestFileStore_PutGet verifies that Put stores a blob and Get returns it unchanged.
func TestFileStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "darksky.json.gz"), 0, nil)

	if err := s.Put(ctx, []byte(testBlob)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(got) != testBlob {
		t.Errorf("Get() = %q, want %q", got, testBlob)
	}
}

// TestFileStore_Get_Miss verifies that a missing file is a miss, not an error.
func TestFileStore_Get_Miss(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.json.gz"), 0, nil)

	_, ok, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestFileStore_Put_Overwrites verifies that a second Put replaces the first blob.
func TestFileStore_Put_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "darksky.json.gz"), 0, nil)

	if err := s.Put(ctx, []byte("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, []byte("second")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, _, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no leftover temp files)", len(entries))
	}
}

// TestFileStore_Get_Expired verifies that a blob older than maxAge reads as a miss.
func TestFileStore_Get_Expired(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Now())
	s := NewFileStore(filepath.Join(t.TempDir(), "darksky.json.gz"), 10*time.Minute, clock)

	if err := s.Put(ctx, []byte(testBlob)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	clock.Advance(5 * time.Minute)
	if _, ok, err := s.Get(ctx); err != nil || !ok {
		t.Fatalf("Get() before expiry = ok %v, err %v; want hit", ok, err)
	}

	clock.Advance(time.Hour)
	_, ok, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for expired blob")
	}
}

// TestFileStore_Get_Corrupt verifies that a file that is not gzip is reported as an error.
func TestFileStore_Get_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "darksky.json.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, ok, err := NewFileStore(path, 0, nil).Get(context.Background())
	if err == nil {
		t.Fatal("Get() expected error for corrupt file")
	}
	if ok {
		t.Error("Get() ok = true, want false on error")
	}
}

// TestFileStore_CanceledContext verifies that Get and Put honour a canceled context.
func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFileStore(filepath.Join(t.TempDir(), "darksky.json.gz"), 0, nil)

	if err := s.Put(ctx, []byte(testBlob)); err == nil {
		t.Error("Put() expected error for canceled context")
	}
	if _, _, err := s.Get(ctx); err == nil {
		t.Error("Get() expected error for canceled context")
	}
}

func TestNewFileStore_DefaultPath(t *testing.T) {
	if got := NewFileStore("", 0, nil).Path(); got != DefaultFilePath {
		t.Errorf("Path() = %q, want %q", got, DefaultFilePath)
	}
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		name   string
		maxAge time.Duration
		want   int32
	}{
		{"zero never expires", 0, 0},
		{"sub-second rounds up", 200 * time.Millisecond, 1},
		{"minutes", 15 * time.Minute, 900},
		{"clamped at 30 days", 90 * 24 * time.Hour, 30 * 24 * 60 * 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expiration(tt.maxAge); got != tt.want {
				t.Errorf("expiration(%v) = %d, want %d", tt.maxAge, got, tt.want)
			}
		})
	}
}

func TestParseAddrs(t *testing.T) {
	got := parseAddrs(" host1:11211, ,host2:11211 ")
	if len(got) != 2 || got[0] != "host1:11211" || got[1] != "host2:11211" {
		t.Errorf("parseAddrs() = %v", got)
	}
}
