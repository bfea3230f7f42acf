package leveldb

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/sandrolain/cachegate/entitystore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.Open(ctx, entitystore.NewDigest([]byte("missing")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if ok {
		t.Error("expected miss on an empty store")
	}
}

func TestWriteAndOpen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	body := []byte("hello world")
	digest := entitystore.NewDigest(body)

	if err := s.Write(ctx, digest, body); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, ok, err := s.Open(ctx, digest)
	if err != nil || !ok {
		t.Fatalf("Open() failed: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Open() = %s, want %s", got, body)
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	body := []byte("to-be-purged")
	digest := entitystore.NewDigest(body)
	_ = s.Write(ctx, digest, body)

	if err := s.Purge(ctx, digest); err != nil {
		t.Fatalf("Purge() failed: %v", err)
	}

	if _, ok, _ := s.Open(ctx, digest); ok {
		t.Error("expected digest to be gone after Purge()")
	}
}

func TestPurgeMissingDigest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Purge(ctx, entitystore.NewDigest([]byte("nothing"))); err != nil {
		t.Errorf("Purge() on a missing digest should not error: %v", err)
	}
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")

	s1, err := New(dir)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	body := []byte("persisted-across-reopen")
	digest := entitystore.NewDigest(body)
	if err := s1.Write(ctx, digest, body); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s2, err := New(dir)
	if err != nil {
		t.Fatalf("reopen New() failed: %v", err)
	}
	defer s2.Close()

	got, ok, err := s2.Open(ctx, digest)
	if err != nil || !ok {
		t.Fatalf("Open() after reopen failed: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Open() = %s, want %s", got, body)
	}
}
