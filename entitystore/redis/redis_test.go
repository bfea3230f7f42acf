package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sandrolain/cachegate/entitystore"
)

func TestKey(t *testing.T) {
	s := NewWithClient(nil)
	digest := entitystore.NewDigest([]byte("hello"))
	want := "cachegate:entity:" + string(digest)
	if got := s.key(digest); got != want {
		t.Errorf("key(%q) = %q, want %q", digest, got, want)
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping test; no server running at localhost:6379")
	}
	_ = client.FlushAll(ctx)

	s := NewWithClient(client)

	body := []byte("redis-body")
	digest := entitystore.NewDigest(body)

	if err := s.Write(ctx, digest, body); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, ok, err := s.Open(ctx, digest)
	if err != nil || !ok {
		t.Fatalf("Open() failed: ok=%v err=%v", ok, err)
	}
	if string(got) != string(body) {
		t.Errorf("Open() = %s, want %s", got, body)
	}

	if err := s.Purge(ctx, digest); err != nil {
		t.Fatalf("Purge() failed: %v", err)
	}
	if _, ok, _ := s.Open(ctx, digest); ok {
		t.Error("expected digest to be gone after Purge()")
	}
}

func TestRedisMiss(t *testing.T) {
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping test; no server running at localhost:6379")
	}
	_ = client.FlushAll(ctx)

	s := NewWithClient(client)
	_, ok, err := s.Open(ctx, entitystore.NewDigest([]byte("never-stored")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if ok {
		t.Error("expected miss on a key that was never stored")
	}
}
