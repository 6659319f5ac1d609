package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// DefaultMemcachedKey is the single key the forecast blob is stored under.
const DefaultMemcachedKey = "jakesky:darksky"

// MemcachedStore implements Store using memcached.
type MemcachedStore struct {
	client *memcache.Client
	key    string
	maxAge time.Duration
}

// NewMemcachedStore creates a MemcachedStore. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). maxAge becomes the item expiration;
// zero stores without expiry. timeout uses the package default if zero.
func NewMemcachedStore(addrs string, maxAge, timeout time.Duration) *MemcachedStore {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &MemcachedStore{client: client, key: DefaultMemcachedKey, maxAge: maxAge}
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Get implements Store.Get. Returns false, nil on cache miss; false, err on error.
func (s *MemcachedStore) Get(ctx context.Context) ([]byte, bool, error) {
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	item, err := s.client.Get(s.key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return item.Value, true, nil
}

// Put implements Store.Put.
func (s *MemcachedStore) Put(ctx context.Context, data []byte) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.client.Set(&memcache.Item{
		Key:        s.key,
		Value:      data,
		Expiration: expiration(s.maxAge),
	})
}

// expiration converts maxAge to memcached's relative expiration seconds. Values past 30 days are
// read by memcached as absolute timestamps, so they are clamped.
func expiration(maxAge time.Duration) int32 {
	const maxRelativeExp = 30 * 24 * 60 * 60
	if maxAge <= 0 {
		return 0
	}
	sec := int64(maxAge / time.Second)
	if sec < 1 {
		sec = 1
	}
	if sec > maxRelativeExp {
		sec = maxRelativeExp
	}
	return int32(sec)
}

// Ping checks if memcached is reachable.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close closes the memcached client connections.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
