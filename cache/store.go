// Package cache implements a disk-backed object cache keyed by resource
// collection keys. Entries are stored one JSON file per object, mirroring the
// key's path segments as nested directories, with a small TTL-bounded memory
// layer in front of the disk.
//
// The cache is strictly best-effort: the remote service is always the source
// of truth, so every I/O failure is swallowed and at most logged.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/jellydator/ttlcache/v3"
)

const defaultMemoryTTL = time.Minute

// Store is a persistent key to object store. It is safe for concurrent use;
// concurrent writers to the same key race with last-writer-wins semantics.
type Store struct {
	root   string
	logger hclog.Logger
	memTTL time.Duration
	mem    *ttlcache.Cache[string, []byte]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for cache diagnostics. Failures are only
// ever logged at debug level.
func WithLogger(logger hclog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMemoryTTL sets how long a snapshot stays in the memory layer before the
// next Load falls through to disk. Zero disables the memory layer.
func WithMemoryTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.memTTL = ttl
	}
}

// New creates a Store rooted at the given directory. The directory is created
// lazily on the first Save. The memory layer's eviction goroutine runs for
// the life of the store; expired snapshots are dropped from memory, not just
// hidden from lookups.
func New(root string, opt ...Option) *Store {
	s := &Store{
		root:   root,
		logger: hclog.NewNullLogger(),
		memTTL: defaultMemoryTTL,
	}
	for _, o := range opt {
		o(s)
	}
	if s.memTTL > 0 {
		s.mem = ttlcache.New(
			ttlcache.WithTTL[string, []byte](s.memTTL),
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		)
		go s.mem.Start()
	}
	return s
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// path maps a collection key such as "apps/42/" onto the snapshot file
// "<root>/apps/42.json".
func (s *Store) path(key string) string {
	key = strings.TrimSuffix(key, "/")
	return filepath.Join(s.root, filepath.FromSlash(key)+".json")
}

// Save serializes v and writes it under key, overwriting any prior snapshot.
// Keyless entities are never stored.
func (s *Store) Save(key string, v any) {
	if key == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Debug("cache save: marshal failed", "key", key, "error", err)
		return
	}
	file := s.path(key)
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		s.logger.Debug("cache save: mkdir failed", "key", key, "error", err)
		return
	}
	if err := os.WriteFile(file, b, 0o644); err != nil {
		s.logger.Debug("cache save: write failed", "key", key, "error", err)
		return
	}
	if s.mem != nil {
		s.mem.Set(key, b, ttlcache.DefaultTTL)
	}
}

// Load deserializes the snapshot stored under key into v, overwriting v's
// fields in place. It reports whether a snapshot was found.
func (s *Store) Load(key string, v any) bool {
	if key == "" {
		return false
	}
	if s.mem != nil {
		if item := s.mem.Get(key); item != nil {
			if err := json.Unmarshal(item.Value(), v); err == nil {
				return true
			}
			s.mem.Delete(key)
		}
	}
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.logger.Debug("cache load: corrupt snapshot", "key", key, "error", err)
		return false
	}
	if s.mem != nil {
		s.mem.Set(key, b, ttlcache.DefaultTTL)
	}
	return true
}

// Remove deletes any snapshot stored under key. Removing an absent key is a
// no-op.
func (s *Store) Remove(key string) {
	if key == "" {
		return
	}
	if s.mem != nil {
		s.mem.Delete(key)
	}
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Debug("cache remove failed", "key", key, "error", err)
	}
}

// Clear deletes every snapshot in the cache namespace, keeping the root
// directory itself. Typically called at session start to drop stale
// cross-session data.
func (s *Store) Clear() {
	if s.mem != nil {
		s.mem.DeleteAll()
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			s.logger.Debug("cache clear: remove failed", "entry", entry.Name(), "error", err)
		}
	}
}
