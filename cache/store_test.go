package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Id   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func TestStoreRoundTrip(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	s := New(t.TempDir())

	s.Save("apps/42/", &snapshot{Id: 42, Name: "foo"})

	got := new(snapshot)
	require.True(s.Load("apps/42/", got))
	assert.Equal(int64(42), got.Id)
	assert.Equal("foo", got.Name)

	// Overwrite wins
	s.Save("apps/42/", &snapshot{Id: 42, Name: "bar"})
	got = new(snapshot)
	require.True(s.Load("apps/42/", got))
	assert.Equal("bar", got.Name)

	s.Remove("apps/42/")
	assert.False(s.Load("apps/42/", new(snapshot)))

	// Removing an absent key is a no-op
	s.Remove("apps/42/")
}

func TestStoreNestedLayout(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	root := t.TempDir()
	s := New(root)

	s.Save("apps/42/deployments/7/", &snapshot{Id: 7})

	// One JSON file per entity, path segments mirrored as directories.
	_, err := os.Stat(filepath.Join(root, "apps", "42", "deployments", "7.json"))
	require.NoError(err)

	got := new(snapshot)
	require.True(s.Load("apps/42/deployments/7/", got))
	assert.Equal(int64(7), got.Id)
}

func TestStoreKeylessNeverStored(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	s.Save("", &snapshot{Id: 1})

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, s.Load("", new(snapshot)))
}

func TestStoreClear(t *testing.T) {
	assert := assert.New(t)
	s := New(t.TempDir())

	s.Save("apps/1/", &snapshot{Id: 1})
	s.Save("apps/2/", &snapshot{Id: 2})
	s.Clear()

	assert.False(s.Load("apps/1/", new(snapshot)))
	assert.False(s.Load("apps/2/", new(snapshot)))
}

func TestStoreMemoryLayerFallsThroughToDisk(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	root := t.TempDir()
	s := New(root, WithMemoryTTL(time.Millisecond))

	s.Save("apps/9/", &snapshot{Id: 9, Name: "hot"})
	time.Sleep(5 * time.Millisecond)

	// Memory entry expired; the disk snapshot still serves.
	got := new(snapshot)
	require.True(s.Load("apps/9/", got))
	assert.Equal("hot", got.Name)
}

func TestStoreMemoryLayerEvictsExpired(t *testing.T) {
	// Expired snapshots must actually leave the memory layer, not merely be
	// hidden from lookups; a long-lived session would otherwise accumulate
	// every entity it ever loaded.
	s := New(t.TempDir(), WithMemoryTTL(time.Millisecond))

	evicted := make(chan string, 1)
	s.mem.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, []byte]) {
		if reason == ttlcache.EvictionReasonExpired {
			select {
			case evicted <- item.Key():
			default:
			}
		}
	})

	s.Save("apps/11/", &snapshot{Id: 11})

	select {
	case key := <-evicted:
		assert.Equal(t, "apps/11/", key)
	case <-time.After(5 * time.Second):
		t.Fatal("expired snapshot was never evicted from the memory layer")
	}
}

func TestStoreDisabledMemoryLayer(t *testing.T) {
	s := New(t.TempDir(), WithMemoryTTL(0))

	s.Save("apps/3/", &snapshot{Id: 3})
	got := new(snapshot)
	require.True(t, s.Load("apps/3/", got))
	assert.Equal(t, int64(3), got.Id)
}

func TestStoreCorruptSnapshot(t *testing.T) {
	root := t.TempDir()
	s := New(root, WithMemoryTTL(0))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "apps"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "apps", "13.json"), []byte("{not json"), 0o644))

	assert.False(t, s.Load("apps/13/", new(snapshot)))
}
