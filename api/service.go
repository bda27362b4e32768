package api

import (
	"context"
	"errors"
	"net/http"
)

// The five generic verbs below are the public surface of the core. Each
// takes a seed entity supplying the concrete type and its path derivation;
// results come back as a Status wrapping a typed payload. Transport and
// business failures are returned as data on the Status, never raised; the
// error return is reserved for programmer mistakes (nil client, keyless
// seed) and context cancellation.

// Create registers a new entity with the platform: POST at the collection
// path with the serialized seed as body. On success the created entity
// (carrying its server-assigned identity) is cached unless caching was
// declined.
func Create[T any, PT entityPtr[T]](ctx context.Context, c *Client, seed PT, opt ...Option) (*Status[T], error) {
	return execute[T, PT](ctx, c, opCreate, seed, true, opt...)
}

// Query fetches the single entity addressed by the seed's collection key.
// When caching is requested (the default) and a snapshot exists for the key,
// the snapshot is returned immediately with a success status and the network
// is never contacted.
func Query[T any, PT entityPtr[T]](ctx context.Context, c *Client, seed PT, opt ...Option) (*Status[T], error) {
	if c == nil {
		return nil, errors.New("nil client")
	}

	opts := getOpts(opt...)
	if opts.resolveCache(true) && c.store != nil && opts.subPath == "" {
		if key := seed.CollectionKey(); key != "" {
			item := cloneSeed[T, PT](seed)
			if c.store.Load(key, item) {
				return &Status[T]{
					Code:        CodeOK,
					Description: descCacheHit,
					HttpStatus:  http.StatusOK,
					Payload:     onePayload((*T)(item)),
				}, nil
			}
		}
	}

	return execute[T, PT](ctx, c, opQueryOne, seed, true, opt...)
}

// QueryList fetches the entity collection addressed by the seed's collection
// path: GET at the collection path with the query data as filters. There is
// no cache short-circuit for lists, the network round-trip is mandatory for
// freshness; on success each keyed element is individually synchronized to
// the cache.
func QueryList[T any, PT entityPtr[T]](ctx context.Context, c *Client, seed PT, opt ...Option) (*Status[T], error) {
	return execute[T, PT](ctx, c, opQueryList, seed, true, opt...)
}

// Update replaces the entity addressed by the seed's collection key: PUT
// with the serialized seed as body and the query data merged into the URL.
func Update[T any, PT entityPtr[T]](ctx context.Context, c *Client, seed PT, opt ...Option) (*Status[T], error) {
	return execute[T, PT](ctx, c, opUpdate, seed, true, opt...)
}

// Remove deletes the entity addressed by the seed's collection key. Caching
// defaults to off here since the entity no longer exists server side after
// success, which drops any snapshot at the entity's key.
func Remove[T any, PT entityPtr[T]](ctx context.Context, c *Client, seed PT, opt ...Option) (*Status[T], error) {
	return execute[T, PT](ctx, c, opRemove, seed, false, opt...)
}
