package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxAttempts bounds the authentication retry loop: one logical operation
// issues at most this many network attempts. Token expiry is common in
// long-lived sessions; a silent re-authentication retry keeps calling code
// free of credential concerns, while the hard ceiling bounds worst-case
// latency against a permanently-invalid credential.
const maxAttempts = 3

// tokenField is the query data key carrying the bearer token.
const tokenField = "token"

// operation is one of the five logical request kinds.
type operation int

const (
	opCreate operation = iota
	opQueryOne
	opQueryList
	opUpdate
	opRemove
)

func (o operation) method() string {
	switch o {
	case opCreate:
		return http.MethodPost
	case opQueryOne, opQueryList:
		return http.MethodGet
	case opUpdate:
		return http.MethodPut
	case opRemove:
		return http.MethodDelete
	}
	return ""
}

// keyed reports whether the operation addresses a single identified instance
// rather than the collection.
func (o operation) keyed() bool {
	switch o {
	case opQueryOne, opUpdate, opRemove:
		return true
	}
	return false
}

// hasBody reports whether the serialized entity rides along as the request
// body.
func (o operation) hasBody() bool {
	switch o {
	case opCreate, opUpdate, opRemove:
		return true
	}
	return false
}

func (o operation) String() string {
	switch o {
	case opCreate:
		return "create"
	case opQueryOne:
		return "query"
	case opQueryList:
		return "query-list"
	case opUpdate:
		return "update"
	case opRemove:
		return "remove"
	}
	return "unknown"
}

// requestPath resolves the path an operation is addressed at: the collection
// path for create/list, the instance key otherwise, plus any sub-path.
func requestPath(op operation, seed Entity, subPath string) (string, error) {
	var p string
	if op.keyed() {
		p = seed.CollectionKey()
		if p == "" {
			return "", fmt.Errorf("entity has no collection key for %s request", op)
		}
	} else {
		p = seed.CollectionPath()
		if p == "" {
			return "", fmt.Errorf("entity has no collection path for %s request", op)
		}
	}
	if subPath != "" {
		p = strings.TrimSuffix(p, "/") + "/" + strings.Trim(subPath, "/")
	}
	return p, nil
}

// attempt performs exactly one network round-trip for an operation and
// decodes the response. It never retries and never touches the cache or the
// permit. Transport failures are converted into a local-error Status with
// the reason recorded in the notes; only context cancellation surfaces as an
// error.
func attempt[T any, PT entityPtr[T]](ctx context.Context, c *Client, op operation, seed PT, opts options) (*Status[T], error) {
	reqPath, err := requestPath(op, seed, opts.subPath)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for k, v := range opts.data {
		query.Set(k, v)
	}

	var body any
	if op.hasBody() {
		body = seed
	}

	req, err := c.newRequest(ctx, op.method(), reqPath, body, query, opts.header)
	if err != nil {
		return nil, fmt.Errorf("error creating %s request: %w", op, err)
	}

	resp, err := c.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Debug("transport failure", "op", op.String(), "path", reqPath, "error", err)
		return localStatus[T](0, err.Error()), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return localStatus[T](resp.StatusCode, err.Error()), nil
	}

	return decodeResponse[T, PT](seed, op == opQueryList, resp.StatusCode, raw), nil
}

// execute runs one logical operation reliably against a changing
// authentication context, then synchronizes the cache.
//
// Per attempt: the currently held permit's token is injected into the query
// data (replacing any stale token from a previous attempt; anonymous
// operations skip this), the request is executed, and the outcome evaluated.
// An unauthorized response with a permit held triggers a token refresh and a
// retry, up to maxAttempts total attempts; every other outcome is final.
// Cache synchronization happens only for a final outcome with a success
// code.
func execute[T any, PT entityPtr[T]](ctx context.Context, c *Client, op operation, seed PT, defaultCache bool, opt ...Option) (*Status[T], error) {
	if c == nil {
		return nil, errors.New("nil client")
	}
	opts := getOpts(opt...)
	useCache := opts.resolveCache(defaultCache)

	var st *Status[T]
	for attemptNum := 1; ; attemptNum++ {
		if p := c.ActivePermit(); p != nil && p.Token != "" {
			opts.data[tokenField] = p.Token
		}

		var err error
		st, err = attempt[T, PT](ctx, c, op, seed, opts)
		if err != nil {
			return nil, err
		}
		if st.HttpStatus != http.StatusUnauthorized {
			break
		}

		// The current token is presumed stale. Without a permit there is
		// nothing to refresh, and once attempts are exhausted the
		// unauthorized outcome is final.
		if c.ActivePermit() == nil || attemptNum == maxAttempts {
			return st, nil
		}
		c.logger.Debug("token rejected, refreshing permit", "op", op.String(), "attempt", attemptNum)
		if err := c.refreshPermit(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Debug("permit refresh failed", "error", err)
			st.Notes = joinNotes(st.Notes, "token refresh failed: "+err.Error())
			return st, nil
		}
	}

	syncCache[T, PT](c, op, seed, useCache, st)
	return st, nil
}

// syncCache applies the post-success cache policy: keyed results are saved
// when caching was requested, removed when it was explicitly declined; list
// results element-wise. Results with warning or error codes never touch the
// cache.
func syncCache[T any, PT entityPtr[T]](c *Client, op operation, seed PT, useCache bool, st *Status[T]) {
	if c.store == nil || !st.cacheable() {
		return
	}
	apply := func(e PT) {
		key := e.CollectionKey()
		if key == "" {
			return
		}
		if useCache {
			c.store.Save(key, e)
		} else {
			c.store.Remove(key)
		}
	}

	if one, ok := st.Payload.One(); ok {
		apply(PT(one))
		return
	}
	if many, ok := st.Payload.Many(); ok {
		for _, e := range many {
			apply(PT(e))
		}
		return
	}
	// A successful remove typically carries no payload; fall back to the
	// seed so its snapshot still gets dropped.
	if op == opRemove {
		apply(seed)
	}
}

func joinNotes(existing, extra string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return extra
	}
	return existing + "\n" + extra
}
