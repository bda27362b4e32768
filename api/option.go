package api

import "net/http"

// Option is a func that sets optional attributes for a call. Options are
// processed in the order they appear in the function call, so for a given
// attribute a succession of calls will result in the last one taking effect.
type Option func(*options)

type options struct {
	data    map[string]string
	subPath string
	header  http.Header

	// cache tri-state: each facade verb carries its own default, which an
	// explicit WithCache/WithoutCache overrides.
	useCache bool
	cacheSet bool
}

func getOpts(opt ...Option) options {
	opts := options{
		data:   make(map[string]string),
		header: make(http.Header),
	}
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// resolveCache returns the effective caching choice for a call given the
// verb's default.
func (o *options) resolveCache(def bool) bool {
	if o.cacheSet {
		return o.useCache
	}
	return def
}

// WithData merges the given flat string map into the call's query data. Used
// for filters and protocol fields such as "sql" or "activity".
func WithData(data map[string]string) Option {
	return func(o *options) {
		for k, v := range data {
			o.data[k] = v
		}
	}
}

// WithDataValue sets a single query data value.
func WithDataValue(key, value string) Option {
	return func(o *options) {
		o.data[key] = value
	}
}

// WithSubPath appends a path segment after the resolved collection path or
// key, supporting nested resource queries such as fetching logs scoped to a
// deployed instance.
func WithSubPath(subPath string) Option {
	return func(o *options) {
		o.subPath = subPath
	}
}

// WithCache requests cache synchronization for verbs that default to no
// caching (Remove in particular).
func WithCache() Option {
	return func(o *options) {
		o.useCache = true
		o.cacheSet = true
	}
}

// WithoutCache declines caching for this call. On a successful keyed
// operation any existing snapshot for the entity is removed rather than
// refreshed.
func WithoutCache() Option {
	return func(o *options) {
		o.useCache = false
		o.cacheSet = true
	}
}

// WithHeader adds an extra header to the outgoing request.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.header.Add(key, value)
	}
}
