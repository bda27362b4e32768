// Package logs provides read-only access to the log streams of a deployed
// application instance. Entries are never cached and never individually
// addressable; the only operation is a filtered list query scoped under a
// deployment.
package logs

import (
	"context"
	"fmt"

	"github.com/nestyard/nest-go/api"
	"github.com/nestyard/nest-go/deployments"
)

// Entry is one log line emitted by a deployed instance.
type Entry struct {
	Deployment *deployments.Deployment `json:"-"`

	Time    string `json:"time,omitempty"`
	Source  string `json:"source,omitempty"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}

// CollectionPath implements api.Entity.
func (e *Entry) CollectionPath() string {
	if e.Deployment == nil {
		return ""
	}
	return e.Deployment.CollectionKey() + "logs/"
}

// CollectionKey implements api.Entity. Log entries have no server identity
// of their own, which also keeps them out of the object cache.
func (e *Entry) CollectionKey() string {
	return ""
}

// WithSql filters a log query with the platform's SQL-ish filter expression.
func WithSql(query string) api.Option {
	return api.WithDataValue("sql", query)
}

// WithActivity restricts a log query to a named activity stream.
func WithActivity(activity string) api.Option {
	return api.WithDataValue("activity", activity)
}

// Client is a client for deployment log streams.
type Client struct {
	client *api.Client
}

// NewClient creates a new client for deployment log streams.
func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

// List queries the log entries of a deployment, preserving server order.
func (c *Client) List(ctx context.Context, deployment *deployments.Deployment, opt ...api.Option) (*api.Status[Entry], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in List request")
	}
	if deployment == nil || deployment.CollectionKey() == "" {
		return nil, fmt.Errorf("deployment with no key passed into List request")
	}
	return api.QueryList(ctx, c.client, &Entry{Deployment: deployment}, opt...)
}
