// Package domains provides the typed client for app custom domain
// resources, including their certificate material.
package domains

import (
	"context"
	"fmt"

	"github.com/nestyard/nest-go/api"
	"github.com/nestyard/nest-go/apps"
)

// Domain is a custom domain attached to an application.
type Domain struct {
	App *apps.App `json:"-"`

	Id      int64  `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Aliases string `json:"aliases,omitempty"`
	Ip      string `json:"ip,omitempty"`
	Primary bool   `json:"primary,omitempty"`

	// Certificate material; the private key is write-only on the wire.
	CertChain  string `json:"cert_chain,omitempty"`
	PrivateKey string `json:"private_key,omitempty"`
}

// CollectionPath implements api.Entity.
func (d *Domain) CollectionPath() string {
	if d.App == nil {
		return ""
	}
	return d.App.CollectionKey() + "domains/"
}

// CollectionKey implements api.Entity.
func (d *Domain) CollectionKey() string {
	if d.Id == 0 || d.CollectionPath() == "" {
		return ""
	}
	return fmt.Sprintf("%s%d/", d.CollectionPath(), d.Id)
}

// Client is a client for the domain resource.
type Client struct {
	client *api.Client
}

// NewClient creates a new client for the domain resource.
func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) Create(ctx context.Context, domain *Domain, opt ...api.Option) (*api.Status[Domain], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Create request")
	}
	if domain == nil || domain.App == nil {
		return nil, fmt.Errorf("domain with no app passed into Create request")
	}
	return api.Create(ctx, c.client, domain, opt...)
}

func (c *Client) Read(ctx context.Context, domain *Domain, opt ...api.Option) (*api.Status[Domain], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Read request")
	}
	if domain == nil || domain.CollectionKey() == "" {
		return nil, fmt.Errorf("domain with no key passed into Read request")
	}
	return api.Query(ctx, c.client, domain, opt...)
}

func (c *Client) List(ctx context.Context, app *apps.App, opt ...api.Option) (*api.Status[Domain], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in List request")
	}
	if app == nil || app.Id == 0 {
		return nil, fmt.Errorf("app with no id passed into List request")
	}
	return api.QueryList(ctx, c.client, &Domain{App: app}, opt...)
}

func (c *Client) Update(ctx context.Context, domain *Domain, opt ...api.Option) (*api.Status[Domain], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Update request")
	}
	if domain == nil || domain.CollectionKey() == "" {
		return nil, fmt.Errorf("domain with no key passed into Update request")
	}
	return api.Update(ctx, c.client, domain, opt...)
}

func (c *Client) Delete(ctx context.Context, domain *Domain, opt ...api.Option) (*api.Status[Domain], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Delete request")
	}
	if domain == nil || domain.CollectionKey() == "" {
		return nil, fmt.Errorf("domain with no key passed into Delete request")
	}
	return api.Remove(ctx, c.client, domain, opt...)
}
