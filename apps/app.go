// Package apps provides the typed client for application resources.
package apps

import (
	"context"
	"fmt"

	"github.com/nestyard/nest-go/api"
)

// App is a cloud-hosted application on the platform.
type App struct {
	Id        int64  `json:"id,omitempty"`
	OwnedById int64  `json:"owned_by_id,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	Status    string `json:"status,omitempty"`
	Backend   string `json:"backend,omitempty"`
	IpAddress string `json:"ip_address,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CollectionPath implements api.Entity.
func (a *App) CollectionPath() string {
	return "apps/"
}

// CollectionKey implements api.Entity.
func (a *App) CollectionKey() string {
	if a.Id == 0 {
		return ""
	}
	return fmt.Sprintf("apps/%d/", a.Id)
}

// Client is a client for the app resource.
type Client struct {
	client *api.Client
}

// NewClient creates a new client for the app resource.
func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) Create(ctx context.Context, app *App, opt ...api.Option) (*api.Status[App], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Create request")
	}
	if app == nil {
		return nil, fmt.Errorf("nil app passed into Create request")
	}
	return api.Create(ctx, c.client, app, opt...)
}

func (c *Client) Read(ctx context.Context, app *App, opt ...api.Option) (*api.Status[App], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Read request")
	}
	if app == nil || app.Id == 0 {
		return nil, fmt.Errorf("app with no id passed into Read request")
	}
	return api.Query(ctx, c.client, app, opt...)
}

func (c *Client) List(ctx context.Context, opt ...api.Option) (*api.Status[App], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in List request")
	}
	return api.QueryList(ctx, c.client, new(App), opt...)
}

func (c *Client) Update(ctx context.Context, app *App, opt ...api.Option) (*api.Status[App], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Update request")
	}
	if app == nil || app.Id == 0 {
		return nil, fmt.Errorf("app with no id passed into Update request")
	}
	return api.Update(ctx, c.client, app, opt...)
}

func (c *Client) Delete(ctx context.Context, app *App, opt ...api.Option) (*api.Status[App], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Delete request")
	}
	if app == nil || app.Id == 0 {
		return nil, fmt.Errorf("app with no id passed into Delete request")
	}
	return api.Remove(ctx, c.client, app, opt...)
}
