// Package deployments provides the typed client for app deployment
// resources, which live nested under their owning application.
package deployments

import (
	"context"
	"fmt"

	"github.com/nestyard/nest-go/api"
	"github.com/nestyard/nest-go/apps"
)

// Deployment is one deployed instance of an application. The owning App is
// carried outside the wire format; it scopes the resource paths and survives
// decoding because results are seeded from the query entity.
type Deployment struct {
	App *apps.App `json:"-"`

	Id        int64  `json:"id,omitempty"`
	ForestId  int64  `json:"forest_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Softwares string `json:"softwares,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CollectionPath implements api.Entity.
func (d *Deployment) CollectionPath() string {
	if d.App == nil {
		return ""
	}
	return d.App.CollectionKey() + "deployments/"
}

// CollectionKey implements api.Entity.
func (d *Deployment) CollectionKey() string {
	if d.Id == 0 || d.CollectionPath() == "" {
		return ""
	}
	return fmt.Sprintf("%s%d/", d.CollectionPath(), d.Id)
}

// Client is a client for the deployment resource.
type Client struct {
	client *api.Client
}

// NewClient creates a new client for the deployment resource.
func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) Create(ctx context.Context, deployment *Deployment, opt ...api.Option) (*api.Status[Deployment], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Create request")
	}
	if deployment == nil || deployment.App == nil {
		return nil, fmt.Errorf("deployment with no app passed into Create request")
	}
	return api.Create(ctx, c.client, deployment, opt...)
}

func (c *Client) Read(ctx context.Context, deployment *Deployment, opt ...api.Option) (*api.Status[Deployment], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Read request")
	}
	if deployment == nil || deployment.CollectionKey() == "" {
		return nil, fmt.Errorf("deployment with no key passed into Read request")
	}
	return api.Query(ctx, c.client, deployment, opt...)
}

func (c *Client) List(ctx context.Context, app *apps.App, opt ...api.Option) (*api.Status[Deployment], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in List request")
	}
	if app == nil || app.Id == 0 {
		return nil, fmt.Errorf("app with no id passed into List request")
	}
	return api.QueryList(ctx, c.client, &Deployment{App: app}, opt...)
}

func (c *Client) Update(ctx context.Context, deployment *Deployment, opt ...api.Option) (*api.Status[Deployment], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Update request")
	}
	if deployment == nil || deployment.CollectionKey() == "" {
		return nil, fmt.Errorf("deployment with no key passed into Update request")
	}
	return api.Update(ctx, c.client, deployment, opt...)
}

func (c *Client) Delete(ctx context.Context, deployment *Deployment, opt ...api.Option) (*api.Status[Deployment], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Delete request")
	}
	if deployment == nil || deployment.CollectionKey() == "" {
		return nil, fmt.Errorf("deployment with no key passed into Delete request")
	}
	return api.Remove(ctx, c.client, deployment, opt...)
}
