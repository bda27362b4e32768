// Package contacts provides the typed client for app collaborator contacts.
package contacts

import (
	"context"
	"fmt"

	"github.com/nestyard/nest-go/api"
	"github.com/nestyard/nest-go/apps"
)

// Contact is a collaborator invited to an application.
type Contact struct {
	App *apps.App `json:"-"`

	Id         int64  `json:"id,omitempty"`
	UserId     int64  `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Status     string `json:"status,omitempty"`
	InvitedAt  string `json:"invited_at,omitempty"`
	AcceptedAt string `json:"accepted_at,omitempty"`
}

// CollectionPath implements api.Entity.
func (c *Contact) CollectionPath() string {
	if c.App == nil {
		return ""
	}
	return c.App.CollectionKey() + "contacts/"
}

// CollectionKey implements api.Entity.
func (c *Contact) CollectionKey() string {
	if c.Id == 0 || c.CollectionPath() == "" {
		return ""
	}
	return fmt.Sprintf("%s%d/", c.CollectionPath(), c.Id)
}

// Client is a client for the contact resource.
type Client struct {
	client *api.Client
}

// NewClient creates a new client for the contact resource.
func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) Create(ctx context.Context, contact *Contact, opt ...api.Option) (*api.Status[Contact], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Create request")
	}
	if contact == nil || contact.App == nil {
		return nil, fmt.Errorf("contact with no app passed into Create request")
	}
	return api.Create(ctx, c.client, contact, opt...)
}

func (c *Client) Read(ctx context.Context, contact *Contact, opt ...api.Option) (*api.Status[Contact], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Read request")
	}
	if contact == nil || contact.CollectionKey() == "" {
		return nil, fmt.Errorf("contact with no key passed into Read request")
	}
	return api.Query(ctx, c.client, contact, opt...)
}

func (c *Client) List(ctx context.Context, app *apps.App, opt ...api.Option) (*api.Status[Contact], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in List request")
	}
	if app == nil || app.Id == 0 {
		return nil, fmt.Errorf("app with no id passed into List request")
	}
	return api.QueryList(ctx, c.client, &Contact{App: app}, opt...)
}

func (c *Client) Update(ctx context.Context, contact *Contact, opt ...api.Option) (*api.Status[Contact], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Update request")
	}
	if contact == nil || contact.CollectionKey() == "" {
		return nil, fmt.Errorf("contact with no key passed into Update request")
	}
	return api.Update(ctx, c.client, contact, opt...)
}

func (c *Client) Delete(ctx context.Context, contact *Contact, opt ...api.Option) (*api.Status[Contact], error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client in Delete request")
	}
	if contact == nil || contact.CollectionKey() == "" {
		return nil, fmt.Errorf("contact with no key passed into Delete request")
	}
	return api.Remove(ctx, c.client, contact, opt...)
}
