package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Permit is the session credential bundle: owner email, password, the opaque
// bearer token issued by the platform, and an optional security code used
// only at signup.
//
// The client holds exactly one active Permit at a time, shared by all
// in-flight operations; it is replaced wholesale whenever a fresh token is
// obtained, never mutated in place.
type Permit struct {
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
	Token        string `json:"token,omitempty"`
	SecurityCode string `json:"security_code,omitempty"`
}

// CollectionPath implements Entity.
func (p *Permit) CollectionPath() string {
	return "permits/"
}

// CollectionKey implements Entity. A permit is keyed by its owner's email.
func (p *Permit) CollectionKey() string {
	if p.Email == "" {
		return ""
	}
	return "permits/" + url.PathEscape(p.Email) + "/"
}

// Signup registers a new platform account. The permit carries the owner
// email, the chosen password and, when the platform requires one, the signup
// security code. On success the issued permit (with its bearer token)
// becomes the client's active Permit.
func (c *Client) Signup(ctx context.Context, permit *Permit, opt ...Option) (*Status[Permit], error) {
	if permit == nil {
		return nil, errors.New("nil permit passed into Signup request")
	}
	st, err := execute[Permit](ctx, c, opCreate, permit, false, opt...)
	if err != nil {
		return nil, fmt.Errorf("error performing Signup call: %w", err)
	}
	if st.Ok() {
		if issued, ok := st.Payload.One(); ok && issued.Token != "" {
			c.SetPermit(issued)
		}
	}
	return st, nil
}

// RecoverPassword asks the platform to start password recovery for the given
// account email.
func (c *Client) RecoverPassword(ctx context.Context, email string, opt ...Option) (*Status[Permit], error) {
	if email == "" {
		return nil, errors.New("empty email passed into RecoverPassword request")
	}
	seed := &Permit{Email: email}
	st, err := execute[Permit](ctx, c, opUpdate, seed, false, opt...)
	if err != nil {
		return nil, fmt.Errorf("error performing RecoverPassword call: %w", err)
	}
	return st, nil
}

// QueryToken obtains a fresh bearer token for the held Permit using its
// password. On success the client's active Permit is atomically replaced
// with the refreshed one. This is a single round-trip: the token endpoint is
// itself password-authenticated and never enters the refresh retry loop.
func (c *Client) QueryToken(ctx context.Context, opt ...Option) (*Status[Permit], error) {
	p := c.ActivePermit()
	if p == nil {
		return nil, errors.New("no permit held in QueryToken request")
	}

	opts := getOpts(append(opt, WithDataValue("password", p.Password))...)
	if p.Token != "" {
		opts.data[tokenField] = p.Token
	}

	st, err := attempt[Permit, *Permit](ctx, c, opQueryOne, p, opts)
	if err != nil {
		return nil, fmt.Errorf("error performing QueryToken call: %w", err)
	}
	if st.Ok() {
		if refreshed, ok := st.Payload.One(); ok && refreshed.Token != "" {
			c.SetPermit(refreshed)
		}
	}
	return st, nil
}

// ResetToken revokes the held Permit's token and issues a new one bound to
// the given password. On success the client's active Permit is replaced.
func (c *Client) ResetToken(ctx context.Context, newPassword string, opt ...Option) (*Status[Permit], error) {
	p := c.ActivePermit()
	if p == nil {
		return nil, errors.New("no permit held in ResetToken request")
	}

	seed := *p
	seed.Password = newPassword
	st, err := execute[Permit](ctx, c, opRemove, &seed,
		false, append(opt, WithDataValue("password", newPassword))...)
	if err != nil {
		return nil, fmt.Errorf("error performing ResetToken call: %w", err)
	}
	if st.Ok() {
		if issued, ok := st.Payload.One(); ok && issued.Token != "" {
			c.SetPermit(issued)
		} else {
			next := seed
			next.Token = ""
			c.SetPermit(&next)
		}
	}
	return st, nil
}

// refreshPermit is the orchestrator's credential refresh step. It always
// reads the permit held at refresh time, so a password rotated by a
// concurrent caller is picked up rather than a snapshot taken at call start.
func (c *Client) refreshPermit(ctx context.Context) error {
	st, err := c.QueryToken(ctx)
	if err != nil {
		return err
	}
	if !st.Ok() {
		return fmt.Errorf("token refresh rejected: code %d (%s)", st.Code, st.Description)
	}
	refreshed, ok := st.Payload.One()
	if !ok || refreshed.Token == "" {
		return errors.New("token refresh returned no token")
	}
	return nil
}
