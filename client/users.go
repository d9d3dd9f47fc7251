package client

import (
	"context"
	"net/url"

	"library-client/library"
)

func (c *Client) ListUsers(ctx context.Context) ([]library.User, error) {
	var users []library.User
	err := c.Get(ctx, "/users", &users)
	return users, err
}

// ListMembers returns users with the MEMBER role.
func (c *Client) ListMembers(ctx context.Context) ([]library.User, error) {
	var users []library.User
	err := c.Get(ctx, "/users?"+url.Values{"role": {string(library.RoleMember)}}.Encode(), &users)
	return users, err
}

func (c *Client) GetUser(ctx context.Context, id library.ID) (*library.User, error) {
	var u library.User
	if err := c.Get(ctx, "/users/"+url.PathEscape(id.String()), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]library.User, error) {
	var users []library.User
	err := c.Get(ctx, "/users/search?"+url.Values{"query": {query}}.Encode(), &users)
	return users, err
}

func (c *Client) CreateUser(ctx context.Context, req library.UserRequest) (*library.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var u library.User
	if err := c.Post(ctx, "/users", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id library.ID, req library.UserRequest) (*library.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var u library.User
	if err := c.Put(ctx, "/users/"+url.PathEscape(id.String()), req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id library.ID) error {
	return c.Delete(ctx, "/users/"+url.PathEscape(id.String()), nil)
}

func (c *Client) ChangeRole(ctx context.Context, id library.ID, role library.Role) (*library.User, error) {
	if err := library.ValidateRole(role); err != nil {
		return nil, err
	}
	var u library.User
	body := map[string]library.Role{"role": role}
	if err := c.Put(ctx, "/users/"+url.PathEscape(id.String())+"/role", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UserStatistics returns the backend's own user figures. Their shape is
// backend-defined, so they are kept as a generic map.
func (c *Client) UserStatistics(ctx context.Context) (map[string]any, error) {
	stats := map[string]any{}
	err := c.Get(ctx, "/users/statistics", &stats)
	return stats, err
}
