package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-client/library"
)

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the body of a successful login, register or refresh.
// Some backends nest the profile under "user", others flatten it.
type AuthResponse struct {
	Token     string        `json:"token"`
	ID        library.ID    `json:"id,omitempty"`
	Username  string        `json:"username,omitempty"`
	Email     string        `json:"email,omitempty"`
	FirstName string        `json:"firstName,omitempty"`
	LastName  string        `json:"lastName,omitempty"`
	Role      library.Role  `json:"role,omitempty"`
	User      *library.User `json:"user,omitempty"`
}

// Profile returns the nested user when present, otherwise one built from
// the flattened fields.
func (r AuthResponse) Profile() *library.User {
	if r.User != nil {
		return r.User
	}
	if r.Username == "" && r.ID == "" {
		return nil
	}
	return &library.User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      r.Role,
	}
}

var errNoToken = errors.New("backend returned no token")

// Login authenticates and stores the token and profile in the session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, &library.ValidationError{Messages: []string{"username and password are required"}}
	}
	var resp AuthResponse
	if err := c.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	if err := c.startSession(ctx, resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account. When the backend answers with a token the
// new account is signed in as well.
func (c *Client) Register(ctx context.Context, req library.UserRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, &library.ValidationError{Messages: []string{"password is required"}}
	}
	var resp AuthResponse
	if err := c.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		if err := c.startSession(ctx, resp); err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

// Logout forgets the stored session. The backend is stateless, so nothing
// is sent.
func (c *Client) Logout(ctx context.Context) error {
	if c.tokens == nil {
		return nil
	}
	return c.tokens.Clear(ctx)
}

// Validate asks the backend whether the stored token is still good. An
// invalid token, or any failure, clears the session.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	err := c.Post(ctx, "/auth/validate", nil, &resp)
	if err == nil && resp.Valid {
		return true, nil
	}
	if c.tokens != nil {
		if cerr := c.tokens.Clear(ctx); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("could not clear session")
		}
	}
	return false, err
}

// Refresh swaps the stored token for a fresh one.
func (c *Client) Refresh(ctx context.Context) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.Post(ctx, "/auth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	if err := c.startSession(ctx, resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) startSession(ctx context.Context, resp AuthResponse) error {
	if resp.Token == "" {
		return errNoToken
	}
	if c.tokens == nil {
		return nil
	}
	if err := c.tokens.Start(ctx, resp.Token, resp.Profile()); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// ProbeResult is the outcome of one endpoint check.
type ProbeResult struct {
	Path    string
	Status  int
	Latency time.Duration
	Err     error
}

// OK reports whether the endpoint answered with a 2xx status.
func (p ProbeResult) OK() bool { return p.Err == nil }

// PingPaths are the endpoints Ping checks.
var PingPaths = []string{"/books", "/users", "/loans", "/loans/active", "/loans/overdue"}

// Ping calls each of PingPaths once and reports how it went. It never
// fails as a whole; per-endpoint errors are in the results.
func (c *Client) Ping(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(PingPaths))
	for _, p := range PingPaths {
		start := time.Now()
		var discard any
		err := c.Get(ctx, p, &discard)
		res := ProbeResult{Path: p, Latency: time.Since(start), Err: err, Status: 200}
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr):
			res.Status = apiErr.StatusCode
		case err != nil:
			res.Status = 0
		}
		results = append(results, res)
	}
	return results
}
